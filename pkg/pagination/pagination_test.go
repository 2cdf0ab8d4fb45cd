package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultLimit, NormalizeLimit(-3))
	assert.Equal(t, MaxLimit, NormalizeLimit(500))
	assert.Equal(t, 10, NormalizeLimit(10))
}

func TestParamsOffset(t *testing.T) {
	assert.Equal(t, 0, Params{}.Offset())
	assert.Equal(t, 0, Params{Page: -1, Limit: 10}.Offset())
	assert.Equal(t, 20, Params{Page: 3, Limit: 10}.Offset())
}

func TestNewMeta(t *testing.T) {
	meta := NewMeta(Params{Page: 2, Limit: 10}, 25)
	assert.Equal(t, Meta{Page: 2, Limit: 10, Total: 25, TotalPages: 3}, meta)
	assert.Equal(t, 0, NewMeta(Params{}, 0).TotalPages)
}

func TestSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{3, 4}, Slice(items, Params{Page: 2, Limit: 2}))
	assert.Equal(t, []int{5}, Slice(items, Params{Page: 3, Limit: 2}))
	assert.Empty(t, Slice(items, Params{Page: 4, Limit: 2}))
}
