package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(s string) *string { return &s }

func TestTrimmedString(t *testing.T) {
	assert.Nil(t, TrimmedString(nil))
	assert.Nil(t, TrimmedString(ptr("   ")))
	assert.Equal(t, "Quận 1", *TrimmedString(ptr("  Quận 1 ")))
}

func TestStringValue(t *testing.T) {
	assert.Equal(t, "", StringValue(nil))
	assert.Equal(t, "a@b.vn", StringValue(ptr("a@b.vn")))
}
