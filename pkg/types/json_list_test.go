package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineItem struct {
	ID    string `json:"id"`
	Price int64  `json:"price"`
}

func TestJSONListScanAcceptsArrayAndEncodedString(t *testing.T) {
	var direct JSONList[lineItem]
	require.NoError(t, direct.Scan([]byte(`[{"id":"a","price":219000}]`)))

	var doubled JSONList[lineItem]
	require.NoError(t, doubled.Scan(`"[{\"id\":\"a\",\"price\":219000}]"`))

	assert.Equal(t, direct, doubled)
	assert.Equal(t, int64(219000), doubled[0].Price)
}

func TestJSONListScanNilIsEmpty(t *testing.T) {
	var l JSONList[string]
	require.NoError(t, l.Scan(nil))
	assert.NotNil(t, l)
	assert.Empty(t, l)
}

func TestJSONListScanRejectsGarbage(t *testing.T) {
	var l JSONList[string]
	assert.Error(t, l.Scan("{not json"))
	assert.Error(t, l.Scan(42))
}

func TestJSONListMarshalNeverNull(t *testing.T) {
	var l JSONList[string]
	out, err := json.Marshal(struct {
		Tags JSONList[string] `json:"tags"`
	}{Tags: l})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tags":[]}`, string(out))

	value, err := l.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", value)
}

func TestJSONListUnmarshalFromRequestBody(t *testing.T) {
	var body struct {
		Needs JSONList[string] `json:"needs"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"needs":"[\"da dầu\",\"mụn\"]"}`), &body))
	assert.Equal(t, JSONList[string]{"da dầu", "mụn"}, body.Needs)
}
