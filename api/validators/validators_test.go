package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
)

type itemBody struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

type orderBody struct {
	PaymentMethod string     `json:"paymentMethod" validate:"required,oneof=cod bank"`
	Items         []itemBody `json:"items" validate:"required,min=1,dive"`
}

func TestDecodeJSONBodyValidation(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"paymentMethod":"card","items":[{"quantity":0}]}`))
	var body orderBody
	err := DecodeJSONBody(r, &body)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details := typed.Details().(pkgerrors.FieldErrors)
	assert.Equal(t, "must be one of: cod, bank", details["paymentMethod"])
	assert.Equal(t, "is required", details["items[0].quantity"])
}

func TestDecodeJSONBodyRejectsUnknownAndEmpty(t *testing.T) {
	var body orderBody
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"paymentMethod":"cod","items":[{"quantity":1}],"extra":true}`))
	assert.True(t, pkgerrors.IsCode(DecodeJSONBody(r, &body), pkgerrors.CodeValidation))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	assert.True(t, pkgerrors.IsCode(DecodeJSONBody(r, &body), pkgerrors.CodeValidation))
}

func TestParsePagination(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?page=3&limit=10", nil)
	p, err := ParsePagination(r)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 10, p.Limit)

	r = httptest.NewRequest(http.MethodGet, "/?limit=1000", nil)
	_, err = ParsePagination(r)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseQueryBool(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?featured=true", nil)
	v, err := ParseQueryBool(r, "featured")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.True(t, *v)

	v, err = ParseQueryBool(r, "missing")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "serum", SanitizeString("  serum  ", 0))
	assert.Equal(t, "ser", SanitizeString("serum", 3))
}
