package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type findRequest struct {
	FirstName string `json:"first_name" validate:"notblank,max=64"`
	LastName  string `json:"last_name" validate:"notblank,max=64"`
	Domain    string `json:"domain" validate:"required"`
	Strategy  string `json:"strategy,omitempty" validate:"omitempty,oneof=first ranked"`
}

func TestValidate_Success(t *testing.T) {
	err := Validate(findRequest{FirstName: "Jane", LastName: "Doe", Domain: "acme.com"})
	assert.NoError(t, err)
}

func TestValidate_UsesJSONFieldNames(t *testing.T) {
	err := Validate(findRequest{LastName: "Doe", Domain: "acme.com"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "is required", valErr.Fields()["first_name"])
	assert.Contains(t, err.Error(), "field 'first_name' is required")
}

func TestValidate_BlankIsRejected(t *testing.T) {
	err := Validate(findRequest{FirstName: "   ", LastName: "Doe", Domain: "acme.com"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields(), "first_name")
}

func TestValidate_OneOf(t *testing.T) {
	err := Validate(findRequest{FirstName: "Jane", LastName: "Doe", Domain: "acme.com", Strategy: "fastest"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be one of: first ranked", valErr.Fields()["strategy"])
}

func TestValidate_Max(t *testing.T) {
	err := Validate(findRequest{FirstName: strings.Repeat("a", 65), LastName: "Doe", Domain: "acme.com"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be at most 64 characters", valErr.Fields()["first_name"])
}

func TestDecodeAndValidate(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"first_name":"Jane","last_name":"Doe","domain":"acme.com"}`))
	var dst findRequest
	require.NoError(t, DecodeAndValidate(req, &dst))
	assert.Equal(t, "Jane", dst.FirstName)
}

func TestDecodeAndValidate_BadJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{not json`))
	var dst findRequest
	err := DecodeAndValidate(req, &dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}
