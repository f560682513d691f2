package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteSuccessEmptyBody(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteSuccess(rr)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Body.String())
}

func TestWriteValidationError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteValidationError(rr, "subscriptionId is required")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"errors":["subscriptionId is required"]}`, rr.Body.String())
}

func TestWriteUnauthorized(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteUnauthorized(rr)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"errors":["Unauthorized"]}`, rr.Body.String())
}

func TestWriteNotFound(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteNotFound(rr, "Subscription is inactive")

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"errors":["Subscription is inactive"]}`, rr.Body.String())
}

func TestWriteServerErrorNoDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteServerError(rr)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Empty(t, rr.Body.String())
}
