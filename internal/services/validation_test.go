package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	type payload struct {
		Name string `validate:"required"`
	}

	assert.NoError(t, vh.ValidateStruct(&payload{Name: "ok"}))
	assert.Error(t, vh.ValidateStruct(&payload{}))
}

func TestSendErrorResponse(t *testing.T) {
	vh := NewValidationHelper()

	type payload struct {
		Email string `validate:"required,email"`
	}
	err := vh.ValidateStruct(&payload{Email: "not-an-email"})
	require.Error(t, err)

	w := httptest.NewRecorder()
	SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Validation failed", resp.Error)
	assert.Contains(t, resp.Details, "Email")
}
