package usecase

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsHTTPError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"plain", NewHTTPError(http.StatusNotFound, "not found"), http.StatusNotFound, "not found"},
		{"empty cart wrapped", fmt.Errorf("checkout: %w", ErrEmptyCart), http.StatusBadRequest, "cart is empty"},
		{"insufficient stock", &InsufficientStockError{ProductID: 1, ProductName: "T-shirt"}, http.StatusConflict, "insufficient stock: T-shirt"},
		{"transition", &InvalidStateTransitionError{From: "SHIPPING", To: "CANCELLED"}, http.StatusConflict, "invalid state transition: SHIPPING -> CANCELLED"},
		{"external", &ExternalServiceError{Service: "payment", Err: errors.New("card_declined")}, http.StatusBadGateway, "payment service unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			he, ok := AsHTTPError(tt.err)
			require.True(t, ok)
			assert.Equal(t, tt.wantStatus, he.Status)
			assert.Equal(t, tt.wantMsg, he.Message)
		})
	}

	_, ok := AsHTTPError(errors.New("boom"))
	assert.False(t, ok)
}

func TestExternalServiceError_Unwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := &ExternalServiceError{Service: "payment", Err: cause}
	assert.ErrorIs(t, err, cause)
}
