package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ecshop/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError_Status(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{name: "http error", err: usecase.NewHTTPError(http.StatusNotFound, "not found"), status: http.StatusNotFound, msg: "not found"},
		{name: "empty cart", err: usecase.ErrEmptyCart, status: http.StatusBadRequest, msg: "cart is empty"},
		{name: "insufficient stock", err: &usecase.InsufficientStockError{ProductID: 1, ProductName: "A"}, status: http.StatusConflict, msg: "insufficient stock: A"},
		{name: "invalid transition", err: &usecase.InvalidStateTransitionError{From: "SHIPPING", To: "CANCELLED"}, status: http.StatusConflict, msg: "invalid state transition: SHIPPING -> CANCELLED"},
		{name: "external service", err: &usecase.ExternalServiceError{Service: "payment", Err: errors.New("secret detail")}, status: http.StatusBadGateway, msg: "payment service unavailable"},
		{name: "unknown", err: errors.New("boom"), status: http.StatusInternalServerError, msg: "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			require.NoError(t, writeError(c, tt.err))
			assert.Equal(t, tt.status, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.msg, body.Error)
		})
	}
}

func TestAddressErrorStatus(t *testing.T) {
	e := echo.New()
	for err, want := range map[error]int{
		usecase.ErrValidation:   http.StatusBadRequest,
		usecase.ErrUnauthorized: http.StatusUnauthorized,
		usecase.ErrForbidden:    http.StatusForbidden,
		usecase.ErrNotFound:     http.StatusNotFound,
		usecase.ErrConflict:     http.StatusConflict,
		usecase.ErrInternal:     http.StatusInternalServerError,
	} {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		require.NoError(t, addrWriteUsecaseError(c, err))
		assert.Equal(t, want, rec.Code, err.Error())
	}
}

func TestQueryHelpers(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?page=3&limit=x", nil), httptest.NewRecorder())

	n, ok := queryInt(c, "page", 1)
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	n, ok = queryInt(c, "missing", 20)
	assert.True(t, ok)
	assert.Equal(t, 20, n)

	_, ok = queryInt(c, "limit", 20)
	assert.False(t, ok)

	c.SetParamNames("id")
	c.SetParamValues("-4")
	_, ok = paramID(c, "id")
	assert.False(t, ok)
	c.SetParamValues("42")
	id, ok := paramID(c, "id")
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
}
