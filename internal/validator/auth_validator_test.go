package validator

import (
	"net/http"
	"testing"

	"ecshop/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRegister(t *testing.T) {
	v := NewAuthValidator()

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "ok", email: "a@example.com", password: "s3cretPass!", wantErr: nil},
		{name: "empty email", email: "  ", password: "s3cretPass!", wantErr: ErrInvalidInput},
		{name: "bad email", email: "no-at-mark", password: "s3cretPass!", wantErr: ErrInvalidEmail},
		{name: "short password", email: "a@example.com", password: "short", wantErr: ErrPasswordTooShort},
		{name: "weak password", email: "a@example.com", password: "Password", wantErr: ErrPasswordTooWeak},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateRegister(tt.email, tt.password)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)

			he, ok := usecase.AsHTTPError(err)
			require.True(t, ok)
			assert.Equal(t, http.StatusBadRequest, he.Status)
		})
	}
}

func TestValidateLogin(t *testing.T) {
	v := NewAuthValidator()

	assert.NoError(t, v.ValidateLogin("a@example.com", "x"))
	assert.ErrorIs(t, v.ValidateLogin("", "x"), ErrInvalidInput)
	assert.ErrorIs(t, v.ValidateLogin("a@example.com", ""), ErrInvalidInput)
	assert.ErrorIs(t, v.ValidateLogin("a@b", "x"), ErrInvalidEmail)
}

func TestValidateEmail(t *testing.T) {
	v := NewAuthValidator()

	assert.NoError(t, v.ValidateEmail(" a@example.com "))
	assert.ErrorIs(t, v.ValidateEmail(" "), ErrInvalidInput)
	assert.ErrorIs(t, v.ValidateEmail("a@b"), ErrInvalidEmail)
}
