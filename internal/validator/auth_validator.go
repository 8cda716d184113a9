package validator

import (
	"net/http"
	"regexp"
	"strings"

	"ecshop/internal/usecase"
)

const minPasswordLen = 8

var (
	// 入力が不正
	ErrInvalidInput = usecase.NewHTTPError(http.StatusBadRequest, "invalid input")
	// email形式が不正
	ErrInvalidEmail = usecase.NewHTTPError(http.StatusBadRequest, "invalid email")
	// パスワードが短い
	ErrPasswordTooShort = usecase.NewHTTPError(http.StatusBadRequest, "password must be at least 8 characters")
	// よく使われるパスワード
	ErrPasswordTooWeak = usecase.NewHTTPError(http.StatusBadRequest, "password is too weak")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var weakPasswords = map[string]struct{}{
	"password":  {},
	"password1": {},
	"12345678":  {},
	"123456789": {},
	"qwertyui":  {},
	"11111111":  {},
	"abcd1234":  {},
	"iloveyou":  {},
}

// AuthValidator は auth usecase の RegisterValidator / LoginValidator を満たす。
// email の重複は DB を見る usecase 側で判定する。
type AuthValidator struct{}

func NewAuthValidator() *AuthValidator {
	return &AuthValidator{}
}

// サインアップの入力を検証
func (v *AuthValidator) ValidateRegister(email string, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return ErrInvalidInput
	}
	if !isEmailLike(email) {
		return ErrInvalidEmail
	}
	if len(password) < minPasswordLen {
		return ErrPasswordTooShort
	}
	if _, weak := weakPasswords[strings.ToLower(password)]; weak {
		return ErrPasswordTooWeak
	}
	return nil
}

// ログインの入力を検証
func (v *AuthValidator) ValidateLogin(email string, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return ErrInvalidInput
	}
	if !isEmailLike(email) {
		return ErrInvalidEmail
	}
	return nil
}

// 管理者によるメール変更
func (v *AuthValidator) ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrInvalidInput
	}
	if !isEmailLike(email) {
		return ErrInvalidEmail
	}
	return nil
}

func isEmailLike(s string) bool {
	return emailPattern.MatchString(s)
}
