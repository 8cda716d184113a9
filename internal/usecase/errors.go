package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// usecase が返すエラー。handler は Status と Message をそのまま返す。
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

// 型付きのドメインエラーも HTTPError に変換できる
type httpErrorer interface {
	HTTPError() *HTTPError
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	if errors.As(err, &he) {
		return he, true
	}
	var conv httpErrorer
	if errors.As(err, &conv) {
		return conv.HTTPError(), true
	}
	return nil, false
}

// チェックアウト・ステータス遷移のエラー
var (
	ErrEmptyCart      = NewHTTPError(http.StatusBadRequest, "cart is empty")
	ErrInvalidAddress = NewHTTPError(http.StatusBadRequest, "invalid address")
)

// 在庫不足。どの商品かを返す
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
}

func (e *InsufficientStockError) Error() string {
	if e.ProductName == "" {
		return fmt.Sprintf("insufficient stock: product %d", e.ProductID)
	}
	return fmt.Sprintf("insufficient stock: %s", e.ProductName)
}

func (e *InsufficientStockError) HTTPError() *HTTPError {
	return &HTTPError{Status: http.StatusConflict, Message: e.Error()}
}

type InvalidStateTransitionError struct {
	From string
	To   string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: %s -> %s", e.From, e.To)
}

func (e *InvalidStateTransitionError) HTTPError() *HTTPError {
	return &HTTPError{Status: http.StatusConflict, Message: e.Error()}
}

// 外部サービス（決済）の失敗。原因はログにだけ出す
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s service error: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

func (e *ExternalServiceError) HTTPError() *HTTPError {
	return &HTTPError{Status: http.StatusBadGateway, Message: e.Service + " service unavailable"}
}
