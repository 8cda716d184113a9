package handler

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"ecshop/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

// 受け取った本文だけ覚えて、署名は常に不一致にする
type payloadRecorder struct {
	usecase.PaymentGateway
	got []byte
}

func (g *payloadRecorder) ParseWebhook(payload []byte, signature string) (usecase.PaymentEvent, error) {
	g.got = payload
	return usecase.PaymentEvent{}, errors.New("signature mismatch")
}

func postWebhook(h *PaymentHandler, body []byte) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	_ = h.webhook(e.NewContext(req, rec))
	return rec
}

func TestWebhook_BodyLimit(t *testing.T) {
	gw := &payloadRecorder{}
	h := NewPaymentHandler(usecase.NewPaymentUsecase(usecase.PaymentDeps{
		Gateway: gw,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, ""))

	// 上限ちょうどは切り詰めずに署名検証へ渡す
	rec := postWebhook(h, bytes.Repeat([]byte("a"), maxWebhookBody))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, gw.got, maxWebhookBody)

	gw.got = nil
	rec = postWebhook(h, bytes.Repeat([]byte("a"), maxWebhookBody+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Nil(t, gw.got)
}
