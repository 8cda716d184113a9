package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"ecshop/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// 小数単位を持たない通貨（金額をそのまま渡す）
var zeroDecimalCurrencies = map[string]struct{}{
	"bif": {}, "clp": {}, "djf": {}, "gnf": {}, "jpy": {}, "kmf": {}, "krw": {}, "mga": {},
	"pyg": {}, "rwf": {}, "ugx": {}, "vnd": {}, "vuv": {}, "xaf": {}, "xof": {}, "xpf": {},
}

// ToMinorUnits は金額を Stripe の最小単位に変換する（USD 12.34 -> 1234, VND 35000 -> 35000）。
func ToMinorUnits(amount decimal.Decimal, currency string) int64 {
	if _, ok := zeroDecimalCurrencies[strings.ToLower(currency)]; ok {
		return amount.Round(0).IntPart()
	}
	return amount.Shift(2).Round(0).IntPart()
}

type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api, webhookSecret: webhookSecret}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, req usecase.PaymentIntentRequest) (usecase.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(ToMinorUnits(req.Amount, req.Currency)),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("order_id", strconv.FormatInt(req.OrderID, 10))
	params.AddMetadata("user_id", strconv.FormatInt(req.UserID, 10))
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return usecase.PaymentIntent{}, fmt.Errorf("stripe create payment intent: %w", err)
	}
	return usecase.PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}, nil
}

func (g *StripeGateway) Refund(ctx context.Context, paymentIntentID string) error {
	params := &stripe.RefundParams{PaymentIntent: stripe.String(paymentIntentID)}
	params.Context = ctx
	if _, err := g.api.Refunds.New(params); err != nil {
		return fmt.Errorf("stripe refund: %w", err)
	}
	return nil
}

// ParseWebhook は署名を検証してイベントを取り出す。
// 対象外のイベントも Type だけ埋めて返す（呼び出し側で無視する）。
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (usecase.PaymentEvent, error) {
	return parseWebhook(payload, signature, g.webhookSecret)
}

func parseWebhook(payload []byte, signature, secret string) (usecase.PaymentEvent, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return usecase.PaymentEvent{}, fmt.Errorf("stripe webhook: %w", err)
	}

	out := usecase.PaymentEvent{ID: ev.ID, Type: usecase.PaymentEventType(ev.Type)}
	if ev.Data == nil {
		return out, nil
	}

	switch out.Type {
	case usecase.PaymentEventSucceeded, usecase.PaymentEventFailed, usecase.PaymentEventCanceled:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return usecase.PaymentEvent{}, fmt.Errorf("stripe webhook: decode payment intent: %w", err)
		}
		out.PaymentIntentID = pi.ID
		out.OrderID = orderIDFromMetadata(pi.Metadata)
	case usecase.PaymentEventRefunded:
		var ch stripe.Charge
		if err := json.Unmarshal(ev.Data.Raw, &ch); err != nil {
			return usecase.PaymentEvent{}, fmt.Errorf("stripe webhook: decode charge: %w", err)
		}
		if ch.PaymentIntent != nil {
			out.PaymentIntentID = ch.PaymentIntent.ID
		}
		out.OrderID = orderIDFromMetadata(ch.Metadata)
	}
	return out, nil
}

func orderIDFromMetadata(md map[string]string) int64 {
	id, err := strconv.ParseInt(md["order_id"], 10, 64)
	if err != nil {
		return 0
	}
	return id
}
