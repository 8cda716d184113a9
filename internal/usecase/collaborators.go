package usecase

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"
)

// 配送見積もり
type ShippingQuoteRequest struct {
	DistrictID  int
	WardCode    string
	WeightGrams int64
}

type ShippingQuote struct {
	Fee              decimal.Decimal
	ExpectedDelivery string
	Deadline         *string
}

// 見積もり失敗時はチェックアウトを止めずにこの値を使う
const (
	DefaultShippingFee      = 35000
	DefaultExpectedDelivery = "3-7 days"
)

func DefaultShippingQuote() ShippingQuote {
	return ShippingQuote{
		Fee:              decimal.NewFromInt(DefaultShippingFee),
		ExpectedDelivery: DefaultExpectedDelivery,
	}
}

type ShippingQuoter interface {
	Quote(ctx context.Context, req ShippingQuoteRequest) (ShippingQuote, error)
}

// 決済
type PaymentIntentRequest struct {
	OrderID        int64
	UserID         int64
	Amount         decimal.Decimal
	Currency       string
	IdempotencyKey string
}

type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
}

type PaymentEventType string

const (
	PaymentEventSucceeded PaymentEventType = "payment_intent.succeeded"
	PaymentEventFailed    PaymentEventType = "payment_intent.payment_failed"
	PaymentEventCanceled  PaymentEventType = "payment_intent.canceled"
	PaymentEventRefunded  PaymentEventType = "charge.refunded"
)

// 署名検証済みの webhook イベント
type PaymentEvent struct {
	ID              string
	Type            PaymentEventType
	PaymentIntentID string
	OrderID         int64
}

type PaymentGateway interface {
	CreateIntent(ctx context.Context, req PaymentIntentRequest) (PaymentIntent, error)
	Refund(ctx context.Context, paymentIntentID string) error
	ParseWebhook(payload []byte, signature string) (PaymentEvent, error)
}

// ドメインイベント（commit後に送る。失敗してもリクエストは成功扱い）
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

const (
	EventOrderPlaced        = "order.placed"
	EventOrderCancelled     = "order.cancelled"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderPaid          = "order.paid"
	EventOrderRefunded      = "order.refunded"
)

type OrderEvent struct {
	Type           string          `json:"type"`
	OrderID        int64           `json:"order_id"`
	UserID         int64           `json:"user_id"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	ShippingStatus string          `json:"shipping_status"`
	PaymentStatus  string          `json:"payment_status"`
}

func (e OrderEvent) PartitionKey() string {
	return strconv.FormatInt(e.OrderID, 10)
}

// 決済完了メール
type PaymentReceipt struct {
	OrderID     int64
	TotalAmount decimal.Decimal
	Currency    string
}

type ReceiptMailer interface {
	SendPaymentReceipt(ctx context.Context, to string, r PaymentReceipt) error
}
