package repository

import (
	"context"
	"time"

	"ecshop/internal/domain/model"

	"github.com/shopspring/decimal"
)

type AdminOrderListFilter struct {
	Page           int
	Limit          int
	ShippingStatus string
	PaymentStatus  string
	// 注文ID or 顧客メール
	Search string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	// ステータス遷移用。Tx内で注文行をロックする
	FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error)
	FindByPaymentIntentID(ctx context.Context, intentID string) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)

	UpdateTotals(ctx context.Context, orderID int64, subtotal, total decimal.Decimal) error
	UpdateShippingStatus(ctx context.Context, orderID int64, status model.ShippingStatus) error
	UpdatePaymentStatus(ctx context.Context, orderID int64, status model.PaymentStatus) error
	SetPaymentIntentID(ctx context.Context, orderID int64, intentID string) error
}
