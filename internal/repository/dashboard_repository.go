package repository

import (
	"context"
	"time"

	"ecshop/internal/domain/model"

	"github.com/shopspring/decimal"
)

// 管理ダッシュボードとマイページの集計
type DashboardRepository interface {
	PaidRevenue(ctx context.Context) (decimal.Decimal, error)
	CountOrders(ctx context.Context) (int64, error)
	// from 以降の PAID 注文（日別売上の計算用）
	PaidOrdersSince(ctx context.Context, from time.Time) ([]model.Order, error)
	RecentOrders(ctx context.Context, limit int) ([]model.Order, error)

	// マイページ用（ユーザー単位）
	CountUserOrders(ctx context.Context, userID int64, status model.ShippingStatus) (int64, error)
	// 明細（Items）付き
	RecentUserOrders(ctx context.Context, userID int64, limit int) ([]model.Order, error)
}
