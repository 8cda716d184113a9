package repository

import (
	"context"
	"time"

	"ecshop/internal/domain/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DashboardGormRepository struct {
	db *gorm.DB
}

func NewDashboardGormRepository(db *gorm.DB) *DashboardGormRepository {
	return &DashboardGormRepository{db: db}
}

// PAID の売上合計
func (r *DashboardGormRepository) PaidRevenue(ctx context.Context) (decimal.Decimal, error) {
	var row struct {
		Total decimal.NullDecimal
	}
	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Select("SUM(total_amount) AS total").
		Where("payment_status = ?", model.PaymentStatusPaid).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !row.Total.Valid {
		return decimal.Zero, nil
	}
	return row.Total.Decimal, nil
}

func (r *DashboardGormRepository) CountOrders(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Order{}).Count(&n).Error
	return n, err
}

func (r *DashboardGormRepository) PaidOrdersSince(ctx context.Context, from time.Time) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Select("id", "total_amount", "created_at").
		Where("payment_status = ? AND created_at >= ?", model.PaymentStatusPaid, from).
		Order("created_at asc").
		Find(&orders).Error
	return orders, err
}

func (r *DashboardGormRepository) RecentOrders(ctx context.Context, limit int) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Order("created_at desc").Order("id desc").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

func (r *DashboardGormRepository) CountUserOrders(ctx context.Context, userID int64, status model.ShippingStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("user_id = ? AND shipping_status = ?", userID, status).
		Count(&n).Error
	return n, err
}

func (r *DashboardGormRepository) RecentUserOrders(ctx context.Context, userID int64, limit int) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Where("user_id = ?", userID).
		Order("created_at desc").Order("id desc").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}
