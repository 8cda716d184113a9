package repository

import (
	"context"
	"strconv"
	"strings"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func (r *OrderGormRepository) Create(ctx context.Context, order *model.Order) error {
	// 明細は別で作るので関連は保存しない
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	return r.findByID(r.db.WithContext(ctx), orderID)
}

func (r *OrderGormRepository) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	return r.findByID(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), orderID)
}

func (r *OrderGormRepository) FindByPaymentIntentID(ctx context.Context, intentID string) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).Where("payment_intent_id = ?", intentID).First(&o).Error
	if isNotFound(err) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (r *OrderGormRepository) findByID(q *gorm.DB, orderID int64) (model.Order, error) {
	var o model.Order
	err := q.Where("id = ?", orderID).First(&o).Error
	if isNotFound(err) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (r *OrderGormRepository) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return []model.Order{}, 0, err
	}

	var items []model.Order
	offset := (page - 1) * limit
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id desc").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return []model.Order{}, 0, err
	}

	return items, total, nil
}

func (r *OrderGormRepository) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}

	q := r.db.WithContext(ctx).Model(&model.Order{})

	if f.ShippingStatus != "" {
		q = q.Where("orders.shipping_status = ?", f.ShippingStatus)
	}
	if f.PaymentStatus != "" {
		q = q.Where("orders.payment_status = ?", f.PaymentStatus)
	}
	if f.UserID != nil {
		q = q.Where("orders.user_id = ?", *f.UserID)
	}

	//検索：数字なら注文ID、それ以外はメール部分一致
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Joins("JOIN users ON users.id = orders.user_id")
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			q = q.Where("orders.id = ? OR LOWER(users.email) LIKE ?", id, like)
		} else {
			q = q.Where("LOWER(users.email) LIKE ?", like)
		}
	}

	if f.From != nil {
		q = q.Where("orders.created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("orders.created_at <= ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Order{}, 0, err
	}

	var items []model.Order
	offset := (f.Page - 1) * f.Limit
	if err := q.Select("orders.*").Order("orders.id desc").Limit(f.Limit).Offset(offset).Find(&items).Error; err != nil {
		return []model.Order{}, 0, err
	}

	return items, total, nil
}

func (r *OrderGormRepository) UpdateTotals(ctx context.Context, orderID int64, subtotal, total decimal.Decimal) error {
	return r.updateColumns(ctx, orderID, map[string]interface{}{
		"subtotal":     subtotal,
		"total_amount": total,
	})
}

func (r *OrderGormRepository) UpdateShippingStatus(ctx context.Context, orderID int64, status model.ShippingStatus) error {
	return r.updateColumns(ctx, orderID, map[string]interface{}{"shipping_status": status})
}

func (r *OrderGormRepository) UpdatePaymentStatus(ctx context.Context, orderID int64, status model.PaymentStatus) error {
	return r.updateColumns(ctx, orderID, map[string]interface{}{"payment_status": status})
}

func (r *OrderGormRepository) SetPaymentIntentID(ctx context.Context, orderID int64, intentID string) error {
	return r.updateColumns(ctx, orderID, map[string]interface{}{"payment_intent_id": intentID})
}

func (r *OrderGormRepository) updateColumns(ctx context.Context, orderID int64, cols map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(cols)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
