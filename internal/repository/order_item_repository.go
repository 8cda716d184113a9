package repository

import (
	"context"

	"ecshop/internal/domain/model"
)

type OrderItemRepository interface {
	Create(ctx context.Context, item *model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
}
