package repository

import (
	"context"

	"ecshop/internal/domain/model"
)

type CartItemRepository interface {
	ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error)
	FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error)
	// 同じ商品・同じサイズ/色の行
	FindVariant(ctx context.Context, userID, productID int64, size, color string) (model.CartItem, error)
	// 同一バリエーションは数量加算、無ければ作成
	AddOrIncrement(ctx context.Context, item model.CartItem) (model.CartItem, error)
	UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error
	DeleteByID(ctx context.Context, cartItemID int64) error
}
