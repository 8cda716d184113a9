package repository

import (
	"context"

	"ecshop/internal/domain/model"

	"github.com/shopspring/decimal"
)

// 一覧検索
type ProductListQuery struct {
	Page       int
	Limit      int
	Q          string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	CategoryID *int64
	Sort       string
}

// 管理画面の一覧。非公開も含む（削除済みは除く）
type AdminProductListQuery struct {
	Page       int
	Limit      int
	Q          string
	CategoryID *int64
	IsActive   *bool
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	ListPublic(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
	ListAdmin(ctx context.Context, q AdminProductListQuery) ([]model.Product, int64, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	SoftDelete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}
