package repository

import (
	"context"

	"ecshop/internal/domain/model"
)

type CategoryRepository interface {
	// 公開カテゴリ＋公開商品数
	ListActiveWithCounts(ctx context.Context) ([]model.CategoryWithCount, error)
	ListAll(ctx context.Context) ([]model.Category, error)
	FindByID(ctx context.Context, id int64) (model.Category, error)
	FindBySlug(ctx context.Context, slug string) (model.Category, error)
	Create(ctx context.Context, c model.Category) (model.Category, error)
	Update(ctx context.Context, c model.Category) error
	// 削除は非公開化のみ
	Deactivate(ctx context.Context, id int64) error
}
