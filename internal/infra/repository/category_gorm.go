package repository

import (
	"context"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"

	"gorm.io/gorm"
)

type CategoryGormRepository struct {
	db *gorm.DB
}

func NewCategoryGormRepository(db *gorm.DB) *CategoryGormRepository {
	return &CategoryGormRepository{db: db}
}

// 公開カテゴリと、その中の公開商品数
func (r *CategoryGormRepository) ListActiveWithCounts(ctx context.Context) ([]model.CategoryWithCount, error) {
	var cats []model.Category
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name asc").
		Find(&cats).Error; err != nil {
		return nil, err
	}

	type countRow struct {
		CategoryID int64
		N          int64
	}
	var rows []countRow
	if err := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Select("category_id, COUNT(*) AS n").
		Where("is_active = ? AND category_id IS NOT NULL", true).
		Group("category_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[int64]int64, len(rows))
	for _, row := range rows {
		counts[row.CategoryID] = row.N
	}

	out := make([]model.CategoryWithCount, 0, len(cats))
	for _, c := range cats {
		out = append(out, model.CategoryWithCount{Category: c, ProductCount: counts[c.ID]})
	}
	return out, nil
}

func (r *CategoryGormRepository) ListAll(ctx context.Context) ([]model.Category, error) {
	var cats []model.Category
	if err := r.db.WithContext(ctx).Order("id asc").Find(&cats).Error; err != nil {
		return nil, err
	}
	return cats, nil
}

func (r *CategoryGormRepository) FindByID(ctx context.Context, id int64) (model.Category, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *CategoryGormRepository) FindBySlug(ctx context.Context, slug string) (model.Category, error) {
	return r.first(r.db.WithContext(ctx).Where("slug = ?", slug))
}

func (r *CategoryGormRepository) first(q *gorm.DB) (model.Category, error) {
	var c model.Category
	err := q.First(&c).Error
	if isNotFound(err) {
		return model.Category{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Category{}, err
	}
	return c, nil
}

func (r *CategoryGormRepository) Create(ctx context.Context, c model.Category) (model.Category, error) {
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		return model.Category{}, err
	}
	return c, nil
}

func (r *CategoryGormRepository) Update(ctx context.Context, c model.Category) error {
	res := r.db.WithContext(ctx).Model(&model.Category{}).Where("id = ?", c.ID).Updates(map[string]interface{}{
		"name":        c.Name,
		"slug":        c.Slug,
		"description": c.Description,
		"is_active":   c.IsActive,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *CategoryGormRepository) Deactivate(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Model(&model.Category{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
