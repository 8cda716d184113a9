package repository

import (
	"context"

	"ecshop/internal/domain/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FavoriteGormRepository struct {
	db *gorm.DB
}

func NewFavoriteGormRepository(db *gorm.DB) *FavoriteGormRepository {
	return &FavoriteGormRepository{db: db}
}

func (r *FavoriteGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.Favorite, error) {
	var favs []model.Favorite
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id desc").
		Find(&favs).Error; err != nil {
		return nil, err
	}
	return favs, nil
}

func (r *FavoriteGormRepository) Exists(ctx context.Context, userID, productID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Favorite{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Count(&n).Error
	return n > 0, err
}

// 二重登録はユニーク制約で無視
func (r *FavoriteGormRepository) Add(ctx context.Context, userID, productID int64) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.Favorite{UserID: userID, ProductID: productID}).Error
}

func (r *FavoriteGormRepository) Remove(ctx context.Context, userID, productID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&model.Favorite{}).Error
}
