package repository

import (
	"context"

	"ecshop/internal/domain/model"
)

type FavoriteRepository interface {
	ListByUserID(ctx context.Context, userID int64) ([]model.Favorite, error)
	Exists(ctx context.Context, userID, productID int64) (bool, error)
	Add(ctx context.Context, userID, productID int64) error
	Remove(ctx context.Context, userID, productID int64) error
}
