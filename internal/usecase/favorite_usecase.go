package usecase

import (
	"context"
	"errors"
	"net/http"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
)

type FavoriteUsecase struct {
	favorites repo.FavoriteRepository
	products  repo.ProductRepository
}

func NewFavoriteUsecase(favorites repo.FavoriteRepository, products repo.ProductRepository) *FavoriteUsecase {
	return &FavoriteUsecase{favorites: favorites, products: products}
}

type ToggleFavoriteOutput struct {
	ProductID int64 `json:"product_id"`
	Favorited bool  `json:"favorited"`
}

// お気に入りの商品（非公開になったものは除く）
func (u *FavoriteUsecase) List(ctx context.Context, userID int64) ([]model.Product, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	favs, err := u.favorites.ListByUserID(ctx, userID)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := make([]model.Product, 0, len(favs))
	for _, f := range favs {
		p, err := u.products.FindByID(ctx, f.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

// Toggle は登録済みなら外し、未登録なら追加する
func (u *FavoriteUsecase) Toggle(ctx context.Context, userID, productID int64) (ToggleFavoriteOutput, error) {
	if userID <= 0 {
		return ToggleFavoriteOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return ToggleFavoriteOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}

	exists, err := u.favorites.Exists(ctx, userID, productID)
	if err != nil {
		return ToggleFavoriteOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if exists {
		if err := u.favorites.Remove(ctx, userID, productID); err != nil {
			return ToggleFavoriteOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return ToggleFavoriteOutput{ProductID: productID, Favorited: false}, nil
	}

	p, err := u.products.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && !p.IsActive) {
		return ToggleFavoriteOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return ToggleFavoriteOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.favorites.Add(ctx, userID, productID); err != nil {
		return ToggleFavoriteOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return ToggleFavoriteOutput{ProductID: productID, Favorited: true}, nil
}
