package usecase

import (
	"context"
	"errors"
	"net/http"
	"time"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	profileRecentOrders = 5
	profileWishlist     = 4
)

// ProfileUsecase はマイページ（GET /profile）の集計。
type ProfileUsecase struct {
	dashboard repo.DashboardRepository
	favorites repo.FavoriteRepository
	products  repo.ProductRepository
}

func NewProfileUsecase(dashboard repo.DashboardRepository, favorites repo.FavoriteRepository, products repo.ProductRepository) *ProfileUsecase {
	return &ProfileUsecase{dashboard: dashboard, favorites: favorites, products: products}
}

type ProfileStats struct {
	ProcessingOrders int64 `json:"processing_orders"`
	CompletedOrders  int64 `json:"completed_orders"`
	WishlistCount    int   `json:"wishlist_count"`
}

type ProfileRecentOrder struct {
	ID            int64                `json:"id"`
	Date          time.Time            `json:"date"`
	FirstItemName string               `json:"first_item_name"`
	Total         decimal.Decimal      `json:"total"`
	Status        model.ShippingStatus `json:"status"`
	ItemsCount    int                  `json:"items_count"`
}

type ProfileOutput struct {
	Stats        ProfileStats         `json:"stats"`
	RecentOrders []ProfileRecentOrder `json:"recent_orders"`
	Wishlist     []model.Product      `json:"wishlist"`
}

// Dashboard は処理中（PENDING）と完了（DELIVERED）の件数、直近の注文、お気に入りの先頭を返す。
// wishlist_count は公開中のお気に入り全件の数。
func (u *ProfileUsecase) Dashboard(ctx context.Context, userID int64) (ProfileOutput, error) {
	if userID <= 0 {
		return ProfileOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var out ProfileOutput
	var err error

	if out.Stats.ProcessingOrders, err = u.dashboard.CountUserOrders(ctx, userID, model.ShippingStatusPending); err != nil {
		return ProfileOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if out.Stats.CompletedOrders, err = u.dashboard.CountUserOrders(ctx, userID, model.ShippingStatusDelivered); err != nil {
		return ProfileOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	orders, err := u.dashboard.RecentUserOrders(ctx, userID, profileRecentOrders)
	if err != nil {
		return ProfileOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	out.RecentOrders = make([]ProfileRecentOrder, 0, len(orders))
	for _, o := range orders {
		ro := ProfileRecentOrder{
			ID:         o.ID,
			Date:       o.CreatedAt,
			Total:      o.TotalAmount,
			Status:     o.ShippingStatus,
			ItemsCount: len(o.Items),
		}
		// 商品名は購入時のスナップショット
		if len(o.Items) > 0 {
			ro.FirstItemName = o.Items[0].ProductNameSnapshot
		}
		out.RecentOrders = append(out.RecentOrders, ro)
	}

	favs, err := u.favorites.ListByUserID(ctx, userID)
	if err != nil {
		return ProfileOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	out.Wishlist = make([]model.Product, 0, profileWishlist)
	for _, f := range favs {
		p, err := u.products.FindByID(ctx, f.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return ProfileOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !p.IsActive {
			continue
		}
		out.Stats.WishlistCount++
		if len(out.Wishlist) < profileWishlist {
			out.Wishlist = append(out.Wishlist, p)
		}
	}

	return out, nil
}
