package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"

	"github.com/shopspring/decimal"
)

// CartUsecase は /cart の業務ロジック。
type CartUsecase struct {
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
}

func NewCartUsecase(cartItemRepo repo.CartItemRepository, productRepo repo.ProductRepository) *CartUsecase {
	return &CartUsecase{
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
	}
}

// price は現在の商品価格（確定はチェックアウト時）
// available=false の明細は合計に含めず、削除されるまでチェックアウトできない
type CartItemResponse struct {
	ID            int64           `json:"id"`
	ProductID     int64           `json:"product_id"`
	Name          string          `json:"name"`
	ImageURL      string          `json:"image_url,omitempty"`
	Price         decimal.Decimal `json:"price"`
	Quantity      int64           `json:"quantity"`
	SelectedSize  string          `json:"selected_size,omitempty"`
	SelectedColor string          `json:"selected_color,omitempty"`
	Stock         int64           `json:"stock"`
	Available     bool            `json:"available"`
}

type CartResponse struct {
	Items          []CartItemResponse `json:"items"`
	Total          decimal.Decimal    `json:"total"`
	HasUnavailable bool               `json:"has_unavailable"`
}

type AddCartInput struct {
	ProductID     int64
	Quantity      int64
	SelectedSize  string
	SelectedColor string
}

type UpdateCartItemInput struct {
	Quantity int64
}

func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return u.buildCartResponse(ctx, userID)
}

// AddToCart はカートに追加（同一商品・同一サイズ/色は数量加算）。
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, in AddCartInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}
	size := strings.TrimSpace(in.SelectedSize)
	color := strings.TrimSpace(in.SelectedColor)

	// 商品チェック（公開のみ）
	p, err := u.activeProduct(ctx, in.ProductID)
	if err != nil {
		return CartResponse{}, err
	}

	var existingQty int64
	existing, err := u.cartItemRepo.FindVariant(ctx, userID, in.ProductID, size, color)
	switch {
	case err == nil:
		existingQty = existing.Quantity
	case errors.Is(err, repo.ErrNotFound):
	default:
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if existingQty+in.Quantity > p.Stock {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "stock exceeded")
	}

	if _, err := u.cartItemRepo.AddOrIncrement(ctx, model.CartItem{
		UserID:        userID,
		ProductID:     in.ProductID,
		Quantity:      in.Quantity,
		SelectedSize:  size,
		SelectedColor: color,
	}); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildCartResponse(ctx, userID)
}

// 数量変更（所有チェック＋在庫チェック）。
func (u *CartUsecase) UpdateCartItem(ctx context.Context, userID int64, cartItemID int64, in UpdateCartItemInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	item, err := u.ownedItem(ctx, userID, cartItemID)
	if err != nil {
		return CartResponse{}, err
	}

	p, err := u.activeProduct(ctx, item.ProductID)
	if err != nil {
		return CartResponse{}, err
	}
	if in.Quantity > p.Stock {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "stock exceeded")
	}

	if err := u.cartItemRepo.UpdateQuantity(ctx, cartItemID, in.Quantity); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return CartResponse{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildCartResponse(ctx, userID)
}

// 明細削除
func (u *CartUsecase) DeleteCartItem(ctx context.Context, userID int64, cartItemID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if _, err := u.ownedItem(ctx, userID, cartItemID); err != nil {
		return CartResponse{}, err
	}

	if err := u.cartItemRepo.DeleteByID(ctx, cartItemID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return CartResponse{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildCartResponse(ctx, userID)
}

// 他人の明細は「存在しない扱い」
func (u *CartUsecase) ownedItem(ctx context.Context, userID, cartItemID int64) (model.CartItem, error) {
	item, err := u.cartItemRepo.FindByID(ctx, cartItemID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.CartItem{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.CartItem{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if item.UserID != userID {
		return model.CartItem{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	return item, nil
}

func (u *CartUsecase) activeProduct(ctx context.Context, productID int64) (model.Product, error) {
	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "product not available")
	}
	if err != nil {
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !p.IsActive {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "product not available")
	}
	return p, nil
}

// ユーザーの明細をまとめてCartResponseを作る。
// 非公開・削除済みの商品も id 付きで返す（available=false）。
func (u *CartUsecase) buildCartResponse(ctx context.Context, userID int64) (CartResponse, error) {
	items, err := u.cartItemRepo.ListByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	resp := CartResponse{Items: make([]CartItemResponse, 0, len(items)), Total: decimal.Zero}

	for _, it := range items {
		line := CartItemResponse{
			ID:            it.ID,
			ProductID:     it.ProductID,
			Quantity:      it.Quantity,
			SelectedSize:  it.SelectedSize,
			SelectedColor: it.SelectedColor,
		}

		p, err := u.productRepo.FindByID(ctx, it.ProductID)
		switch {
		case errors.Is(err, repo.ErrNotFound):
		case err != nil:
			return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
		default:
			line.Name = p.Name
			line.ImageURL = p.ImageURL
			line.Price = p.Price
			line.Stock = p.Stock
			line.Available = p.IsActive
		}

		if !line.Available {
			resp.HasUnavailable = true
		} else {
			resp.Total = resp.Total.Add(p.Price.Mul(decimal.NewFromInt(it.Quantity)))
		}
		resp.Items = append(resp.Items, line)
	}

	return resp, nil
}
