package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
	"ecshop/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCartUsecase() (*memStore, *usecase.CartUsecase) {
	s := newMemStore()
	return s, usecase.NewCartUsecase(memCart{s}, memProducts{s})
}

func TestCart_AddMergesSameVariant(t *testing.T) {
	s, uc := newCartUsecase()
	u := s.addUser(model.User{})
	p := s.addProduct("Tee", 150, 10)
	ctx := context.Background()

	_, err := uc.AddToCart(ctx, u.ID, usecase.AddCartInput{ProductID: p.ID, Quantity: 2, SelectedSize: "M"})
	require.NoError(t, err)
	_, err = uc.AddToCart(ctx, u.ID, usecase.AddCartInput{ProductID: p.ID, Quantity: 1, SelectedSize: " M "})
	require.NoError(t, err)
	cart, err := uc.AddToCart(ctx, u.ID, usecase.AddCartInput{ProductID: p.ID, Quantity: 1, SelectedSize: "L"})
	require.NoError(t, err)

	require.Len(t, cart.Items, 2)
	assert.Equal(t, int64(3), cart.Items[0].Quantity)
	assert.Equal(t, "M", cart.Items[0].SelectedSize)
	assert.Equal(t, int64(1), cart.Items[1].Quantity)
	assert.True(t, cart.Total.Equal(decimal.NewFromInt(600)), "total=%s", cart.Total)
}

func TestCart_AddRejected(t *testing.T) {
	s, uc := newCartUsecase()
	u := s.addUser(model.User{})
	p := s.addProduct("Tee", 150, 3)
	hidden := s.addProduct("Hidden", 100, 3)
	hp := s.db.products[hidden.ID]
	hp.IsActive = false
	s.db.products[hidden.ID] = hp
	s.addCartItem(u.ID, p.ID, 2)

	tests := []struct {
		name   string
		userID int64
		in     usecase.AddCartInput
		status int
	}{
		{name: "anonymous", userID: 0, in: usecase.AddCartInput{ProductID: p.ID, Quantity: 1}, status: http.StatusUnauthorized},
		{name: "zero quantity", userID: u.ID, in: usecase.AddCartInput{ProductID: p.ID, Quantity: 0}, status: http.StatusBadRequest},
		{name: "over stock with existing", userID: u.ID, in: usecase.AddCartInput{ProductID: p.ID, Quantity: 2}, status: http.StatusBadRequest},
		{name: "inactive product", userID: u.ID, in: usecase.AddCartInput{ProductID: hidden.ID, Quantity: 1}, status: http.StatusBadRequest},
		{name: "missing product", userID: u.ID, in: usecase.AddCartInput{ProductID: 9999, Quantity: 1}, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.AddToCart(context.Background(), tt.userID, tt.in)
			assertHTTPStatus(t, err, tt.status)
		})
	}
	assert.Equal(t, 1, s.cartCount(u.ID))
}

func TestCart_UpdateAndDelete(t *testing.T) {
	s, uc := newCartUsecase()
	u := s.addUser(model.User{})
	other := s.addUser(model.User{})
	p := s.addProduct("Tee", 150, 5)
	item := s.addCartItem(u.ID, p.ID, 1)
	ctx := context.Background()

	cart, err := uc.UpdateCartItem(ctx, u.ID, item.ID, usecase.UpdateCartItemInput{Quantity: 4})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(4), cart.Items[0].Quantity)

	_, err = uc.UpdateCartItem(ctx, u.ID, item.ID, usecase.UpdateCartItemInput{Quantity: 6})
	assertHTTPStatus(t, err, http.StatusBadRequest)

	// 他人の明細は見えない
	_, err = uc.UpdateCartItem(ctx, other.ID, item.ID, usecase.UpdateCartItemInput{Quantity: 1})
	assertHTTPStatus(t, err, http.StatusNotFound)
	_, err = uc.DeleteCartItem(ctx, other.ID, item.ID)
	assertHTTPStatus(t, err, http.StatusNotFound)

	cart, err = uc.DeleteCartItem(ctx, u.ID, item.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.Total.IsZero())
}

// 非公開になった商品はカート表示から外れる
// 非公開になった商品の明細も id 付きで見え、削除すればチェックアウトできる
func TestCart_UnavailableLineBlocksCheckoutUntilRemoved(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	s := f.store
	uc := usecase.NewCartUsecase(memCart{s}, memProducts{s})
	ctx := context.Background()

	a := s.addProduct("A", 100, 5)
	b := s.addProduct("B", 200, 5)
	s.addCartItem(f.user.ID, a.ID, 1)
	lineB := s.addCartItem(f.user.ID, b.ID, 1)
	pb := s.db.products[b.ID]
	pb.IsActive = false
	s.db.products[b.ID] = pb

	cart, err := uc.GetCart(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.True(t, cart.Items[0].Available)
	assert.Equal(t, lineB.ID, cart.Items[1].ID)
	assert.Equal(t, "B", cart.Items[1].Name)
	assert.False(t, cart.Items[1].Available)
	assert.True(t, cart.HasUnavailable)
	assert.True(t, cart.Total.Equal(decimal.NewFromInt(100)), "total=%s", cart.Total)

	_, err = f.uc.Checkout(ctx, f.user.ID, usecase.CheckoutInput{})
	var stockErr *usecase.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, b.ID, stockErr.ProductID)
	assert.Equal(t, int64(5), s.stock(a.ID))

	cart, err = uc.DeleteCartItem(ctx, f.user.ID, lineB.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.False(t, cart.HasUnavailable)

	out, err := f.uc.Checkout(ctx, f.user.ID, usecase.CheckoutInput{})
	require.NoError(t, err)
	assert.True(t, out.Subtotal.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, int64(4), s.stock(a.ID))
}

// 削除済み商品の明細は名前なしで返す
func TestCart_GetKeepsDeletedProductLine(t *testing.T) {
	s, uc := newCartUsecase()
	u := s.addUser(model.User{})
	gone := s.addProduct("Gone", 100, 5)
	line := s.addCartItem(u.ID, gone.ID, 2)
	delete(s.db.products, gone.ID)

	cart, err := uc.GetCart(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, line.ID, cart.Items[0].ID)
	assert.False(t, cart.Items[0].Available)
	assert.True(t, cart.Total.IsZero())
}

func TestFavorites_Toggle(t *testing.T) {
	s := newMemStore()
	uc := usecase.NewFavoriteUsecase(memFavorites{s}, memProducts{s})
	u := s.addUser(model.User{})
	p := s.addProduct("A", 100, 5)
	ctx := context.Background()

	out, err := uc.Toggle(ctx, u.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, out.Favorited)

	list, err := uc.List(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)

	out, err = uc.Toggle(ctx, u.ID, p.ID)
	require.NoError(t, err)
	assert.False(t, out.Favorited)

	list, err = uc.List(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = uc.Toggle(ctx, u.ID, 9999)
	assertHTTPStatus(t, err, http.StatusNotFound)
}

func TestNotifications(t *testing.T) {
	s := newMemStore()
	uc := usecase.NewNotificationUsecase(memNotifications{s})
	u := s.addUser(model.User{})
	other := s.addUser(model.User{})
	ctx := context.Background()

	notifs := memNotifications{s}
	n1 := model.Notification{UserID: u.ID, Title: "one", Type: model.NotificationTypeOrder}
	n2 := model.Notification{UserID: u.ID, Title: "two", Type: model.NotificationTypePayment}
	require.NoError(t, notifs.Create(ctx, &n1))
	require.NoError(t, notifs.Create(ctx, &n2))

	list, err := uc.List(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "two", list.Items[0].Title)
	assert.Equal(t, 2, list.Unread)

	require.NoError(t, uc.MarkRead(ctx, u.ID, n1.ID))
	assertHTTPStatus(t, uc.MarkRead(ctx, other.ID, n2.ID), http.StatusNotFound)

	changed, err := uc.MarkAllRead(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	list, err = uc.List(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, list.Unread)
}

func TestUser_MeAndForceLogout(t *testing.T) {
	s := newMemStore()
	uc := usecase.NewUserUsecase(memUsers{s}, memAudits{s})
	target := s.addUser(model.User{Email: "target@example.com", TokenVersion: 3})
	ctx := context.Background()

	me, err := uc.Me(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, "target@example.com", me.Email)

	_, err = uc.Me(ctx, 9999)
	assertHTTPStatus(t, err, http.StatusUnauthorized)

	out, err := uc.ForceLogout(ctx, adminID, target.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, out.NewTokenVersion)
	assert.Equal(t, 4, s.db.users[target.ID].TokenVersion)

	logs, err := uc.ListAuditLogs(ctx, repo.AuditLogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.AuditActionForceLogout, logs[0].Action)
	assert.JSONEq(t, `{"token_version":3}`, logs[0].BeforeJSON)
	assert.JSONEq(t, `{"token_version":4}`, logs[0].AfterJSON)

	_, err = uc.ForceLogout(ctx, adminID, 9999)
	assertHTTPStatus(t, err, http.StatusNotFound)

	// 非アクティブは 403
	u := s.db.users[target.ID]
	u.IsActive = false
	s.db.users[target.ID] = u
	_, err = uc.Me(ctx, target.ID)
	assertHTTPStatus(t, err, http.StatusForbidden)
}
