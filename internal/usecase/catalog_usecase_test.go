package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
	"ecshop/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCategoryRepo struct {
	mock.Mock
}

func (m *MockCategoryRepo) ListActiveWithCounts(ctx context.Context) ([]model.CategoryWithCount, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.CategoryWithCount), args.Error(1)
}

func (m *MockCategoryRepo) ListAll(ctx context.Context) ([]model.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.Category), args.Error(1)
}

func (m *MockCategoryRepo) FindByID(ctx context.Context, id int64) (model.Category, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Category), args.Error(1)
}

func (m *MockCategoryRepo) FindBySlug(ctx context.Context, slug string) (model.Category, error) {
	args := m.Called(ctx, slug)
	return args.Get(0).(model.Category), args.Error(1)
}

func (m *MockCategoryRepo) Create(ctx context.Context, c model.Category) (model.Category, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(model.Category), args.Error(1)
}

func (m *MockCategoryRepo) Update(ctx context.Context, c model.Category) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCategoryRepo) Deactivate(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

// =====================
// Category
// =====================

func TestCategory_CreateSlugifiesName(t *testing.T) {
	cats := &MockCategoryRepo{}
	uc := usecase.NewCategoryUsecase(cats)

	want := model.Category{Name: "Men's Shoes", Slug: "men-s-shoes", IsActive: true}
	cats.On("FindBySlug", mock.Anything, "men-s-shoes").Return(model.Category{}, repo.ErrNotFound).Once()
	cats.On("Create", mock.Anything, want).Return(model.Category{ID: 1, Name: want.Name, Slug: want.Slug, IsActive: true}, nil).Once()

	got, err := uc.AdminCreate(context.Background(), usecase.CategoryInput{Name: "  Men's Shoes ", IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, "men-s-shoes", got.Slug)
	cats.AssertExpectations(t)
}

func TestCategory_SlugConflict(t *testing.T) {
	cats := &MockCategoryRepo{}
	uc := usecase.NewCategoryUsecase(cats)
	cats.On("FindBySlug", mock.Anything, "shoes").Return(model.Category{ID: 7, Slug: "shoes"}, nil)

	_, err := uc.AdminCreate(context.Background(), usecase.CategoryInput{Name: "Shoes", Slug: "shoes"})
	assertHTTPStatus(t, err, http.StatusConflict)

	// 自分自身の slug はそのまま使える
	cats.On("Update", mock.Anything, mock.MatchedBy(func(c model.Category) bool { return c.ID == 7 })).Return(nil).Once()
	_, err = uc.AdminUpdate(context.Background(), 7, usecase.CategoryInput{Name: "Shoes", Slug: "shoes"})
	require.NoError(t, err)

	_, err = uc.AdminUpdate(context.Background(), 8, usecase.CategoryInput{Name: "Shoes", Slug: "shoes"})
	assertHTTPStatus(t, err, http.StatusConflict)
	cats.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCategory_Validation(t *testing.T) {
	cats := &MockCategoryRepo{}
	uc := usecase.NewCategoryUsecase(cats)

	_, err := uc.AdminCreate(context.Background(), usecase.CategoryInput{Name: " "})
	assertHTTPStatus(t, err, http.StatusBadRequest)
	_, err = uc.AdminCreate(context.Background(), usecase.CategoryInput{Name: "Bags", Slug: "bags!"})
	assertHTTPStatus(t, err, http.StatusBadRequest)

	cats.On("Deactivate", mock.Anything, int64(3)).Return(repo.ErrNotFound).Once()
	assertHTTPStatus(t, uc.AdminDelete(context.Background(), 3), http.StatusNotFound)
	cats.AssertExpectations(t)
}

// =====================
// Product
// =====================

func TestProduct_ListValidation(t *testing.T) {
	s := newMemStore()
	uc := usecase.NewProductUsecase(memProducts{s}, &MockCategoryRepo{}, s)
	neg := decimal.NewFromInt(-1)
	lo, hi := decimal.NewFromInt(500), decimal.NewFromInt(100)

	tests := []struct {
		name string
		in   usecase.ListProductsInput
	}{
		{name: "page 0", in: usecase.ListProductsInput{Page: 0, Limit: 10}},
		{name: "limit too big", in: usecase.ListProductsInput{Page: 1, Limit: 101}},
		{name: "negative min", in: usecase.ListProductsInput{Page: 1, Limit: 10, MinPrice: &neg}},
		{name: "min > max", in: usecase.ListProductsInput{Page: 1, Limit: 10, MinPrice: &lo, MaxPrice: &hi}},
		{name: "unknown sort", in: usecase.ListProductsInput{Page: 1, Limit: 10, Sort: "popular"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.ListPublicProducts(context.Background(), tt.in)
			assertHTTPStatus(t, err, http.StatusBadRequest)
		})
	}
}

func TestProduct_DetailHidesInactive(t *testing.T) {
	s := newMemStore()
	uc := usecase.NewProductUsecase(memProducts{s}, &MockCategoryRepo{}, s)
	p := s.addProduct("A", 100, 5)

	got, err := uc.GetProductDetail(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Name)

	hidden := s.db.products[p.ID]
	hidden.IsActive = false
	s.db.products[p.ID] = hidden
	_, err = uc.GetProductDetail(context.Background(), p.ID)
	assertHTTPStatus(t, err, http.StatusNotFound)
}

func TestProduct_AdminUpdateInventory(t *testing.T) {
	s := newMemStore()
	uc := usecase.NewProductUsecase(memProducts{s}, &MockCategoryRepo{}, s)
	p := s.addProduct("A", 100, 5)

	require.NoError(t, uc.AdminUpdateInventory(context.Background(), adminID, p.ID, 12, " restock "))
	assert.Equal(t, int64(12), s.stock(p.ID))

	require.Len(t, s.db.adjustments, 1)
	assert.Equal(t, int64(7), s.db.adjustments[0].Delta)
	assert.Equal(t, "restock", s.db.adjustments[0].Reason)

	logs := s.auditLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, model.AuditActionUpdateStock, logs[0].Action)
	assert.JSONEq(t, `{"stock":5}`, logs[0].BeforeJSON)
	assert.JSONEq(t, `{"stock":12}`, logs[0].AfterJSON)

	assertHTTPStatus(t, uc.AdminUpdateInventory(context.Background(), adminID, p.ID, -1, "x"), http.StatusBadRequest)
	assertHTTPStatus(t, uc.AdminUpdateInventory(context.Background(), adminID, p.ID, 1, " "), http.StatusBadRequest)
	assertHTTPStatus(t, uc.AdminUpdateInventory(context.Background(), adminID, 9999, 1, "x"), http.StatusNotFound)
	assert.Len(t, s.auditLogs(), 1)
}

// 商品更新では在庫を変えない
func TestProduct_AdminUpdateKeepsStock(t *testing.T) {
	s := newMemStore()
	cats := &MockCategoryRepo{}
	uc := usecase.NewProductUsecase(memProducts{s}, cats, s)
	p := s.addProduct("A", 100, 5)
	catID := int64(4)
	cats.On("FindByID", mock.Anything, catID).Return(model.Category{ID: catID}, nil)

	err := uc.AdminUpdateProduct(context.Background(), adminID, p.ID, usecase.AdminProductInput{
		Name:       "A2",
		Price:      decimal.NewFromInt(120),
		Stock:      999,
		CategoryID: &catID,
		IsActive:   true,
	})
	require.NoError(t, err)

	got := s.db.products[p.ID]
	assert.Equal(t, "A2", got.Name)
	assert.Equal(t, int64(5), got.Stock)
	assert.Equal(t, int64(model.DefaultProductWeightGrams), got.WeightGrams)

	missing := int64(77)
	cats.On("FindByID", mock.Anything, missing).Return(model.Category{}, repo.ErrNotFound)
	err = uc.AdminUpdateProduct(context.Background(), adminID, p.ID, usecase.AdminProductInput{Name: "A3", CategoryID: &missing})
	assertHTTPStatus(t, err, http.StatusBadRequest)
}

// =====================
// Address
// =====================

func TestAddress_Lifecycle(t *testing.T) {
	s := newMemStore()
	uc := usecase.NewAddressUsecase(memAddresses{s})
	u := s.addUser(model.User{})
	other := s.addUser(model.User{})
	ctx := context.Background()

	req := usecase.AddressRequest{RecipientName: "Taro", Phone: "0900", Line: "1-2-3", DistrictID: 1442, WardCode: "20109"}

	first, err := uc.Create(ctx, u.ID, req)
	require.NoError(t, err)
	assert.True(t, first.IsDefault)

	second, err := uc.Create(ctx, u.ID, req)
	require.NoError(t, err)
	assert.False(t, second.IsDefault)

	// 既定の住所は削除できない
	assert.ErrorIs(t, uc.Delete(ctx, u.ID, first.ID), usecase.ErrConflict)

	require.NoError(t, uc.SetDefault(ctx, u.ID, second.ID))
	require.NoError(t, uc.Delete(ctx, u.ID, first.ID))

	list, err := uc.List(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsDefault)

	req.Line = " 4-5-6 "
	updated, err := uc.Update(ctx, u.ID, second.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "4-5-6", updated.Line)

	assert.ErrorIs(t, uc.SetDefault(ctx, other.ID, second.ID), usecase.ErrForbidden)
	assert.ErrorIs(t, uc.Delete(ctx, u.ID, 9999), usecase.ErrNotFound)

	_, err = uc.Create(ctx, u.ID, usecase.AddressRequest{RecipientName: "Taro"})
	assert.True(t, errors.Is(err, usecase.ErrValidation))
	_, err = uc.List(ctx, 0)
	assert.ErrorIs(t, err, usecase.ErrUnauthorized)
}

// 管理一覧は非公開も返し、is_active で絞れる
func TestProduct_AdminListIncludesInactive(t *testing.T) {
	s := newMemStore()
	uc := usecase.NewProductUsecase(memProducts{s}, &MockCategoryRepo{}, s)
	a := s.addProduct("Apple", 100, 5)
	b := s.addProduct("Banana", 100, 5)
	hidden := s.db.products[b.ID]
	hidden.IsActive = false
	s.db.products[b.ID] = hidden

	public, err := uc.ListPublicProducts(context.Background(), usecase.ListProductsInput{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), public.Total)

	all, err := uc.AdminListProducts(context.Background(), usecase.AdminListProductsInput{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), all.Total)
	assert.Equal(t, b.ID, all.Items[0].ID)
	assert.False(t, all.Items[0].IsActive)

	inactive := false
	only, err := uc.AdminListProducts(context.Background(), usecase.AdminListProductsInput{Page: 1, Limit: 10, IsActive: &inactive})
	require.NoError(t, err)
	require.Len(t, only.Items, 1)
	assert.Equal(t, b.ID, only.Items[0].ID)

	byName, err := uc.AdminListProducts(context.Background(), usecase.AdminListProductsInput{Page: 1, Limit: 10, Q: " app "})
	require.NoError(t, err)
	require.Len(t, byName.Items, 1)
	assert.Equal(t, a.ID, byName.Items[0].ID)

	_, err = uc.AdminListProducts(context.Background(), usecase.AdminListProductsInput{Page: 0, Limit: 10})
	assertHTTPStatus(t, err, http.StatusBadRequest)
	_, err = uc.AdminListProducts(context.Background(), usecase.AdminListProductsInput{Page: 1, Limit: 101})
	assertHTTPStatus(t, err, http.StatusBadRequest)
}
