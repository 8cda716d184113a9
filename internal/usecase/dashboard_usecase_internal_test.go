package usecase

import (
	"context"
	"net/http"
	"testing"
	"time"

	"ecshop/internal/domain/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyRevenue_FillsEmptyDays(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	orders := []model.Order{
		{TotalAmount: decimal.NewFromInt(100), CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		{TotalAmount: decimal.NewFromInt(50), CreatedAt: time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)},
		{TotalAmount: decimal.NewFromInt(30), CreatedAt: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)},
		// 範囲外
		{TotalAmount: decimal.NewFromInt(999), CreatedAt: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)},
	}

	got := dailyRevenue(orders, from, 3)

	require.Len(t, got, 3)
	assert.Equal(t, "2026-03-01", got[0].Date)
	assert.True(t, got[0].Revenue.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, 2, got[0].Orders)
	assert.Equal(t, "2026-03-02", got[1].Date)
	assert.True(t, got[1].Revenue.IsZero())
	assert.Equal(t, 0, got[1].Orders)
	assert.True(t, got[2].Revenue.Equal(decimal.NewFromInt(30)))
}

// UTC 以外の時刻も UTC の日付で集計する
func TestDailyRevenue_UsesUTCDate(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	orders := []model.Order{
		{TotalAmount: decimal.NewFromInt(10), CreatedAt: time.Date(2026, 3, 2, 8, 0, 0, 0, jst)}, // 3/1 23:00 UTC
	}

	got := dailyRevenue(orders, from, 2)
	assert.True(t, got[0].Revenue.Equal(decimal.NewFromInt(10)))
	assert.True(t, got[1].Revenue.IsZero())
}

func TestStats_InvalidDays(t *testing.T) {
	u := NewDashboardUsecase(nil, nil, nil)

	for _, days := range []int{-1, 91} {
		_, err := u.Stats(context.Background(), days)
		he, ok := AsHTTPError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, he.Status)
	}
}
