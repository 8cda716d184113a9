package usecase

import (
	"context"
	"net/http"
	"time"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	dashboardDefaultDays = 7
	dashboardMaxDays     = 90
	dashboardRecent      = 5
)

type DashboardUsecase struct {
	dashboard repo.DashboardRepository
	products  repo.ProductRepository
	users     repo.UserRepository
	now       func() time.Time
}

func NewDashboardUsecase(dashboard repo.DashboardRepository, products repo.ProductRepository, users repo.UserRepository) *DashboardUsecase {
	return &DashboardUsecase{dashboard: dashboard, products: products, users: users, now: time.Now}
}

type DailyRevenue struct {
	Date    string          `json:"date"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int             `json:"orders"`
}

type DashboardOutput struct {
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalOrders   int64           `json:"total_orders"`
	TotalProducts int64           `json:"total_products"`
	TotalUsers    int64           `json:"total_users"`
	DailyRevenue  []DailyRevenue  `json:"daily_revenue"`
	RecentOrders  []model.Order   `json:"recent_orders"`
}

// Stats は PAID の注文だけを売上として数える。days 日分の日別売上（UTC日付）を含む。
func (u *DashboardUsecase) Stats(ctx context.Context, days int) (DashboardOutput, error) {
	if days == 0 {
		days = dashboardDefaultDays
	}
	if days < 1 || days > dashboardMaxDays {
		return DashboardOutput{}, NewHTTPError(http.StatusBadRequest, "invalid days")
	}

	var out DashboardOutput
	var err error

	if out.TotalRevenue, err = u.dashboard.PaidRevenue(ctx); err != nil {
		return DashboardOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if out.TotalOrders, err = u.dashboard.CountOrders(ctx); err != nil {
		return DashboardOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if out.TotalProducts, err = u.products.Count(ctx); err != nil {
		return DashboardOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if out.TotalUsers, err = u.users.Count(ctx); err != nil {
		return DashboardOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	today := u.now().UTC().Truncate(24 * time.Hour)
	from := today.AddDate(0, 0, -(days - 1))
	paid, err := u.dashboard.PaidOrdersSince(ctx, from)
	if err != nil {
		return DashboardOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	out.DailyRevenue = dailyRevenue(paid, from, days)

	if out.RecentOrders, err = u.dashboard.RecentOrders(ctx, dashboardRecent); err != nil {
		return DashboardOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return out, nil
}

// 注文の無い日も 0 で埋める
func dailyRevenue(orders []model.Order, from time.Time, days int) []DailyRevenue {
	out := make([]DailyRevenue, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		d := from.AddDate(0, 0, i).Format("2006-01-02")
		out[i] = DailyRevenue{Date: d, Revenue: decimal.Zero}
		index[d] = i
	}
	for _, o := range orders {
		i, ok := index[o.CreatedAt.UTC().Format("2006-01-02")]
		if !ok {
			continue
		}
		out[i].Revenue = out[i].Revenue.Add(o.TotalAmount)
		out[i].Orders++
	}
	return out
}
