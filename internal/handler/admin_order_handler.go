package handler

import (
	"net/http"
	"strconv"
	"time"

	"ecshop/internal/config"
	"ecshop/internal/middleware"
	"ecshop/internal/repository"
	"ecshop/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminOrderHandler struct {
	uc        *usecase.AdminOrderUsecase
	dashboard *usecase.DashboardUsecase
}

func NewAdminOrderHandler(uc *usecase.AdminOrderUsecase, dashboard *usecase.DashboardUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc, dashboard: dashboard}
}

// 片方だけの更新も可
type OrderStatusUpdateRequest struct {
	ShippingStatus string `json:"shipping_status"`
	PaymentStatus  string `json:"payment_status"`
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	admin := e.Group("/admin")
	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.TokenVersionGuard(userRepo))
	admin.Use(middleware.AdminRoleGuard())

	admin.GET("/orders", h.list)
	admin.PUT("/orders/:id/status", h.updateStatus)
	admin.GET("/dashboard", h.stats)
}

func (h *AdminOrderHandler) list(c echo.Context) error {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return badRequest(c, "invalid page")
	}
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return badRequest(c, "invalid limit")
	}

	var userID *int64
	if v := c.QueryParam("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return badRequest(c, "invalid user_id")
		}
		userID = &id
	}

	from, err := queryTime(c, "from")
	if err != nil {
		return badRequest(c, "invalid from")
	}
	to, err := queryTime(c, "to")
	if err != nil {
		return badRequest(c, "invalid to")
	}

	out, err := h.uc.List(c.Request().Context(), repository.AdminOrderListFilter{
		Page:           page,
		Limit:          limit,
		ShippingStatus: c.QueryParam("shipping_status"),
		PaymentStatus:  c.QueryParam("payment_status"),
		Search:         c.QueryParam("q"),
		UserID:         userID,
		From:           from,
		To:             to,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) updateStatus(c echo.Context) error {
	// 操作した管理者IDを取得（監査ログ用）
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	orderID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req OrderStatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.UpdateStatus(c.Request().Context(), adminID, orderID, usecase.AdminUpdateOrderStatusInput{
		ShippingStatus: req.ShippingStatus,
		PaymentStatus:  req.PaymentStatus,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) stats(c echo.Context) error {
	days, ok := queryInt(c, "days", 0)
	if !ok {
		return badRequest(c, "invalid days")
	}

	out, err := h.dashboard.Stats(c.Request().Context(), days)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// RFC3339
func queryTime(c echo.Context, name string) (*time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	tm, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &tm, nil
}
