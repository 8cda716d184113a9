package server

import (
	"ecshop/internal/config"
	"ecshop/internal/handler"
	"ecshop/internal/repository"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Health       *handler.HealthHandler
	Auth         *handler.AuthHandler
	Product      *handler.ProductHandler
	Cart         *handler.CartHandler
	Order        *handler.OrderHandler
	Payment      *handler.PaymentHandler
	Address      *handler.AddressHandler
	Favorite     *handler.FavoriteHandler
	Notification *handler.NotificationHandler
	Profile      *handler.ProfileHandler
	AdminProduct *handler.AdminProductHandler
	AdminOrder   *handler.AdminOrderHandler
	AdminUser    *handler.AdminUserHandler
}

func RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository, h Handlers) {
	// 公開
	h.Health.RegisterRoutes(e)
	h.Product.RegisterRoutes(e)

	// ログイン必須（auth は /me のみ）
	h.Auth.RegisterRoutes(e, cfg, userRepo)
	h.Cart.RegisterRoutes(e, cfg, userRepo)
	h.Order.RegisterRoutes(e, cfg, userRepo)
	h.Payment.RegisterRoutes(e, cfg, userRepo)
	h.Address.RegisterRoutes(e, cfg, userRepo)
	h.Favorite.RegisterRoutes(e, cfg, userRepo)
	h.Notification.RegisterRoutes(e, cfg, userRepo)
	h.Profile.RegisterRoutes(e, cfg, userRepo)

	// ADMIN
	h.AdminProduct.RegisterRoutes(e, cfg, userRepo)
	h.AdminOrder.RegisterRoutes(e, cfg, userRepo)
	h.AdminUser.RegisterRoutes(e, cfg, userRepo)
}
