package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"ecshop/internal/config"
	"ecshop/internal/domain/model"
	"ecshop/internal/handler"
	"ecshop/internal/infra/db"
	"ecshop/internal/infra/event"
	"ecshop/internal/infra/mail"
	"ecshop/internal/infra/payment"
	infraRepo "ecshop/internal/infra/repository"
	"ecshop/internal/infra/shipping"
	"ecshop/internal/metrics"
	"ecshop/internal/server"
	"ecshop/internal/usecase"
	auth "ecshop/internal/usecase/auth_usecase"
	"ecshop/internal/validator"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	// .env は無くてもよい（コンテナでは環境変数を直接渡す）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
	logger.Info("server exited")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg.DB)
	if err != nil {
		return err
	}
	if err := gormDB.AutoMigrate(model.All()...); err != nil {
		return err
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		defer sqlDB.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	//外部サービス（未設定なら無効）
	var quoter usecase.ShippingQuoter
	if cfg.GHN.Enabled() {
		ghn := shipping.NewGHNClient(cfg.GHN.BaseURL, cfg.GHN.Token, cfg.GHN.ShopID, cfg.GHN.Timeout)
		quoter = ghn

		if cfg.RedisURL != "" {
			rdb, err := connectRedis(ctx, cfg.RedisURL)
			if err != nil {
				logger.Warn("redis unavailable, shipping quotes are not cached", "error", err)
			} else {
				defer rdb.Close()
				quoter = shipping.NewCachedQuoter(ghn, rdb, cfg.ShippingQuoteTTL, logger)
			}
		}
	} else {
		logger.Info("GHN is not configured, default shipping fee is used")
	}

	var gateway usecase.PaymentGateway
	if cfg.Stripe.Enabled() {
		gateway = payment.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)
	}

	var mailer usecase.ReceiptMailer
	if cfg.SMTP.Enabled() {
		mailer = mail.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From)
	}

	publisher, err := event.New(cfg.Events, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	categoryRepo := infraRepo.NewCategoryGormRepository(gormDB)
	cartRepo := infraRepo.NewCartItemGormRepository(gormDB)
	favoriteRepo := infraRepo.NewFavoriteGormRepository(gormDB)
	addressRepo := infraRepo.NewAddressGormRepository(gormDB)
	notificationRepo := infraRepo.NewNotificationGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	dashboardRepo := infraRepo.NewDashboardGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	//Usecase生成
	v := validator.NewAuthValidator()
	registerUC := auth.NewRegisterUserUsecase(userRepo, v, auth.NewBcryptPasswordHasher(12), auth.SystemClock{})
	loginUC := auth.NewLoginUsecase(userRepo, v, auth.NewBcryptPasswordVerifier(), auth.NewJWTIssuer(cfg.JWTSecret, cfg.AccessTokenTTL), auth.SystemClock{})

	adminUserUC := auth.NewAdminUserUsecase(userRepo, auditRepo, v, auth.NewBcryptPasswordHasher(12), auth.SystemClock{})

	userUC := usecase.NewUserUsecase(userRepo, auditRepo)
	productUC := usecase.NewProductUsecase(productRepo, categoryRepo, txm)
	categoryUC := usecase.NewCategoryUsecase(categoryRepo)
	cartUC := usecase.NewCartUsecase(cartRepo, productRepo)
	favoriteUC := usecase.NewFavoriteUsecase(favoriteRepo, productRepo)
	addressUC := usecase.NewAddressUsecase(addressRepo)
	notificationUC := usecase.NewNotificationUsecase(notificationRepo)
	orderUC := usecase.NewOrderUsecase(txm, quoter, publisher, m, logger)
	adminOrderUC := usecase.NewAdminOrderUsecase(txm, publisher, logger)
	dashboardUC := usecase.NewDashboardUsecase(dashboardRepo, productRepo, userRepo)
	profileUC := usecase.NewProfileUsecase(dashboardRepo, favoriteRepo, productRepo)
	paymentUC := usecase.NewPaymentUsecase(usecase.PaymentDeps{
		Tx:      txm,
		Users:   userRepo,
		Gateway: gateway,
		Mailer:  mailer,
		Events:  publisher,
		Metrics: m,
		Logger:  logger,
	}, cfg.Stripe.Currency)

	//Handler生成
	srv := server.New(cfg, logger, m, userRepo, server.Handlers{
		Health:       handler.NewHealthHandler(m),
		Auth:         handler.NewAuthHandler(registerUC, loginUC, userUC),
		Product:      handler.NewProductHandler(productUC, categoryUC),
		Cart:         handler.NewCartHandler(cartUC),
		Order:        handler.NewOrderHandler(orderUC),
		Payment:      handler.NewPaymentHandler(paymentUC),
		Address:      handler.NewAddressHandler(addressUC),
		Favorite:     handler.NewFavoriteHandler(favoriteUC),
		Notification: handler.NewNotificationHandler(notificationUC),
		Profile:      handler.NewProfileHandler(profileUC),
		AdminProduct: handler.NewAdminProductHandler(productUC, categoryUC),
		AdminOrder:   handler.NewAdminOrderHandler(adminOrderUC, dashboardUC),
		AdminUser:    handler.NewAdminUserHandler(userUC, adminUserUC),
	})

	//Server起動
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", "port", cfg.Port, "env", cfg.GoEnv, "broker", cfg.Events.Broker)
		return srv.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		return srv.Shutdown(context.Background())
	})
	return g.Wait()
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func setupLogger(level string) *slog.Logger {
	var lv slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lv = slog.LevelDebug
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lv}))
}
