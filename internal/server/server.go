package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"ecshop/internal/config"
	"ecshop/internal/metrics"
	"ecshop/internal/middleware"
	"ecshop/internal/repository"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

type Server struct {
	e    *echo.Echo
	addr string
}

// New は共通 middleware とルートを載せた echo を組み立てる
func New(cfg config.Config, logger *slog.Logger, m *metrics.Metrics, userRepo repository.UserRepository, h Handlers) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	// RequestMetrics が c.Error でステータスを確定させるので、ログはその外側
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.RequestMetrics(m))
	if cfg.FEURL != "" {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins: []string{cfg.FEURL},
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
		}))
	}

	RegisterRoutes(e, cfg, userRepo, h)

	return &Server{e: e, addr: listenAddr(cfg.Port)}
}

// Shutdown されるまで返らない
func (s *Server) Start() error {
	if err := s.e.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return s.e.Shutdown(ctx)
}

// テスト用
func (s *Server) Handler() http.Handler {
	return s.e
}

func listenAddr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
