package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ecshop/internal/config"
	"ecshop/internal/domain/model"
	"ecshop/internal/handler"
	"ecshop/internal/metrics"
	"ecshop/internal/repository"
	auth "ecshop/internal/usecase/auth_usecase"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ガードが参照するユーザーだけ返す
type stubUsers struct {
	repository.UserRepository
	users map[int64]model.User
}

func (s stubUsers) FindByID(ctx context.Context, id int64) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func newTestServer(t *testing.T, cfg config.Config) (*Server, *auth.JWTIssuer) {
	t.Helper()

	users := stubUsers{users: map[int64]model.User{
		1: {ID: 1, Role: model.RoleUser, IsActive: true},
		2: {ID: 2, Role: model.RoleAdmin, IsActive: true},
	}}
	m := metrics.New(prometheus.NewRegistry())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := Handlers{
		Health:       handler.NewHealthHandler(m),
		Auth:         handler.NewAuthHandler(nil, nil, nil),
		Product:      handler.NewProductHandler(nil, nil),
		Cart:         handler.NewCartHandler(nil),
		Order:        handler.NewOrderHandler(nil),
		Payment:      handler.NewPaymentHandler(nil),
		Address:      handler.NewAddressHandler(nil),
		Favorite:     handler.NewFavoriteHandler(nil),
		Notification: handler.NewNotificationHandler(nil),
		Profile:      handler.NewProfileHandler(nil),
		AdminProduct: handler.NewAdminProductHandler(nil, nil),
		AdminOrder:   handler.NewAdminOrderHandler(nil, nil),
		AdminUser:    handler.NewAdminUserHandler(nil, nil),
	}
	return New(cfg, logger, m, users, h), auth.NewJWTIssuer(cfg.JWTSecret, time.Minute)
}

func serve(s *Server, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_PublicRoutes(t *testing.T) {
	s, _ := newTestServer(t, config.Config{JWTSecret: "secret"})

	rec := serve(s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = serve(s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `ecshop_http_requests_total{method="GET",route="/healthz",status="200"} 1`)

	rec = serve(s, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_AuthGuards(t *testing.T) {
	s, issuer := newTestServer(t, config.Config{JWTSecret: "secret"})
	now := time.Now()
	userToken, _, err := issuer.Issue(1, model.RoleUser, 0, now)
	require.NoError(t, err)
	staleToken, _, err := issuer.Issue(1, model.RoleUser, 5, now)
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{name: "checkout without token", method: http.MethodPost, path: "/orders/checkout", want: http.StatusUnauthorized},
		{name: "cart without token", method: http.MethodGet, path: "/cart", want: http.StatusUnauthorized},
		{name: "stale token version", method: http.MethodGet, path: "/orders", token: staleToken, want: http.StatusUnauthorized},
		{name: "admin route as user", method: http.MethodGet, path: "/admin/orders", token: userToken, want: http.StatusForbidden},
		{name: "profile without token", method: http.MethodGet, path: "/profile", want: http.StatusUnauthorized},
		{name: "profile with stale token", method: http.MethodGet, path: "/profile", token: staleToken, want: http.StatusUnauthorized},
		{name: "admin user list as user", method: http.MethodGet, path: "/admin/users", token: userToken, want: http.StatusForbidden},
		{name: "admin user delete as user", method: http.MethodDelete, path: "/admin/users/2", token: userToken, want: http.StatusForbidden},
		{name: "admin product list as user", method: http.MethodGet, path: "/admin/products", token: userToken, want: http.StatusForbidden},
		{name: "force logout as user", method: http.MethodPost, path: "/admin/users/2/force-logout", token: userToken, want: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, tt.method, tt.path, tt.token)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

// usecase に届く前に弾かれる入力
func TestServer_BadPathParams(t *testing.T) {
	s, issuer := newTestServer(t, config.Config{JWTSecret: "secret"})
	adminToken, _, err := issuer.Issue(2, model.RoleAdmin, 0, time.Now())
	require.NoError(t, err)

	rec := serve(s, http.MethodGet, "/orders/abc", adminToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(s, http.MethodPost, "/admin/users/0/force-logout", adminToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPatch, "/admin/users/abc"},
		{http.MethodDelete, "/admin/users/-1"},
		{http.MethodGet, "/admin/users?is_active=maybe"},
		{http.MethodGet, "/admin/products?category_id=x"},
		{http.MethodGet, "/admin/products?page=one"},
	} {
		rec = serve(s, tc.method, tc.path, adminToken)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tc.method+" "+tc.path)
	}
}

func TestServer_CORS(t *testing.T) {
	s, _ := newTestServer(t, config.Config{JWTSecret: "secret", FEURL: "http://localhost:5173"})

	req := httptest.NewRequest(http.MethodOptions, "/products", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestListenAddr(t *testing.T) {
	assert.Equal(t, ":8080", listenAddr(""))
	assert.Equal(t, ":9000", listenAddr("9000"))
	assert.Equal(t, ":9000", listenAddr(":9000"))
}
