package middleware

import (
	"net/http"
	"strings"

	"ecshop/internal/config"
	"ecshop/internal/domain/model"
	"ecshop/internal/repository"
	auth "ecshop/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
)

// echo.Context に載せる検証済み claims のキー
const ctxClaimsKey = "auth.claims"

type errorResponse struct {
	Error string `json:"error"`
}

func deny(c echo.Context, status int, msg string) error {
	return c.JSON(status, errorResponse{Error: msg})
}

// ClaimsFrom は AuthJWT が検証した claims を返す
func ClaimsFrom(c echo.Context) (*auth.AccessClaims, bool) {
	claims, ok := c.Get(ctxClaimsKey).(*auth.AccessClaims)
	return claims, ok && claims != nil
}

// UserIDFrom はログイン中ユーザーの id
func UserIDFrom(c echo.Context) (int64, bool) {
	claims, ok := ClaimsFrom(c)
	if !ok {
		return 0, false
	}
	return claims.UserID(), true
}

func bearerToken(c echo.Context) string {
	scheme, token, found := strings.Cut(c.Request().Header.Get(echo.HeaderAuthorization), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// AuthJWT は Authorization: Bearer のアクセストークンを検証して claims を載せる。
func AuthJWT(cfg config.Config) echo.MiddlewareFunc {
	tokens := auth.NewJWTIssuer(cfg.JWTSecret, 0)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c)
			if raw == "" {
				return deny(c, http.StatusUnauthorized, "unauthorized")
			}
			claims, err := tokens.Parse(raw)
			if err != nil {
				return deny(c, http.StatusUnauthorized, "unauthorized")
			}

			c.Set(ctxClaimsKey, claims)
			return next(c)
		}
	}
}

// TokenVersionGuard は停止ユーザーと、強制ログアウト後（tv 不一致）のトークンを弾く。
// AuthJWT の後ろに置く。
func TokenVersionGuard(userRepo repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFrom(c)
			if !ok {
				return deny(c, http.StatusUnauthorized, "unauthorized")
			}

			user, err := userRepo.FindByID(c.Request().Context(), claims.UserID())
			if err != nil || user == nil {
				return deny(c, http.StatusUnauthorized, "unauthorized")
			}
			if !user.IsActive {
				return deny(c, http.StatusForbidden, "user is inactive")
			}
			if user.TokenVersion != claims.TokenVersion {
				return deny(c, http.StatusUnauthorized, "unauthorized")
			}

			return next(c)
		}
	}
}

// AdminRoleGuard は ADMIN 以外を 403 にする
func AdminRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFrom(c)
			if !ok {
				return deny(c, http.StatusUnauthorized, "unauthorized")
			}
			if claims.Role != model.RoleAdmin {
				return deny(c, http.StatusForbidden, "admin only")
			}
			return next(c)
		}
	}
}
