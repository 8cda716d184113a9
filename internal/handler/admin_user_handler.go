package handler

import (
	"net/http"
	"strconv"

	"ecshop/internal/config"
	"ecshop/internal/domain/model"
	"ecshop/internal/middleware"
	"ecshop/internal/repository"
	"ecshop/internal/usecase"
	auth "ecshop/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
)

type AdminUserHandler struct {
	uc     *usecase.UserUsecase
	admins *auth.AdminUserUsecase
}

func NewAdminUserHandler(uc *usecase.UserUsecase, admins *auth.AdminUserUsecase) *AdminUserHandler {
	return &AdminUserHandler{uc: uc, admins: admins}
}

type AdminCreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	IsActive *bool  `json:"is_active"`
}

// 省略した項目は変更しない
type AdminUpdateUserRequest struct {
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

func (h *AdminUserHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	// /admin 配下は全部「JWT必須 + token_version一致 + ADMIN限定」
	admin := e.Group(
		"/admin",
		middleware.AuthJWT(cfg),
		middleware.TokenVersionGuard(userRepo),
		middleware.AdminRoleGuard(),
	)

	admin.GET("/users", h.ListUsers)
	admin.POST("/users", h.CreateUser)
	admin.PATCH("/users/:id", h.UpdateUser)
	admin.DELETE("/users/:id", h.DeactivateUser)
	admin.POST("/users/:id/force-logout", h.ForceLogout)
	admin.GET("/audit-logs", h.AuditLogs)
}

// GET /admin/users?search=&role=&is_active=&page=&limit=
func (h *AdminUserHandler) ListUsers(c echo.Context) error {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return badRequest(c, "invalid page")
	}
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return badRequest(c, "invalid limit")
	}

	f := repository.UserListFilter{Page: page, Limit: limit, Search: c.QueryParam("search")}
	if v := c.QueryParam("role"); v != "" {
		r := model.Role(v)
		f.Role = &r
	}
	if v := c.QueryParam("is_active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest(c, "invalid is_active")
		}
		f.IsActive = &b
	}

	out, err := h.admins.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminUserHandler) CreateUser(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	var req AdminCreateUserRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}

	user, err := h.admins.Create(c.Request().Context(), adminID, auth.AdminCreateUserInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
		Role:     model.Role(req.Role),
		IsActive: req.IsActive,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, user)
}

func (h *AdminUserHandler) UpdateUser(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	userID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid user_id")
	}
	var req AdminUpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}

	in := auth.AdminUpdateUserInput{Email: req.Email, FullName: req.FullName, Phone: req.Phone, IsActive: req.IsActive}
	if req.Role != nil {
		r := model.Role(*req.Role)
		in.Role = &r
	}

	user, err := h.admins.Update(c.Request().Context(), adminID, userID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// 論理的な削除（無効化）
func (h *AdminUserHandler) DeactivateUser(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	userID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid user_id")
	}

	user, err := h.admins.Deactivate(c.Request().Context(), adminID, userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AdminUserHandler) ForceLogout(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	userID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid user_id")
	}

	res, err := h.uc.ForceLogout(c.Request().Context(), adminID, userID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, res)
}

func (h *AdminUserHandler) AuditLogs(c echo.Context) error {
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return badRequest(c, "invalid limit")
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return badRequest(c, "invalid offset")
	}

	f := repository.AuditLogFilter{Limit: limit, Offset: offset}
	if v := c.QueryParam("actor_user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return badRequest(c, "invalid actor_user_id")
		}
		f.ActorUserID = &id
	}
	if v := c.QueryParam("resource_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return badRequest(c, "invalid resource_id")
		}
		f.ResourceID = &id
	}
	if v := c.QueryParam("action"); v != "" {
		a := model.AuditAction(v)
		f.Action = &a
	}
	if v := c.QueryParam("resource_type"); v != "" {
		rt := model.AuditResourceType(v)
		f.ResourceType = &rt
	}

	var err error
	if f.CreatedFrom, err = queryTime(c, "from"); err != nil {
		return badRequest(c, "invalid from")
	}
	if f.CreatedTo, err = queryTime(c, "to"); err != nil {
		return badRequest(c, "invalid to")
	}

	logs, err := h.uc.ListAuditLogs(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, logs)
}
