package handler

import (
	"errors"
	"net/http"

	"ecshop/internal/config"
	"ecshop/internal/middleware"
	"ecshop/internal/repository"
	"ecshop/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AddressHandler struct {
	uc *usecase.AddressUsecase
}

func NewAddressHandler(uc *usecase.AddressUsecase) *AddressHandler {
	return &AddressHandler{uc: uc}
}

func (h *AddressHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/addresses")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.TokenVersionGuard(userRepo))

	g.GET("", h.List)
	g.POST("", h.Create)
	g.PATCH("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/default", h.SetDefault)
}

func (h *AddressHandler) List(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return addrWriteError(c, http.StatusUnauthorized, "unauthorized")
	}

	list, err := h.uc.List(c.Request().Context(), userID)
	if err != nil {
		return addrWriteUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, list)
}

func (h *AddressHandler) Create(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return addrWriteError(c, http.StatusUnauthorized, "unauthorized")
	}

	var req usecase.AddressRequest
	if err := c.Bind(&req); err != nil {
		return addrWriteError(c, http.StatusBadRequest, "validation error")
	}

	created, err := h.uc.Create(c.Request().Context(), userID, req)
	if err != nil {
		return addrWriteUsecaseError(c, err)
	}

	return c.JSON(http.StatusCreated, created)
}

func (h *AddressHandler) Update(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return addrWriteError(c, http.StatusUnauthorized, "unauthorized")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return addrWriteError(c, http.StatusBadRequest, "validation error")
	}

	var req usecase.AddressRequest
	if err := c.Bind(&req); err != nil {
		return addrWriteError(c, http.StatusBadRequest, "validation error")
	}

	updated, err := h.uc.Update(c.Request().Context(), userID, id, req)
	if err != nil {
		return addrWriteUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, updated)
}

func (h *AddressHandler) Delete(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return addrWriteError(c, http.StatusUnauthorized, "unauthorized")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return addrWriteError(c, http.StatusBadRequest, "validation error")
	}

	if err := h.uc.Delete(c.Request().Context(), userID, id); err != nil {
		return addrWriteUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *AddressHandler) SetDefault(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return addrWriteError(c, http.StatusUnauthorized, "unauthorized")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return addrWriteError(c, http.StatusBadRequest, "validation error")
	}

	if err := h.uc.SetDefault(c.Request().Context(), userID, id); err != nil {
		return addrWriteUsecaseError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "default set"})
}

func addrWriteError(c echo.Context, status int, msg string) error {
	return c.JSON(status, ErrorResponse{Error: msg})
}

// 住所usecaseはセンチネルエラーを返す
func addrWriteUsecaseError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, usecase.ErrValidation):
		return addrWriteError(c, http.StatusBadRequest, "validation error")
	case errors.Is(err, usecase.ErrUnauthorized):
		return addrWriteError(c, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, usecase.ErrForbidden):
		return addrWriteError(c, http.StatusForbidden, "forbidden")
	case errors.Is(err, usecase.ErrConflict):
		return addrWriteError(c, http.StatusConflict, "conflict")
	case errors.Is(err, usecase.ErrNotFound):
		return addrWriteError(c, http.StatusNotFound, "not found")
	default:
		return addrWriteError(c, http.StatusInternalServerError, "internal error")
	}
}
