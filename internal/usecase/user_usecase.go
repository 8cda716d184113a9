package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
)

type UserUsecase struct {
	users  repo.UserRepository
	audits repo.AuditLogRepository
}

func NewUserUsecase(users repo.UserRepository, audits repo.AuditLogRepository) *UserUsecase {
	return &UserUsecase{users: users, audits: audits}
}

type ForceLogoutResponse struct {
	UserID          int64 `json:"user_id"`
	NewTokenVersion int   `json:"new_token_version"`
}

// GET /me
func (u *UserUsecase) Me(ctx context.Context, userID int64) (model.User, error) {
	if userID <= 0 {
		return model.User{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	user, err := u.users.FindByID(ctx, userID)
	if errors.Is(err, repo.ErrUserNotFound) {
		return model.User{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err != nil {
		return model.User{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !user.IsActive {
		return model.User{}, NewHTTPError(http.StatusForbidden, "user is inactive")
	}
	return *user, nil
}

// ForceLogout は token_version を上げて発行済みトークンを無効にする
func (u *UserUsecase) ForceLogout(ctx context.Context, adminUserID, targetUserID int64) (ForceLogoutResponse, error) {
	if adminUserID <= 0 {
		return ForceLogoutResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if targetUserID <= 0 {
		return ForceLogoutResponse{}, NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	before, err := u.users.FindByID(ctx, targetUserID)
	if errors.Is(err, repo.ErrUserNotFound) {
		return ForceLogoutResponse{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return ForceLogoutResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.users.IncrementTokenVersion(ctx, targetUserID); err != nil {
		return ForceLogoutResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	newTV := before.TokenVersion + 1

	if err := u.audits.Create(ctx, model.AuditLog{
		ActorUserID:  adminUserID,
		Action:       model.AuditActionForceLogout,
		ResourceType: model.AuditResourceUser,
		ResourceID:   targetUserID,
		BeforeJSON:   fmt.Sprintf(`{"token_version":%d}`, before.TokenVersion),
		AfterJSON:    fmt.Sprintf(`{"token_version":%d}`, newTV),
		CreatedAt:    time.Now(),
	}); err != nil {
		return ForceLogoutResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return ForceLogoutResponse{UserID: targetUserID, NewTokenVersion: newTV}, nil
}

func (u *UserUsecase) ListAuditLogs(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	if f.Limit < 0 || f.Offset < 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid paging")
	}
	logs, err := u.audits.List(ctx, f)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return logs, nil
}
