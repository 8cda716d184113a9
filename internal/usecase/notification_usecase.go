package usecase

import (
	"context"
	"errors"
	"net/http"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
)

const notificationListLimit = 50

type NotificationUsecase struct {
	notifications repo.NotificationRepository
}

func NewNotificationUsecase(notifications repo.NotificationRepository) *NotificationUsecase {
	return &NotificationUsecase{notifications: notifications}
}

type NotificationListOutput struct {
	Items  []model.Notification `json:"items"`
	Unread int                  `json:"unread"`
}

// 新しい順
func (u *NotificationUsecase) List(ctx context.Context, userID int64) (NotificationListOutput, error) {
	if userID <= 0 {
		return NotificationListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	items, err := u.notifications.ListByUserID(ctx, userID, notificationListLimit)
	if err != nil {
		return NotificationListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	unread := 0
	for _, n := range items {
		if !n.IsRead {
			unread++
		}
	}
	return NotificationListOutput{Items: items, Unread: unread}, nil
}

func (u *NotificationUsecase) MarkRead(ctx context.Context, userID, notificationID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if notificationID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	err := u.notifications.MarkRead(ctx, userID, notificationID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

func (u *NotificationUsecase) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	n, err := u.notifications.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return n, nil
}
