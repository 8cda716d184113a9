package repository

import (
	"context"

	"ecshop/internal/domain/model"
)

// 通知の保存先（注文ステータス変更・決済完了で作られる）
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByUserID(ctx context.Context, userID int64, limit int) ([]model.Notification, error)
	// 他人の通知は ErrNotFound
	MarkRead(ctx context.Context, userID, notificationID int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
}
