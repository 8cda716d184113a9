package model

import "time"

type NotificationType string

const (
	NotificationTypeOrder   NotificationType = "order"
	NotificationTypePayment NotificationType = "payment"
	NotificationTypeSystem  NotificationType = "system"
)

type Notification struct {
	ID        int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64            `gorm:"not null;index" json:"user_id"`
	Title     string           `gorm:"type:varchar(255);not null" json:"title"`
	Content   string           `gorm:"type:text;not null" json:"content"`
	Type      NotificationType `gorm:"type:varchar(20);not null;default:'system'" json:"type"`
	IsRead    bool             `gorm:"not null;default:false" json:"is_read"`
	CreatedAt time.Time        `gorm:"not null;autoCreateTime;index" json:"created_at"`
}
