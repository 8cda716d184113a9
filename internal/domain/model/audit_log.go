package model

import "time"

type AuditAction string

const (
	AuditActionUpdateStock          AuditAction = "UPDATE_STOCK"
	AuditActionUpdateShippingStatus AuditAction = "UPDATE_SHIPPING_STATUS"
	AuditActionUpdatePaymentStatus  AuditAction = "UPDATE_PAYMENT_STATUS"
	AuditActionForceLogout          AuditAction = "FORCE_LOGOUT"
	AuditActionCreateUser           AuditAction = "CREATE_USER"
	AuditActionUpdateUser           AuditAction = "UPDATE_USER"
	AuditActionDeactivateUser       AuditAction = "DEACTIVATE_USER"
)

type AuditResourceType string

const (
	AuditResourceProduct AuditResourceType = "product"
	AuditResourceOrder   AuditResourceType = "order"
	AuditResourceUser    AuditResourceType = "user"
)

// 管理者操作ログ。「誰が」「何を」「どの対象に」「どう変えたか」。
type AuditLog struct {
	ID           int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorUserID  int64             `gorm:"not null;index" json:"actor_user_id"`
	Action       AuditAction       `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`
	ResourceID   int64             `gorm:"not null;index" json:"resource_id"`
	BeforeJSON   string            `gorm:"type:text" json:"before_json"`
	AfterJSON    string            `gorm:"type:text" json:"after_json"`
	CreatedAt    time.Time         `gorm:"not null;index" json:"created_at"`
}
