package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ShippingStatus string

const (
	ShippingStatusPending   ShippingStatus = "PENDING"
	ShippingStatusShipping  ShippingStatus = "SHIPPING"
	ShippingStatusDelivered ShippingStatus = "DELIVERED"
	ShippingStatusCancelled ShippingStatus = "CANCELLED"
)

func (s ShippingStatus) Valid() bool {
	switch s {
	case ShippingStatusPending, ShippingStatusShipping, ShippingStatusDelivered, ShippingStatusCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusRefunded:
		return true
	}
	return false
}

// 注文。作成後はステータス系のカラムだけが更新される（削除はしない）。
type Order struct {
	ID                   int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID               int64           `gorm:"not null;index" json:"user_id"`
	AddressID            *int64          `gorm:"index" json:"address_id"`
	Subtotal             decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"subtotal"`
	ShippingFee          decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"shipping_fee"`
	TotalAmount          decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total_amount"`
	PaymentStatus        PaymentStatus   `gorm:"type:varchar(20);not null;index;default:'PENDING'" json:"payment_status"`
	ShippingStatus       ShippingStatus  `gorm:"type:varchar(20);not null;index;default:'PENDING'" json:"shipping_status"`
	PaymentIntentID      string          `gorm:"type:varchar(255);index" json:"payment_intent_id,omitempty"`
	ExpectedDeliveryDate string          `gorm:"type:varchar(100)" json:"expected_delivery_date,omitempty"`
	DeliveryDeadline     *string         `gorm:"type:varchar(100)" json:"delivery_deadline,omitempty"`
	Items                []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt            time.Time       `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
