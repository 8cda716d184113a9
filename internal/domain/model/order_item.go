package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceAtPurchase はチェックアウト時点の単価。以降の価格変更の影響を受けない。
type OrderItem struct {
	ID                  int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID             int64           `gorm:"not null;index" json:"order_id"`
	ProductID           int64           `gorm:"not null;index" json:"product_id"`
	ProductNameSnapshot string          `gorm:"type:varchar(255);not null" json:"product_name"`
	PriceAtPurchase     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"price_at_purchase"`
	Quantity            int64           `gorm:"not null" json:"quantity"`
	SelectedSize        string          `gorm:"type:varchar(50)" json:"selected_size,omitempty"`
	SelectedColor       string          `gorm:"type:varchar(50)" json:"selected_color,omitempty"`
	CreatedAt           time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.PriceAtPurchase.Mul(decimal.NewFromInt(i.Quantity))
}
