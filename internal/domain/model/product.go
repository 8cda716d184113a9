package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 重量未設定の商品を見積もるときの既定値（グラム）
const DefaultProductWeightGrams = 500

type Product struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	CategoryID  *int64          `gorm:"index" json:"category_id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"price"`
	Stock       int64           `gorm:"not null;check:stock >= 0" json:"stock"`
	WeightGrams int64           `gorm:"not null;default:500" json:"weight_grams"`
	ImageURL    string          `gorm:"type:varchar(500)" json:"image_url"`
	IsActive    bool            `gorm:"not null;default:false" json:"is_active"`
	CreatedAt   time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (p Product) ShippingWeight() int64 {
	if p.WeightGrams <= 0 {
		return DefaultProductWeightGrams
	}
	return p.WeightGrams
}
