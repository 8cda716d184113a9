package model

import "time"

// カート明細。チェックアウトで注文明細に変換されたら削除される。
// 同じ商品でもサイズ/色が違えば別行。
type CartItem struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        int64     `gorm:"not null;index" json:"user_id"`
	ProductID     int64     `gorm:"not null;index" json:"product_id"`
	Quantity      int64     `gorm:"not null" json:"quantity"`
	SelectedSize  string    `gorm:"type:varchar(50);not null;default:''" json:"selected_size"`
	SelectedColor string    `gorm:"type:varchar(50);not null;default:''" json:"selected_color"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
