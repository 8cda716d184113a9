package model

import "time"

// 配送先住所
// DistrictID / WardCode は配送業者(GHN)のコード。見積もりに必須。
type Address struct {
	ID            int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        int64  `gorm:"not null;index" json:"user_id"`
	RecipientName string `gorm:"type:varchar(255);not null" json:"recipient_name"`
	Phone         string `gorm:"type:varchar(30);not null" json:"phone"`
	Line          string `gorm:"type:varchar(255);not null" json:"line"`
	WardName      string `gorm:"type:varchar(255)" json:"ward_name"`
	DistrictName  string `gorm:"type:varchar(255)" json:"district_name"`
	ProvinceName  string `gorm:"type:varchar(255)" json:"province_name"`
	DistrictID    int    `gorm:"not null;default:0" json:"district_id"`
	WardCode      string `gorm:"type:varchar(20);not null;default:''" json:"ward_code"`

	IsDefault bool `gorm:"not null;default:false" json:"is_default"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// 配送見積もりに使えるか
func (a Address) HasShippingCodes() bool {
	return a.DistrictID > 0 && a.WardCode != ""
}
