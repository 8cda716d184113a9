package model

// AutoMigrate 対象
func All() []interface{} {
	return []interface{}{
		&User{},
		&Category{},
		&Product{},
		&CartItem{},
		&Favorite{},
		&Address{},
		&Order{},
		&OrderItem{},
		&Notification{},
		&InventoryAdjustment{},
		&AuditLog{},
	}
}
