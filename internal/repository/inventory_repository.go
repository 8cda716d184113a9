package repository

import (
	"context"

	"ecshop/internal/domain/model"
)

// StockLocker は商品行の排他ロック。
// ロックは呼び出し元のトランザクションが終わるまで保持されるので、
// 必ず TransactionManager.WithinTx の中（TxRepos.Inventory()）から使う。
type StockLocker interface {
	LockForUpdate(ctx context.Context, productID int64) (model.Product, error)
}

type InventoryRepository interface {
	StockLocker

	// 在庫の現在値を設定
	SetStock(ctx context.Context, productID int64, newStock int64) error

	// 在庫が足りるときだけ減算
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)

	// 在庫戻し（キャンセルなど）
	IncreaseStock(ctx context.Context, productID int64, qty int64) error

	// 調整履歴作成
	CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error
}
