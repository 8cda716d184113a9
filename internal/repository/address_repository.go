package repository

import (
	"context"

	"ecshop/internal/domain/model"
)

// 住所(Address)を保存・取得する窓口
type AddressRepository interface {
	//作成後はIDなどが埋まったaddressを返す
	Create(ctx context.Context, address model.Address) (model.Address, error)

	ListByUserID(ctx context.Context, userID int64) ([]model.Address, error)

	CountByUserID(ctx context.Context, userID int64) (int64, error)

	//無ければ ErrNotFound
	FindByID(ctx context.Context, addressID int64) (model.Address, error)

	Update(ctx context.Context, address model.Address) error

	Delete(ctx context.Context, addressID int64) error

	//ユーザー内でdefaultは1つ
	SetDefault(ctx context.Context, userID, addressID int64) error
}
