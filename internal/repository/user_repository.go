package repository

import (
	"context"

	"ecshop/internal/domain/model"
)

// 管理者のユーザー一覧
type UserListFilter struct {
	Page  int
	Limit int
	// email / 氏名の部分一致
	Search   string
	Role     *model.Role
	IsActive *bool
}

// 保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成
	Create(ctx context.Context, user *model.User) error
	//IDからユーザーを1件取得する。無ければ ErrUserNotFound
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	//メールからユーザーを一件取得する。無ければ ErrUserNotFound
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	//ユーザー情報の更新（最終ログインなど）
	Update(ctx context.Context, user *model.User) error
	//トークンのバージョンを＋１
	IncrementTokenVersion(ctx context.Context, userID int64) error
	Count(ctx context.Context) (int64, error)
	//新しい順
	List(ctx context.Context, f UserListFilter) ([]model.User, int64, error)
}
