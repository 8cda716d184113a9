package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"ecshop/internal/domain/model"
	"ecshop/internal/repository"
	"ecshop/internal/usecase"
)

var (
	ErrAdminUserNotFound = usecase.NewHTTPError(http.StatusNotFound, "user not found")
	ErrInvalidRole       = usecase.NewHTTPError(http.StatusBadRequest, "invalid role")
	// 自分自身の降格・無効化は不可（管理者不在を防ぐ）
	ErrSelfLockout = usecase.NewHTTPError(http.StatusConflict, "cannot demote or deactivate yourself")
)

// 管理者によるユーザー作成・メール変更の入力チェック
type AdminUserValidator interface {
	RegisterValidator
	ValidateEmail(email string) error
}

// AdminUserUsecase は /admin/users の一覧・作成・更新・無効化。
// 権限や有効状態が変わったら token_version を上げて既存トークンを失効させる。
type AdminUserUsecase struct {
	users     repository.UserRepository
	audits    repository.AuditLogRepository
	validator AdminUserValidator
	hasher    PasswordHasher
	clock     Clock
}

// DI
func NewAdminUserUsecase(
	users repository.UserRepository,
	audits repository.AuditLogRepository,
	validator AdminUserValidator,
	hasher PasswordHasher,
	clock Clock,
) *AdminUserUsecase {
	return &AdminUserUsecase{users: users, audits: audits, validator: validator, hasher: hasher, clock: clock}
}

type AdminUserListOutput struct {
	Items []model.User `json:"items"`
	Total int64        `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

type AdminCreateUserInput struct {
	Email    string
	Password string
	FullName string
	Phone    string
	Role     model.Role // 空なら USER
	IsActive *bool      // nil なら true
}

// nil のフィールドは変更しない
type AdminUpdateUserInput struct {
	Email    *string
	FullName *string
	Phone    *string
	Role     *model.Role
	IsActive *bool
}

// 監査ログに残す項目
type userSnapshot struct {
	Email    string     `json:"email"`
	FullName string     `json:"full_name"`
	Phone    string     `json:"phone"`
	Role     model.Role `json:"role"`
	IsActive bool       `json:"is_active"`
}

func snapshotJSON(u model.User) string {
	b, _ := json.Marshal(userSnapshot{Email: u.Email, FullName: u.FullName, Phone: u.Phone, Role: u.Role, IsActive: u.IsActive})
	return string(b)
}

func validRole(r model.Role) bool {
	return r == model.RoleUser || r == model.RoleAdmin
}

func (u *AdminUserUsecase) List(ctx context.Context, f repository.UserListFilter) (AdminUserListOutput, error) {
	if f.Page == 0 {
		f.Page = 1
	}
	if f.Limit == 0 {
		f.Limit = 20
	}
	if f.Page < 1 || f.Limit < 1 || f.Limit > 100 {
		return AdminUserListOutput{}, usecase.NewHTTPError(http.StatusBadRequest, "invalid paging")
	}
	if f.Role != nil && !validRole(*f.Role) {
		return AdminUserListOutput{}, ErrInvalidRole
	}
	f.Search = strings.TrimSpace(f.Search)

	items, total, err := u.users.List(ctx, f)
	if err != nil {
		return AdminUserListOutput{}, usecase.NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if items == nil {
		items = []model.User{}
	}
	return AdminUserListOutput{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func (u *AdminUserUsecase) Create(ctx context.Context, adminID int64, in AdminCreateUserInput) (model.User, error) {
	if adminID <= 0 {
		return model.User{}, usecase.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := u.validator.ValidateRegister(email, in.Password); err != nil {
		return model.User{}, err
	}
	role := in.Role
	if role == "" {
		role = model.RoleUser
	}
	if !validRole(role) {
		return model.User{}, ErrInvalidRole
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	now := u.clock.Now()
	user, err := createAccount(ctx, u.users, u.hasher, model.User{
		Email:     email,
		FullName:  strings.TrimSpace(in.FullName),
		Phone:     strings.TrimSpace(in.Phone),
		Role:      role,
		IsActive:  active,
		CreatedAt: now,
	}, in.Password)
	if err != nil {
		return model.User{}, err
	}

	if err := u.audits.Create(ctx, model.AuditLog{
		ActorUserID:  adminID,
		Action:       model.AuditActionCreateUser,
		ResourceType: model.AuditResourceUser,
		ResourceID:   user.ID,
		AfterJSON:    snapshotJSON(*user),
		CreatedAt:    now,
	}); err != nil {
		return model.User{}, usecase.NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return *user, nil
}

func (u *AdminUserUsecase) Update(ctx context.Context, adminID, userID int64, in AdminUpdateUserInput) (model.User, error) {
	return u.apply(ctx, adminID, userID, in, model.AuditActionUpdateUser)
}

// DELETE /admin/users/:id。注文が user を参照するので行は消さずに無効化する。
func (u *AdminUserUsecase) Deactivate(ctx context.Context, adminID, userID int64) (model.User, error) {
	inactive := false
	return u.apply(ctx, adminID, userID, AdminUpdateUserInput{IsActive: &inactive}, model.AuditActionDeactivateUser)
}

func (u *AdminUserUsecase) apply(ctx context.Context, adminID, userID int64, in AdminUpdateUserInput, action model.AuditAction) (model.User, error) {
	if adminID <= 0 {
		return model.User{}, usecase.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if userID <= 0 {
		return model.User{}, usecase.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	if in.Role != nil && !validRole(*in.Role) {
		return model.User{}, ErrInvalidRole
	}
	if userID == adminID {
		if (in.Role != nil && *in.Role != model.RoleAdmin) || (in.IsActive != nil && !*in.IsActive) {
			return model.User{}, ErrSelfLockout
		}
	}

	current, err := u.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return model.User{}, ErrAdminUserNotFound
	}
	if err != nil {
		return model.User{}, usecase.NewHTTPError(http.StatusInternalServerError, "db error")
	}
	before := *current
	next := *current

	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if err := u.validator.ValidateEmail(email); err != nil {
			return model.User{}, err
		}
		if email != before.Email {
			other, err := u.users.FindByEmail(ctx, email)
			if err == nil && other != nil && other.ID != userID {
				return model.User{}, ErrEmailAlreadyExists
			}
			if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
				return model.User{}, usecase.NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}
		next.Email = email
	}
	if in.FullName != nil {
		next.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.Phone != nil {
		next.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Role != nil {
		next.Role = *in.Role
	}
	if in.IsActive != nil {
		next.IsActive = *in.IsActive
	}

	if next == before {
		return before, nil
	}

	now := u.clock.Now()
	next.UpdatedAt = now
	if err := u.users.Update(ctx, &next); err != nil {
		return model.User{}, usecase.NewHTTPError(http.StatusInternalServerError, "db error")
	}

	// 権限変更・無効化は発行済みトークンを失効させる
	if next.Role != before.Role || (before.IsActive && !next.IsActive) {
		if err := u.users.IncrementTokenVersion(ctx, userID); err != nil {
			return model.User{}, usecase.NewHTTPError(http.StatusInternalServerError, "db error")
		}
		next.TokenVersion++
	}

	if err := u.audits.Create(ctx, model.AuditLog{
		ActorUserID:  adminID,
		Action:       action,
		ResourceType: model.AuditResourceUser,
		ResourceID:   userID,
		BeforeJSON:   snapshotJSON(before),
		AfterJSON:    snapshotJSON(next),
		CreatedAt:    now,
	}); err != nil {
		return model.User{}, usecase.NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return next, nil
}
