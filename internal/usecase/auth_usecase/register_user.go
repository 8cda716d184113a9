package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"ecshop/internal/domain/model"
	"ecshop/internal/repository"
	"ecshop/internal/usecase"

	"golang.org/x/crypto/bcrypt"
)

// 会員登録の入力
type RegisterUserInput struct {
	Email    string
	Password string
	FullName string
	Phone    string
}

// 会員登録の出力
type RegisterUserOutput struct {
	User model.User `json:"user"`
}

var ErrEmailAlreadyExists = usecase.NewHTTPError(http.StatusConflict, "email already exists")

// 入力チェック（validator パッケージが実装）
type RegisterValidator interface {
	ValidateRegister(email string, password string) error
}

// 平文パスワードからハッシュへ。
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// RegisterUserUsecaseは会員登録の処理。
type RegisterUserUsecase struct {
	userRepo  repository.UserRepository
	validator RegisterValidator
	hasher    PasswordHasher
	clock     Clock
}

// DI
func NewRegisterUserUsecase(
	userRepo repository.UserRepository,
	validator RegisterValidator,
	hasher PasswordHasher,
	clock Clock,
) *RegisterUserUsecase {
	return &RegisterUserUsecase{
		userRepo:  userRepo,
		validator: validator,
		hasher:    hasher,
		clock:     clock,
	}
}

// 会員登録実行
func (u *RegisterUserUsecase) Execute(ctx context.Context, in RegisterUserInput) (RegisterUserOutput, error) {
	var out RegisterUserOutput

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := u.validator.ValidateRegister(email, in.Password); err != nil {
		return out, err
	}

	user, err := createAccount(ctx, u.userRepo, u.hasher, model.User{
		Email:     email,
		FullName:  strings.TrimSpace(in.FullName),
		Phone:     strings.TrimSpace(in.Phone),
		Role:      model.RoleUser, // 初期はUSER
		IsActive:  true,
		CreatedAt: u.clock.Now(),
	}, in.Password)
	if err != nil {
		return out, err
	}

	out.User = *user
	return out, nil
}

// email重複チェック → パスワードのハッシュ化 → 保存。会員登録と管理者作成で共通。
func createAccount(ctx context.Context, users repository.UserRepository, hasher PasswordHasher, user model.User, password string) (*model.User, error) {
	existing, err := users.FindByEmail(ctx, user.Email)
	if err == nil && existing != nil {
		return nil, ErrEmailAlreadyExists
	}
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user.PasswordHash = hashed
	user.TokenVersion = 0
	user.UpdatedAt = user.CreatedAt
	if err := users.Create(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// bcryptハッシュ化
type BcryptPasswordHasher struct {
	cost int
}

// DI
func NewBcryptPasswordHasher(cost int) *BcryptPasswordHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptPasswordHasher{cost}
}

func (h *BcryptPasswordHasher) Hash(plain string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// bcryptハッシュと平文を比較
type BcryptPasswordVerifier struct{}

// DI
func NewBcryptPasswordVerifier() *BcryptPasswordVerifier {
	return &BcryptPasswordVerifier{}
}

func (v *BcryptPasswordVerifier) Verify(plain string, hashed string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	return err == nil
}
