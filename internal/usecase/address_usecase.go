package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"ecshop/internal/domain/model"
	"ecshop/internal/repository"
)

// 住所系のエラー（Handlerがステータスに変換する）
var (
	//404
	ErrNotFound = errors.New("not found")
	//400 入力不足
	ErrValidation = errors.New("validation error")
	//401
	ErrUnauthorized = errors.New("unauthorized")
	//403 他人の住所
	ErrForbidden = errors.New("forbidden")
	//409 既定の住所は消せない
	ErrConflict = errors.New("conflict")
	//500
	ErrInternal = errors.New("internal error")
)

type AddressDTO struct {
	ID            int64  `json:"id"`
	UserID        int64  `json:"user_id"`
	RecipientName string `json:"recipient_name"`
	Phone         string `json:"phone"`
	Line          string `json:"line"`
	WardName      string `json:"ward_name"`
	DistrictName  string `json:"district_name"`
	ProvinceName  string `json:"province_name"`
	DistrictID    int    `json:"district_id"`
	WardCode      string `json:"ward_code"`
	IsDefault     bool   `json:"is_default"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

type AddressRequest struct {
	RecipientName string `json:"recipient_name"`
	Phone         string `json:"phone"`
	Line          string `json:"line"`
	WardName      string `json:"ward_name"`
	DistrictName  string `json:"district_name"`
	ProvinceName  string `json:"province_name"`
	DistrictID    int    `json:"district_id"`
	WardCode      string `json:"ward_code"`
}

func (r AddressRequest) valid() bool {
	if strings.TrimSpace(r.RecipientName) == "" || strings.TrimSpace(r.Phone) == "" || strings.TrimSpace(r.Line) == "" {
		return false
	}
	return r.DistrictID >= 0
}

type AddressUsecase struct {
	addresses repository.AddressRepository
}

func NewAddressUsecase(addresses repository.AddressRepository) *AddressUsecase {
	return &AddressUsecase{addresses: addresses}
}

func (u *AddressUsecase) List(ctx context.Context, userID int64) ([]AddressDTO, error) {
	if userID <= 0 {
		return nil, ErrUnauthorized
	}

	list, err := u.addresses.ListByUserID(ctx, userID)
	if err != nil {
		return nil, ErrInternal
	}

	out := make([]AddressDTO, 0, len(list))
	for i := range list {
		out = append(out, toAddressDTO(&list[i]))
	}
	return out, nil
}

// 最初の住所は既定にする
func (u *AddressUsecase) Create(ctx context.Context, userID int64, req AddressRequest) (AddressDTO, error) {
	if userID <= 0 {
		return AddressDTO{}, ErrUnauthorized
	}
	if !req.valid() {
		return AddressDTO{}, ErrValidation
	}

	count, err := u.addresses.CountByUserID(ctx, userID)
	if err != nil {
		return AddressDTO{}, ErrInternal
	}

	now := time.Now()
	a := applyAddressRequest(model.Address{
		UserID:    userID,
		IsDefault: count == 0,
		CreatedAt: now,
	}, req)
	a.UpdatedAt = now

	created, err := u.addresses.Create(ctx, a)
	if err != nil {
		return AddressDTO{}, ErrInternal
	}
	return toAddressDTO(&created), nil
}

func (u *AddressUsecase) Update(ctx context.Context, userID int64, addressID int64, req AddressRequest) (AddressDTO, error) {
	if userID <= 0 {
		return AddressDTO{}, ErrUnauthorized
	}
	if addressID <= 0 || !req.valid() {
		return AddressDTO{}, ErrValidation
	}

	current, err := u.owned(ctx, userID, addressID)
	if err != nil {
		return AddressDTO{}, err
	}

	a := applyAddressRequest(current, req)
	a.UpdatedAt = time.Now()

	if err := u.addresses.Update(ctx, a); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return AddressDTO{}, ErrNotFound
		}
		return AddressDTO{}, ErrInternal
	}
	return toAddressDTO(&a), nil
}

func (u *AddressUsecase) Delete(ctx context.Context, userID int64, addressID int64) error {
	if userID <= 0 {
		return ErrUnauthorized
	}
	if addressID <= 0 {
		return ErrValidation
	}

	a, err := u.owned(ctx, userID, addressID)
	if err != nil {
		return err
	}
	//既定の住所は先に別の住所を既定にしてから
	if a.IsDefault {
		return ErrConflict
	}

	if err := u.addresses.Delete(ctx, addressID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return ErrInternal
	}
	return nil
}

func (u *AddressUsecase) SetDefault(ctx context.Context, userID int64, addressID int64) error {
	if userID <= 0 {
		return ErrUnauthorized
	}
	if addressID <= 0 {
		return ErrValidation
	}

	if _, err := u.owned(ctx, userID, addressID); err != nil {
		return err
	}

	//user内でdefaultは1つ
	if err := u.addresses.SetDefault(ctx, userID, addressID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return ErrInternal
	}
	return nil
}

// 所有チェック（本人のみ）
func (u *AddressUsecase) owned(ctx context.Context, userID, addressID int64) (model.Address, error) {
	a, err := u.addresses.FindByID(ctx, addressID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Address{}, ErrNotFound
		}
		return model.Address{}, ErrInternal
	}
	if a.UserID != userID {
		return model.Address{}, ErrForbidden
	}
	return a, nil
}

func applyAddressRequest(a model.Address, req AddressRequest) model.Address {
	a.RecipientName = strings.TrimSpace(req.RecipientName)
	a.Phone = strings.TrimSpace(req.Phone)
	a.Line = strings.TrimSpace(req.Line)
	a.WardName = strings.TrimSpace(req.WardName)
	a.DistrictName = strings.TrimSpace(req.DistrictName)
	a.ProvinceName = strings.TrimSpace(req.ProvinceName)
	a.DistrictID = req.DistrictID
	a.WardCode = strings.TrimSpace(req.WardCode)
	return a
}

func toAddressDTO(a *model.Address) AddressDTO {
	return AddressDTO{
		ID:            a.ID,
		UserID:        a.UserID,
		RecipientName: a.RecipientName,
		Phone:         a.Phone,
		Line:          a.Line,
		WardName:      a.WardName,
		DistrictName:  a.DistrictName,
		ProvinceName:  a.ProvinceName,
		DistrictID:    a.DistrictID,
		WardCode:      a.WardCode,
		IsDefault:     a.IsDefault,
		CreatedAt:     a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     a.UpdatedAt.Format(time.RFC3339),
	}
}
