package usecase

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type CategoryUsecase struct {
	categories repo.CategoryRepository
}

func NewCategoryUsecase(categories repo.CategoryRepository) *CategoryUsecase {
	return &CategoryUsecase{categories: categories}
}

type CategoryInput struct {
	Name        string
	Slug        string
	Description string
	IsActive    bool
}

// 公開カテゴリ（公開商品数つき）
func (u *CategoryUsecase) ListPublic(ctx context.Context) ([]model.CategoryWithCount, error) {
	items, err := u.categories.ListActiveWithCounts(ctx)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return items, nil
}

func (u *CategoryUsecase) AdminList(ctx context.Context) ([]model.Category, error) {
	items, err := u.categories.ListAll(ctx)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return items, nil
}

func (u *CategoryUsecase) AdminCreate(ctx context.Context, in CategoryInput) (model.Category, error) {
	c, err := u.normalize(in)
	if err != nil {
		return model.Category{}, err
	}
	if err := u.ensureSlugFree(ctx, c.Slug, 0); err != nil {
		return model.Category{}, err
	}

	created, err := u.categories.Create(ctx, c)
	if err != nil {
		return model.Category{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return created, nil
}

func (u *CategoryUsecase) AdminUpdate(ctx context.Context, id int64, in CategoryInput) (model.Category, error) {
	if id <= 0 {
		return model.Category{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	c, err := u.normalize(in)
	if err != nil {
		return model.Category{}, err
	}
	if err := u.ensureSlugFree(ctx, c.Slug, id); err != nil {
		return model.Category{}, err
	}

	c.ID = id
	err = u.categories.Update(ctx, c)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Category{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Category{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return c, nil
}

// 削除は非公開化のみ（商品の category_id を壊さない）
func (u *CategoryUsecase) AdminDelete(ctx context.Context, id int64) error {
	if id <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	err := u.categories.Deactivate(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

func (u *CategoryUsecase) normalize(in CategoryInput) (model.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Category{}, NewHTTPError(http.StatusBadRequest, "name required")
	}
	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	if slug == "" {
		slug = slugify(name)
	}
	if !slugPattern.MatchString(slug) {
		return model.Category{}, NewHTTPError(http.StatusBadRequest, "invalid slug")
	}
	return model.Category{
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(in.Description),
		IsActive:    in.IsActive,
	}, nil
}

func (u *CategoryUsecase) ensureSlugFree(ctx context.Context, slug string, selfID int64) error {
	existing, err := u.categories.FindBySlug(ctx, slug)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if existing.ID != selfID {
		return NewHTTPError(http.StatusConflict, "slug already exists")
	}
	return nil
}

// "Men's Shoes" -> "men-s-shoes"
func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
