package handler

import (
	"net/http"
	"strconv"

	"ecshop/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// /products, /categories の公開API
type ProductHandler struct {
	uc         *usecase.ProductUsecase
	categories *usecase.CategoryUsecase
}

// DI
func NewProductHandler(uc *usecase.ProductUsecase, categories *usecase.CategoryUsecase) *ProductHandler {
	return &ProductHandler{uc: uc, categories: categories}
}

// 公開商品のルートを登録
func (h *ProductHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/products", h.list)
	e.GET("/products/:id", h.detail)
	e.GET("/categories", h.listCategories)
}

func (h *ProductHandler) list(c echo.Context) error {
	// page（default 1）
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return badRequest(c, "invalid page")
	}
	// limit（default 20）
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return badRequest(c, "invalid limit")
	}

	minPrice, err := queryDecimal(c, "min_price")
	if err != nil {
		return badRequest(c, "invalid min_price")
	}
	maxPrice, err := queryDecimal(c, "max_price")
	if err != nil {
		return badRequest(c, "invalid max_price")
	}

	var categoryID *int64
	if v := c.QueryParam("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return badRequest(c, "invalid category_id")
		}
		categoryID = &id
	}

	out, err := h.uc.ListPublicProducts(c.Request().Context(), usecase.ListProductsInput{
		Page:       page,
		Limit:      limit,
		Q:          c.QueryParam("q"),
		MinPrice:   minPrice,
		MaxPrice:   maxPrice,
		CategoryID: categoryID,
		Sort:       c.QueryParam("sort"),
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid id")
	}

	p, err := h.uc.GetProductDetail(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) listCategories(c echo.Context) error {
	out, err := h.categories.ListPublic(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func queryDecimal(c echo.Context, name string) (*decimal.Decimal, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
