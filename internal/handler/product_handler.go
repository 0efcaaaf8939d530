package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// /products の公開API
type ProductHandler struct {
	responder
	uc *usecase.ProductUsecase
}

// DI
func NewProductHandler(uc *usecase.ProductUsecase, log *zap.Logger) *ProductHandler {
	return &ProductHandler{responder: responder{log: log}, uc: uc}
}

// 公開商品のルートを登録
func (h *ProductHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.list)
	g.GET("/:id", h.detail)
}

func (h *ProductHandler) list(c echo.Context) error {
	in, err := listProductsInput(c)
	if err != nil {
		return h.writeError(c, err)
	}

	out, err := h.uc.ListPublicProducts(c.Request().Context(), in)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func listProductsInput(c echo.Context) (usecase.ListProductsInput, error) {
	var in usecase.ListProductsInput
	var err error

	// page（default 1）, limit（default 20）
	if in.Page, err = queryInt(c, "page", 1); err != nil {
		return in, err
	}
	if in.Limit, err = queryInt(c, "limit", 20); err != nil {
		return in, err
	}
	if in.BrandID, err = queryInt64(c, "brand_id"); err != nil {
		return in, err
	}
	if in.CategoryID, err = queryInt64(c, "category_id"); err != nil {
		return in, err
	}
	if in.MinPrice, err = queryInt64(c, "min_price"); err != nil {
		return in, err
	}
	if in.MaxPrice, err = queryInt64(c, "max_price"); err != nil {
		return in, err
	}
	in.Q = c.QueryParam("q")
	in.Sort = c.QueryParam("sort")
	return in, nil
}

func (h *ProductHandler) detail(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.writeError(c, err)
	}

	p, err := h.uc.GetProductDetail(c.Request().Context(), id)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, p)
}
