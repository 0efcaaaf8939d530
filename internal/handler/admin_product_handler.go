package handler

import (
	"net/http"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ProductCreate / ProductUpdate の入力
type ProductRequest struct {
	BrandID     *int64 `json:"brand_id"`
	CategoryID  *int64 `json:"category_id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Stock       int64  `json:"stock"`
	IsActive    bool   `json:"is_active"`
}

type VariantRequest struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Stock    int64  `json:"stock"`
	IsActive *bool  `json:"is_active"`
}

// 在庫更新の入力です。variant_idがあればバリエーションの在庫。
type InventoryUpdateRequest struct {
	VariantID *int64 `json:"variant_id"`
	Stock     int64  `json:"stock"`
	Reason    string `json:"reason"`
}

// /admin/products と /admin/inventory をまとめる
type AdminProductHandler struct {
	responder
	uc *usecase.ProductUsecase
}

// DI
func NewAdminProductHandler(uc *usecase.ProductUsecase, log *zap.Logger) *AdminProductHandler {
	return &AdminProductHandler{responder: responder{log: log}, uc: uc}
}

// adminを登録
func (h *AdminProductHandler) RegisterRoutes(admin *echo.Group) {
	admin.POST("/products", h.createProduct)
	admin.GET("/products/:id", h.getProduct)
	admin.PUT("/products/:id", h.updateProduct)
	admin.DELETE("/products/:id", h.deleteProduct)

	admin.POST("/products/:id/variants", h.createVariant)
	admin.PUT("/products/:id/variants/:variant_id", h.updateVariant)
	admin.DELETE("/products/:id/variants/:variant_id", h.deleteVariant)

	admin.PUT("/inventory/:product_id", h.updateInventory)
	admin.GET("/audit-logs", h.listAuditLogs)
}

func (h *AdminProductHandler) getProduct(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.writeError(c, err)
	}
	p, err := h.uc.AdminGetProduct(c.Request().Context(), id)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *AdminProductHandler) createProduct(c echo.Context) error {
	adminID, err := currentUserID(c)
	if err != nil {
		return h.writeError(c, err)
	}
	var req ProductRequest
	if err := bindJSON(c, &req); err != nil {
		return h.writeError(c, err)
	}

	p, err := h.uc.AdminCreateProduct(c.Request().Context(), adminID, usecase.ProductInput(req))
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusCreated, p)
}

func (h *AdminProductHandler) updateProduct(c echo.Context) error {
	adminID, err := currentUserID(c)
	if err != nil {
		return h.writeError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return h.writeError(c, err)
	}
	var req ProductRequest
	if err := bindJSON(c, &req); err != nil {
		return h.writeError(c, err)
	}

	p, err := h.uc.AdminUpdateProduct(c.Request().Context(), adminID, id, usecase.ProductInput(req))
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, p)
}

func (h *AdminProductHandler) deleteProduct(c echo.Context) error {
	adminID, err := currentUserID(c)
	if err != nil {
		return h.writeError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return h.writeError(c, err)
	}

	if err := h.uc.AdminDeleteProduct(c.Request().Context(), adminID, id); err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *AdminProductHandler) createVariant(c echo.Context) error {
	adminID, err := currentUserID(c)
	if err != nil {
		return h.writeError(c, err)
	}
	productID, err := pathID(c, "id")
	if err != nil {
		return h.writeError(c, err)
	}
	var req VariantRequest
	if err := bindJSON(c, &req); err != nil {
		return h.writeError(c, err)
	}

	v, err := h.uc.AdminCreateVariant(c.Request().Context(), adminID, productID, usecase.VariantInput(req))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *AdminProductHandler) updateVariant(c echo.Context) error {
	adminID, err := currentUserID(c)
	if err != nil {
		return h.writeError(c, err)
	}
	productID, err := pathID(c, "id")
	if err != nil {
		return h.writeError(c, err)
	}
	variantID, err := pathID(c, "variant_id")
	if err != nil {
		return h.writeError(c, err)
	}
	var req VariantRequest
	if err := bindJSON(c, &req); err != nil {
		return h.writeError(c, err)
	}

	v, err := h.uc.AdminUpdateVariant(c.Request().Context(), adminID, productID, variantID, usecase.VariantInput(req))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *AdminProductHandler) deleteVariant(c echo.Context) error {
	adminID, err := currentUserID(c)
	if err != nil {
		return h.writeError(c, err)
	}
	productID, err := pathID(c, "id")
	if err != nil {
		return h.writeError(c, err)
	}
	variantID, err := pathID(c, "variant_id")
	if err != nil {
		return h.writeError(c, err)
	}

	if err := h.uc.AdminDeleteVariant(c.Request().Context(), adminID, productID, variantID); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *AdminProductHandler) updateInventory(c echo.Context) error {
	adminID, err := currentUserID(c)
	if err != nil {
		return h.writeError(c, err)
	}
	productID, err := pathID(c, "product_id")
	if err != nil {
		return h.writeError(c, err)
	}

	var req InventoryUpdateRequest
	if err := bindJSON(c, &req); err != nil {
		return h.writeError(c, err)
	}

	res, err := h.uc.AdminSetStock(c.Request().Context(), adminID, productID, req.VariantID, req.Stock, req.Reason)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, res)
}

// GET /admin/audit-logs?actor_user_id=&action=&resource_type=&resource_id=&from=&to=&limit=&offset=
func (h *AdminProductHandler) listAuditLogs(c echo.Context) error {
	var f repository.AuditLogFilter
	var err error

	if f.ActorUserID, err = queryInt64(c, "actor_user_id"); err != nil {
		return h.writeError(c, err)
	}
	if f.ResourceID, err = queryInt64(c, "resource_id"); err != nil {
		return h.writeError(c, err)
	}
	if v := c.QueryParam("action"); v != "" {
		a := model.AuditAction(v)
		f.Action = &a
	}
	if v := c.QueryParam("resource_type"); v != "" {
		r := model.AuditResourceType(v)
		f.ResourceType = &r
	}
	if f.CreatedFrom, err = queryTime(c, "from"); err != nil {
		return h.writeError(c, err)
	}
	if f.CreatedTo, err = queryTime(c, "to"); err != nil {
		return h.writeError(c, err)
	}
	if f.Limit, err = queryInt(c, "limit", 50); err != nil {
		return h.writeError(c, err)
	}
	if f.Offset, err = queryInt(c, "offset", 0); err != nil {
		return h.writeError(c, err)
	}

	logs, err := h.uc.ListAuditLogs(c.Request().Context(), f)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, logs)
}

// RFC3339
func queryTime(c echo.Context, name string) (*time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, usecase.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return &t, nil
}
