package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// /admin/brands と /admin/categories
type AdminCatalogHandler struct {
	responder
	brands     *usecase.BrandUsecase
	categories *usecase.CategoryUsecase
}

func NewAdminCatalogHandler(brands *usecase.BrandUsecase, categories *usecase.CategoryUsecase, log *zap.Logger) *AdminCatalogHandler {
	return &AdminCatalogHandler{responder: responder{log: log}, brands: brands, categories: categories}
}

type brandRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

type categoryRequest struct {
	ParentID    *int64 `json:"parent_id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

func (h *AdminCatalogHandler) RegisterRoutes(admin *echo.Group) {
	admin.GET("/brands", h.listBrands)
	admin.POST("/brands", h.createBrand)
	admin.GET("/brands/:id", h.getBrand)
	admin.PUT("/brands/:id", h.updateBrand)
	admin.DELETE("/brands/:id", h.deleteBrand)

	admin.GET("/categories", h.listCategories)
	admin.POST("/categories", h.createCategory)
	admin.GET("/categories/:id", h.getCategory)
	admin.PUT("/categories/:id", h.updateCategory)
	admin.DELETE("/categories/:id", h.deleteCategory)
}

func (h *AdminCatalogHandler) listBrands(c echo.Context) error {
	out, err := h.brands.List(c.Request().Context())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminCatalogHandler) getBrand(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.writeError(c, err)
	}
	b, err := h.brands.Get(c.Request().Context(), id)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *AdminCatalogHandler) createBrand(c echo.Context) error {
	adminID, err := currentUserID(c)
	if err != nil {
		return h.writeError(c, err)
	}
	var req brandRequest
	if err := bindJSON(c, &req); err != nil {
		return h.writeError(c, err)
	}

	b, err := h.brands.Create(c.Request().Context(), adminID, usecase.BrandInput(req))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *AdminCatalogHandler) updateBrand(c echo.Context) error {
	adminID, err := currentUserID(c)
	if err != nil {
		return h.writeError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return h.writeError(c, err)
	}
	var req brandRequest
	if err := bindJSON(c, &req); err != nil {
		return h.writeError(c, err)
	}

	b, err := h.brands.Update(c.Request().Context(), adminID, id, usecase.BrandInput(req))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *AdminCatalogHandler) deleteBrand(c echo.Context) error {
	adminID, err := currentUserID(c)
	if err != nil {
		return h.writeError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return h.writeError(c, err)
	}
	if err := h.brands.Delete(c.Request().Context(), adminID, id); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *AdminCatalogHandler) listCategories(c echo.Context) error {
	out, err := h.categories.List(c.Request().Context())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminCatalogHandler) getCategory(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.writeError(c, err)
	}
	cat, err := h.categories.Get(c.Request().Context(), id)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *AdminCatalogHandler) createCategory(c echo.Context) error {
	adminID, err := currentUserID(c)
	if err != nil {
		return h.writeError(c, err)
	}
	var req categoryRequest
	if err := bindJSON(c, &req); err != nil {
		return h.writeError(c, err)
	}

	cat, err := h.categories.Create(c.Request().Context(), adminID, usecase.CategoryInput(req))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, cat)
}

func (h *AdminCatalogHandler) updateCategory(c echo.Context) error {
	adminID, err := currentUserID(c)
	if err != nil {
		return h.writeError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return h.writeError(c, err)
	}
	var req categoryRequest
	if err := bindJSON(c, &req); err != nil {
		return h.writeError(c, err)
	}

	cat, err := h.categories.Update(c.Request().Context(), adminID, id, usecase.CategoryInput(req))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *AdminCatalogHandler) deleteCategory(c echo.Context) error {
	adminID, err := currentUserID(c)
	if err != nil {
		return h.writeError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return h.writeError(c, err)
	}
	if err := h.categories.Delete(c.Request().Context(), adminID, id); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}
