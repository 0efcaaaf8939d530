package handler

import (
	"net/http"

	"storefront/internal/domain/model"
	"storefront/internal/middleware"
	"storefront/internal/usecase"
	"storefront/internal/validator"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// カートAPIの共通レスポンス
type CartResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    interface{}         `json:"data,omitempty"`
	Summary *model.CartSummary  `json:"summary,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

type cartValidation struct {
	Valid    bool               `json:"valid"`
	Problems map[int64][]string `json:"problems"`
}

// /cartのHTTP
type CartHandler struct {
	responder
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase, log *zap.Logger) *CartHandler {
	return &CartHandler{responder: responder{log: log}, uc: uc}
}

type AddCartRequest struct {
	ProductID int64  `json:"product_id"`
	VariantID *int64 `json:"variant_id"`
	Quantity  *int64 `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity *int64 `json:"quantity"`
}

// OptionalAuthJWT + GuestSession + CartMemo の後ろで使う
func (h *CartHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.getCart)
	g.DELETE("", h.clearCart)
	g.GET("/summary", h.summary)
	g.GET("/validate", h.validate)
	g.POST("/items", h.addItem)
	g.GET("/items/:id", h.getItem)
	g.PATCH("/items/:id", h.patchItem)
	g.DELETE("/items/:id", h.deleteItem)
}

func (h *CartHandler) getCart(c echo.Context) error {
	view, err := h.uc.GetCart(c.Request().Context(), middleware.CartScope(c))
	if err != nil {
		return h.fail(c, err)
	}

	summary := view.Summary
	return c.JSON(http.StatusOK, CartResponse{Success: true, Message: "Cart retrieved.", Data: view, Summary: &summary})
}

func (h *CartHandler) summary(c echo.Context) error {
	s, err := h.uc.GetCartSummary(c.Request().Context(), middleware.CartScope(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, CartResponse{Success: true, Message: "Cart summary retrieved.", Summary: &s})
}

func (h *CartHandler) validate(c echo.Context) error {
	problems, err := h.uc.ValidateCart(c.Request().Context(), middleware.CartScope(c))
	if err != nil {
		return h.fail(c, err)
	}

	msg := "Cart is valid."
	if len(problems) > 0 {
		msg = "Some items in your cart need attention."
	}
	return c.JSON(http.StatusOK, CartResponse{
		Success: true,
		Message: msg,
		Data:    cartValidation{Valid: len(problems) == 0, Problems: problems},
	})
}

func (h *CartHandler) addItem(c echo.Context) error {
	var req AddCartRequest
	if err := bindJSON(c, &req); err != nil {
		return h.fail(c, err)
	}
	if err := validator.ValidateAddCartItem(req.ProductID, req.VariantID, req.Quantity); err != nil {
		return h.fail(c, err)
	}

	ctx := c.Request().Context()
	scope := middleware.CartScope(c)

	item, err := h.uc.AddToCart(ctx, scope, usecase.AddCartInput{
		ProductID: req.ProductID,
		VariantID: req.VariantID,
		Quantity:  *req.Quantity,
	})
	if err != nil {
		return h.fail(c, err)
	}

	return h.succeed(c, http.StatusCreated, "Item added to cart.", item)
}

func (h *CartHandler) getItem(c echo.Context) error {
	itemID, err := pathID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}

	item, err := h.uc.GetItem(c.Request().Context(), middleware.CartScope(c), itemID)
	if err != nil {
		return h.fail(c, err)
	}
	return h.succeed(c, http.StatusOK, "Cart item retrieved.", item)
}

func (h *CartHandler) patchItem(c echo.Context) error {
	itemID, err := pathID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}

	var req UpdateCartItemRequest
	if err := bindJSON(c, &req); err != nil {
		return h.fail(c, err)
	}
	if err := validator.ValidateUpdateCartItem(req.Quantity); err != nil {
		return h.fail(c, err)
	}

	_, removed, err := h.uc.UpdateQuantity(c.Request().Context(), middleware.CartScope(c), itemID, *req.Quantity)
	if err != nil {
		return h.fail(c, err)
	}

	msg := "Cart updated."
	if removed {
		msg = "Item removed from cart."
	}
	return h.succeed(c, http.StatusOK, msg, nil)
}

func (h *CartHandler) deleteItem(c echo.Context) error {
	itemID, err := pathID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}

	if err := h.uc.RemoveFromCart(c.Request().Context(), middleware.CartScope(c), itemID); err != nil {
		return h.fail(c, err)
	}
	return h.succeed(c, http.StatusOK, "Item removed from cart.", nil)
}

func (h *CartHandler) clearCart(c echo.Context) error {
	if err := h.uc.ClearCart(c.Request().Context(), middleware.CartScope(c)); err != nil {
		return h.fail(c, err)
	}
	return h.succeed(c, http.StatusOK, "Cart cleared.", nil)
}

// 更新系はサマリーも付けて返す
func (h *CartHandler) succeed(c echo.Context, status int, msg string, data interface{}) error {
	res := CartResponse{Success: true, Message: msg, Data: data}
	if s, err := h.uc.GetCartSummary(c.Request().Context(), middleware.CartScope(c)); err == nil {
		res.Summary = &s
	} else {
		h.log.Warn("cart summary after mutation failed", zap.Error(err))
	}
	return c.JSON(status, res)
}

// エラーもカートのenvelopeで返す
func (h *CartHandler) fail(c echo.Context, err error) error {
	status, body := h.errorBody(c, err)
	return c.JSON(status, CartResponse{Success: false, Message: body.Error, Errors: body.Fields})
}
