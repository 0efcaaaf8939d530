package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type AdminUserHandler struct {
	responder
	uc *usecase.ProfileUsecase
}

func NewAdminUserHandler(uc *usecase.ProfileUsecase, log *zap.Logger) *AdminUserHandler {
	return &AdminUserHandler{responder: responder{log: log}, uc: uc}
}

// /admin 配下は全部「JWT必須 + token_version一致 + ADMIN限定」のグループで受ける
func (h *AdminUserHandler) RegisterRoutes(admin *echo.Group) {
	admin.POST("/users/:id/force-logout", h.ForceLogout)
}

func (h *AdminUserHandler) ForceLogout(c echo.Context) error {
	userID, err := pathID(c, "id")
	if err != nil {
		return h.writeError(c, err)
	}

	res, err := h.uc.ForceLogout(c.Request().Context(), userID)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, res)
}
