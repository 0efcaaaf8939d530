package handler

import (
	"net/http"

	"storefront/internal/usecase"
	"storefront/internal/validator"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// /me
type ProfileHandler struct {
	responder
	uc *usecase.ProfileUsecase
}

func NewProfileHandler(uc *usecase.ProfileUsecase, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{responder: responder{log: log}, uc: uc}
}

type updateProfileRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// JWT必須のグループに登録する
func (h *ProfileHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.get)
	g.PATCH("", h.update)
	g.PUT("/password", h.changePassword)
}

func (h *ProfileHandler) get(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return h.writeError(c, err)
	}

	user, err := h.uc.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *ProfileHandler) update(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return h.writeError(c, err)
	}

	var req updateProfileRequest
	if err := bindJSON(c, &req); err != nil {
		return h.writeError(c, err)
	}

	user, err := h.uc.UpdateProfile(c.Request().Context(), userID, usecase.ProfileInput{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *ProfileHandler) changePassword(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return h.writeError(c, err)
	}

	var req changePasswordRequest
	if err := bindJSON(c, &req); err != nil {
		return h.writeError(c, err)
	}
	if err := validator.ValidateChangePassword(req.CurrentPassword, req.NewPassword); err != nil {
		return h.writeError(c, err)
	}

	if err := h.uc.ChangePassword(c.Request().Context(), userID, usecase.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	}); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "password changed"})
}
