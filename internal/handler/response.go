package handler

import (
	"errors"
	"net/http"
	"strconv"

	"storefront/internal/middleware"
	"storefront/internal/usecase"
	auth "storefront/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// OAS の Success { message: string }
type SuccessResponse struct {
	Message string `json:"message"`
}

// 認証系のエラー→ステータス
var authErrorStatus = []struct {
	err    error
	status int
	field  string
}{
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, ""},
	{auth.ErrInvalidRefreshToken, http.StatusUnauthorized, ""},
	{auth.ErrTokenReused, http.StatusUnauthorized, ""},
	{auth.ErrUserInactive, http.StatusForbidden, ""},
	{auth.ErrEmailAlreadyExists, http.StatusConflict, ""},
	{auth.ErrNameRequired, http.StatusUnprocessableEntity, "name"},
	{auth.ErrNameTooLong, http.StatusUnprocessableEntity, "name"},
	{auth.ErrInvalidEmailFormat, http.StatusUnprocessableEntity, "email"},
	{auth.ErrPasswordTooShort, http.StatusUnprocessableEntity, "password"},
	{auth.ErrWeakPassword, http.StatusUnprocessableEntity, "password"},
}

// usecaseのエラーをJSONにする
type responder struct {
	log *zap.Logger
}

// ステータスとbody。500は原因をログに出す。
func (r responder) errorBody(c echo.Context, err error) (int, ErrorResponse) {
	if ve, ok := usecase.AsValidationError(err); ok {
		return http.StatusUnprocessableEntity, ErrorResponse{Error: "validation error", Fields: ve.Fields}
	}
	if he, ok := usecase.AsHTTPError(err); ok && he.Status < http.StatusInternalServerError {
		return he.Status, ErrorResponse{Error: he.Message}
	}
	for _, m := range authErrorStatus {
		if !errors.Is(err, m.err) {
			continue
		}
		if m.field != "" {
			return m.status, ErrorResponse{Error: "validation error", Fields: map[string][]string{m.field: {m.err.Error()}}}
		}
		return m.status, ErrorResponse{Error: m.err.Error()}
	}

	//500
	r.log.Error("internal error",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return http.StatusInternalServerError, ErrorResponse{Error: "internal error"}
}

func (r responder) writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	status, body := r.errorBody(c, err)
	return c.JSON(status, body)
}

// パスパラメータの正のID
func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, usecase.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// クエリの任意int64
func queryInt64(c echo.Context, name string) (*int64, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	x, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, usecase.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return &x, nil
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	x, err := strconv.Atoi(v)
	if err != nil {
		return 0, usecase.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return x, nil
}

// middleware.AuthJWT が c.Set("user_id", int64) した値を取り出す
func currentUserID(c echo.Context) (int64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, usecase.ErrUnauthorized
	}
	return id, nil
}

func bindJSON(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return usecase.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return nil
}
