package middleware

import (
	"net/http"
	"strings"

	"storefront/internal/domain/model"
	"storefront/internal/infra/token"

	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey       = "user_id"       // int64
	CtxUserRoleKey     = "user_role"     // model.Role
	CtxTokenVersionKey = "token_version" // int
)

// アクセストークンの検証（token.JWTManagerが満たす）
type TokenParser interface {
	Parse(raw string) (token.Claims, error)
}

// bearerAuth用のJWT検証ミドルウェア。トークンが無い・不正なら401。
func AuthJWT(parser TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			claims, err := parser.Parse(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			setClaims(c, claims)
			return next(c)
		}
	}
}

// トークンがあれば検証してユーザーをセット。無い・不正ならゲストとして通す。
func OptionalAuthJWT(parser TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c)
			if !ok {
				return next(c)
			}
			if claims, err := parser.Parse(raw); err == nil {
				setClaims(c, claims)
			}
			return next(c)
		}
	}
}

// AuthJWTがセットしたuser_id（無ければfalse）
func UserID(c echo.Context) (int64, bool) {
	id, ok := c.Get(CtxUserIDKey).(int64)
	return id, ok && id > 0
}

func UserRole(c echo.Context) model.Role {
	role, _ := c.Get(CtxUserRoleKey).(model.Role)
	return role
}

// Authorizationヘッダから Bearer トークンを抜く
func bearerToken(c echo.Context) (string, bool) {
	authz := c.Request().Header.Get("Authorization")
	if authz == "" {
		return "", false
	}

	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	raw := strings.TrimSpace(parts[1])
	return raw, raw != ""
}

func setClaims(c echo.Context, claims token.Claims) {
	c.Set(CtxUserIDKey, claims.UserID)
	c.Set(CtxUserRoleKey, claims.Role)
	c.Set(CtxTokenVersionKey, claims.TokenVersion)
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}
