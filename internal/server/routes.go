package server

import (
	"net/http"

	"storefront/internal/handler"
	"storefront/internal/middleware"
	"storefront/internal/repository"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Auth         *handler.AuthHandler
	Profile      *handler.ProfileHandler
	Product      *handler.ProductHandler
	Cart         *handler.CartHandler
	AdminCatalog *handler.AdminCatalogHandler
	AdminProduct *handler.AdminProductHandler
	AdminUser    *handler.AdminUserHandler
}

type RouteConfig struct {
	Tokens            middleware.TokenParser
	Users             repository.UserRepository
	SessionCookieName string
	CookieSecure      bool
	GuestCartEnabled  bool
}

func RegisterRoutes(e *echo.Echo, cfg RouteConfig, h Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	guest := middleware.GuestSession(cfg.SessionCookieName, cfg.CookieSecure)

	// ログイン・登録でゲストカートを移すのでセッションcookieを読む
	h.Auth.RegisterRoutes(e.Group("/auth", guest, middleware.CartMemo()))

	h.Profile.RegisterRoutes(e.Group("/me",
		middleware.AuthJWT(cfg.Tokens),
		middleware.TokenVersionGuard(cfg.Users),
	))

	h.Product.RegisterRoutes(e.Group("/products"))

	h.Cart.RegisterRoutes(e.Group("/cart",
		middleware.OptionalAuthJWT(cfg.Tokens),
		middleware.OptionalTokenVersionGuard(cfg.Users),
		middleware.RequireCartAuth(cfg.GuestCartEnabled),
		guest,
		middleware.CartMemo(),
	))

	// /admin 配下は全部「JWT必須 + token_version一致 + ADMIN限定」
	admin := e.Group("/admin",
		middleware.AuthJWT(cfg.Tokens),
		middleware.TokenVersionGuard(cfg.Users),
		middleware.AdminRoleGuard(),
	)
	h.AdminCatalog.RegisterRoutes(admin)
	h.AdminProduct.RegisterRoutes(admin)
	h.AdminUser.RegisterRoutes(admin)
}
