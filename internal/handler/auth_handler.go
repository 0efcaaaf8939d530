package handler

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"time"

	"storefront/internal/middleware"
	"storefront/internal/usecase"
	auth "storefront/internal/usecase/auth_usecase"
	"storefront/internal/validator"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	refreshCookieName = "refresh"
	csrfCookieName    = "csrf_token"
	csrfHeaderName    = "X-CSRF-Token"
)

type AuthHandler struct {
	responder
	registerUC   *auth.RegisterUserUsecase // 会員登録usecase
	loginUC      *auth.LoginUsecase        // ログインusecase
	refreshUC    *auth.RefreshUsecase
	logoutUC     *auth.LogoutUsecase
	refreshTTL   time.Duration // refresh/csrf cookie の有効期限
	cookieSecure bool
}

// DIコンストラクタ
func NewAuthHandler(
	registerUC *auth.RegisterUserUsecase,
	loginUC *auth.LoginUsecase,
	refreshUC *auth.RefreshUsecase,
	logoutUC *auth.LogoutUsecase,
	refreshTTL time.Duration,
	cookieSecure bool,
	log *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		responder:    responder{log: log},
		registerUC:   registerUC,
		loginUC:      loginUC,
		refreshUC:    refreshUC,
		logoutUC:     logoutUC,
		refreshTTL:   refreshTTL,
		cookieSecure: cookieSecure,
	}
}

// /auth/register のリクエストボディ。
type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// /auth/login のリクエストボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// /auth配下。GuestSessionの後ろに置く（ゲストカート移行のため）。
func (h *AuthHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/refresh", h.Refresh)
	g.POST("/logout", h.Logout)
}

// RegisterはPOST /auth/registerのハンドラ
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindJSON(c, &req); err != nil {
		return h.writeError(c, err)
	}
	if err := validator.ValidateRegister(req.Name, req.Email, req.Password); err != nil {
		return h.writeError(c, err)
	}

	out, err := h.registerUC.Execute(c.Request().Context(), auth.RegisterUserInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		SessionID: middleware.SessionID(c),
	})
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}

// LoginはPOST /auth/login のハンドラ。
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		return h.writeError(c, err)
	}
	if err := validator.ValidateLogin(req.Email, req.Password); err != nil {
		return h.writeError(c, err)
	}

	out, side, err := h.loginUC.Execute(c.Request().Context(), auth.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: c.Request().UserAgent(),
		SessionID: middleware.SessionID(c),
	})
	if err != nil {
		return h.writeError(c, err)
	}

	if err := h.setSessionCookies(c, side.PlainRefreshToken); err != nil {
		return h.writeError(c, err)
	}

	//JSONレスポンス（user + token）
	return c.JSON(http.StatusOK, out)
}

// POST /auth/refresh。refresh cookieとCSRF(double submit)が必要。
func (h *AuthHandler) Refresh(c echo.Context) error {
	if !h.csrfOK(c) {
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: "csrf token mismatch"})
	}

	plain := ""
	if ck, err := c.Cookie(refreshCookieName); err == nil {
		plain = ck.Value
	}

	out, side, err := h.refreshUC.Execute(c.Request().Context(), auth.RefreshInput{
		RefreshToken: plain,
		UserAgent:    c.Request().UserAgent(),
	})
	if err != nil {
		h.clearSessionCookies(c)
		return h.writeError(c, err)
	}

	if err := h.setSessionCookies(c, side.PlainRefreshToken); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, out.Token)
}

// POST /auth/logout。cookieが無くても成功。
func (h *AuthHandler) Logout(c echo.Context) error {
	if !h.csrfOK(c) {
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: "csrf token mismatch"})
	}

	plain := ""
	if ck, err := c.Cookie(refreshCookieName); err == nil {
		plain = ck.Value
	}
	if err := h.logoutUC.Execute(c.Request().Context(), plain); err != nil {
		return h.writeError(c, err)
	}

	h.clearSessionCookies(c)
	return c.JSON(http.StatusOK, SuccessResponse{Message: "logout success"})
}

func (h *AuthHandler) setSessionCookies(c echo.Context, plainRefresh string) error {
	csrfToken, err := generateSecureToken(32)
	if err != nil {
		return err
	}
	exp := time.Now().Add(h.refreshTTL)
	h.setRefreshCookie(c, plainRefresh, exp)
	h.setCsrfCookie(c, csrfToken, exp)
	return nil
}

func (h *AuthHandler) clearSessionCookies(c echo.Context) {
	h.setRefreshCookie(c, "", time.Time{})
	h.setCsrfCookie(c, "", time.Time{})
}

// refreshtoken をCookieにセット。
func (h *AuthHandler) setRefreshCookie(c echo.Context, plainRefresh string, exp time.Time) {
	c.SetCookie(withExpiry(&http.Cookie{
		Name:     refreshCookieName,
		Value:    plainRefresh,
		Path:     "/auth",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}, exp))
}

// csrftokenをCookieにセット（JSから読めるようにHttpOnlyにしない）
func (h *AuthHandler) setCsrfCookie(c echo.Context, csrfToken string, exp time.Time) {
	c.SetCookie(withExpiry(&http.Cookie{
		Name:     csrfCookieName,
		Value:    csrfToken,
		Path:     "/",
		HttpOnly: false,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}, exp))
}

// expがゼロなら削除（Max-Age=0）
func withExpiry(ck *http.Cookie, exp time.Time) *http.Cookie {
	if exp.IsZero() {
		ck.MaxAge = -1
		return ck
	}
	ck.Expires = exp
	return ck
}

// cookieとヘッダのcsrf_tokenが一致するか
func (h *AuthHandler) csrfOK(c echo.Context) bool {
	ck, err := c.Cookie(csrfCookieName)
	if err != nil || ck.Value == "" {
		return false
	}
	header := c.Request().Header.Get(csrfHeaderName)
	return subtle.ConstantTimeCompare([]byte(ck.Value), []byte(header)) == 1
}

// ランダム文字列を作る。
func generateSecureToken(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		bytesLen = 32
	}

	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		return "", usecase.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}
