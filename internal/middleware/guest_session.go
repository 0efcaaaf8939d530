package middleware

import (
	"net/http"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const CtxSessionIDKey = "session_id" // string

const sessionCookieMaxAge = 30 * 24 * time.Hour

// ゲストカート用のセッションcookieを保証する。無い・不正なら新しいuuidを発行。
func GuestSession(cookieName string, secure bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var sessionID string
			if ck, err := c.Cookie(cookieName); err == nil {
				if _, perr := uuid.Parse(ck.Value); perr == nil {
					sessionID = ck.Value
				}
			}

			if sessionID == "" {
				sessionID = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     cookieName,
					Value:    sessionID,
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
					MaxAge:   int(sessionCookieMaxAge.Seconds()),
				})
			}

			c.Set(CtxSessionIDKey, sessionID)
			return next(c)
		}
	}
}

func SessionID(c echo.Context) string {
	s, _ := c.Get(CtxSessionIDKey).(string)
	return s
}

// ログイン中ならユーザー、そうでなければゲストセッション
func CartScope(c echo.Context) model.CartScope {
	if userID, ok := UserID(c); ok {
		return model.UserScope(userID)
	}
	return model.GuestScope(SessionID(c))
}

// リクエスト単位のカートmemoをcontextに入れる
func CartMemo() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			c.SetRequest(req.WithContext(usecase.WithCartMemo(req.Context())))
			return next(c)
		}
	}
}

// ゲストカート無効時はログイン必須
func RequireCartAuth(guestCartEnabled bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if guestCartEnabled {
				return next(c)
			}
			if _, ok := UserID(c); !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			return next(c)
		}
	}
}
