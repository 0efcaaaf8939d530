package auth

import (
	"context"
	"time"

	"storefront/internal/domain/model"

	"github.com/google/uuid"
)

// 平文パスワードからハッシュへ
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// 入力パスワードと保存したハッシュを比べる
type PasswordVerifier interface {
	Verify(plain string, hashed string) bool
}

// JWTを発行する
type AccessTokenIssuer interface {
	Issue(userID int64, role model.Role, tokenVersion int, now time.Time) (token string, expiresAt time.Time, err error)
}

// refresh tokenのID
type IDGenerator interface {
	NewID() string
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

// ログイン・登録時にゲストカートを移す（CartUsecaseが満たす）
type GuestCartTransferer interface {
	TransferGuestCart(ctx context.Context, sessionID string, userID int64) (model.Cart, bool, error)
}

type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// token 形（JwtAccessToken相当）
type JwtAccessToken struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenVersion int    `json:"token_version"`
}
