package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/repository"
)

// ランダムな平文トークン（cookie用）
func generateSecureToken(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		return "", fmt.Errorf("bytesLen must be positive")
	}

	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DBにはsha256(hex)だけ保存
func HashRefreshToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// 新しいrefresh tokenを作って保存し、平文を返す
func issueRefreshToken(ctx context.Context, rtRepo repository.RefreshTokenRepository, idGen IDGenerator, userID int64, userAgent string, now time.Time, ttl time.Duration) (string, error) {
	rt, plain, err := newRefreshToken(idGen, userID, userAgent, now, ttl)
	if err != nil {
		return "", err
	}
	if err := rtRepo.Create(ctx, rt); err != nil {
		return "", err
	}
	return plain, nil
}

// 保存前のrefresh tokenと平文
func newRefreshToken(idGen IDGenerator, userID int64, userAgent string, now time.Time, ttl time.Duration) (*model.RefreshToken, string, error) {
	plain, err := generateSecureToken(32)
	if err != nil {
		return nil, "", err
	}

	return &model.RefreshToken{
		ID:        idGen.NewID(),
		UserID:    userID,
		TokenHash: HashRefreshToken(plain),
		UserAgent: userAgent,
		ExpiresAt: now.Add(ttl),
	}, plain, nil
}
