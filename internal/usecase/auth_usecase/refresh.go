package auth

import (
	"context"
	"errors"
	"time"

	"storefront/internal/repository"

	"go.uber.org/zap"
)

type RefreshInput struct {
	RefreshToken string
	UserAgent    string
}

type RefreshOutput struct {
	Token JwtAccessToken `json:"token"`
}

var (
	// 期限切れ・不明なトークン
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// 使用済み/失効済みが再提示された（全トークン失効）
	ErrTokenReused = errors.New("refresh token reused")
)

type RefreshUsecase struct {
	userRepo   repository.UserRepository
	rtRepo     repository.RefreshTokenRepository
	issuer     AccessTokenIssuer
	idGen      IDGenerator
	clock      Clock
	refreshTTL time.Duration
	log        *zap.Logger
}

// DI
func NewRefreshUsecase(
	userRepo repository.UserRepository,
	rtRepo repository.RefreshTokenRepository,
	issuer AccessTokenIssuer,
	idGen IDGenerator,
	clock Clock,
	refreshTTL time.Duration,
	log *zap.Logger,
) *RefreshUsecase {
	return &RefreshUsecase{
		userRepo:   userRepo,
		rtRepo:     rtRepo,
		issuer:     issuer,
		idGen:      idGen,
		clock:      clock,
		refreshTTL: refreshTTL,
		log:        log,
	}
}

// refresh tokenをローテーションしてaccess tokenを再発行
func (u *RefreshUsecase) Execute(ctx context.Context, in RefreshInput) (RefreshOutput, LoginSideEffect, error) {
	var out RefreshOutput
	var side LoginSideEffect

	if in.RefreshToken == "" {
		return out, side, ErrInvalidRefreshToken
	}

	rt, err := u.rtRepo.FindByTokenHash(ctx, HashRefreshToken(in.RefreshToken))
	if errors.Is(err, repository.ErrRefreshTokenNotFound) {
		return out, side, ErrInvalidRefreshToken
	}
	if err != nil {
		return out, side, err
	}

	now := u.clock.Now()

	//used/revoked済みが来たら再利用 → 全失効＋token_versionを上げる
	if rt.UsedAt != nil || rt.RevokedAt != nil {
		if err := u.rtRepo.RevokeAllByUserID(ctx, rt.UserID, now); err != nil {
			return out, side, err
		}
		if err := u.userRepo.IncrementTokenVersion(ctx, rt.UserID); err != nil {
			return out, side, err
		}
		u.log.Warn("refresh token reuse detected", zap.Int64("user_id", rt.UserID), zap.String("token_id", rt.ID))
		return out, side, ErrTokenReused
	}

	if !rt.ExpiresAt.After(now) {
		return out, side, ErrInvalidRefreshToken
	}

	user, err := u.userRepo.FindByID(ctx, rt.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return out, side, ErrInvalidRefreshToken
	}
	if err != nil {
		return out, side, err
	}
	if !user.IsActive {
		return out, side, ErrUserInactive
	}

	next, plain, err := newRefreshToken(u.idGen, user.ID, in.UserAgent, now, u.refreshTTL)
	if err != nil {
		return out, side, err
	}
	//旧tokenのused化と新tokenの保存は同じtx。同時に来た2本目はここで負ける
	err = u.rtRepo.Rotate(ctx, rt.ID, now, next)
	if errors.Is(err, repository.ErrRefreshTokenNotFound) {
		return out, side, ErrInvalidRefreshToken
	}
	if err != nil {
		return out, side, err
	}

	accessToken, accessExp, err := u.issuer.Issue(user.ID, user.Role, user.TokenVersion, now)
	if err != nil {
		return out, side, err
	}

	out.Token = JwtAccessToken{
		AccessToken:  accessToken,
		ExpiresIn:    int(accessExp.Sub(now).Seconds()),
		TokenVersion: user.TokenVersion,
	}
	side.PlainRefreshToken = plain
	return out, side, nil
}
