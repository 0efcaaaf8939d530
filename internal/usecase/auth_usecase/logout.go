package auth

import (
	"context"
	"errors"

	"storefront/internal/repository"
)

type LogoutUsecase struct {
	rtRepo repository.RefreshTokenRepository
	clock  Clock
}

// DI
func NewLogoutUsecase(rtRepo repository.RefreshTokenRepository, clock Clock) *LogoutUsecase {
	return &LogoutUsecase{rtRepo: rtRepo, clock: clock}
}

// refresh tokenを失効させる。無い・失効済みでも成功扱い。
func (u *LogoutUsecase) Execute(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	rt, err := u.rtRepo.FindByTokenHash(ctx, HashRefreshToken(refreshToken))
	if errors.Is(err, repository.ErrRefreshTokenNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if rt.RevokedAt != nil {
		return nil
	}

	return u.rtRepo.Revoke(ctx, rt.ID, u.clock.Now())
}
