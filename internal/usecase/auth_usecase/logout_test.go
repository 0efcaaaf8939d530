package auth

import (
	"context"
	"testing"

	"storefront/internal/domain/model"
	"storefront/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestLogout_RevokesToken(t *testing.T) {
	ctx := context.Background()
	rts := new(MockRefreshTokenRepository)
	rts.On("FindByTokenHash", ctx, HashRefreshToken("plain")).Return(&model.RefreshToken{ID: "rt-1"}, nil)
	rts.On("Revoke", ctx, "rt-1", loginNow).Return(nil)

	err := NewLogoutUsecase(rts, fixedClock{now: loginNow}).Execute(ctx, "plain")
	assert.NoError(t, err)
	rts.AssertExpectations(t)
}

func TestLogout_Idempotent(t *testing.T) {
	ctx := context.Background()
	rts := new(MockRefreshTokenRepository)
	revoked := loginNow
	rts.On("FindByTokenHash", ctx, HashRefreshToken("gone")).Return(nil, repository.ErrRefreshTokenNotFound)
	rts.On("FindByTokenHash", ctx, HashRefreshToken("revoked")).Return(&model.RefreshToken{ID: "rt-2", RevokedAt: &revoked}, nil)

	uc := NewLogoutUsecase(rts, fixedClock{now: loginNow})
	assert.NoError(t, uc.Execute(ctx, ""))
	assert.NoError(t, uc.Execute(ctx, "gone"))
	assert.NoError(t, uc.Execute(ctx, "revoked"))
	rts.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything, mock.Anything)
}
