package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var loginNow = time.Unix(1700000000, 0)

func newLoginUC(users *MockUserRepository, rts *MockRefreshTokenRepository, issuer *MockIssuer, carts *MockGuestCartTransferer) *LoginUsecase {
	return NewLoginUsecase(users, rts, plainVerifier{}, issuer, fixedID("rt-1"), fixedClock{now: loginNow}, carts, 14*24*time.Hour, zap.NewNop())
}

func activeUser() *model.User {
	return &model.User{ID: 5, Email: "u@example.com", PasswordHash: "hashed:secret-password", Role: model.RoleUser, TokenVersion: 2, IsActive: true}
}

func TestLogin_Success(t *testing.T) {
	ctx := context.Background()
	users := new(MockUserRepository)
	rts := new(MockRefreshTokenRepository)
	issuer := new(MockIssuer)
	carts := new(MockGuestCartTransferer)

	users.On("FindByEmail", ctx, "u@example.com").Return(activeUser(), nil)
	issuer.On("Issue", int64(5), model.RoleUser, 2, loginNow).Return("access-token", loginNow.Add(15*time.Minute), nil)
	rts.On("Create", ctx, mock.MatchedBy(func(rt *model.RefreshToken) bool {
		return rt.ID == "rt-1" && rt.UserID == 5 && len(rt.TokenHash) == 64 && rt.UserAgent == "ua" && rt.ExpiresAt.Equal(loginNow.Add(14*24*time.Hour))
	})).Return(nil)
	users.On("Update", ctx, mock.MatchedBy(func(u *model.User) bool {
		return u.LastLoginAt != nil && u.LastLoginAt.Equal(loginNow)
	})).Return(nil)
	carts.On("TransferGuestCart", ctx, "sess", int64(5)).Return(model.Cart{ID: 1}, true, nil)

	out, side, err := newLoginUC(users, rts, issuer, carts).Execute(ctx, LoginInput{
		Email: "U@example.com", Password: "secret-password", UserAgent: "ua", SessionID: "sess",
	})

	require.NoError(t, err)
	assert.Equal(t, "access-token", out.Token.AccessToken)
	assert.Equal(t, 900, out.Token.ExpiresIn)
	assert.Equal(t, 2, out.Token.TokenVersion)
	assert.NotEmpty(t, side.PlainRefreshToken)

	stored := rts.Calls[0].Arguments.Get(1).(*model.RefreshToken)
	assert.Equal(t, HashRefreshToken(side.PlainRefreshToken), stored.TokenHash)

	users.AssertExpectations(t)
	rts.AssertExpectations(t)
	carts.AssertExpectations(t)
}

func TestLogin_TransferFailureStillLogsIn(t *testing.T) {
	ctx := context.Background()
	users := new(MockUserRepository)
	rts := new(MockRefreshTokenRepository)
	issuer := new(MockIssuer)
	carts := new(MockGuestCartTransferer)

	users.On("FindByEmail", ctx, "u@example.com").Return(activeUser(), nil)
	issuer.On("Issue", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("tok", loginNow.Add(time.Minute), nil)
	rts.On("Create", ctx, mock.Anything).Return(nil)
	users.On("Update", ctx, mock.Anything).Return(nil)
	carts.On("TransferGuestCart", ctx, "sess", int64(5)).Return(model.Cart{}, false, errors.New("boom"))

	out, _, err := newLoginUC(users, rts, issuer, carts).Execute(ctx, LoginInput{
		Email: "u@example.com", Password: "secret-password", SessionID: "sess",
	})
	require.NoError(t, err)
	assert.Equal(t, "tok", out.Token.AccessToken)
}

func TestLogin_UnknownEmail(t *testing.T) {
	ctx := context.Background()
	users := new(MockUserRepository)
	users.On("FindByEmail", ctx, "x@example.com").Return(nil, repository.ErrUserNotFound)

	_, _, err := newLoginUC(users, new(MockRefreshTokenRepository), new(MockIssuer), nil).Execute(ctx, LoginInput{Email: "x@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_WrongPassword(t *testing.T) {
	ctx := context.Background()
	users := new(MockUserRepository)
	rts := new(MockRefreshTokenRepository)
	users.On("FindByEmail", ctx, "u@example.com").Return(activeUser(), nil)

	_, _, err := newLoginUC(users, rts, new(MockIssuer), nil).Execute(ctx, LoginInput{Email: "u@example.com", Password: "nope"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	rts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLogin_InactiveUser(t *testing.T) {
	ctx := context.Background()
	users := new(MockUserRepository)
	u := activeUser()
	u.IsActive = false
	users.On("FindByEmail", ctx, "u@example.com").Return(u, nil)

	_, _, err := newLoginUC(users, new(MockRefreshTokenRepository), new(MockIssuer), nil).Execute(ctx, LoginInput{Email: "u@example.com", Password: "secret-password"})
	assert.ErrorIs(t, err, ErrUserInactive)
}
