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

func newRegisterUC(users *MockUserRepository, carts *MockGuestCartTransferer) *RegisterUserUsecase {
	return NewRegisterUserUsecase(users, plainHasher{}, carts, fixedClock{now: time.Unix(1700000000, 0)}, zap.NewNop())
}

func TestRegister_Success_TransfersGuestCart(t *testing.T) {
	ctx := context.Background()
	users := new(MockUserRepository)
	carts := new(MockGuestCartTransferer)

	users.On("FindByEmail", ctx, "taro@example.com").Return(nil, repository.ErrUserNotFound)
	users.On("Create", ctx, mock.MatchedBy(func(u *model.User) bool {
		return u.Email == "taro@example.com" && u.PasswordHash == "hashed:correct-horse-battery" && u.Role == model.RoleUser && u.IsActive
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*model.User).ID = 10
	}).Return(nil)
	carts.On("TransferGuestCart", ctx, "sess-1", int64(10)).Return(model.Cart{ID: 3}, true, nil)

	out, err := newRegisterUC(users, carts).Execute(ctx, RegisterUserInput{
		Name:      " Taro ",
		Email:     " Taro@Example.com ",
		Password:  "correct-horse-battery",
		SessionID: "sess-1",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(10), out.User.ID)
	assert.Equal(t, "Taro", out.User.Name)
	users.AssertExpectations(t)
	carts.AssertExpectations(t)
}

func TestRegister_TransferFailureIsNotReturned(t *testing.T) {
	ctx := context.Background()
	users := new(MockUserRepository)
	carts := new(MockGuestCartTransferer)

	users.On("FindByEmail", ctx, "a@example.com").Return(nil, repository.ErrUserNotFound)
	users.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).(*model.User).ID = 11
	}).Return(nil)
	carts.On("TransferGuestCart", ctx, "sess", int64(11)).Return(model.Cart{}, false, errors.New("db down"))

	_, err := newRegisterUC(users, carts).Execute(ctx, RegisterUserInput{
		Name: "A", Email: "a@example.com", Password: "long-enough-pass", SessionID: "sess",
	})
	assert.NoError(t, err)
	carts.AssertExpectations(t)
}

func TestRegister_NoSessionSkipsTransfer(t *testing.T) {
	ctx := context.Background()
	users := new(MockUserRepository)
	carts := new(MockGuestCartTransferer)

	users.On("FindByEmail", ctx, "a@example.com").Return(nil, repository.ErrUserNotFound)
	users.On("Create", ctx, mock.Anything).Return(nil)

	_, err := newRegisterUC(users, carts).Execute(ctx, RegisterUserInput{
		Name: "A", Email: "a@example.com", Password: "long-enough-pass",
	})
	require.NoError(t, err)
	carts.AssertNotCalled(t, "TransferGuestCart", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		in   RegisterUserInput
		want error
	}{
		{"name required", RegisterUserInput{Email: "a@example.com", Password: "long-enough-pass"}, ErrNameRequired},
		{"bad email", RegisterUserInput{Name: "A", Email: "not-an-email", Password: "long-enough-pass"}, ErrInvalidEmailFormat},
		{"display name form", RegisterUserInput{Name: "A", Email: "A <a@example.com>", Password: "long-enough-pass"}, ErrInvalidEmailFormat},
		{"short password", RegisterUserInput{Name: "A", Email: "a@example.com", Password: "short"}, ErrPasswordTooShort},
		{"weak password", RegisterUserInput{Name: "A", Email: "a@example.com", Password: "Password1234"}, ErrWeakPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserRepository)
			_, err := newRegisterUC(users, nil).Execute(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.want)
			users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	users := new(MockUserRepository)
	users.On("FindByEmail", ctx, "dup@example.com").Return(&model.User{ID: 1}, nil)

	_, err := newRegisterUC(users, nil).Execute(ctx, RegisterUserInput{Name: "D", Email: "dup@example.com", Password: "long-enough-pass"})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestRegister_ConcurrentDuplicate(t *testing.T) {
	ctx := context.Background()
	users := new(MockUserRepository)
	users.On("FindByEmail", ctx, "dup@example.com").Return(nil, repository.ErrUserNotFound)
	users.On("Create", ctx, mock.Anything).Return(repository.ErrConflict)

	_, err := newRegisterUC(users, nil).Execute(ctx, RegisterUserInput{Name: "D", Email: "dup@example.com", Password: "long-enough-pass"})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestBcryptHasherAndVerifier(t *testing.T) {
	h := NewBcryptPasswordHasher(4)
	hashed, err := h.Hash("correct-horse-battery")
	require.NoError(t, err)

	v := NewBcryptPasswordVerifier()
	assert.True(t, v.Verify("correct-horse-battery", hashed))
	assert.False(t, v.Verify("wrong", hashed))
}
