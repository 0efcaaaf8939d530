package usecase

import (
	"context"
	"net/http"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/infra/db/dbtest"
	infrarepo "storefront/internal/infra/repository"
	auth "storefront/internal/usecase/auth_usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubClock struct{ now time.Time }

func (c stubClock) Now() time.Time { return c.now }

func newProfileFixture(t *testing.T) (*ProfileUsecase, *gorm.DB) {
	t.Helper()
	gdb := dbtest.New(t)
	uc := NewProfileUsecase(
		infrarepo.NewUserGormRepository(gdb),
		infrarepo.NewRefreshTokenGormRepository(gdb),
		auth.NewBcryptPasswordHasher(4),
		auth.NewBcryptPasswordVerifier(),
		stubClock{now: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)},
		zap.NewNop(),
	)
	return uc, gdb
}

func seedUser(t *testing.T, gdb *gorm.DB, email string, password string) model.User {
	t.Helper()
	hashed, err := auth.NewBcryptPasswordHasher(4).Hash(password)
	require.NoError(t, err)
	u := model.User{Name: "User", Email: email, PasswordHash: hashed, Role: model.RoleUser, IsActive: true}
	require.NoError(t, gdb.Create(&u).Error)
	return u
}

func TestProfile_GetProfile(t *testing.T) {
	uc, gdb := newProfileFixture(t)
	u := seedUser(t, gdb, "me@example.com", "first-password-123")

	got, err := uc.GetProfile(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", got.Email)

	_, err = uc.GetProfile(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestProfile_GetProfile_Inactive(t *testing.T) {
	uc, gdb := newProfileFixture(t)
	u := seedUser(t, gdb, "me@example.com", "first-password-123")
	require.NoError(t, gdb.Model(&model.User{}).Where("id = ?", u.ID).Update("is_active", false).Error)

	_, err := uc.GetProfile(context.Background(), u.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestProfile_UpdateProfile(t *testing.T) {
	uc, gdb := newProfileFixture(t)
	u := seedUser(t, gdb, "me@example.com", "first-password-123")

	name := "  New Name "
	email := "New@Example.com"
	got, err := uc.UpdateProfile(context.Background(), u.ID, ProfileInput{Name: &name, Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "New Name", got.Name)
	assert.Equal(t, "new@example.com", got.Email)
}

func TestProfile_UpdateProfile_DuplicateEmail(t *testing.T) {
	uc, gdb := newProfileFixture(t)
	u := seedUser(t, gdb, "me@example.com", "first-password-123")
	seedUser(t, gdb, "taken@example.com", "first-password-123")

	email := "taken@example.com"
	_, err := uc.UpdateProfile(context.Background(), u.ID, ProfileInput{Email: &email})
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, he.Status)
}

func TestProfile_UpdateProfile_Validation(t *testing.T) {
	uc, gdb := newProfileFixture(t)
	u := seedUser(t, gdb, "me@example.com", "first-password-123")

	empty := " "
	bad := "nope"
	_, err := uc.UpdateProfile(context.Background(), u.ID, ProfileInput{Name: &empty, Email: &bad})
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "name")
	assert.Contains(t, ve.Fields, "email")
}

func TestProfile_ChangePassword(t *testing.T) {
	uc, gdb := newProfileFixture(t)
	u := seedUser(t, gdb, "me@example.com", "first-password-123")
	require.NoError(t, gdb.Create(&model.RefreshToken{ID: "rt-1", UserID: u.ID, TokenHash: "h1", ExpiresAt: time.Now().Add(time.Hour)}).Error)

	err := uc.ChangePassword(context.Background(), u.ID, ChangePasswordInput{
		CurrentPassword: "first-password-123",
		NewPassword:     "second-password-456",
	})
	require.NoError(t, err)

	var after model.User
	require.NoError(t, gdb.First(&after, u.ID).Error)
	assert.Equal(t, 1, after.TokenVersion)
	assert.True(t, auth.NewBcryptPasswordVerifier().Verify("second-password-456", after.PasswordHash))

	var rt model.RefreshToken
	require.NoError(t, gdb.First(&rt, "id = ?", "rt-1").Error)
	assert.NotNil(t, rt.RevokedAt)
}

func TestProfile_ChangePassword_WrongCurrent(t *testing.T) {
	uc, gdb := newProfileFixture(t)
	u := seedUser(t, gdb, "me@example.com", "first-password-123")

	err := uc.ChangePassword(context.Background(), u.ID, ChangePasswordInput{
		CurrentPassword: "not-the-password",
		NewPassword:     "second-password-456",
	})
	assert.ErrorIs(t, err, ErrCurrentPasswordMismatch)

	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, he.Status)
}

func TestProfile_ChangePassword_WeakNew(t *testing.T) {
	uc, gdb := newProfileFixture(t)
	u := seedUser(t, gdb, "me@example.com", "first-password-123")

	err := uc.ChangePassword(context.Background(), u.ID, ChangePasswordInput{
		CurrentPassword: "first-password-123",
		NewPassword:     "short",
	})
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "new_password")
}

func TestProfile_ForceLogout(t *testing.T) {
	uc, gdb := newProfileFixture(t)
	u := seedUser(t, gdb, "me@example.com", "first-password-123")

	res, err := uc.ForceLogout(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.UserID)
	assert.Equal(t, 1, res.NewTokenVersion)

	_, err = uc.ForceLogout(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = uc.ForceLogout(context.Background(), 0)
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
}
