package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"storefront/internal/domain/model"
	"storefront/internal/repository"
	auth "storefront/internal/usecase/auth_usecase"

	"go.uber.org/zap"
)

// 現在のパスワードが違う
var ErrCurrentPasswordMismatch = &HTTPError{Status: http.StatusUnprocessableEntity, Message: "current password is incorrect"}

// プロフィール更新の入力（nilは変更しない）
type ProfileInput struct {
	Name  *string
	Email *string
}

type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
}

type ForceLogoutResult struct {
	UserID          int64 `json:"user_id"`
	NewTokenVersion int   `json:"new_token_version"`
}

type ProfileUsecase struct {
	users    repository.UserRepository
	rtRepo   repository.RefreshTokenRepository
	hasher   auth.PasswordHasher
	verifier auth.PasswordVerifier
	clock    auth.Clock
	log      *zap.Logger
}

func NewProfileUsecase(
	users repository.UserRepository,
	rtRepo repository.RefreshTokenRepository,
	hasher auth.PasswordHasher,
	verifier auth.PasswordVerifier,
	clock auth.Clock,
	log *zap.Logger,
) *ProfileUsecase {
	return &ProfileUsecase{
		users:    users,
		rtRepo:   rtRepo,
		hasher:   hasher,
		verifier: verifier,
		clock:    clock,
		log:      log,
	}
}

// 自分のユーザー情報
func (u *ProfileUsecase) GetProfile(ctx context.Context, userID int64) (model.User, error) {
	user, err := u.activeUser(ctx, userID)
	if err != nil {
		return model.User{}, err
	}
	return *user, nil
}

func (u *ProfileUsecase) UpdateProfile(ctx context.Context, userID int64, in ProfileInput) (model.User, error) {
	user, err := u.activeUser(ctx, userID)
	if err != nil {
		return model.User{}, err
	}

	ve := &ValidationError{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := auth.ValidateName(name); err != nil {
			ve.Add("name", err.Error())
		}
		user.Name = name
	}
	if in.Email != nil {
		email := auth.NormalizeEmail(*in.Email)
		if !auth.IsValidEmail(email) {
			ve.Add("email", "invalid email format")
		}
		user.Email = email
	}
	if err := ve.OrNil(); err != nil {
		return model.User{}, err
	}

	user.UpdatedAt = u.clock.Now()
	if err := u.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.User{}, &HTTPError{Status: http.StatusConflict, Message: "email already exists", Err: err}
		}
		return model.User{}, internalError(err)
	}
	return *user, nil
}

// パスワード変更。token_versionを上げて他の端末のaccess tokenを無効にする。
func (u *ProfileUsecase) ChangePassword(ctx context.Context, userID int64, in ChangePasswordInput) error {
	user, err := u.activeUser(ctx, userID)
	if err != nil {
		return err
	}

	if !u.verifier.Verify(in.CurrentPassword, user.PasswordHash) {
		return ErrCurrentPasswordMismatch
	}
	if err := auth.ValidatePassword(in.NewPassword); err != nil {
		ve := &ValidationError{}
		ve.Add("new_password", err.Error())
		return ve
	}

	hashed, err := u.hasher.Hash(in.NewPassword)
	if err != nil {
		return internalError(err)
	}
	user.PasswordHash = hashed
	user.UpdatedAt = u.clock.Now()
	if err := u.users.Update(ctx, user); err != nil {
		return internalError(err)
	}
	if err := u.users.IncrementTokenVersion(ctx, userID); err != nil {
		return internalError(err)
	}
	if err := u.rtRepo.RevokeAllByUserID(ctx, userID, u.clock.Now()); err != nil {
		return internalError(err)
	}

	u.log.Info("password changed", zap.Int64("user_id", userID))
	return nil
}

// 管理者による強制ログアウト
func (u *ProfileUsecase) ForceLogout(ctx context.Context, targetUserID int64) (ForceLogoutResult, error) {
	if targetUserID <= 0 {
		return ForceLogoutResult{}, NewHTTPError(http.StatusBadRequest, "invalid user_id")
	}

	if _, err := u.findUser(ctx, targetUserID, ErrNotFound); err != nil {
		return ForceLogoutResult{}, err
	}

	now := u.clock.Now()
	if err := u.rtRepo.RevokeAllByUserID(ctx, targetUserID, now); err != nil {
		return ForceLogoutResult{}, internalError(err)
	}
	if err := u.users.IncrementTokenVersion(ctx, targetUserID); err != nil {
		return ForceLogoutResult{}, internalError(err)
	}

	//更新後を取得してnew_token_versionを返す
	user, err := u.findUser(ctx, targetUserID, ErrNotFound)
	if err != nil {
		return ForceLogoutResult{}, err
	}

	u.log.Info("force logout", zap.Int64("user_id", targetUserID), zap.Int("token_version", user.TokenVersion))
	return ForceLogoutResult{UserID: user.ID, NewTokenVersion: user.TokenVersion}, nil
}

func (u *ProfileUsecase) activeUser(ctx context.Context, userID int64) (*model.User, error) {
	if userID <= 0 {
		return nil, ErrUnauthorized
	}
	user, err := u.findUser(ctx, userID, ErrUnauthorized)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrForbidden
	}
	return user, nil
}

func (u *ProfileUsecase) findUser(ctx context.Context, userID int64, notFound error) (*model.User, error) {
	user, err := u.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) || (err == nil && user == nil) {
		return nil, notFound
	}
	if err != nil {
		return nil, internalError(err)
	}
	return user, nil
}

