package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"

	"storefront/internal/domain/model"
	"storefront/internal/repository"

	"go.uber.org/zap"
)

// 会員登録の入力（SessionIDはゲストカートの移行用）
type RegisterUserInput struct {
	Name      string
	Email     string
	Password  string
	SessionID string
}

type RegisterUserOutput struct {
	User model.User `json:"user"`
}

var (
	// 入力が不正
	ErrNameRequired       = errors.New("name is required")
	ErrNameTooLong        = errors.New("name too long")
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrWeakPassword       = errors.New("weak password")

	// 競合
	ErrEmailAlreadyExists = errors.New("email already exists")
)

const minPasswordLength = 12

// RegisterUserUsecaseは会員登録の処理。
type RegisterUserUsecase struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	carts    GuestCartTransferer
	clock    Clock
	log      *zap.Logger
}

// DI
func NewRegisterUserUsecase(
	userRepo repository.UserRepository,
	hasher PasswordHasher,
	carts GuestCartTransferer,
	clock Clock,
	log *zap.Logger,
) *RegisterUserUsecase {
	return &RegisterUserUsecase{
		userRepo: userRepo,
		hasher:   hasher,
		carts:    carts,
		clock:    clock,
		log:      log,
	}
}

// 会員登録実行
func (u *RegisterUserUsecase) Execute(ctx context.Context, in RegisterUserInput) (RegisterUserOutput, error) {
	var out RegisterUserOutput

	name := strings.TrimSpace(in.Name)
	email := NormalizeEmail(in.Email)

	if err := ValidateName(name); err != nil {
		return out, err
	}
	if !isValidEmailFormat(email) {
		return out, ErrInvalidEmailFormat
	}
	if err := ValidatePassword(in.Password); err != nil {
		return out, err
	}

	// email重複チェック
	existing, err := u.userRepo.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return out, ErrEmailAlreadyExists
	}
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return out, err
	}

	hashed, err := u.hasher.Hash(in.Password)
	if err != nil {
		return out, err
	}

	now := u.clock.Now()
	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hashed,
		Role:         model.RoleUser,
		TokenVersion: 0,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := u.userRepo.Create(ctx, user); err != nil {
		//同時登録はunique制約で弾かれる
		if errors.Is(err, repository.ErrConflict) {
			return out, ErrEmailAlreadyExists
		}
		return out, err
	}

	transferGuestCart(ctx, u.carts, u.log, in.SessionID, user.ID)

	out.User = *user
	return out, nil
}

// カート移行の失敗で登録/ログインは失敗させない
func transferGuestCart(ctx context.Context, carts GuestCartTransferer, log *zap.Logger, sessionID string, userID int64) {
	if carts == nil || sessionID == "" {
		return
	}
	if _, _, err := carts.TransferGuestCart(ctx, sessionID, userID); err != nil {
		log.Warn("guest cart transfer failed",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateName(name string) error {
	if name == "" {
		return ErrNameRequired
	}
	if utf8.RuneCountInString(name) > 255 {
		return ErrNameTooLong
	}
	return nil
}

// 12文字以上、よくある弱いパスワードは拒否
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	if isWeakPassword(password) {
		return ErrWeakPassword
	}
	return nil
}

func isValidEmailFormat(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	// "Name <a@b>" 形式は受けない
	return err == nil && addr.Address == email
}

func IsValidEmail(email string) bool {
	return isValidEmailFormat(NormalizeEmail(email))
}

var weakPasswords = map[string]struct{}{
	"password":         {},
	"password123":      {},
	"password1234":     {},
	"123456789012":     {},
	"1234567890":       {},
	"12345678":         {},
	"qwerty":           {},
	"qwertyuiop":       {},
	"qwertyuiop12":     {},
	"letmein":          {},
	"letmeinplease":    {},
	"admin":            {},
	"admin123":         {},
	"administrator":    {},
	"iloveyou1234":     {},
	"welcome12345":     {},
	"passwordpassword": {},
}

func isWeakPassword(password string) bool {
	_, ok := weakPasswords[strings.ToLower(strings.TrimSpace(password))]
	return ok
}
