package validator

import (
	"strings"

	"storefront/internal/usecase"
	auth "storefront/internal/usecase/auth_usecase"
)

// handlerで受けたリクエストを、usecaseに渡す前に形だけ検証する。
// DBが必要なチェック（email重複など）はusecase側。

// サインアップの入力を検証
func ValidateRegister(name string, email string, password string) error {
	ve := &usecase.ValidationError{}

	if strings.TrimSpace(name) == "" {
		ve.Add("name", "name is required")
	}
	// 必須チェック
	if strings.TrimSpace(email) == "" {
		ve.Add("email", "email is required")
	} else if !auth.IsValidEmail(email) {
		ve.Add("email", "invalid email format")
	}
	if password == "" {
		ve.Add("password", "password is required")
	}

	return ve.OrNil()
}

// ログインの入力を検証
func ValidateLogin(email string, password string) error {
	ve := &usecase.ValidationError{}

	if strings.TrimSpace(email) == "" {
		ve.Add("email", "email is required")
	}
	if password == "" {
		ve.Add("password", "password is required")
	}

	return ve.OrNil()
}

// パスワード変更の入力を検証
func ValidateChangePassword(current string, next string) error {
	ve := &usecase.ValidationError{}

	if current == "" {
		ve.Add("current_password", "current_password is required")
	}
	if next == "" {
		ve.Add("new_password", "new_password is required")
	} else if next == current {
		ve.Add("new_password", "new_password must differ from current_password")
	}

	return ve.OrNil()
}

// カート追加の入力を検証（数量の上限はusecase側）
func ValidateAddCartItem(productID int64, variantID *int64, quantity *int64) error {
	ve := &usecase.ValidationError{}

	if productID <= 0 {
		ve.Add("product_id", "product_id is required")
	}
	if variantID != nil && *variantID <= 0 {
		ve.Add("variant_id", "variant_id must be positive")
	}
	if quantity == nil {
		ve.Add("quantity", "quantity is required")
	}

	return ve.OrNil()
}

// 数量変更の入力を検証
func ValidateUpdateCartItem(quantity *int64) error {
	if quantity == nil {
		ve := &usecase.ValidationError{}
		ve.Add("quantity", "quantity is required")
		return ve
	}
	return nil
}
