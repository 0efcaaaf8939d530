package usecase

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

type HTTPError struct {
	Status  int
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// ドメインエラー（errors.Isで判定できる）
var (
	ErrQuantityExceedsMaximum = &HTTPError{Status: http.StatusUnprocessableEntity, Message: "quantity exceeds maximum allowed per item"}
	ErrCartItemLimitExceeded  = &HTTPError{Status: http.StatusUnprocessableEntity, Message: "cart item limit exceeded"}
	ErrCartItemNotFound       = &HTTPError{Status: http.StatusNotFound, Message: "cart item not found"}
	ErrCartNotFound           = &HTTPError{Status: http.StatusNotFound, Message: "cart not found"}
	ErrForbidden              = &HTTPError{Status: http.StatusForbidden, Message: "forbidden"}
	ErrInvalidQuantity        = &HTTPError{Status: http.StatusBadRequest, Message: "invalid quantity"}
	ErrProductNotFound        = &HTTPError{Status: http.StatusNotFound, Message: "product not found"}
	ErrProductUnavailable     = &HTTPError{Status: http.StatusUnprocessableEntity, Message: "product is not available"}
	ErrUnauthorized           = &HTTPError{Status: http.StatusUnauthorized, Message: "unauthorized"}
	ErrNotFound               = &HTTPError{Status: http.StatusNotFound, Message: "not found"}
	ErrConflict               = &HTTPError{Status: http.StatusConflict, Message: "conflict"}
)

// 500（原因はErrに残してログに出す）
func internalError(err error) error {
	return &HTTPError{Status: http.StatusInternalServerError, Message: "internal error", Err: err}
}

// フィールドごとの入力エラー（422）
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "validation error: " + strings.Join(keys, ", ")
}

func (e *ValidationError) Add(field string, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// エラーが無ければnil
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}
