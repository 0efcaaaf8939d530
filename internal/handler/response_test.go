package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/usecase"
	auth "storefront/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWriteError(t *testing.T) {
	ve := &usecase.ValidationError{}
	ve.Add("quantity", "quantity is required")

	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"http error", usecase.ErrCartItemLimitExceeded, http.StatusUnprocessableEntity, `{"error":"cart item limit exceeded"}`},
		{"wrapped http error", fmt.Errorf("add: %w", usecase.ErrForbidden), http.StatusForbidden, `{"error":"forbidden"}`},
		{"validation", ve, http.StatusUnprocessableEntity, `{"error":"validation error","fields":{"quantity":["quantity is required"]}}`},
		{"auth sentinel", auth.ErrInvalidCredentials, http.StatusUnauthorized, `{"error":"invalid credentials"}`},
		{"auth field", auth.ErrWeakPassword, http.StatusUnprocessableEntity, `{"error":"validation error","fields":{"password":["weak password"]}}`},
		{"conflict", auth.ErrEmailAlreadyExists, http.StatusConflict, `{"error":"email already exists"}`},
		{"unknown", errors.New("db exploded"), http.StatusInternalServerError, `{"error":"internal error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			require.NoError(t, responder{log: zap.NewNop()}.writeError(c, tt.err))
			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestWriteError_LogsInternal(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := responder{log: zap.New(core)}

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/cart", nil), httptest.NewRecorder())
	require.NoError(t, r.writeError(c, errors.New("boom")))
	require.NoError(t, r.writeError(c, usecase.ErrNotFound))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "internal error", logs.All()[0].Message)
}

func TestCartFailUsesEnvelope(t *testing.T) {
	h := NewCartHandler(nil, zap.NewNop())
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/cart/items", nil), rec)

	require.NoError(t, h.fail(c, usecase.ErrQuantityExceedsMaximum))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body CartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "quantity exceeds maximum allowed per item", body.Message)
	assert.Nil(t, body.Summary)
}
