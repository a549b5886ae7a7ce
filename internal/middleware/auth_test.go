package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userA = "3f2504e0-4f89-11d3-9a0c-0305e82c3301"

func TestAuthMiddleware_WithValidToken(t *testing.T) {
	v := NewLocalVerifier("test-secret")
	m := NewAuthMiddleware(v, nil)

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		id, ok := GetUserIDFromContext(r.Context())
		require.True(t, ok, "user id not in context")
		assert.Equal(t, userA, id)
	})

	r := httptest.NewRequest(http.MethodPost, "/marketplace-management", nil)
	r.Header.Set("Authorization", "Bearer "+v.Sign(userA))

	m.Middleware(next).ServeHTTP(httptest.NewRecorder(), r)

	assert.True(t, nextCalled, "next handler was not called")
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	v := NewLocalVerifier("test-secret")
	forged := NewLocalVerifier("other-secret").Sign(userA)

	tests := []struct {
		name   string
		header string
	}{
		{name: "no header", header: ""},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "empty token", header: "Bearer "},
		{name: "forged signature", header: "Bearer " + forged},
		{name: "no signature", header: "Bearer " + userA},
		{name: "signed non uuid user", header: "Bearer " + v.Sign("user-42")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatalf("next handler should not be called")
			})

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/marketplace-management", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			NewAuthMiddleware(v, nil).Middleware(next).ServeHTTP(w, r)

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

			var body map[string]string
			require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
			assert.Equal(t, "Unauthorized", body["error"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

type verifierFunc func(ctx context.Context, token string) (string, error)

func (f verifierFunc) Verify(ctx context.Context, token string) (string, error) { return f(ctx, token) }

func TestAuthMiddleware_VerifierError(t *testing.T) {
	v := verifierFunc(func(context.Context, string) (string, error) {
		return "", errors.New("identity unavailable")
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/marketplace-management", nil)
	r.Header.Set("Authorization", "Bearer abc")

	NewAuthMiddleware(v, nil).Middleware(http.NotFoundHandler()).ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLocalVerifier_RandomSecret(t *testing.T) {
	a := NewLocalVerifier("")
	b := NewLocalVerifier("")

	_, err := b.Verify(context.Background(), a.Sign(userA))
	assert.ErrorIs(t, err, ErrInvalidToken)

	id, err := a.Verify(context.Background(), a.Sign(userA))
	require.NoError(t, err)
	assert.Equal(t, userA, id)
}

func TestLocalVerifier_RejectsNonUUIDUser(t *testing.T) {
	v := NewLocalVerifier("test-secret")

	for _, userID := range []string{"user-42", "user.with.dots", "00000000-0000"} {
		_, err := v.Verify(context.Background(), v.Sign(userID))
		assert.ErrorIs(t, err, ErrInvalidToken, userID)
	}
}

func TestAuthMiddleware_RejectsNonUUIDFromVerifier(t *testing.T) {
	v := verifierFunc(func(context.Context, string) (string, error) {
		return "user-1", nil
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/marketplace-management", nil)
	r.Header.Set("Authorization", "Bearer abc")

	NewAuthMiddleware(v, nil).Middleware(http.NotFoundHandler()).ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
