// Package middleware содержит HTTP middleware сервиса маркетплейса.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/marketplace-management/internal/validation"
)

type contextKey string

const userIDKey contextKey = "userID"

// ErrInvalidToken возвращается локальной проверкой при неверной подписи токена.
var ErrInvalidToken = errors.New("invalid token")

// Verifier сопоставляет токен доступа с идентификатором пользователя.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// AuthMiddleware выполняет проверку Bearer-токена.
type AuthMiddleware struct {
	verifier Verifier
	logger   *zap.Logger
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware поверх указанного Verifier.
func NewAuthMiddleware(verifier Verifier, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{
		verifier: verifier,
		logger:   logger,
	}
}

// Middleware проверяет заголовок Authorization и добавляет идентификатор пользователя в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeUnauthorized(w, "Missing authorization header")
			return
		}

		userID, err := a.verifier.Verify(r.Context(), token)
		if err != nil || !validation.IsValidID(userID) {
			a.logger.Debug("token rejected", zap.Error(err))
			writeUnauthorized(w, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"error":   "Unauthorized",
		"message": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WithUserID кладёт идентификатор пользователя в контекст.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserIDFromContext извлекает идентификатор пользователя из контекста запроса.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// LocalVerifier проверяет токены вида "userID.signature", подписанные HMAC-SHA256.
// Используется, когда внешний сервис аутентификации не настроен.
type LocalVerifier struct {
	secretKey []byte
}

// NewLocalVerifier создаёт проверку с указанным секретом. Пустой секрет заменяется случайным.
func NewLocalVerifier(secret string) *LocalVerifier {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &LocalVerifier{
		secretKey: key,
	}
}

// Sign выпускает токен для указанного пользователя.
func (v *LocalVerifier) Sign(userID string) string {
	return userID + "." + v.signature(userID)
}

// Verify проверяет подпись токена и возвращает идентификатор пользователя.
// Идентификатор обязан быть UUID.
func (v *LocalVerifier) Verify(_ context.Context, token string) (string, error) {
	idx := strings.LastIndex(token, ".")
	if idx <= 0 || idx == len(token)-1 {
		return "", ErrInvalidToken
	}

	userID, signature := token[:idx], token[idx+1:]
	if !validation.IsValidID(userID) {
		return "", ErrInvalidToken
	}
	if !hmac.Equal([]byte(signature), []byte(v.signature(userID))) {
		return "", ErrInvalidToken
	}

	return userID, nil
}

func (v *LocalVerifier) signature(userID string) string {
	mac := hmac.New(sha256.New, v.secretKey)
	mac.Write([]byte(userID))
	return hex.EncodeToString(mac.Sum(nil))
}
