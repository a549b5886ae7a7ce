// Package identity предоставляет клиент для внешнего сервиса аутентификации.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrInvalidToken возвращается, если сервис аутентификации отклонил токен.
var ErrInvalidToken = errors.New("invalid token")

// Client инкапсулирует HTTP-взаимодействие с сервисом аутентификации.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// User описывает ответ сервиса аутентификации.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// NewClient создаёт клиент сервиса аутентификации по указанному адресу.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// GetUser возвращает пользователя, которому выдан токен.
func (c *Client) GetUser(ctx context.Context, token string) (*User, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("identity client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrInvalidToken
	default:
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if user.ID == "" {
		return nil, ErrInvalidToken
	}

	return &user, nil
}

// Verify возвращает идентификатор пользователя по токену.
func (c *Client) Verify(ctx context.Context, token string) (string, error) {
	user, err := c.GetUser(ctx, token)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}
