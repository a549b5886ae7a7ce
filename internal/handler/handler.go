// Package handler содержит HTTP-обработчики API маркетплейса.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/marketplace-management/internal/middleware"
	"github.com/mmeshcher/marketplace-management/internal/model"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	GetCart(ctx context.Context, userID string) (*model.CartView, error)
	AddToCart(ctx context.Context, userID, productID string, quantity int) (*model.CartView, error)
	UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*model.CartView, error)
	RemoveFromCart(ctx context.Context, userID, itemID string) (*model.CartView, error)
	ClearCart(ctx context.Context, userID string) error
	Checkout(ctx context.Context, userID, addressID, paymentMethod string) (*model.CheckoutResult, error)
	GetRecentProducts(ctx context.Context) ([]model.Product, error)
	GetPopularProducts(ctx context.Context) ([]model.Product, error)
	GetProductDetails(ctx context.Context, productID string) (*model.Product, *model.Store, error)
	AddToFavorites(ctx context.Context, userID, productID string) (bool, error)
	RemoveFromFavorites(ctx context.Context, userID, productID string) error
	Ping(ctx context.Context) error
}

// Metrics принимает метрики HTTP-слоя.
type Metrics interface {
	middleware.RequestObserver
	ActionHandled(action, result string)
	Handler() http.Handler
}

// Handler реализует HTTP-обработчики API маркетплейса.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	metrics        Metrics
	actions        map[string]actionFunc
}

// Option настраивает необязательные зависимости обработчика.
type Option func(*Handler)

// WithMetrics подключает метрики запросов и действий.
func WithMetrics(m Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, opts ...Option) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
	h.actions = h.actionTable()

	for _, opt := range opts {
		opt(h)
	}
	return h
}

// actionRequest: тело запроса к единой точке входа.
type actionRequest struct {
	Action        string `json:"action"`
	ProductID     string `json:"productId"`
	CartItemID    string `json:"cartItemId"`
	Quantity      *int   `json:"quantity"`
	AddressID     string `json:"addressId"`
	PaymentMethod string `json:"paymentMethod"`
}

const maxBodySize = 1 << 20

// Dispatch разбирает действие из тела запроса (или из query для GET) и выполняет его.
func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error":   "Unauthorized",
			"message": "User not resolved",
		})
		return
	}

	req, err := decodeRequest(r)
	if err != nil {
		h.finish(w, "unknown", errorResponse{Error: "Invalid request body", Code: CodeValidation})
		return
	}

	action, found := h.actions[req.Action]
	if !found {
		h.finish(w, "unknown", errorResponse{Error: "Invalid action", Code: CodeValidation})
		return
	}

	resp, err := action(r.Context(), userID, req)
	if err != nil {
		e := classify(err)
		if e.Code == CodeServerError {
			h.logger.Error("action failed",
				zap.String("action", req.Action),
				zap.String("userID", userID),
				zap.Error(err),
			)
		}
		h.finish(w, req.Action, e)
		return
	}

	if h.metrics != nil {
		h.metrics.ActionHandled(req.Action, "ok")
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) finish(w http.ResponseWriter, action string, e errorResponse) {
	if h.metrics != nil {
		h.metrics.ActionHandled(action, e.Code)
	}
	writeJSON(w, http.StatusOK, e)
}

func decodeRequest(r *http.Request) (actionRequest, error) {
	var req actionRequest

	if r.Method == http.MethodGet {
		q := r.URL.Query()
		req.Action = q.Get("action")
		req.ProductID = q.Get("productId")
		req.CartItemID = q.Get("cartItemId")
		req.AddressID = q.Get("addressId")
		req.PaymentMethod = q.Get("paymentMethod")
		if v := q.Get("quantity"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return req, err
			}
			req.Quantity = &n
		}
	}

	if r.Body == nil {
		return req, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return req, err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		if r.Method == http.MethodGet {
			return req, nil
		}
		return req, errors.New("empty body")
	}

	if err := json.Unmarshal(body, &req); err != nil {
		return req, err
	}
	return req, nil
}

// Preflight отвечает на OPTIONS-запрос без авторизации.
func (h *Handler) Preflight(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Health сообщает, что процесс жив.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready проверяет доступность хранилища.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.service.Ping(ctx); err != nil {
		h.logger.Warn("readiness check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
