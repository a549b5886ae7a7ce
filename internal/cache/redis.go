// Package cache кэширует подборки каталога в Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mmeshcher/marketplace-management/internal/model"
)

// Redis хранит списки товаров в виде JSON с ограниченным временем жизни.
// Ошибки Redis не пробрасываются: кэш лишь ускоряет чтение каталога.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedis подключается к Redis и проверяет соединение.
func NewRedis(ctx context.Context, addr string, ttl time.Duration, logger *zap.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}

	return New(client, ttl, logger), nil
}

// New оборачивает готовый клиент.
func New(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, ttl: ttl, logger: logger}
}

// GetProducts возвращает список из кэша. Промах и ошибка Redis неотличимы для вызывающего.
func (r *Redis) GetProducts(ctx context.Context, key string) ([]model.Product, bool) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var products []model.Product
	if err := json.Unmarshal(data, &products); err != nil {
		r.logger.Warn("cache entry corrupted", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return products, true
}

// SetProducts сохраняет список в кэш.
func (r *Redis) SetProducts(ctx context.Context, key string, products []model.Product) {
	data, err := json.Marshal(products)
	if err != nil {
		r.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate удаляет указанные ключи.
func (r *Redis) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate %v: %w", keys, err)
	}
	return nil
}

// Close закрывает соединение с Redis.
func (r *Redis) Close() error {
	return r.client.Close()
}
