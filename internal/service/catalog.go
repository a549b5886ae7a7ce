package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmeshcher/marketplace-management/internal/model"
	"github.com/mmeshcher/marketplace-management/internal/repository"
)

// Размер подборок каталога и ключи их кэша.
const (
	CatalogListLimit = 10

	CacheKeyRecent  = "catalog:recent"
	CacheKeyPopular = "catalog:popular"
)

// GetRecentProducts возвращает последние добавленные товары.
func (s *Service) GetRecentProducts(ctx context.Context) ([]model.Product, error) {
	return s.cachedList(ctx, CacheKeyRecent, s.products.ListRecentProducts)
}

// GetPopularProducts возвращает товары с наибольшим рейтингом.
func (s *Service) GetPopularProducts(ctx context.Context) ([]model.Product, error) {
	return s.cachedList(ctx, CacheKeyPopular, s.products.ListPopularProducts)
}

func (s *Service) cachedList(
	ctx context.Context,
	key string,
	load func(ctx context.Context, limit int) ([]model.Product, error),
) ([]model.Product, error) {
	if s.cache != nil {
		if products, ok := s.cache.GetProducts(ctx, key); ok {
			return products, nil
		}
	}

	products, err := load(ctx, CatalogListLimit)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}

	if s.cache != nil {
		s.cache.SetProducts(ctx, key, products)
	}
	return products, nil
}

// GetProductDetails возвращает товар и его магазин. Отсутствие магазина ошибкой не считается.
func (s *Service) GetProductDetails(ctx context.Context, productID string) (*model.Product, *model.Store, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrProductNotFound
		}
		return nil, nil, fmt.Errorf("load product: %w", err)
	}

	if product.StoreID == "" {
		return product, nil, nil
	}

	store, err := s.products.GetStore(ctx, product.StoreID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("load product store failed", zap.String("productID", productID), zap.Error(err))
		}
		return product, nil, nil
	}

	return product, store, nil
}

// AddToFavorites добавляет товар в избранное. Возвращает false, если товар там уже был.
func (s *Service) AddToFavorites(ctx context.Context, userID, productID string) (bool, error) {
	if _, err := s.products.GetProduct(ctx, productID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrProductNotFound
		}
		return false, fmt.Errorf("load product: %w", err)
	}

	added, err := s.favorites.AddFavorite(ctx, userID, productID)
	if err != nil {
		return false, fmt.Errorf("add favorite: %w", err)
	}
	return added, nil
}

// RemoveFromFavorites удаляет товар из избранного.
func (s *Service) RemoveFromFavorites(ctx context.Context, userID, productID string) error {
	if err := s.favorites.RemoveFavorite(ctx, userID, productID); err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}
