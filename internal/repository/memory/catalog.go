package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mmeshcher/marketplace-management/internal/model"
	"github.com/mmeshcher/marketplace-management/internal/repository"
)

// GetProduct возвращает товар по идентификатору.
func (s *Store) GetProduct(_ context.Context, productID string) (*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

// GetProducts возвращает найденные товары из списка.
func (s *Store) GetProducts(_ context.Context, productIDs []string) (map[string]model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make(map[string]model.Product, len(productIDs))
	for _, id := range productIDs {
		if p, ok := s.products[id]; ok {
			res[id] = p
		}
	}
	return res, nil
}

func (s *Store) activeProductsLocked() []model.Product {
	res := make([]model.Product, 0, len(s.products))
	for _, p := range s.products {
		if p.Active {
			res = append(res, p)
		}
	}
	return res
}

// ListRecentProducts возвращает последние добавленные активные товары.
func (s *Store) ListRecentProducts(_ context.Context, limit int) ([]model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := s.activeProductsLocked()
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return head(res, limit), nil
}

// ListPopularProducts возвращает активные товары с наибольшим рейтингом.
func (s *Store) ListPopularProducts(_ context.Context, limit int) ([]model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := s.activeProductsLocked()
	sort.Slice(res, func(i, j int) bool {
		if res[i].Rating == res[j].Rating {
			return res[i].CreatedAt.After(res[j].CreatedAt)
		}
		return res[i].Rating > res[j].Rating
	})
	return head(res, limit), nil
}

func head(products []model.Product, limit int) []model.Product {
	if limit >= 0 && len(products) > limit {
		return products[:limit]
	}
	return products
}

// ReserveStock списывает остаток, только если его хватает.
func (s *Store) ReserveStock(_ context.Context, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok || p.Stock < quantity {
		return fmt.Errorf("%w: product %s", repository.ErrInsufficientStock, productID)
	}
	p.Stock -= quantity
	s.products[productID] = p
	return nil
}

// ReleaseStock возвращает остаток.
func (s *Store) ReleaseStock(_ context.Context, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return repository.ErrNotFound
	}
	p.Stock += quantity
	s.products[productID] = p
	return nil
}

// GetStore возвращает магазин.
func (s *Store) GetStore(_ context.Context, storeID string) (*model.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stores[storeID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &st, nil
}

// GetStores возвращает найденные магазины, отсортированные по имени.
func (s *Store) GetStores(_ context.Context, storeIDs []string) ([]model.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []model.Store
	for _, id := range storeIDs {
		if st, ok := s.stores[id]; ok {
			res = append(res, st)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

// GetAddress возвращает адрес.
func (s *Store) GetAddress(_ context.Context, addressID string) (*model.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.addresses[addressID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

// AddFavorite добавляет товар в избранное.
func (s *Store) AddFavorite(_ context.Context, userID, productID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	favs, ok := s.favorites[userID]
	if !ok {
		favs = make(map[string]time.Time)
		s.favorites[userID] = favs
	}
	if _, exists := favs[productID]; exists {
		return false, nil
	}
	favs[productID] = s.now()
	return true, nil
}

// RemoveFavorite удаляет товар из избранного.
func (s *Store) RemoveFavorite(_ context.Context, userID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.favorites[userID], productID)
	return nil
}

// IsFavorite сообщает, лежит ли товар в избранном пользователя.
func (s *Store) IsFavorite(userID, productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.favorites[userID][productID]
	return ok
}
