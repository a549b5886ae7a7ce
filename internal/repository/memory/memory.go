// Package memory содержит хранилище маркетплейса в памяти процесса.
// Используется в тестах и при запуске без базы данных.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/marketplace-management/internal/model"
	"github.com/mmeshcher/marketplace-management/internal/repository"
)

// Store реализует все репозитории сервиса поверх map под одним мьютексом.
type Store struct {
	mu sync.Mutex

	now func() time.Time

	stores     map[string]model.Store
	products   map[string]model.Product
	addresses  map[string]model.Address
	carts      map[string]model.Cart
	cartItems  map[string]model.CartItem
	orders     map[string]model.Order
	orderItems map[string][]model.OrderItem
	ledger     []model.PointsTransaction
	balances   map[string]int64
	favorites  map[string]map[string]time.Time
}

// New создаёт пустое хранилище.
func New() *Store {
	return &Store{
		now:        time.Now,
		stores:     make(map[string]model.Store),
		products:   make(map[string]model.Product),
		addresses:  make(map[string]model.Address),
		carts:      make(map[string]model.Cart),
		cartItems:  make(map[string]model.CartItem),
		orders:     make(map[string]model.Order),
		orderItems: make(map[string][]model.OrderItem),
		balances:   make(map[string]int64),
		favorites:  make(map[string]map[string]time.Time),
	}
}

// SetClock подменяет источник времени.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Ping всегда успешен.
func (s *Store) Ping(context.Context) error { return nil }

// Close ничего не делает.
func (s *Store) Close() error { return nil }

// PutStore добавляет или заменяет магазин. Пустой ID заполняется автоматически.
func (s *Store) PutStore(st model.Store) model.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	s.stores[st.ID] = st
	return st
}

// PutProduct добавляет или заменяет товар.
func (s *Store) PutProduct(p model.Product) model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	s.products[p.ID] = p
	return p
}

// PutAddress добавляет или заменяет адрес.
func (s *Store) PutAddress(a model.Address) model.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.addresses[a.ID] = a
	return a
}

// --- корзины

// GetActiveCart возвращает активную корзину пользователя.
func (s *Store) GetActiveCart(_ context.Context, userID string) (*model.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.activeCartLocked(userID); ok {
		return &c, nil
	}
	return nil, repository.ErrNotFound
}

func (s *Store) activeCartLocked(userID string) (model.Cart, bool) {
	for _, c := range s.carts {
		if c.UserID == userID && c.Status == model.CartStatusActive {
			return c, true
		}
	}
	return model.Cart{}, false
}

// GetCart возвращает корзину по идентификатору.
func (s *Store) GetCart(_ context.Context, cartID string) (*model.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[cartID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

// CreateActiveCart создаёт активную корзину либо возвращает уже существующую.
func (s *Store) CreateActiveCart(_ context.Context, userID string) (*model.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.activeCartLocked(userID); ok {
		return &c, nil
	}
	now := s.now()
	c := model.Cart{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    model.CartStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.carts[c.ID] = c
	return &c, nil
}

// SetCartStatus меняет статус корзины.
func (s *Store) SetCartStatus(_ context.Context, cartID string, status model.CartStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[cartID]
	if !ok {
		return repository.ErrNotFound
	}
	if status == model.CartStatusActive && c.Status != model.CartStatusActive {
		if _, exists := s.activeCartLocked(c.UserID); exists {
			return fmt.Errorf("%w: active cart for user %s", repository.ErrAlreadyExists, c.UserID)
		}
	}
	c.Status = status
	c.UpdatedAt = s.now()
	s.carts[cartID] = c
	return nil
}

// GetCartItems возвращает позиции корзины в порядке добавления.
func (s *Store) GetCartItems(_ context.Context, cartID string) ([]model.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []model.CartItem
	for _, it := range s.cartItems {
		if it.CartID == cartID {
			items = append(items, it)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

// GetCartItem возвращает позицию вместе с корзиной-владельцем.
func (s *Store) GetCartItem(_ context.Context, itemID string) (*model.CartItem, *model.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.cartItems[itemID]
	if !ok {
		return nil, nil, repository.ErrNotFound
	}
	c, ok := s.carts[it.CartID]
	if !ok {
		return nil, nil, repository.ErrNotFound
	}
	return &it, &c, nil
}

// FindCartItemByProduct ищет позицию товара в корзине.
func (s *Store) FindCartItemByProduct(_ context.Context, cartID, productID string) (*model.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.cartItems {
		if it.CartID == cartID && it.ProductID == productID {
			return &it, nil
		}
	}
	return nil, repository.ErrNotFound
}

// InsertCartItem добавляет позицию; повтор товара в той же корзине запрещён.
func (s *Store) InsertCartItem(_ context.Context, item model.CartItem) (*model.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.carts[item.CartID]; !ok {
		return nil, fmt.Errorf("insert cart item: cart %s: %w", item.CartID, repository.ErrNotFound)
	}
	for _, it := range s.cartItems {
		if it.CartID == item.CartID && it.ProductID == item.ProductID {
			return nil, fmt.Errorf("%w: product %s in cart %s", repository.ErrAlreadyExists, item.ProductID, item.CartID)
		}
	}
	item.ID = uuid.NewString()
	item.CreatedAt = s.now()
	s.cartItems[item.ID] = item
	return &item, nil
}

// UpdateCartItemQuantity задаёт количество позиции.
func (s *Store) UpdateCartItemQuantity(_ context.Context, itemID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.cartItems[itemID]
	if !ok {
		return repository.ErrNotFound
	}
	it.Quantity = quantity
	s.cartItems[itemID] = it
	return nil
}

// DeleteCartItem удаляет позицию.
func (s *Store) DeleteCartItem(_ context.Context, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cartItems[itemID]; !ok {
		return repository.ErrNotFound
	}
	delete(s.cartItems, itemID)
	return nil
}

// ClearCartItems удаляет все позиции корзины.
func (s *Store) ClearCartItems(_ context.Context, cartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, it := range s.cartItems {
		if it.CartID == cartID {
			delete(s.cartItems, id)
		}
	}
	return nil
}

// Carts возвращает все корзины пользователя.
func (s *Store) Carts(userID string) []model.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []model.Cart
	for _, c := range s.carts {
		if c.UserID == userID {
			res = append(res, c)
		}
	}
	return res
}
