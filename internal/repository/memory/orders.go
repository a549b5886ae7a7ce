package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/marketplace-management/internal/model"
	"github.com/mmeshcher/marketplace-management/internal/repository"
)

// CreateOrder сохраняет заказ с новым идентификатором.
func (s *Store) CreateOrder(_ context.Context, order model.Order) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order.ID = uuid.NewString()
	order.CreatedAt = s.now()
	s.orders[order.ID] = order
	return &order, nil
}

// DeleteOrder удаляет заказ вместе с позициями.
func (s *Store) DeleteOrder(_ context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.orders, orderID)
	delete(s.orderItems, orderID)
	return nil
}

// InsertOrderItems сохраняет позиции заказа.
func (s *Store) InsertOrderItems(_ context.Context, items []model.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		if _, ok := s.orders[it.OrderID]; !ok {
			return repository.ErrNotFound
		}
	}
	for _, it := range items {
		s.orderItems[it.OrderID] = append(s.orderItems[it.OrderID], it)
	}
	return nil
}

// DeleteOrderItems удаляет позиции заказа.
func (s *Store) DeleteOrderItems(_ context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.orderItems, orderID)
	return nil
}

func (s *Store) ordersLocked(match func(o model.Order) bool, limit int) []model.Order {
	var res []model.Order
	for _, o := range s.orders {
		if match(o) {
			res = append(res, o)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	if len(res) > limit {
		res = res[:limit]
	}
	return res
}

func (s *Store) hasLedgerEntryLocked(referenceID, kind string) bool {
	for _, t := range s.ledger {
		if t.ReferenceID == referenceID && t.Type == kind {
			return true
		}
	}
	return false
}

// ListOrdersWithoutPoints возвращает заказы старше before без записи в журнале баллов.
func (s *Store) ListOrdersWithoutPoints(_ context.Context, before time.Time, limit int) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ordersLocked(func(o model.Order) bool {
		return o.CreatedAt.Before(before) &&
			o.PointsEarned > 0 &&
			!s.hasLedgerEntryLocked(o.ID, model.PointsTypeEarned)
	}, limit), nil
}

// ListOrdersWithActiveCart возвращает заказы старше before, чья корзина осталась активной.
func (s *Store) ListOrdersWithActiveCart(_ context.Context, before time.Time, limit int) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ordersLocked(func(o model.Order) bool {
		c, ok := s.carts[o.CartID]
		return o.CreatedAt.Before(before) && ok && c.Status == model.CartStatusActive
	}, limit), nil
}

// Orders возвращает все заказы пользователя.
func (s *Store) Orders(userID string) []model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ordersLocked(func(o model.Order) bool { return o.CustomerID == userID }, len(s.orders))
}

// GetOrderItems возвращает позиции заказа.
func (s *Store) GetOrderItems(_ context.Context, orderID string) ([]model.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.OrderItem(nil), s.orderItems[orderID]...), nil
}

// --- баллы

func (s *Store) insertLedgerLocked(t model.PointsTransaction) bool {
	if t.ReferenceID != "" && s.hasLedgerEntryLocked(t.ReferenceID, t.Type) {
		return false
	}
	t.CreatedAt = s.now()
	s.ledger = append(s.ledger, t)
	return true
}

// InsertPointsTransaction добавляет запись в журнал, если её ещё нет.
func (s *Store) InsertPointsTransaction(_ context.Context, t model.PointsTransaction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLedgerLocked(t), nil
}

// AddUserPoints увеличивает баланс пользователя.
func (s *Store) AddUserPoints(_ context.Context, userID string, points int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[userID] += points
	return s.balances[userID], nil
}

// CreditOrderPoints атомарно пишет журнал и баланс.
func (s *Store) CreditOrderPoints(_ context.Context, t model.PointsTransaction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.insertLedgerLocked(t) {
		return false, nil
	}
	s.balances[t.UserID] += t.Points
	return true, nil
}

// Ledger возвращает записи журнала баллов пользователя.
func (s *Store) Ledger(userID string) []model.PointsTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []model.PointsTransaction
	for _, t := range s.ledger {
		if t.UserID == userID {
			res = append(res, t)
		}
	}
	return res
}

// Balance возвращает баланс баллов пользователя.
func (s *Store) Balance(userID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[userID]
}
