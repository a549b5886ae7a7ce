package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/marketplace-management/internal/model"
	"github.com/mmeshcher/marketplace-management/internal/repository"
)

const (
	reconcileBatchSize = 100
	// reconcileGrace защищает от гонки с оформлением, которое ещё выполняет некритичные шаги.
	reconcileGrace = time.Minute
)

// RunReconciler периодически доначисляет баллы и закрывает корзины заказов, у которых
// некритичные шаги оформления завершились ошибкой. Блокируется до отмены контекста.
func (s *Service) RunReconciler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reconcileBatch(ctx)
		}
	}
}

func (s *Service) reconcileBatch(ctx context.Context) int {
	before := s.now().Add(-reconcileGrace)
	repaired := 0

	orders, err := s.orders.ListOrdersWithoutPoints(ctx, before, reconcileBatchSize)
	if err != nil {
		s.logger.Error("list orders without points", zap.Error(err))
	}
	for _, o := range orders {
		credited, err := s.points.CreditOrderPoints(ctx, pointsEntry(&o))
		if err != nil {
			s.logger.Error("reconcile points failed", zap.String("orderID", o.ID), zap.Error(err))
			continue
		}
		if credited {
			repaired++
			s.logger.Info("points reconciled", zap.String("orderID", o.ID), zap.Int64("points", o.PointsEarned))
		}
	}

	orders, err = s.orders.ListOrdersWithActiveCart(ctx, before, reconcileBatchSize)
	if err != nil {
		s.logger.Error("list orders with active cart", zap.Error(err))
	}
	for _, o := range orders {
		carried, err := s.convertOrderCart(ctx, &o)
		if err != nil {
			s.logger.Error("reconcile cart failed", zap.String("orderID", o.ID), zap.String("cartID", o.CartID), zap.Error(err))
			continue
		}
		repaired++
		s.logger.Info("cart reconciled",
			zap.String("orderID", o.ID),
			zap.String("cartID", o.CartID),
			zap.Int("carriedLines", carried),
		)
	}

	if repaired > 0 {
		s.metrics.PointsReconciled(repaired)
	}
	return repaired
}

// convertOrderCart закрывает корзину, из которой оформлен заказ. Пока корзина оставалась
// активной, пользователь мог продолжить покупки: всё, что сверх заказанного, переносится
// в новую активную корзину. Возвращает число перенесённых позиций.
func (s *Service) convertOrderCart(ctx context.Context, order *model.Order) (int, error) {
	// После перевода в converted новые товары в эту корзину уже не попадут.
	if err := s.carts.SetCartStatus(ctx, order.CartID, model.CartStatusConverted); err != nil {
		return 0, fmt.Errorf("convert cart: %w", err)
	}

	cartItems, err := s.carts.GetCartItems(ctx, order.CartID)
	if err != nil {
		return 0, fmt.Errorf("load cart items: %w", err)
	}
	ordered, err := s.orders.GetOrderItems(ctx, order.ID)
	if err != nil {
		return 0, fmt.Errorf("load order items: %w", err)
	}

	leftovers := unorderedItems(cartItems, ordered)
	if len(leftovers) == 0 {
		return 0, nil
	}

	cart, err := s.carts.CreateActiveCart(ctx, order.CustomerID)
	if err != nil {
		return 0, fmt.Errorf("create active cart: %w", err)
	}
	for _, it := range leftovers {
		if err := s.carryItem(ctx, cart.ID, it); err != nil {
			return 0, fmt.Errorf("carry product %s: %w", it.ProductID, err)
		}
	}
	return len(leftovers), nil
}

// unorderedItems возвращает позиции корзины за вычетом заказанных количеств.
func unorderedItems(cartItems []model.CartItem, ordered []model.OrderItem) []model.CartItem {
	orderedQty := make(map[string]int, len(ordered))
	for _, it := range ordered {
		orderedQty[it.ProductID] += it.Quantity
	}

	var res []model.CartItem
	for _, it := range cartItems {
		left := it.Quantity - orderedQty[it.ProductID]
		if left <= 0 {
			continue
		}
		it.Quantity = left
		res = append(res, it)
	}
	return res
}

func (s *Service) carryItem(ctx context.Context, cartID string, it model.CartItem) error {
	existing, err := s.carts.FindCartItemByProduct(ctx, cartID, it.ProductID)
	switch {
	case err == nil:
		return s.carts.UpdateCartItemQuantity(ctx, existing.ID, existing.Quantity+it.Quantity)
	case errors.Is(err, repository.ErrNotFound):
		_, err = s.carts.InsertCartItem(ctx, model.CartItem{
			CartID:          cartID,
			ProductID:       it.ProductID,
			Quantity:        it.Quantity,
			PriceAtAddCents: it.PriceAtAddCents,
		})
		return err
	default:
		return err
	}
}
