package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/mmeshcher/marketplace-management/internal/model"
	"github.com/mmeshcher/marketplace-management/internal/repository"
)

// Названия шагов оформления, попадают в логи, спаны и метрики.
const (
	stepReserveStock = "reserve_stock"
	stepCreateOrder  = "create_order"
	stepOrderItems   = "order_items"
	stepPointsLedger = "points_ledger"
	stepPointsUpdate = "points_balance"
	stepConvertCart  = "convert_cart"
	stepPublish      = "publish_order"
)

// Checkout оформляет заказ из активной корзины пользователя.
//
// Резерв остатков, создание заказа и его позиций выполняются как сага: при ошибке любого
// из них уже выполненные шаги откатываются. Начисление баллов, обновление баланса и перевод
// корзины в converted не критичны: их ошибки логируются, а недоделанное подбирает сверка.
func (s *Service) Checkout(ctx context.Context, userID, addressID, paymentMethod string) (*model.CheckoutResult, error) {
	ctx, span := s.tracer.Start(ctx, "service.Checkout")
	defer span.End()

	addressID = strings.TrimSpace(addressID)
	paymentMethod = strings.TrimSpace(paymentMethod)
	if addressID == "" {
		return nil, invalid("addressId is required")
	}
	if paymentMethod == "" {
		return nil, invalid("paymentMethod is required")
	}

	cart, err := s.carts.GetActiveCart(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("lookup active cart: %w", err)
	}

	view, err := s.buildView(ctx, cart)
	if err != nil {
		return nil, err
	}
	if len(view.Lines) == 0 {
		return nil, ErrEmptyCart
	}
	span.SetAttributes(attribute.String("cart.id", cart.ID), attribute.Int("cart.lines", len(view.Lines)))

	address, err := s.addresses.GetAddress(ctx, addressID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("load address: %w", err)
	}
	if address.UserID != userID {
		return nil, ErrAddressNotFound
	}

	sg := &saga{logger: s.logger.With(zap.String("userID", userID), zap.String("cartID", cart.ID))}

	order, items, err := s.placeOrder(ctx, sg, cart, view, address, paymentMethod)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "checkout failed")
		if sg.pending() {
			if failed := sg.compensate(ctx); failed > 0 {
				s.logger.Error("checkout left partial state", zap.String("cartID", cart.ID), zap.Int("failedCompensations", failed))
			}
			s.metrics.CheckoutCompensated()
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("order.id", order.ID))

	s.finishCheckout(ctx, order, items)

	return &model.CheckoutResult{
		OrderID:      order.ID,
		PointsEarned: order.PointsEarned,
	}, nil
}

func (s *Service) placeOrder(
	ctx context.Context,
	sg *saga,
	cart *model.Cart,
	view *model.CartView,
	address *model.Address,
	paymentMethod string,
) (*model.Order, []model.OrderItem, error) {
	err := s.step(ctx, stepReserveStock, func(ctx context.Context) error {
		for _, line := range view.Lines {
			productID, qty := line.Item.ProductID, line.Item.Quantity
			if err := s.products.ReserveStock(ctx, productID, qty); err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) {
					return ErrOutOfStock
				}
				return fmt.Errorf("reserve stock: %w", err)
			}
			sg.onFailure(stepReserveStock, func(ctx context.Context) error {
				return s.products.ReleaseStock(ctx, productID, qty)
			})
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var order *model.Order
	err = s.step(ctx, stepCreateOrder, func(ctx context.Context) error {
		created, err := s.orders.CreateOrder(ctx, model.Order{
			CustomerID:      cart.UserID,
			CartID:          cart.ID,
			DeliveryAddress: address.Format(),
			PaymentMethod:   paymentMethod,
			Status:          model.OrderStatusProcessing,
			TotalCents:      view.Summary.TotalCents,
			PointsEarned:    view.Summary.TotalPoints,
		})
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		order = created
		sg.onFailure(stepCreateOrder, func(ctx context.Context) error {
			return s.orders.DeleteOrder(ctx, created.ID)
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	items := make([]model.OrderItem, 0, len(view.Lines))
	for _, line := range view.Lines {
		items = append(items, model.OrderItem{
			OrderID:        order.ID,
			ProductID:      line.Item.ProductID,
			Quantity:       line.Item.Quantity,
			UnitPriceCents: line.Item.PriceAtAddCents,
			SubtotalCents:  line.SubtotalCents,
		})
	}

	err = s.step(ctx, stepOrderItems, func(ctx context.Context) error {
		if err := s.orders.InsertOrderItems(ctx, items); err != nil {
			return fmt.Errorf("create order items: %w", err)
		}
		sg.onFailure(stepOrderItems, func(ctx context.Context) error {
			return s.orders.DeleteOrderItems(ctx, order.ID)
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return order, items, nil
}

// finishCheckout выполняет некритичные шаги после того, как заказ и его позиции сохранены.
func (s *Service) finishCheckout(ctx context.Context, order *model.Order, items []model.OrderItem) {
	log := s.logger.With(zap.String("orderID", order.ID), zap.String("userID", order.CustomerID))

	if order.PointsEarned > 0 {
		var credited bool
		err := s.step(ctx, stepPointsLedger, func(ctx context.Context) error {
			inserted, err := s.points.InsertPointsTransaction(ctx, pointsEntry(order))
			credited = inserted
			return err
		})
		if err != nil {
			// Баланс не трогаем: сверка начислит журнал и баланс вместе.
			log.Error("points ledger insert failed", zap.Error(err))
			s.metrics.CheckoutStepFailed(stepPointsLedger)
		} else if credited {
			err := s.step(ctx, stepPointsUpdate, func(ctx context.Context) error {
				_, err := s.points.AddUserPoints(ctx, order.CustomerID, order.PointsEarned)
				return err
			})
			if err != nil {
				log.Error("points balance update failed", zap.Error(err))
				s.metrics.CheckoutStepFailed(stepPointsUpdate)
			}
		}
	}

	err := s.step(ctx, stepConvertCart, func(ctx context.Context) error {
		return s.carts.SetCartStatus(ctx, order.CartID, model.CartStatusConverted)
	})
	if err != nil {
		log.Error("cart conversion failed", zap.String("cartID", order.CartID), zap.Error(err))
		s.metrics.CheckoutStepFailed(stepConvertCart)
	}

	err = s.step(ctx, stepPublish, func(ctx context.Context) error {
		return s.publisher.PublishOrderPlaced(ctx, *order, items)
	})
	if err != nil {
		log.Warn("order event publish failed", zap.Error(err))
		s.metrics.CheckoutStepFailed(stepPublish)
	}

	// Остатки изменились, закэшированные списки каталога устарели.
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, CacheKeyRecent, CacheKeyPopular); err != nil {
			log.Warn("catalog cache invalidation failed", zap.Error(err))
		}
	}
}

// step выполняет шаг оформления внутри отдельного спана.
func (s *Service) step(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "checkout."+name)
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, name+" failed")
		return err
	}
	return nil
}

func pointsEntry(order *model.Order) model.PointsTransaction {
	ref := order.ID
	if len(ref) > 8 {
		ref = ref[:8]
	}
	return model.PointsTransaction{
		UserID:      order.CustomerID,
		Points:      order.PointsEarned,
		Type:        model.PointsTypeEarned,
		Description: "Pontos ganhos na compra #" + ref,
		ReferenceID: order.ID,
	}
}
