package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/marketplace-management/internal/model"
	"github.com/mmeshcher/marketplace-management/internal/repository"
)

const (
	// ShippingCents: фиксированная стоимость доставки непустой корзины.
	ShippingCents int64 = 1590
	// PointsPerCurrencyUnit: сколько баллов начисляется за каждый реал.
	PointsPerCurrencyUnit = 2
)

var pointsRate = decimal.NewFromInt(PointsPerCurrencyUnit)

// LinePoints возвращает баллы за позицию: round(subtotal × 2), subtotal в реалах.
func LinePoints(subtotalCents int64) int64 {
	return decimal.New(subtotalCents, -2).Mul(pointsRate).Round(0).IntPart()
}

// ResolveActiveCart возвращает активную корзину пользователя, создавая её при отсутствии.
func (s *Service) ResolveActiveCart(ctx context.Context, userID string) (*model.Cart, error) {
	cart, err := s.carts.GetActiveCart(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup active cart: %w", err)
	}

	cart, err = s.carts.CreateActiveCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("create active cart: %w", err)
	}
	return cart, nil
}

// GetCart возвращает представление активной корзины пользователя.
func (s *Service) GetCart(ctx context.Context, userID string) (*model.CartView, error) {
	cart, err := s.ResolveActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, cart)
}

func (s *Service) buildView(ctx context.Context, cart *model.Cart) (*model.CartView, error) {
	items, err := s.carts.GetCartItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("load cart items: %w", err)
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}

	products, err := s.products.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load cart products: %w", err)
	}

	view := &model.CartView{
		CartID: cart.ID,
		Lines:  make([]model.CartLine, 0, len(items)),
	}

	var storeIDs []string
	seen := make(map[string]struct{})

	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			p = model.Product{ID: it.ProductID}
		}

		subtotal := it.PriceAtAddCents * int64(it.Quantity)
		line := model.CartLine{
			Item:          it,
			Product:       p,
			SubtotalCents: subtotal,
			Points:        LinePoints(subtotal),
		}
		view.Lines = append(view.Lines, line)

		view.Summary.SubtotalCents += line.SubtotalCents
		view.Summary.TotalPoints += line.Points
		view.Summary.ItemCount += it.Quantity

		if p.StoreID != "" {
			if _, dup := seen[p.StoreID]; !dup {
				seen[p.StoreID] = struct{}{}
				storeIDs = append(storeIDs, p.StoreID)
			}
		}
	}

	if len(view.Lines) > 0 {
		view.Summary.ShippingCents = ShippingCents
	}
	view.Summary.TotalCents = view.Summary.SubtotalCents + view.Summary.ShippingCents

	if len(storeIDs) > 0 {
		stores, err := s.products.GetStores(ctx, storeIDs)
		if err != nil {
			s.logger.Warn("load cart stores failed", zap.String("cartID", cart.ID), zap.Error(err))
		} else {
			view.Stores = stores
		}
	}

	return view, nil
}

// AddToCart добавляет товар в активную корзину пользователя. Если товар уже в корзине,
// увеличивается количество существующей позиции.
func (s *Service) AddToCart(ctx context.Context, userID, productID string, quantity int) (*model.CartView, error) {
	if quantity < 1 {
		return nil, invalid("quantity must be at least 1")
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("load product: %w", err)
	}

	if product.Stock < quantity {
		return nil, ErrOutOfStock
	}

	cart, err := s.ResolveActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.mergeOrInsert(ctx, cart.ID, product, quantity); err != nil {
		return nil, err
	}

	return s.buildView(ctx, cart)
}

func (s *Service) mergeOrInsert(ctx context.Context, cartID string, product *model.Product, quantity int) error {
	for attempt := 0; attempt < 2; attempt++ {
		existing, err := s.carts.FindCartItemByProduct(ctx, cartID, product.ID)
		switch {
		case err == nil:
			total := existing.Quantity + quantity
			if total > product.Stock {
				return ErrOutOfStock
			}
			if err := s.carts.UpdateCartItemQuantity(ctx, existing.ID, total); err != nil {
				return fmt.Errorf("update cart item: %w", err)
			}
			return nil
		case errors.Is(err, repository.ErrNotFound):
			_, err := s.carts.InsertCartItem(ctx, model.CartItem{
				CartID:          cartID,
				ProductID:       product.ID,
				Quantity:        quantity,
				PriceAtAddCents: product.PriceCents,
			})
			if err == nil {
				return nil
			}
			// Параллельный запрос успел вставить ту же позицию: повторяем как слияние.
			if errors.Is(err, repository.ErrAlreadyExists) {
				continue
			}
			return fmt.Errorf("insert cart item: %w", err)
		default:
			return fmt.Errorf("find cart item: %w", err)
		}
	}
	return fmt.Errorf("add product %s to cart %s: concurrent modification", product.ID, cartID)
}

// ownedItem загружает позицию и проверяет, что она лежит в активной корзине пользователя.
func (s *Service) ownedItem(ctx context.Context, userID, itemID string) (*model.CartItem, *model.Cart, error) {
	item, cart, err := s.carts.GetCartItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrCartItemNotFound
		}
		return nil, nil, fmt.Errorf("load cart item: %w", err)
	}

	if cart.UserID != userID {
		return nil, nil, ErrForbidden
	}

	if cart.Status != model.CartStatusActive {
		return nil, nil, ErrCartItemNotFound
	}

	return item, cart, nil
}

// UpdateQuantity задаёт новое количество позиции корзины с проверкой остатка.
func (s *Service) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*model.CartView, error) {
	if quantity < 1 {
		return nil, invalid("quantity must be at least 1")
	}

	item, cart, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	product, err := s.products.GetProduct(ctx, item.ProductID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("load product: %w", err)
	}

	if quantity > product.Stock {
		return nil, ErrOutOfStock
	}

	if err := s.carts.UpdateCartItemQuantity(ctx, item.ID, quantity); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("update cart item: %w", err)
	}

	return s.buildView(ctx, cart)
}

// RemoveFromCart удаляет позицию из корзины пользователя.
func (s *Service) RemoveFromCart(ctx context.Context, userID, itemID string) (*model.CartView, error) {
	item, cart, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	if err := s.carts.DeleteCartItem(ctx, item.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("delete cart item: %w", err)
	}

	return s.buildView(ctx, cart)
}

// ClearCart удаляет все позиции активной корзины пользователя.
func (s *Service) ClearCart(ctx context.Context, userID string) error {
	cart, err := s.carts.GetActiveCart(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCartNotFound
		}
		return fmt.Errorf("lookup active cart: %w", err)
	}

	if err := s.carts.ClearCartItems(ctx, cart.ID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
