package handler

import (
	"context"

	"github.com/mmeshcher/marketplace-management/internal/service"
	"github.com/mmeshcher/marketplace-management/internal/validation"
)

type actionFunc func(ctx context.Context, userID string, req actionRequest) (any, error)

func (h *Handler) actionTable() map[string]actionFunc {
	return map[string]actionFunc{
		"get_cart":              h.getCart,
		"add_to_cart":           h.addToCart,
		"update_quantity":       h.updateQuantity,
		"remove_from_cart":      h.removeFromCart,
		"clear_cart":            h.clearCart,
		"checkout":              h.checkout,
		"get_recent_products":   h.getRecentProducts,
		"get_popular_products":  h.getPopularProducts,
		"get_product_details":   h.getProductDetails,
		"add_to_favorites":      h.addToFavorites,
		"remove_from_favorites": h.removeFromFavorites,
	}
}

func requireID(field, value string) error {
	if msg := validation.IDError(field, value); msg != "" {
		return &service.ValidationError{Message: msg}
	}
	return nil
}

func requireQuantity(q int) error {
	if msg := validation.QuantityError(q); msg != "" {
		return &service.ValidationError{Message: msg}
	}
	return nil
}

func (h *Handler) getCart(ctx context.Context, userID string, _ actionRequest) (any, error) {
	view, err := h.service.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return newCartResponse(view, ""), nil
}

func (h *Handler) addToCart(ctx context.Context, userID string, req actionRequest) (any, error) {
	if err := requireID("productId", req.ProductID); err != nil {
		return nil, err
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if err := requireQuantity(quantity); err != nil {
		return nil, err
	}

	view, err := h.service.AddToCart(ctx, userID, req.ProductID, quantity)
	if err != nil {
		return nil, err
	}
	return newCartResponse(view, "Product added to cart"), nil
}

func (h *Handler) updateQuantity(ctx context.Context, userID string, req actionRequest) (any, error) {
	if err := requireID("cartItemId", req.CartItemID); err != nil {
		return nil, err
	}
	if req.Quantity == nil {
		return nil, &service.ValidationError{Message: "quantity is required"}
	}
	if err := requireQuantity(*req.Quantity); err != nil {
		return nil, err
	}

	view, err := h.service.UpdateQuantity(ctx, userID, req.CartItemID, *req.Quantity)
	if err != nil {
		return nil, err
	}
	return newCartResponse(view, "Cart updated"), nil
}

func (h *Handler) removeFromCart(ctx context.Context, userID string, req actionRequest) (any, error) {
	if err := requireID("cartItemId", req.CartItemID); err != nil {
		return nil, err
	}

	view, err := h.service.RemoveFromCart(ctx, userID, req.CartItemID)
	if err != nil {
		return nil, err
	}
	return newCartResponse(view, "Item removed from cart"), nil
}

func (h *Handler) clearCart(ctx context.Context, userID string, _ actionRequest) (any, error) {
	if err := h.service.ClearCart(ctx, userID); err != nil {
		return nil, err
	}
	return messageResponse{Message: "Cart cleared"}, nil
}

func (h *Handler) checkout(ctx context.Context, userID string, req actionRequest) (any, error) {
	if err := requireID("addressId", req.AddressID); err != nil {
		return nil, err
	}
	if !validation.IsValidPaymentMethod(req.PaymentMethod) {
		return nil, &service.ValidationError{Message: "paymentMethod is required"}
	}

	res, err := h.service.Checkout(ctx, userID, req.AddressID, req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	return checkoutResponse{
		Success:      true,
		OrderID:      res.OrderID,
		Message:      "Order placed successfully",
		PointsEarned: res.PointsEarned,
	}, nil
}

func (h *Handler) getRecentProducts(ctx context.Context, _ string, _ actionRequest) (any, error) {
	products, err := h.service.GetRecentProducts(ctx)
	if err != nil {
		return nil, err
	}
	return productsResponse{Products: newProductList(products)}, nil
}

func (h *Handler) getPopularProducts(ctx context.Context, _ string, _ actionRequest) (any, error) {
	products, err := h.service.GetPopularProducts(ctx)
	if err != nil {
		return nil, err
	}
	return productsResponse{Products: newProductList(products)}, nil
}

func (h *Handler) getProductDetails(ctx context.Context, _ string, req actionRequest) (any, error) {
	if err := requireID("productId", req.ProductID); err != nil {
		return nil, err
	}

	product, store, err := h.service.GetProductDetails(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	resp := productDetailsResponse{Product: newProductResponse(*product)}
	if store != nil {
		s := newStoreResponse(*store)
		resp.Store = &s
	}
	return resp, nil
}

func (h *Handler) addToFavorites(ctx context.Context, userID string, req actionRequest) (any, error) {
	if err := requireID("productId", req.ProductID); err != nil {
		return nil, err
	}

	added, err := h.service.AddToFavorites(ctx, userID, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !added {
		return messageResponse{Message: "Product already in favorites"}, nil
	}
	return messageResponse{Success: true, Message: "Product added to favorites"}, nil
}

func (h *Handler) removeFromFavorites(ctx context.Context, userID string, req actionRequest) (any, error) {
	if err := requireID("productId", req.ProductID); err != nil {
		return nil, err
	}

	if err := h.service.RemoveFromFavorites(ctx, userID, req.ProductID); err != nil {
		return nil, err
	}
	return messageResponse{Success: true, Message: "Product removed from favorites"}, nil
}
