package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/marketplace-management/internal/model"
)

const cartColumns = `id::text, user_id::text, status, created_at, updated_at`

func scanCart(row pgx.Row) (*model.Cart, error) {
	var (
		c      model.Cart
		status string
	)
	if err := row.Scan(&c.ID, &c.UserID, &status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Status = model.CartStatus(status)
	return &c, nil
}

// GetActiveCart возвращает активную корзину пользователя.
func (r *PostgresRepository) GetActiveCart(ctx context.Context, userID string) (*model.Cart, error) {
	c, err := scanCart(r.pool.QueryRow(ctx,
		`SELECT `+cartColumns+` FROM carts WHERE user_id = $1 AND status = $2`,
		userID, string(model.CartStatusActive),
	))
	if err != nil {
		return nil, fmt.Errorf("get active cart: %w", notFound(err))
	}
	return c, nil
}

// CreateActiveCart создаёт активную корзину. Если параллельный запрос успел создать её раньше,
// возвращается уже существующая корзина: уникальный частичный индекс не допускает второй.
func (r *PostgresRepository) CreateActiveCart(ctx context.Context, userID string) (*model.Cart, error) {
	c, err := scanCart(r.pool.QueryRow(ctx,
		`INSERT INTO carts (user_id, status) VALUES ($1, $2)
		 ON CONFLICT (user_id) WHERE status = 'active' DO NOTHING
		 RETURNING `+cartColumns,
		userID, string(model.CartStatusActive),
	))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("insert cart: %w", err)
	}
	return r.GetActiveCart(ctx, userID)
}

// SetCartStatus меняет статус корзины.
func (r *PostgresRepository) SetCartStatus(ctx context.Context, cartID string, status model.CartStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE carts SET status = $2, updated_at = now() WHERE id = $1`,
		cartID, string(status),
	)
	if err != nil {
		return fmt.Errorf("update cart status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const cartItemColumns = `id::text, cart_id::text, product_id::text, quantity, price_at_add_centavos, created_at`

func scanCartItem(row pgx.Row) (*model.CartItem, error) {
	var it model.CartItem
	if err := row.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.PriceAtAddCents, &it.CreatedAt); err != nil {
		return nil, err
	}
	return &it, nil
}

// GetCartItems возвращает позиции корзины в порядке добавления.
func (r *PostgresRepository) GetCartItems(ctx context.Context, cartID string) ([]model.CartItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+cartItemColumns+` FROM cart_items WHERE cart_id = $1 ORDER BY created_at, id`,
		cartID,
	)
	if err != nil {
		return nil, fmt.Errorf("select cart items: %w", err)
	}
	defer rows.Close()

	var items []model.CartItem
	for rows.Next() {
		it, err := scanCartItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, *it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// GetCartItem возвращает позицию вместе с корзиной-владельцем; владелец нужен для проверки прав.
func (r *PostgresRepository) GetCartItem(ctx context.Context, itemID string) (*model.CartItem, *model.Cart, error) {
	var (
		it     model.CartItem
		c      model.Cart
		status string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT ci.id::text, ci.cart_id::text, ci.product_id::text, ci.quantity, ci.price_at_add_centavos, ci.created_at,
		        c.id::text, c.user_id::text, c.status, c.created_at, c.updated_at
		 FROM cart_items ci
		 JOIN carts c ON c.id = ci.cart_id
		 WHERE ci.id = $1`,
		itemID,
	).Scan(
		&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.PriceAtAddCents, &it.CreatedAt,
		&c.ID, &c.UserID, &status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("get cart item: %w", notFound(err))
	}
	c.Status = model.CartStatus(status)
	return &it, &c, nil
}

// FindCartItemByProduct ищет позицию товара в корзине.
func (r *PostgresRepository) FindCartItemByProduct(ctx context.Context, cartID, productID string) (*model.CartItem, error) {
	it, err := scanCartItem(r.pool.QueryRow(ctx,
		`SELECT `+cartItemColumns+` FROM cart_items WHERE cart_id = $1 AND product_id = $2`,
		cartID, productID,
	))
	if err != nil {
		return nil, fmt.Errorf("find cart item: %w", notFound(err))
	}
	return it, nil
}

// InsertCartItem добавляет новую позицию в корзину.
func (r *PostgresRepository) InsertCartItem(ctx context.Context, item model.CartItem) (*model.CartItem, error) {
	it, err := scanCartItem(r.pool.QueryRow(ctx,
		`INSERT INTO cart_items (cart_id, product_id, quantity, price_at_add_centavos)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+cartItemColumns,
		item.CartID, item.ProductID, item.Quantity, item.PriceAtAddCents,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: product %s in cart %s", ErrAlreadyExists, item.ProductID, item.CartID)
		}
		return nil, fmt.Errorf("insert cart item: %w", err)
	}
	return it, nil
}

// UpdateCartItemQuantity задаёт новое количество позиции.
func (r *PostgresRepository) UpdateCartItemQuantity(ctx context.Context, itemID string, quantity int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE cart_items SET quantity = $2 WHERE id = $1`,
		itemID, quantity,
	)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCartItem удаляет позицию корзины.
func (r *PostgresRepository) DeleteCartItem(ctx context.Context, itemID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearCartItems удаляет все позиции корзины.
func (r *PostgresRepository) ClearCartItems(ctx context.Context, cartID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("clear cart items: %w", err)
	}
	return nil
}
