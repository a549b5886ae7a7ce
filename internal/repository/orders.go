package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/marketplace-management/internal/model"
)

const orderColumns = `id::text, cliente_id::text, COALESCE(cart_id::text, ''), endereco_entrega, forma_pagamento,
	status, valor_total_centavos, pontos_ganhos, created_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(&o.ID, &o.CustomerID, &o.CartID, &o.DeliveryAddress, &o.PaymentMethod,
		&o.Status, &o.TotalCents, &o.PointsEarned, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrder сохраняет заказ и возвращает его с присвоенным идентификатором.
func (r *PostgresRepository) CreateOrder(ctx context.Context, order model.Order) (*model.Order, error) {
	var cartID *string
	if order.CartID != "" {
		cartID = &order.CartID
	}

	o, err := scanOrder(r.pool.QueryRow(ctx,
		`INSERT INTO pedidos (cliente_id, cart_id, endereco_entrega, forma_pagamento, status, valor_total_centavos, pontos_ganhos)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+orderColumns,
		order.CustomerID, cartID, order.DeliveryAddress, order.PaymentMethod,
		order.Status, order.TotalCents, order.PointsEarned,
	))
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	return o, nil
}

// DeleteOrder удаляет заказ; используется только как компенсация неудачного оформления.
func (r *PostgresRepository) DeleteOrder(ctx context.Context, orderID string) error {
	return r.withIdempotentRetry(ctx, func() error {
		if _, err := r.pool.Exec(ctx, `DELETE FROM pedidos WHERE id = $1`, orderID); err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		return nil
	})
}

// InsertOrderItems сохраняет все позиции заказа в одной транзакции.
func (r *PostgresRepository) InsertOrderItems(ctx context.Context, items []model.OrderItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(
			`INSERT INTO itens_pedido (pedido_id, produto_id, quantidade, preco_unitario_centavos, subtotal_centavos)
			 VALUES ($1, $2, $3, $4, $5)`,
			it.OrderID, it.ProductID, it.Quantity, it.UnitPriceCents, it.SubtotalCents,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// DeleteOrderItems удаляет позиции заказа.
func (r *PostgresRepository) DeleteOrderItems(ctx context.Context, orderID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM itens_pedido WHERE pedido_id = $1`, orderID); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}
	return nil
}

// GetOrderItems возвращает позиции заказа.
func (r *PostgresRepository) GetOrderItems(ctx context.Context, orderID string) ([]model.OrderItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT pedido_id::text, produto_id::text, quantidade, preco_unitario_centavos, subtotal_centavos
		 FROM itens_pedido WHERE pedido_id = $1`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	var res []model.OrderItem
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPriceCents, &it.SubtotalCents); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		res = append(res, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

func (r *PostgresRepository) listOrders(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var res []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		res = append(res, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ListOrdersWithoutPoints возвращает заказы старше before, по которым нет записи в журнале баллов.
func (r *PostgresRepository) ListOrdersWithoutPoints(ctx context.Context, before time.Time, limit int) ([]model.Order, error) {
	return r.listOrders(ctx,
		`SELECT `+orderColumns+`
		 FROM pedidos p
		 WHERE p.created_at < $1
		   AND p.pontos_ganhos > 0
		   AND NOT EXISTS (
		       SELECT 1 FROM points_transactions pt
		       WHERE pt.referencia_id = p.id AND pt.tipo = $2
		   )
		 ORDER BY p.created_at
		 LIMIT $3`,
		before, model.PointsTypeEarned, limit,
	)
}

// ListOrdersWithActiveCart возвращает заказы старше before, чья исходная корзина осталась активной.
func (r *PostgresRepository) ListOrdersWithActiveCart(ctx context.Context, before time.Time, limit int) ([]model.Order, error) {
	return r.listOrders(ctx,
		`SELECT `+orderColumns+`
		 FROM pedidos p
		 JOIN carts c ON c.id = p.cart_id
		 WHERE p.created_at < $1 AND c.status = $2
		 ORDER BY p.created_at
		 LIMIT $3`,
		before, string(model.CartStatusActive), limit,
	)
}
