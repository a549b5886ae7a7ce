package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/marketplace-management/internal/model"
)

const productColumns = `id::text, nome, preco_centavos, imagem_url, categoria, estoque,
	COALESCE(loja_id::text, ''), avaliacao::float8, ativo, created_at`

func scanProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.PriceCents, &p.ImageURL, &p.Category, &p.Stock,
		&p.StoreID, &p.Rating, &p.Active, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProduct возвращает товар по идентификатору.
func (r *PostgresRepository) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM produtos WHERE id = $1`,
		productID,
	))
	if err != nil {
		return nil, fmt.Errorf("get product: %w", notFound(err))
	}
	return p, nil
}

// GetProducts возвращает товары по списку идентификаторов. Отсутствующие просто не попадают в результат.
func (r *PostgresRepository) GetProducts(ctx context.Context, productIDs []string) (map[string]model.Product, error) {
	res := make(map[string]model.Product, len(productIDs))
	if len(productIDs) == 0 {
		return res, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM produtos WHERE id = ANY($1::uuid[])`,
		productIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		res[p.ID] = *p
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

func (r *PostgresRepository) listProducts(ctx context.Context, query string, limit int) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var res []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		res = append(res, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ListRecentProducts возвращает последние добавленные активные товары.
func (r *PostgresRepository) ListRecentProducts(ctx context.Context, limit int) ([]model.Product, error) {
	return r.listProducts(ctx,
		`SELECT `+productColumns+` FROM produtos WHERE ativo ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
}

// ListPopularProducts возвращает активные товары с наибольшим рейтингом.
func (r *PostgresRepository) ListPopularProducts(ctx context.Context, limit int) ([]model.Product, error) {
	return r.listProducts(ctx,
		`SELECT `+productColumns+` FROM produtos WHERE ativo ORDER BY avaliacao DESC, created_at DESC LIMIT $1`,
		limit,
	)
}

// ReserveStock списывает остаток товара, только если его хватает.
func (r *PostgresRepository) ReserveStock(ctx context.Context, productID string, quantity int) error {
	return r.withRetry(ctx, func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE produtos SET estoque = estoque - $2 WHERE id = $1 AND estoque >= $2`,
			productID, quantity,
		)
		if err != nil {
			return fmt.Errorf("reserve stock: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: product %s", ErrInsufficientStock, productID)
		}
		return nil
	})
}

// ReleaseStock возвращает ранее списанный остаток.
func (r *PostgresRepository) ReleaseStock(ctx context.Context, productID string, quantity int) error {
	return r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`UPDATE produtos SET estoque = estoque + $2 WHERE id = $1`,
			productID, quantity,
		)
		if err != nil {
			return fmt.Errorf("release stock: %w", err)
		}
		return nil
	})
}

// GetStore возвращает магазин по идентификатору.
func (r *PostgresRepository) GetStore(ctx context.Context, storeID string) (*model.Store, error) {
	var s model.Store
	err := r.pool.QueryRow(ctx,
		`SELECT id::text, nome, logo_url, COALESCE(owner_id::text, '') FROM lojas WHERE id = $1`,
		storeID,
	).Scan(&s.ID, &s.Name, &s.LogoURL, &s.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("get store: %w", notFound(err))
	}
	return &s, nil
}

// GetStores возвращает магазины по списку идентификаторов.
func (r *PostgresRepository) GetStores(ctx context.Context, storeIDs []string) ([]model.Store, error) {
	if len(storeIDs) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id::text, nome, logo_url, COALESCE(owner_id::text, '') FROM lojas WHERE id = ANY($1::uuid[]) ORDER BY nome`,
		storeIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("select stores: %w", err)
	}
	defer rows.Close()

	var res []model.Store
	for rows.Next() {
		var s model.Store
		if err := rows.Scan(&s.ID, &s.Name, &s.LogoURL, &s.OwnerID); err != nil {
			return nil, fmt.Errorf("scan store: %w", err)
		}
		res = append(res, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetAddress возвращает адрес по идентификатору.
func (r *PostgresRepository) GetAddress(ctx context.Context, addressID string) (*model.Address, error) {
	var a model.Address
	err := r.pool.QueryRow(ctx,
		`SELECT id::text, user_id::text, rua, numero, complemento, bairro, cidade, estado, cep
		 FROM enderecos WHERE id = $1`,
		addressID,
	).Scan(&a.ID, &a.UserID, &a.Street, &a.Number, &a.Complement, &a.Neighborhood, &a.City, &a.State, &a.PostalCode)
	if err != nil {
		return nil, fmt.Errorf("get address: %w", notFound(err))
	}
	return &a, nil
}

// AddFavorite добавляет товар в избранное. Возвращает false, если он уже там был.
func (r *PostgresRepository) AddFavorite(ctx context.Context, userID, productID string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO favoritos (user_id, produto_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, productID,
	)
	if err != nil {
		return false, fmt.Errorf("insert favorite: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RemoveFavorite удаляет товар из избранного.
func (r *PostgresRepository) RemoveFavorite(ctx context.Context, userID, productID string) error {
	if _, err := r.pool.Exec(ctx,
		`DELETE FROM favoritos WHERE user_id = $1 AND produto_id = $2`,
		userID, productID,
	); err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	return nil
}
