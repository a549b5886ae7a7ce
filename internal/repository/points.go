package repository

import (
	"context"
	"fmt"

	"github.com/mmeshcher/marketplace-management/internal/model"
)

// InsertPointsTransaction добавляет запись в журнал баллов. Возвращает false,
// если запись с той же ссылкой и типом уже существует.
func (r *PostgresRepository) InsertPointsTransaction(ctx context.Context, t model.PointsTransaction) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO points_transactions (user_id, pontos, tipo, descricao, referencia_id)
		 VALUES ($1, $2, $3, $4, NULLIF($5, '')::uuid)
		 ON CONFLICT DO NOTHING`,
		t.UserID, t.Points, t.Type, t.Description, t.ReferenceID,
	)
	if err != nil {
		return false, fmt.Errorf("insert points transaction: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// AddUserPoints вызывает процедуру обновления баланса баллов и возвращает новый баланс.
func (r *PostgresRepository) AddUserPoints(ctx context.Context, userID string, points int64) (int64, error) {
	var balance int64
	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT atualizar_pontos_usuario($1, $2)`,
			userID, points,
		).Scan(&balance)
	})
	if err != nil {
		return 0, fmt.Errorf("update points balance: %w", err)
	}
	return balance, nil
}

// CreditOrderPoints атомарно записывает начисление в журнал и обновляет баланс.
// Повторный вызов для того же заказа ничего не меняет, поэтому транзакцию можно повторять
// и после обрыва соединения.
func (r *PostgresRepository) CreditOrderPoints(ctx context.Context, t model.PointsTransaction) (bool, error) {
	credited := false
	err := r.withIdempotentRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		tag, err := tx.Exec(ctx,
			`INSERT INTO points_transactions (user_id, pontos, tipo, descricao, referencia_id)
			 VALUES ($1, $2, $3, $4, NULLIF($5, '')::uuid)
			 ON CONFLICT DO NOTHING`,
			t.UserID, t.Points, t.Type, t.Description, t.ReferenceID,
		)
		if err != nil {
			return fmt.Errorf("insert points transaction: %w", err)
		}

		if tag.RowsAffected() == 0 {
			credited = false
			return tx.Commit(ctx)
		}

		if _, err := tx.Exec(ctx, `SELECT atualizar_pontos_usuario($1, $2)`, t.UserID, t.Points); err != nil {
			return fmt.Errorf("update points balance: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		credited = true
		return nil
	})
	return credited, err
}
