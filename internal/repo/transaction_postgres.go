package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rogerio-castellano/shopnesty/internal/models"
)

type PostgresTransactionRepository struct {
	db *sql.DB
}

func NewPostgresTransactionRepository(db *sql.DB) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db}
}

func (r *PostgresTransactionRepository) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanTransaction(r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
}

func (r *PostgresTransactionRepository) List(ctx context.Context, f TransactionFilter) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE 1=1`
	args := []any{}
	argIdx := 1
	if f.ShopperID != "" {
		query += fmt.Sprintf(" AND shopper_id = $%d", argIdx)
		args = append(args, f.ShopperID)
		argIdx++
	}
	if f.Since != nil {
		query += fmt.Sprintf(" AND date >= $%d", argIdx)
		args = append(args, *f.Since)
		argIdx++
	}
	if f.Until != nil {
		query += fmt.Sprintf(" AND date <= $%d", argIdx)
		args = append(args, *f.Until)
	}
	query += " ORDER BY date DESC"

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdatePayment locks the transaction row, applies p and writes the payment
// columns back.
func (r *PostgresTransactionRepository) UpdatePayment(ctx context.Context, id string, p models.Payment) (models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Transaction{}, err
	}
	defer tx.Rollback()

	t, err := scanTransaction(tx.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return models.Transaction{}, err
	}
	t.ApplyPayment(p)

	query := `UPDATE transactions SET payment_status = $1, amount_paid = $2, payment_method = $3, change_due = $4 WHERE id = $5`
	if _, err := tx.ExecContext(ctx, query, t.PaymentStatus, t.AmountPaid, t.PaymentMethod, t.Change, t.ID); err != nil {
		return models.Transaction{}, mapPgError(err)
	}
	if err := tx.Commit(); err != nil {
		return models.Transaction{}, mapPgError(err)
	}
	return t, nil
}
