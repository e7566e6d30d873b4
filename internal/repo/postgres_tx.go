package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rogerio-castellano/shopnesty/internal/models"
)

// PostgresTxStore runs units of work in a database transaction. Cart and
// product rows are locked with SELECT ... FOR UPDATE, always cart first, so
// two units of work touching the same rows serialise instead of losing updates.
// Read-only units of work skip the locks.
type PostgresTxStore struct {
	db *sql.DB
}

func NewPostgresTxStore(db *sql.DB) *PostgresTxStore {
	return &PostgresTxStore{db: db}
}

// WithinTx implements TxStore.
func (s *PostgresTxStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", mapPgError(err))
	}
	if err := fn(ctx, &pgTx{tx: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return mapPgError(err)
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", mapPgError(err))
	}
	return nil
}

// WithinReadTx implements ReadTxStore. The transaction is read-only and
// takes no row locks, so cart views never wait behind a checkout.
func (s *PostgresTxStore) WithinReadTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin: %w", mapPgError(err))
	}
	defer func() { _ = sqlTx.Rollback() }()
	return mapPgError(fn(ctx, &pgTx{tx: sqlTx, readOnly: true}))
}

type pgTx struct {
	tx       *sql.Tx
	readOnly bool
}

func (t *pgTx) forUpdate() string {
	if t.readOnly {
		return ""
	}
	return " FOR UPDATE"
}

func (t *pgTx) GetProduct(ctx context.Context, id string) (models.Product, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`+t.forUpdate(), id)
	return scanProduct(row)
}

func (t *pgTx) SetProductQuantity(ctx context.Context, id string, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantityChange
	}
	res, err := t.tx.ExecContext(ctx, `UPDATE products SET quantity = $1, updated_at = $2 WHERE id = $3`, quantity, time.Now().UTC(), id)
	if err != nil {
		return mapPgError(err)
	}
	rowsAffected, _ := res.RowsAffected()
	if rowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (t *pgTx) GetCart(ctx context.Context, shopperID string) (models.Cart, error) {
	if !t.readOnly {
		now := time.Now().UTC()
		if _, err := t.tx.ExecContext(ctx, `INSERT INTO carts (shopper_id, updated_at) VALUES ($1, $2) ON CONFLICT (shopper_id) DO NOTHING`, shopperID, now); err != nil {
			return models.Cart{}, mapPgError(err)
		}
	}

	cart := models.Cart{ShopperID: shopperID}
	err := t.tx.QueryRowContext(ctx, `SELECT updated_at FROM carts WHERE shopper_id = $1`+t.forUpdate(), shopperID).Scan(&cart.UpdatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows) && t.readOnly:
		return cart, nil
	case err != nil:
		return models.Cart{}, mapPgError(err)
	}

	rows, err := t.tx.QueryContext(ctx, `SELECT product_id, quantity, selected FROM cart_lines WHERE shopper_id = $1 ORDER BY added_at, product_id`, shopperID)
	if err != nil {
		return models.Cart{}, mapPgError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var l models.CartLine
		if err := rows.Scan(&l.ProductID, &l.Quantity, &l.Selected); err != nil {
			return models.Cart{}, err
		}
		cart.Lines = append(cart.Lines, l)
	}
	return cart, rows.Err()
}

func (t *pgTx) touchCart(ctx context.Context, shopperID string) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE carts SET updated_at = $1 WHERE shopper_id = $2`, time.Now().UTC(), shopperID)
	return mapPgError(err)
}

func (t *pgTx) PutLine(ctx context.Context, shopperID string, line models.CartLine) error {
	if line.Quantity < 1 {
		return ErrInvalidQuantityChange
	}
	query := `
		INSERT INTO cart_lines (shopper_id, product_id, quantity, selected, added_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (shopper_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, selected = EXCLUDED.selected
	`
	if _, err := t.tx.ExecContext(ctx, query, shopperID, line.ProductID, line.Quantity, line.Selected, time.Now().UTC()); err != nil {
		return mapPgError(err)
	}
	return t.touchCart(ctx, shopperID)
}

func (t *pgTx) RemoveLine(ctx context.Context, shopperID, productID string) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE shopper_id = $1 AND product_id = $2`, shopperID, productID); err != nil {
		return mapPgError(err)
	}
	return t.touchCart(ctx, shopperID)
}

func (t *pgTx) CreateTransaction(ctx context.Context, txn models.Transaction) error {
	items, err := json.Marshal(txn.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	query := `INSERT INTO transactions (` + transactionColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err = t.tx.ExecContext(ctx, query, txn.ID, txn.ReceiptNumber, txn.ShopperID, txn.CustomerName, txn.Date, txn.DueDate, string(items),
		txn.Subtotal, txn.Tax, txn.Total, txn.PaymentStatus, txn.PaymentMethod, txn.AmountPaid, txn.Change, txn.Notes)
	return mapPgError(err)
}

func (t *pgTx) LogMovement(ctx context.Context, m models.Movement) error {
	return insertMovement(ctx, t.tx, m)
}

func (t *pgTx) GetUser(ctx context.Context, id string) (models.User, error) {
	return scanUser(t.tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertMovement(ctx context.Context, db execer, m models.Movement) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO movements (id, product_id, delta, reason, shopper_id, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := db.ExecContext(ctx, query, m.ID, m.ProductID, m.Delta, m.Reason, m.ShopperID, m.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert movement: %w", mapPgError(err))
	}
	return nil
}
