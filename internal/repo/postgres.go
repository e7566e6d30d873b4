package repo

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rogerio-castellano/shopnesty/internal/models"
)

const queryTimeout = 3 * time.Second

const productColumns = `id, name, description, category, price, quantity, threshold, image_url, created_at, updated_at`

const transactionColumns = `id, receipt_number, shopper_id, customer_name, date, due_date, items, subtotal, tax, total, payment_status, payment_method, amount_paid, change_due, notes`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Price, &p.Quantity, &p.Threshold, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Product{}, ErrProductNotFound
	}
	return p, mapPgError(err)
}

func scanTransaction(row rowScanner) (models.Transaction, error) {
	var (
		t     models.Transaction
		items []byte
	)
	err := row.Scan(&t.ID, &t.ReceiptNumber, &t.ShopperID, &t.CustomerName, &t.Date, &t.DueDate, &items,
		&t.Subtotal, &t.Tax, &t.Total, &t.PaymentStatus, &t.PaymentMethod, &t.AmountPaid, &t.Change, &t.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, ErrTransactionNotFound
	}
	if err != nil {
		return models.Transaction{}, mapPgError(err)
	}
	if err := json.Unmarshal(items, &t.Items); err != nil {
		return models.Transaction{}, fmt.Errorf("decode items of transaction %s: %w", t.ID, err)
	}
	return t, nil
}

// mapPgError translates the SQLSTATEs the repositories care about into
// repository errors. Anything else is returned unchanged.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "40001", "40P01":
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.Message)
	case "23514":
		return ErrInvalidQuantityChange
	case "23505":
		return ErrDuplicatedValueUnique
	}
	return err
}
