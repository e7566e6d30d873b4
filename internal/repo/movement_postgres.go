package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rogerio-castellano/shopnesty/internal/models"
)

type PostgresMovementRepository struct {
	db *sql.DB
}

func NewPostgresMovementRepository(db *sql.DB) *PostgresMovementRepository {
	return &PostgresMovementRepository{db: db}
}

// Log inserts a new inventory movement outside of any unit of work.
func (r *PostgresMovementRepository) Log(ctx context.Context, m models.Movement) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return insertMovement(ctx, r.db, m)
}

// GetByProductID returns all movements for a specific product
func (r *PostgresMovementRepository) GetByProductID(ctx context.Context, productID string, mf MovementFilter) ([]models.Movement, int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	whereClause, args := r.buildWhereClause(productID, mf)

	// limit = 0 means return count only
	if mf.Limit != nil && *mf.Limit == 0 {
		total, err := r.getTotal(ctx, whereClause, args)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to get total count: %w", err)
		}
		return []models.Movement{}, total, nil
	}

	if mf.Offset != nil && *mf.Offset < 0 {
		return nil, 0, fmt.Errorf("offset must be non-negative")
	}

	total, err := r.getTotal(ctx, whereClause, args)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get total count: %w", err)
	}

	if mf.Offset != nil && *mf.Offset >= total {
		return []models.Movement{}, total, nil
	}

	query, queryArgs := r.buildMainQuery(whereClause, args, mf)
	movements, err := r.executeQuery(ctx, query, queryArgs)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to execute query: %w", err)
	}

	return movements, total, nil
}

func (r *PostgresMovementRepository) All(ctx context.Context) ([]models.Movement, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return r.executeQuery(ctx, "SELECT id, product_id, delta, reason, shopper_id, created_at FROM movements ORDER BY created_at", nil)
}

// buildWhereClause constructs the WHERE clause and returns arguments
func (r *PostgresMovementRepository) buildWhereClause(productID string, mf MovementFilter) (string, []any) {
	args := []any{productID}
	whereClause := "WHERE product_id = $1"
	argIndex := 2

	if mf.Since != nil {
		whereClause += fmt.Sprintf(" AND created_at >= $%d", argIndex)
		args = append(args, *mf.Since)
		argIndex++
	}

	if mf.Until != nil {
		whereClause += fmt.Sprintf(" AND created_at <= $%d", argIndex)
		args = append(args, *mf.Until)
		argIndex++
	}

	if mf.Reason != "" {
		whereClause += fmt.Sprintf(" AND reason = $%d", argIndex)
		args = append(args, string(mf.Reason))
	}

	return whereClause, args
}

// buildMainQuery constructs the main SELECT query with pagination
func (r *PostgresMovementRepository) buildMainQuery(whereClause string, baseArgs []any, mf MovementFilter) (string, []any) {
	query := fmt.Sprintf("SELECT id, product_id, delta, reason, shopper_id, created_at FROM movements %s ORDER BY created_at DESC", whereClause)
	args := make([]any, len(baseArgs))
	copy(args, baseArgs)
	argIndex := len(baseArgs) + 1

	limit := defaultLimit
	if mf.Limit != nil && *mf.Limit > 0 {
		limit = min(*mf.Limit, defaultLimit)
	}
	query += fmt.Sprintf(" LIMIT $%d", argIndex)
	args = append(args, limit)
	argIndex++

	if mf.Offset != nil && *mf.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, *mf.Offset)
	}

	return query, args
}

func (r *PostgresMovementRepository) getTotal(ctx context.Context, whereClause string, args []any) (int, error) {
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM movements %s", whereClause)

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// executeQuery executes the main query and scans results
func (r *PostgresMovementRepository) executeQuery(ctx context.Context, query string, args []any) ([]models.Movement, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movements := []models.Movement{}
	for rows.Next() {
		var m models.Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Delta, &m.Reason, &m.ShopperID, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return movements, nil
}
