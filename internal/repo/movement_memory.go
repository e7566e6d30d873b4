package repo

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/rogerio-castellano/shopnesty/internal/models"
)

type InMemoryMovementRepository struct {
	db *InMemoryDB
}

func NewInMemoryMovementRepository(db *InMemoryDB) *InMemoryMovementRepository {
	return &InMemoryMovementRepository{db: db}
}

// AddMovement stores m as-is; used to seed fixtures with fixed timestamps.
func (r *InMemoryMovementRepository) AddMovement(m models.Movement) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	r.db.state.movements = append(r.db.state.movements, m)
}

// Log inserts a new inventory movement
func (r *InMemoryMovementRepository) Log(_ context.Context, m models.Movement) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = r.db.now()
	}
	r.db.state.movements = append(r.db.state.movements, m)
	return nil
}

// GetByProductID returns the movements of a product newest first, optionally
// filtered by date range and paginated.
func (r *InMemoryMovementRepository) GetByProductID(_ context.Context, productID string, mf MovementFilter) ([]models.Movement, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	filtered := []models.Movement{}
	for i := len(r.db.state.movements) - 1; i >= 0; i-- {
		m := r.db.state.movements[i]
		if m.ProductID != productID {
			continue
		}
		if !mf.matches(m) {
			continue
		}
		filtered = append(filtered, m)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	if mf.Limit != nil && *mf.Limit == 0 {
		return []models.Movement{}, len(filtered), nil
	}
	limit := mf.Limit
	if limit == nil || *limit > defaultLimit {
		l := defaultLimit
		limit = &l
	}
	start, end := pageBounds(len(filtered), mf.Offset, limit)
	return filtered[start:end], len(filtered), nil
}

func (r *InMemoryMovementRepository) All(_ context.Context) ([]models.Movement, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return append([]models.Movement(nil), r.db.state.movements...), nil
}
