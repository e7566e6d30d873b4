package repo

import (
	"context"
	"sort"

	"github.com/rogerio-castellano/shopnesty/internal/models"
)

type InMemoryTransactionRepository struct {
	db *InMemoryDB
}

func NewInMemoryTransactionRepository(db *InMemoryDB) *InMemoryTransactionRepository {
	return &InMemoryTransactionRepository{db: db}
}

// Add stores t directly, bypassing checkout.
func (r *InMemoryTransactionRepository) Add(t models.Transaction) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.state.transactions = append(r.db.state.transactions, t)
}

func (r *InMemoryTransactionRepository) GetByID(_ context.Context, id string) (models.Transaction, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, t := range r.db.state.transactions {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Transaction{}, ErrTransactionNotFound
}

func (r *InMemoryTransactionRepository) List(_ context.Context, f TransactionFilter) ([]models.Transaction, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := []models.Transaction{}
	for _, t := range r.db.state.transactions {
		if f.matches(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (r *InMemoryTransactionRepository) UpdatePayment(_ context.Context, id string, p models.Payment) (models.Transaction, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i, t := range r.db.state.transactions {
		if t.ID == id {
			t.ApplyPayment(p)
			r.db.state.transactions[i] = t
			return t, nil
		}
	}
	return models.Transaction{}, ErrTransactionNotFound
}
