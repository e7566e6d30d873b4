package repo

import (
	"context"
	"time"

	"github.com/rogerio-castellano/shopnesty/internal/models"
)

// TransactionFilter narrows a transaction listing. Zero values match everything.
type TransactionFilter struct {
	ShopperID string
	Since     *time.Time
	Until     *time.Time
}

func (f TransactionFilter) matches(t models.Transaction) bool {
	if f.ShopperID != "" && t.ShopperID != f.ShopperID {
		return false
	}
	if f.Since != nil && t.Date.Before(*f.Since) {
		return false
	}
	if f.Until != nil && t.Date.After(*f.Until) {
		return false
	}
	return true
}

// TransactionRepository lists transactions newest first and records payments.
type TransactionRepository interface {
	GetByID(ctx context.Context, id string) (models.Transaction, error)
	List(ctx context.Context, f TransactionFilter) ([]models.Transaction, error)
	UpdatePayment(ctx context.Context, id string, p models.Payment) (models.Transaction, error)
}
