package repo

import (
	"context"

	"github.com/rogerio-castellano/shopnesty/internal/models"
)

// ProductRepository defines the interface for product data operations.
// Update never touches Quantity; stock only moves through a TxStore.
type ProductRepository interface {
	Create(ctx context.Context, product models.Product) (models.Product, error)
	GetAll(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (models.Product, error)
	GetByName(ctx context.Context, name string) (models.Product, error)
	Update(ctx context.Context, product models.Product) (models.Product, error)
	Delete(ctx context.Context, id string) error
	Filter(ctx context.Context, pf ProductFilter) ([]models.Product, int, error)
}
