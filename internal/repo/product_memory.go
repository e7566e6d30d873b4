package repo

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/rogerio-castellano/shopnesty/internal/models"
)

// InMemoryProductRepository is an in-memory implementation of ProductRepository.
type InMemoryProductRepository struct {
	db *InMemoryDB
}

// NewInMemoryProductRepository creates a product repository over db.
func NewInMemoryProductRepository(db *InMemoryDB) *InMemoryProductRepository {
	return &InMemoryProductRepository{db: db}
}

func (r *InMemoryProductRepository) nameTaken(name, exceptID string) bool {
	for id, p := range r.db.state.products {
		if id != exceptID && p.Name == name {
			return true
		}
	}
	return false
}

// Create adds a new product to the repository.
func (r *InMemoryProductRepository) Create(_ context.Context, product models.Product) (models.Product, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if product.Quantity < 0 {
		return models.Product{}, ErrInvalidQuantityChange
	}
	if r.nameTaken(product.Name, "") {
		return models.Product{}, ErrDuplicatedValueUnique
	}
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	now := r.db.now()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	r.db.state.products[product.ID] = product
	r.db.state.productOrder = append(r.db.state.productOrder, product.ID)
	return product, nil
}

// GetAll retrieves all products from the repository.
func (r *InMemoryProductRepository) GetAll(_ context.Context) ([]models.Product, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return r.db.state.orderedProducts(), nil
}

// GetByID retrieves a product by its ID.
func (r *InMemoryProductRepository) GetByID(_ context.Context, id string) (models.Product, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	p, ok := r.db.state.products[id]
	if !ok {
		return models.Product{}, ErrProductNotFound
	}
	return p, nil
}

func (r *InMemoryProductRepository) GetByName(_ context.Context, name string) (models.Product, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, p := range r.db.state.orderedProducts() {
		if p.Name == name {
			return p, nil
		}
	}
	return models.Product{}, ErrProductNotFound
}

// Update modifies the descriptive fields of an existing product.
func (r *InMemoryProductRepository) Update(_ context.Context, product models.Product) (models.Product, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	cur, ok := r.db.state.products[product.ID]
	if !ok {
		return models.Product{}, ErrProductNotFound
	}
	if r.nameTaken(product.Name, product.ID) {
		return models.Product{}, ErrDuplicatedValueUnique
	}
	product.Quantity = cur.Quantity
	product.CreatedAt = cur.CreatedAt
	product.UpdatedAt = r.db.now()
	r.db.state.products[product.ID] = product
	return product, nil
}

// Delete removes a product from the repository by its ID.
func (r *InMemoryProductRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.state.products[id]; !ok {
		return ErrProductNotFound
	}
	delete(r.db.state.products, id)
	r.db.state.productOrder = slices.DeleteFunc(r.db.state.productOrder, func(v string) bool { return v == id })
	return nil
}

func (r *InMemoryProductRepository) Filter(_ context.Context, pf ProductFilter) ([]models.Product, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	page, total := filterProducts(r.db.state.orderedProducts(), pf)
	return page, total, nil
}

func (r *InMemoryProductRepository) Clear() {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.state.products = map[string]models.Product{}
	r.db.state.productOrder = nil
}
