package repo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rogerio-castellano/shopnesty/internal/models"
)

type memState struct {
	products     map[string]models.Product
	productOrder []string
	carts        map[string]models.Cart
	transactions []models.Transaction
	movements    []models.Movement
	users        map[string]models.User
}

func newMemState() *memState {
	return &memState{
		products: map[string]models.Product{},
		carts:    map[string]models.Cart{},
		users:    map[string]models.User{},
	}
}

func (s *memState) clone() *memState {
	out := &memState{
		products:     make(map[string]models.Product, len(s.products)),
		productOrder: append([]string(nil), s.productOrder...),
		carts:        make(map[string]models.Cart, len(s.carts)),
		transactions: append([]models.Transaction(nil), s.transactions...),
		movements:    append([]models.Movement(nil), s.movements...),
		users:        make(map[string]models.User, len(s.users)),
	}
	for k, v := range s.products {
		out.products[k] = v
	}
	for k, v := range s.carts {
		out.carts[k] = v.Clone()
	}
	for k, v := range s.users {
		out.users[k] = v
	}
	return out
}

func (s *memState) orderedProducts() []models.Product {
	out := make([]models.Product, 0, len(s.productOrder))
	for _, id := range s.productOrder {
		out = append(out, s.products[id])
	}
	return out
}

// InMemoryDB is the shared state behind every in-memory repository. A single
// mutex serialises units of work; each one runs against a private copy that
// replaces the live state only when it succeeds.
type InMemoryDB struct {
	mu    sync.RWMutex
	state *memState
	now   func() time.Time
}

func NewInMemoryDB() *InMemoryDB {
	return &InMemoryDB{
		state: newMemState(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithinTx implements TxStore.
func (db *InMemoryDB) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	staged := db.state.clone()
	if err := fn(ctx, &memTx{state: staged, now: db.now}); err != nil {
		return err
	}
	db.state = staged
	return nil
}

// WithinReadTx implements ReadTxStore. Readers share the lock and anything
// fn writes is discarded.
func (db *InMemoryDB) WithinReadTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	return fn(ctx, &memTx{state: db.state.clone(), now: db.now})
}

type memTx struct {
	state *memState
	now   func() time.Time
}

func (t *memTx) GetProduct(_ context.Context, id string) (models.Product, error) {
	p, ok := t.state.products[id]
	if !ok {
		return models.Product{}, ErrProductNotFound
	}
	return p, nil
}

func (t *memTx) SetProductQuantity(_ context.Context, id string, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantityChange
	}
	p, ok := t.state.products[id]
	if !ok {
		return ErrProductNotFound
	}
	p.Quantity = quantity
	p.UpdatedAt = t.now()
	t.state.products[id] = p
	return nil
}

func (t *memTx) GetCart(_ context.Context, shopperID string) (models.Cart, error) {
	c, ok := t.state.carts[shopperID]
	if !ok {
		return models.Cart{ShopperID: shopperID}, nil
	}
	return c.Clone(), nil
}

func (t *memTx) PutLine(_ context.Context, shopperID string, line models.CartLine) error {
	if line.Quantity < 1 {
		return ErrInvalidQuantityChange
	}
	c := t.state.carts[shopperID]
	c.ShopperID = shopperID
	c.Put(line)
	c.UpdatedAt = t.now()
	t.state.carts[shopperID] = c
	return nil
}

func (t *memTx) RemoveLine(_ context.Context, shopperID, productID string) error {
	c, ok := t.state.carts[shopperID]
	if !ok {
		return nil
	}
	if c.Remove(productID) {
		c.UpdatedAt = t.now()
		t.state.carts[shopperID] = c
	}
	return nil
}

func (t *memTx) CreateTransaction(_ context.Context, txn models.Transaction) error {
	t.state.transactions = append(t.state.transactions, txn)
	return nil
}

func (t *memTx) LogMovement(_ context.Context, m models.Movement) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = t.now()
	}
	t.state.movements = append(t.state.movements, m)
	return nil
}

func (t *memTx) GetUser(_ context.Context, id string) (models.User, error) {
	u, ok := t.state.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return u, nil
}
