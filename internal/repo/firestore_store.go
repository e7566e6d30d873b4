package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/rogerio-castellano/shopnesty/internal/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore runs units of work as Firestore transactions. Firestore
// rejects reads issued after a write, so fsTx caches what it reads and
// buffers every write until fn returns.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

// WithinTx implements TxStore. Firestore's own retry is disabled; aborted
// transactions surface as ErrConflict so the caller decides.
func (s *FirestoreStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if s == nil || s.client == nil {
		return errors.New("firestore client is nil")
	}
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ftx := &fsTx{
			client:   s.client,
			tx:       tx,
			products: map[string]models.Product{},
			carts:    map[string]models.Cart{},
			dirtyP:   map[string]bool{},
			dirtyC:   map[string]bool{},
		}
		if err := fn(ctx, ftx); err != nil {
			return err
		}
		return ftx.flush()
	}, firestore.MaxAttempts(1))
	return mapFSError(err)
}

func mapFSError(err error) error {
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.Aborted {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

type fsCreate struct {
	ref  *firestore.DocumentRef
	data any
}

type fsTx struct {
	client *firestore.Client
	tx     *firestore.Transaction

	products map[string]models.Product
	carts    map[string]models.Cart
	dirtyP   map[string]bool
	dirtyC   map[string]bool
	creates  []fsCreate
}

func (t *fsTx) GetProduct(_ context.Context, id string) (models.Product, error) {
	if p, ok := t.products[id]; ok {
		return p, nil
	}
	snap, err := t.tx.Get(t.client.Collection(colInventory).Doc(id))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return models.Product{}, ErrProductNotFound
		}
		return models.Product{}, err
	}
	var d fsProduct
	if err := snap.DataTo(&d); err != nil {
		return models.Product{}, fmt.Errorf("decode inventory/%s: %w", id, err)
	}
	p := d.model(snap.Ref.ID)
	t.products[id] = p
	return p, nil
}

func (t *fsTx) SetProductQuantity(ctx context.Context, id string, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantityChange
	}
	p, err := t.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	p.Quantity = quantity
	p.UpdatedAt = time.Now().UTC()
	t.products[id] = p
	t.dirtyP[id] = true
	return nil
}

func (t *fsTx) GetCart(_ context.Context, shopperID string) (models.Cart, error) {
	if c, ok := t.carts[shopperID]; ok {
		return c.Clone(), nil
	}
	snap, err := t.tx.Get(t.client.Collection(colCarts).Doc(shopperID))
	c := models.Cart{ShopperID: shopperID}
	switch {
	case status.Code(err) == codes.NotFound:
	case err != nil:
		return models.Cart{}, err
	default:
		var d fsCart
		if err := snap.DataTo(&d); err != nil {
			return models.Cart{}, fmt.Errorf("decode carts/%s: %w", shopperID, err)
		}
		c = d.model(shopperID)
	}
	t.carts[shopperID] = c
	return c.Clone(), nil
}

func (t *fsTx) PutLine(ctx context.Context, shopperID string, line models.CartLine) error {
	if line.Quantity < 1 {
		return ErrInvalidQuantityChange
	}
	c, err := t.GetCart(ctx, shopperID)
	if err != nil {
		return err
	}
	c.Put(line)
	c.UpdatedAt = time.Now().UTC()
	t.carts[shopperID] = c
	t.dirtyC[shopperID] = true
	return nil
}

func (t *fsTx) RemoveLine(ctx context.Context, shopperID, productID string) error {
	c, err := t.GetCart(ctx, shopperID)
	if err != nil {
		return err
	}
	if !c.Remove(productID) {
		return nil
	}
	c.UpdatedAt = time.Now().UTC()
	t.carts[shopperID] = c
	t.dirtyC[shopperID] = true
	return nil
}

func (t *fsTx) CreateTransaction(_ context.Context, txn models.Transaction) error {
	ref := t.client.Collection(colTransactions).Doc(txn.ID)
	t.creates = append(t.creates, fsCreate{ref: ref, data: toFSTransaction(txn)})
	return nil
}

func (t *fsTx) LogMovement(_ context.Context, m models.Movement) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	ref := t.client.Collection(colMovements).Doc(m.ID)
	t.creates = append(t.creates, fsCreate{ref: ref, data: fsMovement{
		ProductID: m.ProductID,
		Delta:     m.Delta,
		Reason:    string(m.Reason),
		UserID:    m.ShopperID,
		CreatedAt: m.CreatedAt,
	}})
	return nil
}

func (t *fsTx) GetUser(_ context.Context, id string) (models.User, error) {
	snap, err := t.tx.Get(t.client.Collection(colUsers).Doc(id))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	var d fsUser
	if err := snap.DataTo(&d); err != nil {
		return models.User{}, fmt.Errorf("decode users/%s: %w", id, err)
	}
	return d.model(snap.Ref.ID), nil
}

// flush issues the buffered writes, one per document.
func (t *fsTx) flush() error {
	for id := range t.dirtyP {
		ref := t.client.Collection(colInventory).Doc(id)
		err := t.tx.Update(ref, []firestore.Update{
			{Path: "quantity", Value: t.products[id].Quantity},
			{Path: "lastUpdated", Value: firestore.ServerTimestamp},
		})
		if err != nil {
			return err
		}
	}
	for id := range t.dirtyC {
		ref := t.client.Collection(colCarts).Doc(id)
		if err := t.tx.Set(ref, toFSCart(t.carts[id])); err != nil {
			return err
		}
	}
	for _, c := range t.creates {
		if err := t.tx.Create(c.ref, c.data); err != nil {
			return err
		}
	}
	return nil
}
