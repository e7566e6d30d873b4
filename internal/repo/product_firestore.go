package repo

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/rogerio-castellano/shopnesty/internal/models"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreProductRepository stores products in the inventory collection.
type FirestoreProductRepository struct {
	Client *firestore.Client
}

func NewFirestoreProductRepository(client *firestore.Client) *FirestoreProductRepository {
	return &FirestoreProductRepository{Client: client}
}

func (r *FirestoreProductRepository) col() *firestore.CollectionRef {
	return r.Client.Collection(colInventory)
}

func (r *FirestoreProductRepository) nameTaken(ctx context.Context, name, exceptID string) (bool, error) {
	it := r.col().Where("name", "==", name).Documents(ctx)
	defer it.Stop()
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if doc.Ref.ID != exceptID {
			return true, nil
		}
	}
}

func (r *FirestoreProductRepository) Create(ctx context.Context, p models.Product) (models.Product, error) {
	if p.Quantity < 0 {
		return models.Product{}, ErrInvalidQuantityChange
	}
	taken, err := r.nameTaken(ctx, p.Name, "")
	if err != nil {
		return models.Product{}, err
	}
	if taken {
		return models.Product{}, ErrDuplicatedValueUnique
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	if _, err := r.col().Doc(p.ID).Create(ctx, toFSProduct(p)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return models.Product{}, ErrDuplicatedValueUnique
		}
		return models.Product{}, err
	}
	return p, nil
}

func (r *FirestoreProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	it := r.col().OrderBy("createdAt", firestore.Asc).Documents(ctx)
	defer it.Stop()

	out := []models.Product{}
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var d fsProduct
		if err := doc.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decode inventory/%s: %w", doc.Ref.ID, err)
		}
		out = append(out, d.model(doc.Ref.ID))
	}
	return out, nil
}

func (r *FirestoreProductRepository) GetByID(ctx context.Context, id string) (models.Product, error) {
	snap, err := r.col().Doc(id).Get(ctx)
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
	return d.model(snap.Ref.ID), nil
}

func (r *FirestoreProductRepository) GetByName(ctx context.Context, name string) (models.Product, error) {
	it := r.col().Where("name", "==", name).Limit(1).Documents(ctx)
	defer it.Stop()
	doc, err := it.Next()
	if err == iterator.Done {
		return models.Product{}, ErrProductNotFound
	}
	if err != nil {
		return models.Product{}, err
	}
	var d fsProduct
	if err := doc.DataTo(&d); err != nil {
		return models.Product{}, fmt.Errorf("decode inventory/%s: %w", doc.Ref.ID, err)
	}
	return d.model(doc.Ref.ID), nil
}

// Update rewrites the descriptive fields only; quantity belongs to the
// reconciliation engine.
func (r *FirestoreProductRepository) Update(ctx context.Context, p models.Product) (models.Product, error) {
	taken, err := r.nameTaken(ctx, p.Name, p.ID)
	if err != nil {
		return models.Product{}, err
	}
	if taken {
		return models.Product{}, ErrDuplicatedValueUnique
	}
	_, err = r.col().Doc(p.ID).Update(ctx, []firestore.Update{
		{Path: "name", Value: p.Name},
		{Path: "description", Value: p.Description},
		{Path: "category", Value: p.Category},
		{Path: "price", Value: p.Price},
		{Path: "lowStockThreshold", Value: p.Threshold},
		{Path: "imageUrl", Value: p.ImageURL},
		{Path: "lastUpdated", Value: time.Now().UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return models.Product{}, ErrProductNotFound
		}
		return models.Product{}, err
	}
	return r.GetByID(ctx, p.ID)
}

func (r *FirestoreProductRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.col().Doc(id).Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrProductNotFound
		}
		return err
	}
	return nil
}

// Filter loads the collection and filters in process, which keeps the
// queries free of composite indexes.
func (r *FirestoreProductRepository) Filter(ctx context.Context, pf ProductFilter) ([]models.Product, int, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return nil, 0, err
	}
	page, total := filterProducts(all, pf)
	return page, total, nil
}
