package repo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/rogerio-castellano/shopnesty/internal/models"
	"google.golang.org/api/iterator"
)

type FirestoreMovementRepository struct {
	Client *firestore.Client
}

func NewFirestoreMovementRepository(client *firestore.Client) *FirestoreMovementRepository {
	return &FirestoreMovementRepository{Client: client}
}

func (r *FirestoreMovementRepository) col() *firestore.CollectionRef {
	return r.Client.Collection(colMovements)
}

func (r *FirestoreMovementRepository) Log(ctx context.Context, m models.Movement) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := r.col().Doc(m.ID).Create(ctx, fsMovement{
		ProductID: m.ProductID,
		Delta:     m.Delta,
		Reason:    string(m.Reason),
		UserID:    m.ShopperID,
		CreatedAt: m.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to insert movement: %w", err)
	}
	return nil
}

func (r *FirestoreMovementRepository) collect(it *firestore.DocumentIterator) ([]models.Movement, error) {
	defer it.Stop()
	out := []models.Movement{}
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		var d fsMovement
		if err := doc.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decode movements/%s: %w", doc.Ref.ID, err)
		}
		out = append(out, d.model(doc.Ref.ID))
	}
}

func (r *FirestoreMovementRepository) GetByProductID(ctx context.Context, productID string, mf MovementFilter) ([]models.Movement, int, error) {
	all, err := r.collect(r.col().Where("productId", "==", productID).Documents(ctx))
	if err != nil {
		return nil, 0, err
	}
	filtered := all[:0]
	for _, m := range all {
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

func (r *FirestoreMovementRepository) All(ctx context.Context) ([]models.Movement, error) {
	return r.collect(r.col().OrderBy("createdAt", firestore.Asc).Documents(ctx))
}
