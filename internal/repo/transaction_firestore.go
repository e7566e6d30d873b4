package repo

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"github.com/rogerio-castellano/shopnesty/internal/models"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type FirestoreTransactionRepository struct {
	Client *firestore.Client
}

func NewFirestoreTransactionRepository(client *firestore.Client) *FirestoreTransactionRepository {
	return &FirestoreTransactionRepository{Client: client}
}

func (r *FirestoreTransactionRepository) col() *firestore.CollectionRef {
	return r.Client.Collection(colTransactions)
}

func decodeTransaction(snap *firestore.DocumentSnapshot) (models.Transaction, error) {
	var d fsTransaction
	if err := snap.DataTo(&d); err != nil {
		return models.Transaction{}, fmt.Errorf("decode transactions/%s: %w", snap.Ref.ID, err)
	}
	return d.model(snap.Ref.ID), nil
}

func (r *FirestoreTransactionRepository) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return models.Transaction{}, ErrTransactionNotFound
		}
		return models.Transaction{}, err
	}
	return decodeTransaction(snap)
}

func (r *FirestoreTransactionRepository) List(ctx context.Context, f TransactionFilter) ([]models.Transaction, error) {
	q := r.col().Query
	if f.ShopperID != "" {
		q = q.Where("userId", "==", f.ShopperID)
	}
	it := q.Documents(ctx)
	defer it.Stop()

	out := []models.Transaction{}
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		t, err := decodeTransaction(doc)
		if err != nil {
			return nil, err
		}
		if f.matches(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (r *FirestoreTransactionRepository) UpdatePayment(ctx context.Context, id string, p models.Payment) (models.Transaction, error) {
	var updated models.Transaction
	ref := r.col().Doc(id)
	err := r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrTransactionNotFound
			}
			return err
		}
		t, err := decodeTransaction(snap)
		if err != nil {
			return err
		}
		t.ApplyPayment(p)
		updated = t
		return tx.Set(ref, map[string]any{
			"paymentStatus": string(t.PaymentStatus),
			"amountPaid":    t.AmountPaid,
			"paymentMethod": string(t.PaymentMethod),
			"change":        t.Change,
		}, firestore.MergeAll)
	})
	if err != nil {
		return models.Transaction{}, err
	}
	return updated, nil
}
