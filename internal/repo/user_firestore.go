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

type FirestoreUserRepository struct {
	Client *firestore.Client
}

func NewFirestoreUserRepository(client *firestore.Client) *FirestoreUserRepository {
	return &FirestoreUserRepository{Client: client}
}

func (r *FirestoreUserRepository) col() *firestore.CollectionRef {
	return r.Client.Collection(colUsers)
}

func (r *FirestoreUserRepository) GetByUsername(ctx context.Context, username string) (models.User, error) {
	it := r.col().Where("username", "==", username).Limit(1).Documents(ctx)
	defer it.Stop()
	doc, err := it.Next()
	if err == iterator.Done {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	var d fsUser
	if err := doc.DataTo(&d); err != nil {
		return models.User{}, fmt.Errorf("decode users/%s: %w", doc.Ref.ID, err)
	}
	return d.model(doc.Ref.ID), nil
}

func (r *FirestoreUserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	snap, err := r.col().Doc(id).Get(ctx)
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

func (r *FirestoreUserRepository) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	if _, err := r.GetByUsername(ctx, u.Username); err == nil {
		return models.User{}, ErrDuplicatedValueUnique
	} else if err != ErrUserNotFound {
		return models.User{}, err
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = models.RoleCustomer
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	_, err := r.col().Doc(u.ID).Create(ctx, fsUser{
		Username:     u.Username,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	})
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

func (r *FirestoreUserRepository) UpdateName(ctx context.Context, id, name string) (models.User, error) {
	_, err := r.col().Doc(id).Update(ctx, []firestore.Update{
		{Path: "name", Value: name},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("update users/%s: %w", id, err)
	}
	return r.GetByID(ctx, id)
}
