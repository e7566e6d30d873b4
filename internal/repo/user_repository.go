package repo

import (
	"context"

	"github.com/rogerio-castellano/shopnesty/internal/models"
)

type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	// UpdateName changes the display name printed on receipts.
	UpdateName(ctx context.Context, id, name string) (models.User, error)
}
