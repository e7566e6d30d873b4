package repo

import (
	"context"

	"github.com/rogerio-castellano/shopnesty/internal/models"
)

type MovementRepository interface {
	Log(ctx context.Context, m models.Movement) error
	GetByProductID(ctx context.Context, productID string, mf MovementFilter) ([]models.Movement, int, error)
	All(ctx context.Context) ([]models.Movement, error)
}
