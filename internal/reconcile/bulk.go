package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/rogerio-castellano/shopnesty/internal/models"
	"github.com/rogerio-castellano/shopnesty/internal/repo"
)

type LineOutcome struct {
	ProductID string `json:"product_id"`
	Restored  int    `json:"restored"`
	Error     string `json:"error,omitempty"`
}

// BulkDelete deletes every selected line, one unit of work per line. It
// stops at the first failure; lines deleted before it stay deleted.
func (e *Engine) BulkDelete(ctx context.Context, shopperID string) ([]LineOutcome, error) {
	start := time.Now()
	outcomes, err := e.bulkDelete(ctx, shopperID)
	e.observer.ObserveOp(opBulkDelete, outcome(err), time.Since(start))
	return outcomes, err
}

func (e *Engine) bulkDelete(ctx context.Context, shopperID string) ([]LineOutcome, error) {
	if err := requireIDs(shopperID); err != nil {
		return nil, err
	}

	var cart models.Cart
	err := e.store.WithinTx(ctx, func(ctx context.Context, tx repo.Tx) error {
		var err error
		cart, err = tx.GetCart(ctx, shopperID)
		return err
	})
	if err != nil {
		return nil, classify(err)
	}

	selected := cart.Selected()
	if len(selected) == 0 {
		return nil, ErrNothingSelected
	}

	outcomes := make([]LineOutcome, 0, len(selected))
	for _, l := range selected {
		restored, err := e.DeleteLine(ctx, shopperID, l.ProductID)
		if err != nil {
			outcomes = append(outcomes, LineOutcome{ProductID: l.ProductID, Error: err.Error()})
			return outcomes, fmt.Errorf("delete %s: %w", l.ProductID, err)
		}
		outcomes = append(outcomes, LineOutcome{ProductID: l.ProductID, Restored: restored})
	}
	return outcomes, nil
}
