package reconcile

import (
	"context"

	"github.com/rogerio-castellano/shopnesty/internal/models"
	"github.com/rogerio-castellano/shopnesty/internal/repo"
)

// AdjustStock applies an administrative change of delta units to a
// product's stock, recording it as a restock or an adjustment.
func (e *Engine) AdjustStock(ctx context.Context, productID string, delta int, reason models.MovementReason) (models.Product, error) {
	if delta == 0 {
		return models.Product{}, ErrInvalidArgument
	}
	return e.changeStock(ctx, opAdjustStock, productID, reason, func(int) int { return delta })
}

// SetStock brings a product's stock to quantity. The difference is computed
// against the stock read inside the unit of work, so reservations made
// meanwhile are not overwritten. Equal stock is a no-op without movement.
func (e *Engine) SetStock(ctx context.Context, productID string, quantity int, reason models.MovementReason) (models.Product, error) {
	if quantity < 0 {
		return models.Product{}, ErrNegativeStock
	}
	return e.changeStock(ctx, opSetStock, productID, reason, func(current int) int { return quantity - current })
}

func (e *Engine) changeStock(ctx context.Context, op, productID string, reason models.MovementReason, deltaOf func(current int) int) (models.Product, error) {
	if err := requireIDs(productID); err != nil {
		return models.Product{}, err
	}

	var (
		product models.Product
		changed bool
	)
	err := e.run(ctx, op, func(ctx context.Context, tx repo.Tx) error {
		changed = false
		p, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		product = p
		delta := deltaOf(p.Quantity)
		if delta == 0 {
			return nil
		}
		if p.Quantity+delta < 0 {
			return ErrNegativeStock
		}
		r := reason
		if r == "" {
			r = models.ReasonAdjust
			if delta > 0 {
				r = models.ReasonRestock
			}
		}
		p.Quantity += delta
		if err := e.moveStock(ctx, tx, p, delta, r, ""); err != nil {
			return err
		}
		product, changed = p, true
		return nil
	})
	if err != nil {
		return models.Product{}, err
	}

	if changed {
		e.stockChanged(ctx, product)
	}
	return product, nil
}
