package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/rogerio-castellano/shopnesty/internal/models"
	"github.com/rogerio-castellano/shopnesty/internal/repo"
	"go.uber.org/zap"
)

// QuantityChange is the outcome of ChangeQuantity. Changed is false when a
// decrement hit the floor of one unit.
type QuantityChange struct {
	Line    models.CartLine `json:"line"`
	Changed bool            `json:"changed"`
}

// AddToCart reserves one unit of productID for the shopper, creating the
// line if needed.
func (e *Engine) AddToCart(ctx context.Context, shopperID, productID string) (models.CartLine, error) {
	if err := requireIDs(shopperID, productID); err != nil {
		return models.CartLine{}, err
	}

	var (
		line    models.CartLine
		product models.Product
	)
	err := e.run(ctx, opAddToCart, func(ctx context.Context, tx repo.Tx) error {
		cart, err := tx.GetCart(ctx, shopperID)
		if err != nil {
			return err
		}
		p, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if p.Quantity <= 0 {
			return ErrOutOfStock
		}

		l, ok := cart.Line(productID)
		if !ok {
			l = models.CartLine{ProductID: productID}
		}
		l.Quantity++
		p.Quantity--

		if err := tx.PutLine(ctx, shopperID, l); err != nil {
			return err
		}
		if err := e.moveStock(ctx, tx, p, -1, models.ReasonReserve, shopperID); err != nil {
			return err
		}
		line, product = l, p
		return nil
	})
	if err != nil {
		return models.CartLine{}, err
	}

	e.stockChanged(ctx, product)
	return line, nil
}

// ChangeQuantity moves one unit between the shopper's line and the product
// stock. A decrement never takes a line below one unit; DeleteLine is the
// only way to empty it.
func (e *Engine) ChangeQuantity(ctx context.Context, shopperID, productID string, dir Direction) (QuantityChange, error) {
	if err := requireIDs(shopperID, productID); err != nil {
		return QuantityChange{}, err
	}
	if dir != Increment && dir != Decrement {
		return QuantityChange{}, ErrInvalidDirection
	}

	var (
		result  QuantityChange
		product models.Product
	)
	err := e.run(ctx, opChangeQuantity, func(ctx context.Context, tx repo.Tx) error {
		result = QuantityChange{}
		cart, err := tx.GetCart(ctx, shopperID)
		if err != nil {
			return err
		}
		l, ok := cart.Line(productID)
		if !ok {
			return fmt.Errorf("%w: %s is not in the cart", ErrNotFound, productID)
		}
		p, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}

		var (
			delta  int
			reason models.MovementReason
		)
		switch dir {
		case Increment:
			if p.Quantity <= 0 {
				return ErrOutOfStock
			}
			l.Quantity++
			p.Quantity--
			delta, reason = -1, models.ReasonReserve
		case Decrement:
			if l.Quantity <= 1 {
				result = QuantityChange{Line: l}
				return nil
			}
			l.Quantity--
			p.Quantity++
			delta, reason = 1, models.ReasonRelease
		}

		if err := tx.PutLine(ctx, shopperID, l); err != nil {
			return err
		}
		if err := e.moveStock(ctx, tx, p, delta, reason, shopperID); err != nil {
			return err
		}
		result, product = QuantityChange{Line: l, Changed: true}, p
		return nil
	})
	if err != nil {
		return QuantityChange{}, err
	}

	if result.Changed {
		e.stockChanged(ctx, product)
	}
	return result, nil
}

// DeleteLine removes the shopper's line and returns its whole quantity to
// stock. It reports how many units were restored; deleting an absent line
// restores nothing and is not an error. A line whose product was deleted
// from inventory is removed without restoring anything.
func (e *Engine) DeleteLine(ctx context.Context, shopperID, productID string) (int, error) {
	if err := requireIDs(shopperID, productID); err != nil {
		return 0, err
	}

	var (
		restored int
		product  *models.Product
	)
	err := e.run(ctx, opDeleteLine, func(ctx context.Context, tx repo.Tx) error {
		restored, product = 0, nil
		cart, err := tx.GetCart(ctx, shopperID)
		if err != nil {
			return err
		}
		l, ok := cart.Line(productID)
		if !ok {
			return nil
		}
		p, err := tx.GetProduct(ctx, productID)
		missing := errors.Is(err, repo.ErrProductNotFound)
		if err != nil && !missing {
			return err
		}

		if err := tx.RemoveLine(ctx, shopperID, productID); err != nil {
			return err
		}
		if missing {
			e.logger.Warn("removed cart line of a deleted product",
				zap.String("shopper_id", shopperID), zap.String("product_id", productID), zap.Int("quantity", l.Quantity))
			return nil
		}

		p.Quantity += l.Quantity
		if err := e.moveStock(ctx, tx, p, l.Quantity, models.ReasonRelease, shopperID); err != nil {
			return err
		}
		restored, product = l.Quantity, &p
		return nil
	})
	if err != nil {
		return 0, err
	}

	if product != nil {
		e.stockChanged(ctx, *product)
	}
	return restored, nil
}

// SelectAll sets the checkout flag of every line. It has no stock effect.
func (e *Engine) SelectAll(ctx context.Context, shopperID string, selected bool) (models.Cart, error) {
	if err := requireIDs(shopperID); err != nil {
		return models.Cart{}, err
	}

	var cart models.Cart
	err := e.run(ctx, opSelect, func(ctx context.Context, tx repo.Tx) error {
		c, err := tx.GetCart(ctx, shopperID)
		if err != nil {
			return err
		}
		for i, l := range c.Lines {
			if l.Selected == selected {
				continue
			}
			l.Selected = selected
			if err := tx.PutLine(ctx, shopperID, l); err != nil {
				return err
			}
			c.Lines[i] = l
		}
		cart = c
		return nil
	})
	return cart, err
}

// ToggleSelection flips the checkout flag of one line.
func (e *Engine) ToggleSelection(ctx context.Context, shopperID, productID string) (models.CartLine, error) {
	if err := requireIDs(shopperID, productID); err != nil {
		return models.CartLine{}, err
	}

	var line models.CartLine
	err := e.run(ctx, opSelect, func(ctx context.Context, tx repo.Tx) error {
		c, err := tx.GetCart(ctx, shopperID)
		if err != nil {
			return err
		}
		l, ok := c.Line(productID)
		if !ok {
			return fmt.Errorf("%w: %s is not in the cart", ErrNotFound, productID)
		}
		l.Selected = !l.Selected
		line = l
		return tx.PutLine(ctx, shopperID, l)
	})
	return line, err
}
