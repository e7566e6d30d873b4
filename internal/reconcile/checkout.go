package reconcile

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rogerio-castellano/shopnesty/internal/models"
	"github.com/rogerio-castellano/shopnesty/internal/repo"
	"go.uber.org/zap"
)

const unknownCustomer = "Unknown"

// dueDays is how long a checkout may stay unpaid.
const dueDays = 7

type SkipReason string

const (
	SkipNotInCart      SkipReason = "not_in_cart"
	SkipProductMissing SkipReason = "product_missing"
)

type SkippedLine struct {
	ProductID string     `json:"product_id"`
	Reason    SkipReason `json:"reason"`
}

type CheckoutResult struct {
	Transaction models.Transaction `json:"transaction"`
	Skipped     []SkippedLine      `json:"skipped,omitempty"`
}

type pickedLine struct {
	line    models.CartLine
	product models.Product
}

// Checkout turns the selected lines into one transaction priced at current
// product prices and removes them from the cart. Stock is not touched: it
// was deducted when the units were reserved.
func (e *Engine) Checkout(ctx context.Context, shopperID string, productIDs []string) (CheckoutResult, error) {
	if err := requireIDs(shopperID); err != nil {
		return CheckoutResult{}, err
	}
	ids := normalizeIDs(productIDs)
	if len(ids) == 0 {
		e.observer.ObserveOp(opCheckout, outcome(ErrNothingSelected), 0)
		return CheckoutResult{}, ErrNothingSelected
	}

	var result CheckoutResult
	err := e.run(ctx, opCheckout, func(ctx context.Context, tx repo.Tx) error {
		result = CheckoutResult{}
		cart, err := tx.GetCart(ctx, shopperID)
		if err != nil {
			return err
		}

		var (
			picked   []pickedLine
			orphaned []string
		)
		for _, id := range ids {
			l, ok := cart.Line(id)
			if !ok {
				result.Skipped = append(result.Skipped, SkippedLine{ProductID: id, Reason: SkipNotInCart})
				continue
			}
			p, err := tx.GetProduct(ctx, id)
			if errors.Is(err, repo.ErrProductNotFound) {
				if e.policy == FailOnMissing {
					return fmt.Errorf("%w: product %s no longer exists", ErrNotFound, id)
				}
				result.Skipped = append(result.Skipped, SkippedLine{ProductID: id, Reason: SkipProductMissing})
				orphaned = append(orphaned, id)
				continue
			}
			if err != nil {
				return err
			}
			picked = append(picked, pickedLine{line: l, product: p})
		}
		if len(picked) == 0 {
			return ErrNothingSelected
		}

		name, err := customerName(ctx, tx, shopperID)
		if err != nil {
			return err
		}
		txn := e.newTransaction(shopperID, name, picked)

		for _, pl := range picked {
			if err := tx.RemoveLine(ctx, shopperID, pl.line.ProductID); err != nil {
				return err
			}
		}
		for _, id := range orphaned {
			if err := tx.RemoveLine(ctx, shopperID, id); err != nil {
				return err
			}
		}
		if err := tx.CreateTransaction(ctx, txn); err != nil {
			return err
		}
		result.Transaction = txn
		return nil
	})
	if err != nil {
		return CheckoutResult{}, err
	}

	if len(result.Skipped) > 0 {
		e.logger.Info("checkout skipped lines",
			zap.String("shopper_id", shopperID), zap.Any("skipped", result.Skipped))
	}
	e.checkoutCompleted(ctx, result.Transaction)
	return result, nil
}

// normalizeIDs drops blanks and duplicates and sorts the rest so every
// unit of work locks products in the same order.
func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func customerName(ctx context.Context, tx repo.Tx, shopperID string) (string, error) {
	u, err := tx.GetUser(ctx, shopperID)
	if errors.Is(err, repo.ErrUserNotFound) {
		return unknownCustomer, nil
	}
	if err != nil {
		return "", err
	}
	switch {
	case u.Name != "":
		return u.Name, nil
	case u.Username != "":
		return u.Username, nil
	}
	return unknownCustomer, nil
}

func (e *Engine) newTransaction(shopperID, customer string, picked []pickedLine) models.Transaction {
	now := e.now()
	txn := models.Transaction{
		ID:            e.newID(),
		ReceiptNumber: e.receipt(),
		ShopperID:     shopperID,
		CustomerName:  customer,
		Date:          now,
		DueDate:       now.AddDate(0, 0, dueDays),
		Items:         make([]models.TransactionItem, 0, len(picked)),
		PaymentStatus: models.PaymentPending,
		PaymentMethod: models.PaymentCash,
	}

	var subtotal float64
	for _, pl := range picked {
		total := models.RoundCents(pl.product.Price * float64(pl.line.Quantity))
		txn.Items = append(txn.Items, models.TransactionItem{
			ProductID:         pl.product.ID,
			Name:              pl.product.Name,
			PriceAtTimeOfSale: pl.product.Price,
			Quantity:          pl.line.Quantity,
			Total:             total,
		})
		subtotal += total
	}
	txn.Subtotal = models.RoundCents(subtotal)
	txn.Tax = 0
	txn.Total = txn.Subtotal
	txn.AmountPaid = txn.Total
	return txn
}
