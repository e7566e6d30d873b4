package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/rogerio-castellano/shopnesty/internal/repo"
)

// User-facing messages for engine failures.
const (
	MsgOutOfStock      = "Out of stock"
	MsgCannotAddMore   = "Cannot add more of this item"
	MsgNotFound        = "Item not found"
	MsgNothingSelected = "No items selected"
	MsgNetworkFailure  = "Service temporarily unavailable"
	MsgNegativeStock   = "Stock cannot go below zero"
	MsgInvalidArgument = "Invalid request"
)

var (
	ErrOutOfStock       = errors.New("out of stock")
	ErrNotFound         = errors.New("not found")
	ErrNothingSelected  = errors.New("nothing selected")
	ErrNetworkFailure   = errors.New("store unavailable")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrNegativeStock    = errors.New("stock cannot go below zero")
)

// classify maps what a unit of work returned onto the engine's error
// taxonomy. Engine errors pass through; repository errors are translated;
// anything else is a store failure.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrOutOfStock),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrNothingSelected),
		errors.Is(err, ErrInvalidDirection),
		errors.Is(err, ErrInvalidArgument),
		errors.Is(err, ErrNegativeStock):
		return err
	case errors.Is(err, repo.ErrProductNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, repo.ErrInvalidQuantityChange):
		return fmt.Errorf("%w: %w", ErrOutOfStock, err)
	}
	return fmt.Errorf("%w: %w", ErrNetworkFailure, err)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNothingSelected):
		return "nothing_selected"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrNetworkFailure):
		return "store_error"
	}
	return "rejected"
}

// Message returns the plain-language text shown to a shopper for err.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrOutOfStock):
		return MsgOutOfStock
	case errors.Is(err, ErrNotFound):
		return MsgNotFound
	case errors.Is(err, ErrNothingSelected):
		return MsgNothingSelected
	case errors.Is(err, ErrNegativeStock):
		return MsgNegativeStock
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrInvalidDirection):
		return MsgInvalidArgument
	}
	return MsgNetworkFailure
}
