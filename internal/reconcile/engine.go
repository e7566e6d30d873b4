// Package reconcile keeps shoppers' cart reservations and product stock
// counters consistent. Every operation pairs its cart and stock writes in
// one unit of work of a repo.TxStore, so for every product the stock plus
// all live reservations stays constant until checkout consumes them.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rogerio-castellano/shopnesty/internal/models"
	"github.com/rogerio-castellano/shopnesty/internal/repo"
	"go.uber.org/zap"
)

const (
	opAddToCart      = "add_to_cart"
	opChangeQuantity = "change_quantity"
	opDeleteLine     = "delete_line"
	opCheckout       = "checkout"
	opBulkDelete     = "bulk_delete"
	opSelect         = "select"
	opViewCart       = "view_cart"
	opAdjustStock    = "adjust_stock"
	opSetStock       = "set_stock"
)

const defaultMaxRetries = 3

type Direction int

const (
	Increment Direction = iota + 1
	Decrement
)

func (d Direction) String() string {
	switch d {
	case Increment:
		return "increment"
	case Decrement:
		return "decrement"
	}
	return "unknown"
}

// ParseDirection accepts "increment" or "decrement" (also "inc"/"dec", "+"/"-").
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "increment", "inc", "+":
		return Increment, nil
	case "decrement", "dec", "-":
		return Decrement, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// MissingProductPolicy decides what checkout does with a selected line whose
// product no longer exists.
type MissingProductPolicy string

const (
	// SkipMissing drops the orphaned line from the cart and reports it.
	SkipMissing MissingProductPolicy = "skip"
	// FailOnMissing aborts the whole checkout with ErrNotFound.
	FailOnMissing MissingProductPolicy = "fail"
)

func ParseMissingProductPolicy(s string) (MissingProductPolicy, error) {
	switch p := MissingProductPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", SkipMissing:
		return SkipMissing, nil
	case FailOnMissing:
		return FailOnMissing, nil
	}
	return "", fmt.Errorf("unknown missing product policy %q", s)
}

// Observer receives per-operation measurements.
type Observer interface {
	ObserveOp(op, outcome string, elapsed time.Duration)
	ObserveRetry(op string)
}

// CheckoutNotifier is told about every committed checkout.
type CheckoutNotifier interface {
	CheckoutCompleted(ctx context.Context, t models.Transaction) error
}

// StockObserver is told the new state of every product whose stock changed.
type StockObserver interface {
	StockChanged(ctx context.Context, p models.Product)
}

type nopObserver struct{}

func (nopObserver) ObserveOp(string, string, time.Duration) {}
func (nopObserver) ObserveRetry(string)                     {}

type Engine struct {
	store      repo.TxStore
	logger     *zap.Logger
	observer   Observer
	notifiers  []CheckoutNotifier
	stockObs   []StockObserver
	maxRetries int
	policy     MissingProductPolicy
	now        func() time.Time
	newID      func() string
	receipt    func() string
	backoff    func(attempt int) time.Duration
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

func WithCheckoutNotifier(n CheckoutNotifier) Option {
	return func(e *Engine) { e.notifiers = append(e.notifiers, n) }
}

func WithStockObserver(o StockObserver) Option {
	return func(e *Engine) { e.stockObs = append(e.stockObs, o) }
}

// WithMaxRetries bounds how often a unit of work that hit repo.ErrConflict is re-run.
func WithMaxRetries(n int) Option {
	return func(e *Engine) { e.maxRetries = max(n, 0) }
}

func WithMissingProductPolicy(p MissingProductPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithIDGenerator(f func() string) Option {
	return func(e *Engine) { e.newID = f }
}

func WithReceiptGenerator(f func() string) Option {
	return func(e *Engine) { e.receipt = f }
}

func WithBackoff(f func(attempt int) time.Duration) Option {
	return func(e *Engine) { e.backoff = f }
}

func New(store repo.TxStore, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		logger:     zap.NewNop(),
		observer:   nopObserver{},
		maxRetries: defaultMaxRetries,
		policy:     SkipMissing,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
		receipt:    randomReceiptNumber,
		backoff:    linearBackoff,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// randomReceiptNumber returns a four digit receipt number.
func randomReceiptNumber() string {
	return fmt.Sprintf("%04d", 1000+rand.IntN(9000))
}

func linearBackoff(attempt int) time.Duration {
	return time.Duration(attempt+1) * 10 * time.Millisecond
}

// run executes fn as one unit of work, re-running it after a conflict.
// fn must reset anything it captures because it may run more than once.
type withinFunc func(ctx context.Context, fn func(ctx context.Context, tx repo.Tx) error) error

func (e *Engine) run(ctx context.Context, op string, fn func(ctx context.Context, tx repo.Tx) error) error {
	return e.attempt(ctx, op, e.store.WithinTx, fn)
}

// view runs a unit of work that only reads. Stores that support it run it
// without row locks.
func (e *Engine) view(ctx context.Context, op string, fn func(ctx context.Context, tx repo.Tx) error) error {
	if rs, ok := e.store.(repo.ReadTxStore); ok {
		return e.attempt(ctx, op, rs.WithinReadTx, fn)
	}
	return e.attempt(ctx, op, e.store.WithinTx, fn)
}

func (e *Engine) attempt(ctx context.Context, op string, within withinFunc, fn func(ctx context.Context, tx repo.Tx) error) error {
	start := time.Now()
	err := within(ctx, fn)
	for attempt := 0; errors.Is(err, repo.ErrConflict) && attempt < e.maxRetries; attempt++ {
		e.observer.ObserveRetry(op)
		e.logger.Debug("unit of work conflicted, retrying",
			zap.String("op", op), zap.Int("attempt", attempt+1), zap.Error(err))

		timer := time.NewTimer(e.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			err = ctx.Err()
		case <-timer.C:
			err = within(ctx, fn)
		}
	}

	err = classify(err)
	e.observer.ObserveOp(op, outcome(err), time.Since(start))
	if errors.Is(err, ErrNetworkFailure) {
		e.logger.Error("unit of work failed", zap.String("op", op), zap.Error(err))
	}
	return err
}

func (e *Engine) movement(productID string, delta int, reason models.MovementReason, shopperID string) models.Movement {
	return models.Movement{
		ID:        e.newID(),
		ProductID: productID,
		Delta:     delta,
		Reason:    reason,
		ShopperID: shopperID,
		CreatedAt: e.now(),
	}
}

// moveStock writes the new quantity of p and the movement explaining it.
func (e *Engine) moveStock(ctx context.Context, tx repo.Tx, p models.Product, delta int, reason models.MovementReason, shopperID string) error {
	if err := tx.SetProductQuantity(ctx, p.ID, p.Quantity); err != nil {
		return err
	}
	return tx.LogMovement(ctx, e.movement(p.ID, delta, reason, shopperID))
}

func (e *Engine) stockChanged(ctx context.Context, p models.Product) {
	for _, o := range e.stockObs {
		o.StockChanged(ctx, p)
	}
}

func (e *Engine) checkoutCompleted(ctx context.Context, t models.Transaction) {
	for _, n := range e.notifiers {
		if err := n.CheckoutCompleted(ctx, t); err != nil {
			e.logger.Error("checkout notification failed",
				zap.String("transaction_id", t.ID), zap.Error(err))
		}
	}
}

func requireIDs(ids ...string) error {
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return ErrInvalidArgument
		}
	}
	return nil
}
