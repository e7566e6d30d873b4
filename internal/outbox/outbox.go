// Package outbox keeps events on local disk until a broker accepts them.
// Once Enqueue returns, an event survives a crash or a broker outage and is
// delivered at least once. Events are enqueued after the unit of work
// commits, so a crash between the commit and Enqueue loses that event.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/rogerio-castellano/shopnesty/internal/events"
	"github.com/rogerio-castellano/shopnesty/internal/models"
	"go.uber.org/zap"
)

const keyPrefix = "evt/"

// Stats receives outbox counters.
type Stats interface {
	SetOutboxPending(n int)
	AddOutboxPublished(n int)
	IncOutboxFailures()
}

type nopStats struct{}

func (nopStats) SetOutboxPending(int)   {}
func (nopStats) AddOutboxPublished(int) {}
func (nopStats) IncOutboxFailures()     {}

type Outbox struct {
	db     *pebble.DB
	pub    events.Publisher
	logger *zap.Logger
	stats  Stats

	seq     atomic.Uint64
	pending atomic.Int64
	kick    chan struct{}
	flushMu sync.Mutex
}

type Option func(*Outbox)

func WithLogger(l *zap.Logger) Option { return func(o *Outbox) { o.logger = l } }
func WithStats(s Stats) Option        { return func(o *Outbox) { o.stats = s } }

// Open opens (or creates) the outbox stored in dir.
func Open(dir string, pub events.Publisher, opts ...Option) (*Outbox, error) {
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	o := &Outbox{
		db:     db,
		pub:    pub,
		logger: zap.NewNop(),
		stats:  nopStats{},
		kick:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(o)
	}

	entries, err := o.entries()
	if err != nil {
		db.Close()
		return nil, err
	}
	if n := len(entries); n > 0 {
		o.seq.Store(seqOf(entries[n-1].key))
	}
	o.pending.Store(int64(len(entries)))
	o.stats.SetOutboxPending(len(entries))
	return o, nil
}

func (o *Outbox) Close() error { return o.db.Close() }

func eventKey(seq uint64, id string) []byte {
	return []byte(fmt.Sprintf("%s%020d/%s", keyPrefix, seq, id))
}

func seqOf(key []byte) uint64 {
	rest := strings.TrimPrefix(string(key), keyPrefix)
	num, _, _ := strings.Cut(rest, "/")
	n, _ := strconv.ParseUint(num, 10, 64)
	return n
}

// Enqueue stores e durably and wakes the relay.
func (o *Outbox) Enqueue(e events.Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := o.db.Set(eventKey(o.seq.Add(1), e.ID), b, pebble.Sync); err != nil {
		return fmt.Errorf("outbox write: %w", err)
	}
	o.stats.SetOutboxPending(int(o.pending.Add(1)))

	select {
	case o.kick <- struct{}{}:
	default:
	}
	return nil
}

// CheckoutCompleted implements reconcile.CheckoutNotifier.
func (o *Outbox) CheckoutCompleted(_ context.Context, t models.Transaction) error {
	e, err := events.NewCheckoutEvent(t)
	if err != nil {
		return err
	}
	return o.Enqueue(e)
}

type entry struct {
	key   []byte
	value []byte
}

func (o *Outbox) entries() ([]entry, error) {
	it, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte("evt0"),
	})
	if err != nil {
		return nil, fmt.Errorf("outbox iter: %w", err)
	}
	defer it.Close()

	var out []entry
	for it.First(); it.Valid(); it.Next() {
		out = append(out, entry{
			key:   append([]byte(nil), it.Key()...),
			value: append([]byte(nil), it.Value()...),
		})
	}
	return out, it.Error()
}

// Pending reports how many events wait for delivery.
func (o *Outbox) Pending() (int, error) {
	entries, err := o.entries()
	return len(entries), err
}

// Flush publishes stored events oldest first and deletes each one once the
// broker accepted it. It stops at the first failure so order is kept.
func (o *Outbox) Flush(ctx context.Context) (int, error) {
	o.flushMu.Lock()
	defer o.flushMu.Unlock()

	entries, err := o.entries()
	if err != nil {
		return 0, err
	}

	sent := 0
	defer func() {
		if sent > 0 {
			o.stats.AddOutboxPublished(sent)
		}
		o.stats.SetOutboxPending(int(o.pending.Load()))
	}()

	for _, en := range entries {
		var e events.Event
		if err := json.Unmarshal(en.value, &e); err != nil {
			o.logger.Error("dropping undecodable outbox entry", zap.ByteString("key", en.key), zap.Error(err))
			if err := o.db.Delete(en.key, pebble.Sync); err != nil {
				return sent, err
			}
			o.pending.Add(-1)
			continue
		}
		if err := o.pub.Publish(ctx, e); err != nil {
			o.stats.IncOutboxFailures()
			return sent, fmt.Errorf("publish %s: %w", e.ID, err)
		}
		if err := o.db.Delete(en.key, pebble.Sync); err != nil {
			return sent, fmt.Errorf("outbox delete: %w", err)
		}
		o.pending.Add(-1)
		sent++
	}
	return sent, nil
}

// Run relays events until ctx is done, flushing on every enqueue and at
// least once per interval.
func (o *Outbox) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-o.kick:
		}
		n, err := o.Flush(ctx)
		if err != nil {
			o.logger.Warn("outbox flush failed", zap.Int("published", n), zap.Error(err))
			continue
		}
		if n > 0 {
			o.logger.Debug("outbox flushed", zap.Int("published", n))
		}
	}
}
