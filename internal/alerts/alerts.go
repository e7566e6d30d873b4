// Package alerts records products whose stock fell under their threshold.
package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rogerio-castellano/shopnesty/internal/models"
	"go.uber.org/zap"
)

const LowStockLogKey = "inventory:alerts:lowstock"

const defaultMaxEntries = 500

type LowStockEntry struct {
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	Threshold int       `json:"threshold"`
	Time      time.Time `json:"time"`
}

// Log keeps the most recent low-stock entries.
type Log interface {
	Record(ctx context.Context, e LowStockEntry) error
	// Recent returns up to n entries, newest first.
	Recent(ctx context.Context, n int) ([]LowStockEntry, error)
}

type RedisLog struct {
	rdb *redis.Client
	max int64
}

func NewRedisLog(rdb *redis.Client, maxEntries int) *RedisLog {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &RedisLog{rdb: rdb, max: int64(maxEntries)}
}

func (l *RedisLog) Record(ctx context.Context, e LowStockEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	pipe := l.rdb.TxPipeline()
	pipe.RPush(ctx, LowStockLogKey, data)
	pipe.LTrim(ctx, LowStockLogKey, -l.max, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record low stock alert: %w", err)
	}
	return nil
}

func (l *RedisLog) Recent(ctx context.Context, n int) ([]LowStockEntry, error) {
	if n <= 0 {
		return []LowStockEntry{}, nil
	}
	items, err := l.rdb.LRange(ctx, LowStockLogKey, int64(-n), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read low stock alerts: %w", err)
	}
	out := make([]LowStockEntry, 0, len(items))
	for _, item := range items {
		var e LowStockEntry
		if err := json.Unmarshal([]byte(item), &e); err == nil {
			out = append(out, e)
		}
	}
	slices.Reverse(out)
	return out, nil
}

// MemoryLog is the Log used when redis is disabled.
type MemoryLog struct {
	mu      sync.Mutex
	entries []LowStockEntry
	max     int
}

func NewMemoryLog(maxEntries int) *MemoryLog {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &MemoryLog{max: maxEntries}
}

func (l *MemoryLog) Record(_ context.Context, e LowStockEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	if over := len(l.entries) - l.max; over > 0 {
		l.entries = slices.Clone(l.entries[over:])
	}
	return nil
}

func (l *MemoryLog) Recent(_ context.Context, n int) ([]LowStockEntry, error) {
	if n <= 0 {
		return []LowStockEntry{}, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	start := max(0, len(l.entries)-n)
	out := slices.Clone(l.entries[start:])
	slices.Reverse(out)
	if out == nil {
		out = []LowStockEntry{}
	}
	return out, nil
}

// Watcher turns stock changes into low-stock alerts.
type Watcher struct {
	log     Log
	logger  *zap.Logger
	counter prometheus.Counter
	now     func() time.Time
}

// NewWatcher builds a Watcher. logger and counter may be nil.
func NewWatcher(l Log, logger *zap.Logger, counter prometheus.Counter) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{log: l, logger: logger, counter: counter, now: time.Now}
}

// StockChanged implements reconcile.StockObserver.
func (w *Watcher) StockChanged(ctx context.Context, p models.Product) {
	if !p.LowStock() {
		return
	}
	entry := LowStockEntry{
		ProductID: p.ID,
		Name:      p.Name,
		Quantity:  p.Quantity,
		Threshold: p.Threshold,
		Time:      w.now(),
	}
	if err := w.log.Record(ctx, entry); err != nil {
		w.logger.Error("low stock alert not recorded", zap.String("product_id", p.ID), zap.Error(err))
		return
	}
	if w.counter != nil {
		w.counter.Inc()
	}
	w.logger.Warn("low stock",
		zap.String("product_id", p.ID),
		zap.String("name", p.Name),
		zap.Int("quantity", p.Quantity),
		zap.Int("threshold", p.Threshold))
}
