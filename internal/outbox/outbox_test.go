package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rogerio-castellano/shopnesty/internal/events"
	"github.com/rogerio-castellano/shopnesty/internal/models"
)

type fakePublisher struct {
	mu     sync.Mutex
	got    []events.Event
	failAt int // 1-based publish call that fails; 0 never
	calls  int
}

func (f *fakePublisher) Publish(_ context.Context, e events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls == f.failAt {
		return errors.New("broker unavailable")
	}
	f.got = append(f.got, e)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func (f *fakePublisher) ids() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.got))
	for _, e := range f.got {
		out = append(out, e.ID)
	}
	return out
}

func open(t *testing.T, dir string, pub events.Publisher) *Outbox {
	t.Helper()
	o, err := Open(dir, pub)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return o
}

func TestOutbox_FlushInOrder(t *testing.T) {
	pub := &fakePublisher{}
	o := open(t, t.TempDir(), pub)
	t.Cleanup(func() { _ = o.Close() })

	for _, id := range []string{"a", "b", "c"} {
		if err := o.Enqueue(events.Event{ID: id, Type: "test"}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	n, err := o.Flush(context.Background())
	if err != nil || n != 3 {
		t.Fatalf("flush: %d, %v", n, err)
	}
	got := pub.ids()
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("unexpected order %v", got)
	}
	if p, _ := o.Pending(); p != 0 {
		t.Errorf("expected empty outbox, got %d", p)
	}
}

func TestOutbox_StopsAtFailureAndResumes(t *testing.T) {
	pub := &fakePublisher{failAt: 2}
	o := open(t, t.TempDir(), pub)
	t.Cleanup(func() { _ = o.Close() })

	for _, id := range []string{"a", "b", "c"} {
		_ = o.Enqueue(events.Event{ID: id})
	}
	n, err := o.Flush(context.Background())
	if err == nil || n != 1 {
		t.Fatalf("expected failure after one event, got %d, %v", n, err)
	}
	if p, _ := o.Pending(); p != 2 {
		t.Errorf("expected 2 pending, got %d", p)
	}

	n, err = o.Flush(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("second flush: %d, %v", n, err)
	}
	got := pub.ids()
	if len(got) != 3 || got[1] != "b" || got[2] != "c" {
		t.Errorf("unexpected order %v", got)
	}
}

func TestOutbox_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	o := open(t, dir, &fakePublisher{})
	if err := o.CheckoutCompleted(context.Background(), models.Transaction{ID: "t1", ShopperID: "s1"}); err != nil {
		t.Fatal(err)
	}
	_ = o.Enqueue(events.Event{ID: "second"})
	if err := o.Close(); err != nil {
		t.Fatal(err)
	}

	pub := &fakePublisher{}
	o = open(t, dir, pub)
	t.Cleanup(func() { _ = o.Close() })
	if p, _ := o.Pending(); p != 2 {
		t.Fatalf("expected 2 pending after reopen, got %d", p)
	}

	// new events sort after the recovered ones
	_ = o.Enqueue(events.Event{ID: "third"})
	if _, err := o.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := pub.ids()
	if len(got) != 3 || got[1] != "second" || got[2] != "third" {
		t.Fatalf("unexpected order %v", got)
	}
	if pub.got[0].Type != events.TypeCheckoutCompleted || pub.got[0].Key != "s1" {
		t.Errorf("unexpected checkout event %+v", pub.got[0])
	}
}

func TestOutbox_RunFlushesOnEnqueue(t *testing.T) {
	pub := &fakePublisher{}
	o := open(t, t.TempDir(), pub)
	t.Cleanup(func() { _ = o.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		o.Run(ctx, time.Hour)
		close(done)
	}()

	_ = o.Enqueue(events.Event{ID: "a"})
	deadline := time.Now().Add(2 * time.Second)
	for len(pub.ids()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if got := pub.ids(); len(got) != 1 || got[0] != "a" {
		t.Errorf("expected relay to publish a, got %v", got)
	}
}
