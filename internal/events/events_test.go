package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rogerio-castellano/shopnesty/internal/models"
	"github.com/segmentio/kafka-go"
)

type fakeKafkaWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeKafkaWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeKafkaWriter) Close() error {
	f.closed = true
	return nil
}

type fakeChannel struct {
	key    string
	msgs   []amqp.Publishing
	closed bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	f.key = key
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeChannel) IsClosed() bool { return f.closed }

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

type fakeConn struct{ closed bool }

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func checkoutEvent(t *testing.T) Event {
	t.Helper()
	e, err := NewCheckoutEvent(models.Transaction{ID: "t1", ShopperID: "alice", Total: 12.5})
	if err != nil {
		t.Fatalf("NewCheckoutEvent: %v", err)
	}
	return e
}

func TestNewCheckoutEvent(t *testing.T) {
	e := checkoutEvent(t)
	if e.Type != TypeCheckoutCompleted || e.Key != "alice" || e.ID == "" {
		t.Fatalf("unexpected envelope %+v", e)
	}
	var txn models.Transaction
	if err := json.Unmarshal(e.Payload, &txn); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if txn.ID != "t1" || txn.Total != 12.5 {
		t.Errorf("unexpected payload %+v", txn)
	}
}

func TestKafkaPublisher_Publish(t *testing.T) {
	fw := &fakeKafkaWriter{}
	p := NewKafkaPublisherWith(fw)
	e := checkoutEvent(t)

	if err := p.Publish(context.Background(), e); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(fw.msgs) != 1 {
		t.Fatalf("want 1 message, got %d", len(fw.msgs))
	}
	if string(fw.msgs[0].Key) != "alice" {
		t.Errorf("expected key alice, got %q", fw.msgs[0].Key)
	}
	var got Event
	if err := json.Unmarshal(fw.msgs[0].Value, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != e.ID {
		t.Errorf("id mismatch: %s vs %s", got.ID, e.ID)
	}

	_ = p.Close()
	if !fw.closed {
		t.Error("expected writer to be closed")
	}
}

func TestKafkaPublisher_Error(t *testing.T) {
	fw := &fakeKafkaWriter{err: errors.New("broker down")}
	if err := NewKafkaPublisherWith(fw).Publish(context.Background(), checkoutEvent(t)); err == nil {
		t.Fatal("expected error")
	}
}

func TestRabbitPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p := NewRabbitPublisherWith(ch, "orders")
	e := checkoutEvent(t)

	if err := p.Publish(context.Background(), e); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if ch.key != "orders" || len(ch.msgs) != 1 {
		t.Fatalf("unexpected publish to %q (%d msgs)", ch.key, len(ch.msgs))
	}
	msg := ch.msgs[0]
	if msg.DeliveryMode != amqp.Persistent || msg.MessageId != e.ID || msg.Type != TypeCheckoutCompleted {
		t.Errorf("unexpected publishing %+v", msg)
	}
}

func TestRabbitPublisher_RedialsClosedChannel(t *testing.T) {
	first := &fakeChannel{closed: true}
	oldConn := &fakeConn{}
	fresh := &fakeChannel{}
	dials := 0
	p := &RabbitPublisher{
		queue: "orders",
		ch:    first,
		conn:  oldConn,
		dial: func() (amqpChannel, io.Closer, error) {
			dials++
			if dials == 1 {
				return nil, nil, errors.New("broker unreachable")
			}
			return fresh, &fakeConn{}, nil
		},
	}
	e := checkoutEvent(t)

	if err := p.Publish(context.Background(), e); err == nil {
		t.Fatal("expected the failed dial to be returned")
	}
	if !oldConn.closed {
		t.Error("expected the dead connection to be closed")
	}
	if err := p.Publish(context.Background(), e); err != nil {
		t.Fatalf("publish after redial: %v", err)
	}
	if dials != 2 || len(fresh.msgs) != 1 || len(first.msgs) != 0 {
		t.Errorf("expected the event on the redialled channel, dials=%d fresh=%d old=%d", dials, len(fresh.msgs), len(first.msgs))
	}
	if err := p.Publish(context.Background(), e); err != nil || dials != 2 {
		t.Errorf("expected the open channel to be reused, dials=%d err=%v", dials, err)
	}
}

func TestRabbitPublisher_ClosedWithoutDialer(t *testing.T) {
	ch := &fakeChannel{}
	p := NewRabbitPublisherWith(ch, "orders")
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Publish(context.Background(), checkoutEvent(t)); !errors.Is(err, amqp.ErrClosed) {
		t.Errorf("expected amqp.ErrClosed, got %v", err)
	}
}
