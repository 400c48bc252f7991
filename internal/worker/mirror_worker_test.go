package worker

import (
	"context"
	"errors"
	"testing"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
)

type fakeMirror struct {
	upserts []string
	removes []string
	err     error
}

func (f *fakeMirror) Upsert(_ context.Context, t core.Transaction) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.upserts = append(f.upserts, t.ID)
	return "Transactions!A2:E2", nil
}

func (f *fakeMirror) Remove(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.removes = append(f.removes, id)
	return nil
}

type sliceSource struct {
	events []*amqp.TransactionEvent
	errs   []error
}

func (s *sliceSource) ConsumeTransactionEvents(ctx context.Context, handler amqp.Handler) error {
	for _, e := range s.events {
		s.errs = append(s.errs, handler(ctx, e))
	}
	return context.Canceled
}

func TestHandle(t *testing.T) {
	mirror := &fakeMirror{}
	w := NewMirrorWorker(nil, mirror, nil)
	ctx := context.Background()
	tx := core.Transaction{ID: "a"}

	for _, typ := range []amqp.EventType{amqp.TransactionCreated, amqp.TransactionUpdated, amqp.TransactionDeleted} {
		if err := w.Handle(ctx, amqp.NewTransactionEvent(typ, tx)); err != nil {
			t.Fatalf("%s: %v", typ, err)
		}
	}
	if len(mirror.upserts) != 2 || len(mirror.removes) != 1 || mirror.removes[0] != "a" {
		t.Fatalf("unexpected mirror calls upserts=%v removes=%v", mirror.upserts, mirror.removes)
	}
}

func TestHandleErrorRequestsRedelivery(t *testing.T) {
	w := NewMirrorWorker(nil, &fakeMirror{err: errors.New("quota exceeded")}, nil)
	err := w.Handle(context.Background(), amqp.NewTransactionEvent(amqp.TransactionCreated, core.Transaction{ID: "a"}))
	if err == nil {
		t.Fatal("expected error so the event is requeued")
	}
}

func TestRun(t *testing.T) {
	mirror := &fakeMirror{}
	src := &sliceSource{events: []*amqp.TransactionEvent{
		amqp.NewTransactionEvent(amqp.TransactionCreated, core.Transaction{ID: "a"}),
		amqp.NewTransactionEvent(amqp.TransactionDeleted, core.Transaction{ID: "a"}),
	}}
	w := NewMirrorWorker(src, mirror, nil)
	if err := w.Run(context.Background()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(mirror.upserts) != 1 || len(mirror.removes) != 1 {
		t.Fatalf("unexpected mirror calls upserts=%v removes=%v", mirror.upserts, mirror.removes)
	}
	for i, err := range src.errs {
		if err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
	}
}
