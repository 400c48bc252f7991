// Package worker applies transaction events to the spreadsheet mirror.
package worker

import (
	"context"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
)

// EventSource delivers transaction events until ctx ends.
type EventSource interface {
	ConsumeTransactionEvents(ctx context.Context, handler amqp.Handler) error
}

// MirrorWorker keeps the spreadsheet in step with the event stream.
type MirrorWorker struct {
	source EventSource
	mirror sheets.TransactionMirror
	logger *log.Logger
}

func NewMirrorWorker(source EventSource, mirror sheets.TransactionMirror, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &MirrorWorker{
		source: source,
		mirror: mirror,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// Run consumes events until ctx is cancelled.
func (w *MirrorWorker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Mirror worker started")
	err := w.source.ConsumeTransactionEvents(ctx, w.Handle)
	w.logger.InfoContext(ctx, "Mirror worker stopped", log.FieldError, err)
	return err
}

// Handle applies one event. Creates and updates rewrite the row, deletes
// blank it. An error makes the broker redeliver the event.
func (w *MirrorWorker) Handle(ctx context.Context, e *amqp.TransactionEvent) error {
	switch e.Type {
	case amqp.TransactionCreated, amqp.TransactionUpdated:
		ref, err := w.mirror.Upsert(ctx, e.Transaction)
		if err != nil {
			return fmt.Errorf("mirror %s: %w", e.ID, err)
		}
		w.logger.InfoContext(ctx, "Transaction mirrored",
			log.FieldOperation, log.OpMirror,
			log.FieldEventType, e.Type,
			log.FieldTransactionID, e.ID,
			"sheets_ref", ref)
	case amqp.TransactionDeleted:
		if err := w.mirror.Remove(ctx, e.ID); err != nil {
			return fmt.Errorf("remove %s from mirror: %w", e.ID, err)
		}
		w.logger.InfoContext(ctx, "Transaction removed from mirror", log.FieldTransactionID, e.ID)
	default:
		w.logger.WarnContext(ctx, "Ignoring unknown event", log.FieldEventType, e.Type)
	}
	return nil
}
