// Package services orchestrates the repositories, the event publisher and
// the summary cache behind the HTTP handlers.
package services

import (
	"context"
	"strconv"
	"sync/atomic"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// EventPublisher is the outbound side of the event stream.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, e *amqp.TransactionEvent) error
}

// TransactionService stores transactions and announces every change. The
// listing used by the summaries is cached until the next mutation.
type TransactionService struct {
	repo   storage.TransactionRepository
	events EventPublisher
	cache  cache.Cache[[]core.Transaction]
	logger *log.Logger

	// generation advances on every mutation and is part of the cache key,
	// so a listing read before a mutation is never stored under a newer key.
	generation atomic.Uint64
}

// NewTransactionService wires repo with an optional publisher and cache.
// Either may be nil.
func NewTransactionService(repo storage.TransactionRepository, events EventPublisher, c cache.Cache[[]core.Transaction], logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &TransactionService{
		repo:   repo,
		events: events,
		cache:  c,
		logger: logger.WithComponent(log.ComponentTransaction),
	}
}

func (s *TransactionService) List(ctx context.Context) ([]core.Transaction, error) {
	return s.repo.ListTransactions(ctx)
}

func (s *TransactionService) Get(ctx context.Context, id string) (core.Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	created, err := s.repo.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, err
	}
	s.changed(ctx, amqp.TransactionCreated, created)
	return created, nil
}

func (s *TransactionService) Update(ctx context.Context, id string, t core.Transaction) (core.Transaction, error) {
	updated, err := s.repo.UpdateTransaction(ctx, id, t)
	if err != nil {
		return core.Transaction{}, err
	}
	s.changed(ctx, amqp.TransactionUpdated, updated)
	return updated, nil
}

func (s *TransactionService) Delete(ctx context.Context, id string) (core.Transaction, error) {
	removed, err := s.repo.DeleteTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	s.changed(ctx, amqp.TransactionDeleted, removed)
	return removed, nil
}

// changed invalidates the cached listing and publishes the event. A failed
// publish is logged and otherwise ignored.
func (s *TransactionService) changed(ctx context.Context, typ amqp.EventType, t core.Transaction) {
	s.generation.Add(1)
	if s.cache != nil {
		s.cache.Purge()
	}

	s.logger.InfoContext(ctx, "Transaction changed",
		log.NewFields().
			WithTransaction(t.ID, t.Category, t.Amount.String()).
			WithOperation(string(typ)).
			ToSlice()...)

	if s.events == nil {
		return
	}
	if err := s.events.PublishTransactionEvent(ctx, amqp.NewTransactionEvent(typ, t)); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish transaction event",
			log.FieldOperation, log.OpPublish,
			log.FieldEventType, typ,
			log.FieldTransactionID, t.ID,
			log.FieldError, err)
	}
}

// Snapshot returns all transactions, served from the cache when no mutation
// happened since the last read.
func (s *TransactionService) Snapshot(ctx context.Context) ([]core.Transaction, error) {
	if s.cache == nil {
		return s.repo.ListTransactions(ctx)
	}
	gen := s.generation.Load()
	key := "transactions:" + strconv.FormatUint(gen, 10)
	if txs, ok := s.cache.Get(key); ok {
		return txs, nil
	}
	txs, err := s.repo.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	if s.generation.Load() == gen {
		s.cache.Set(key, txs)
	}
	return txs, nil
}

func (s *TransactionService) SummaryByCategory(ctx context.Context) ([]core.CategoryTotal, error) {
	txs, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return core.AggregateByCategory(txs), nil
}

func (s *TransactionService) SummaryByMonth(ctx context.Context) ([]core.MonthTotal, error) {
	txs, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return core.AggregateByMonth(txs), nil
}
