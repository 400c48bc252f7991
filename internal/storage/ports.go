// Package storage defines the persistence ports the handlers and services
// depend on. Implementations live in the memory, sqlite and postgres
// subpackages.
package storage

import (
	"context"

	"fintrack/internal/core"
)

type (
	// TransactionRepository persists transactions. List returns them in
	// insertion order. Get, Update and Delete return core.ErrNotFound for an
	// unknown id.
	TransactionRepository interface {
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		// UpdateTransaction replaces amount, date, description and category
		// of the stored record in one step.
		UpdateTransaction(ctx context.Context, id string, t core.Transaction) (core.Transaction, error)
		// DeleteTransaction removes the record and returns it as it was.
		DeleteTransaction(ctx context.Context, id string) (core.Transaction, error)
	}

	// BudgetRepository persists budgets. Duplicates per category and month
	// are allowed.
	BudgetRepository interface {
		ListBudgets(ctx context.Context) ([]core.Budget, error)
		CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	}

	// CategoryRepository holds the ordered category list. AddCategory returns
	// core.ErrDuplicate when the name is already present, ignoring case.
	CategoryRepository interface {
		ListCategories(ctx context.Context) ([]string, error)
		AddCategory(ctx context.Context, name string) error
	}

	// Pinger reports whether the backing store can be reached.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	// Store is the full set of ports a backend provides.
	Store interface {
		TransactionRepository
		BudgetRepository
		CategoryRepository
		Pinger
		Close() error
	}
)
