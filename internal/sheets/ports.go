package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionMirror keeps a copy of every transaction outside the store,
	// one row per transaction id.
	TransactionMirror interface {
		// Upsert writes t to the row holding its id, appending a row when
		// none exists.
		Upsert(ctx context.Context, t core.Transaction) (rowRef string, err error)
		// Remove blanks the row holding id. An unknown id is not an error.
		Remove(ctx context.Context, id string) error
	}
)
