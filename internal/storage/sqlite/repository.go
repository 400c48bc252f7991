// Package sqlite stores transactions, budgets and categories in a SQLite
// file through modernc.org/sqlite. The schema is applied with golang-migrate
// when the first connection is established.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/conn"
	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

const backendName = "sqlite"

type Repository struct {
	conns *conn.Manager[*sql.DB]
	now   func() time.Time
}

// New prepares a repository for the database at dsn. The file is opened and
// migrated lazily on first use. dsn may carry a sqlite:// prefix.
func New(dsn string, timeout time.Duration) (*Repository, error) {
	m, err := conn.New(conn.Options[*sql.DB]{
		Backend: backendName,
		DSN:     dsn,
		Timeout: timeout,
		Dial:    dial,
		Close:   func(db *sql.DB) error { return db.Close() },
	})
	if err != nil {
		return nil, err
	}
	return &Repository{conns: m, now: time.Now}, nil
}

// Path strips a sqlite:// or sqlite: prefix from dsn.
func Path(dsn string) string {
	for _, prefix := range []string{"sqlite://", "sqlite:"} {
		if strings.HasPrefix(dsn, prefix) {
			return strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

func dial(ctx context.Context, dsn string) (*sql.DB, error) {
	path := Path(dsn)
	if dir := filepath.Dir(path); dir != "." && !inMemory(path) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time avoids SQLITE_BUSY under concurrent requests.
	// A single connection that is never recycled also keeps a private
	// in-memory database alive for the lifetime of the handle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.InfoContext(ctx, "SQLite database ready", "path", path)
	return db, nil
}

// inMemory reports whether path names a SQLite in-memory database.
func inMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory") || strings.HasPrefix(path, "file::memory:")
}

func (r *Repository) db(ctx context.Context) (*sql.DB, error) {
	return r.conns.Acquire(ctx)
}

func (r *Repository) Ping(ctx context.Context) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.conns.Close()
}

const transactionColumns = `id, amount, date, description, category, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (core.Transaction, error) {
	var (
		t                    core.Transaction
		amount, date         string
		createdAt, updatedAt string
	)
	if err := row.Scan(&t.ID, &amount, &date, &t.Description, &t.Category, &createdAt, &updatedAt); err != nil {
		return core.Transaction{}, err
	}
	var err error
	if t.Amount, err = core.MoneyFromString(amount); err != nil {
		return core.Transaction{}, err
	}
	if t.Date, err = core.ParseDate(date); err != nil {
		return core.Transaction{}, err
	}
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return t, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func (r *Repository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY seq`)
	if err != nil {
		return nil, &core.StorageError{Op: "list transactions", Err: err}
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, &core.StorageError{Op: "scan transaction", Err: err}
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StorageError{Op: "list transactions", Err: err}
	}
	return out, nil
}

func (r *Repository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	db, err := r.db(ctx)
	if err != nil {
		return core.Transaction{}, err
	}
	return getTransaction(ctx, db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getTransaction(ctx context.Context, q queryRower, id string) (core.Transaction, error) {
	t, err := scanTransaction(q.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, &core.StorageError{Op: "get transaction", Err: err}
	}
	return t, nil
}

func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	db, err := r.db(ctx)
	if err != nil {
		return core.Transaction{}, err
	}
	now := r.now().UTC()
	t.ID = uuid.NewString()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err = db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Amount.String(), t.Date.String(), t.Description, t.Category, formatTime(now), formatTime(now))
	if err != nil {
		return core.Transaction{}, &core.StorageError{Op: "create transaction", Err: err}
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite", "id", t.ID, "category", t.Category)
	return t, nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, id string, t core.Transaction) (core.Transaction, error) {
	db, err := r.db(ctx)
	if err != nil {
		return core.Transaction{}, err
	}
	res, err := db.ExecContext(ctx,
		`UPDATE transactions SET amount = ?, date = ?, description = ?, category = ?, updated_at = ? WHERE id = ?`,
		t.Amount.String(), t.Date.String(), t.Description, t.Category, formatTime(r.now()), id)
	if err != nil {
		return core.Transaction{}, &core.StorageError{Op: "update transaction", Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.Transaction{}, core.ErrNotFound
	}
	return getTransaction(ctx, db, id)
}

func (r *Repository) DeleteTransaction(ctx context.Context, id string) (core.Transaction, error) {
	db, err := r.db(ctx)
	if err != nil {
		return core.Transaction{}, err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, &core.StorageError{Op: "delete transaction", Err: err}
	}
	defer tx.Rollback()

	t, err := getTransaction(ctx, tx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
		return core.Transaction{}, &core.StorageError{Op: "delete transaction", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return core.Transaction{}, &core.StorageError{Op: "delete transaction", Err: err}
	}
	return t, nil
}

func (r *Repository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT id, category, amount, month, created_at, updated_at FROM budgets ORDER BY seq`)
	if err != nil {
		return nil, &core.StorageError{Op: "list budgets", Err: err}
	}
	defer rows.Close()

	out := make([]core.Budget, 0)
	for rows.Next() {
		var (
			b                    core.Budget
			amount               string
			createdAt, updatedAt string
		)
		if err := rows.Scan(&b.ID, &b.Category, &amount, &b.Month, &createdAt, &updatedAt); err != nil {
			return nil, &core.StorageError{Op: "scan budget", Err: err}
		}
		if b.Amount, err = core.MoneyFromString(amount); err != nil {
			return nil, &core.StorageError{Op: "scan budget", Err: err}
		}
		b.CreatedAt = parseTime(createdAt)
		b.UpdatedAt = parseTime(updatedAt)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StorageError{Op: "list budgets", Err: err}
	}
	return out, nil
}

func (r *Repository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	db, err := r.db(ctx)
	if err != nil {
		return core.Budget{}, err
	}
	now := r.now().UTC()
	b.ID = uuid.NewString()
	b.CreatedAt = now
	b.UpdatedAt = now

	_, err = db.ExecContext(ctx,
		`INSERT INTO budgets (id, category, amount, month, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.Category, b.Amount.String(), b.Month, formatTime(now), formatTime(now))
	if err != nil {
		return core.Budget{}, &core.StorageError{Op: "create budget", Err: err}
	}
	return b, nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]string, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT name FROM categories ORDER BY seq`)
	if err != nil {
		return nil, &core.StorageError{Op: "list categories", Err: err}
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, &core.StorageError{Op: "scan category", Err: err}
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StorageError{Op: "list categories", Err: err}
	}
	return out, nil
}

func (r *Repository) AddCategory(ctx context.Context, name string) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO categories (name, name_key) VALUES (?, ?) ON CONFLICT(name_key) DO NOTHING`,
		name, core.CategoryKey(name))
	if err != nil {
		return &core.StorageError{Op: "add category", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &core.StorageError{Op: "add category", Err: err}
	}
	if n == 0 {
		return core.ErrDuplicate
	}
	return nil
}
