// Package postgres stores transactions, budgets and categories in PostgreSQL
// through a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fintrack/internal/conn"
	"fintrack/internal/core"
)

const backendName = "postgres"

type Repository struct {
	conns *conn.Manager[*pgxpool.Pool]
}

// New prepares a repository for dsn. The pool is created and the schema
// migrated on first use.
func New(dsn string, timeout time.Duration) (*Repository, error) {
	m, err := conn.New(conn.Options[*pgxpool.Pool]{
		Backend: backendName,
		DSN:     dsn,
		Timeout: timeout,
		Dial:    dial,
		Close: func(p *pgxpool.Pool) error {
			p.Close()
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return &Repository{conns: m}, nil
}

func dial(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dsn); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.InfoContext(ctx, "PostgreSQL pool ready", "max_conns", pool.Config().MaxConns)
	return pool, nil
}

func (r *Repository) pool(ctx context.Context) (*pgxpool.Pool, error) {
	return r.conns.Acquire(ctx)
}

func (r *Repository) Ping(ctx context.Context) error {
	p, err := r.pool(ctx)
	if err != nil {
		return err
	}
	return p.Ping(ctx)
}

func (r *Repository) Close() error {
	return r.conns.Close()
}

const transactionColumns = `id::text, amount::text, to_char(date, 'YYYY-MM-DD'), description, category, created_at, updated_at`

func scanTransaction(row pgx.Row) (core.Transaction, error) {
	var (
		t            core.Transaction
		amount, date string
	)
	if err := row.Scan(&t.ID, &amount, &date, &t.Description, &t.Category, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return core.Transaction{}, err
	}
	var err error
	if t.Amount, err = core.MoneyFromString(amount); err != nil {
		return core.Transaction{}, err
	}
	if t.Date, err = core.ParseDate(date); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

// validID reports whether id can name a stored row. Anything that is not a
// UUID cannot, so lookups with it are answered as not found.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *Repository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	p, err := r.pool(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := p.Query(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY seq`)
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
	if !validID(id) {
		return core.Transaction{}, core.ErrNotFound
	}
	p, err := r.pool(ctx)
	if err != nil {
		return core.Transaction{}, err
	}
	return oneTransaction(p.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1::text::uuid`, id), "get transaction")
}

func oneTransaction(row pgx.Row, op string) (core.Transaction, error) {
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, &core.StorageError{Op: op, Err: err}
	}
	return t, nil
}

func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	p, err := r.pool(ctx)
	if err != nil {
		return core.Transaction{}, err
	}
	row := p.QueryRow(ctx,
		`INSERT INTO transactions (id, amount, date, description, category)
		 VALUES ($1::text::uuid, $2::text::numeric, $3::text::date, $4, $5)
		 RETURNING `+transactionColumns,
		uuid.NewString(), t.Amount.String(), t.Date.String(), t.Description, t.Category)
	return oneTransaction(row, "create transaction")
}

func (r *Repository) UpdateTransaction(ctx context.Context, id string, t core.Transaction) (core.Transaction, error) {
	if !validID(id) {
		return core.Transaction{}, core.ErrNotFound
	}
	p, err := r.pool(ctx)
	if err != nil {
		return core.Transaction{}, err
	}
	row := p.QueryRow(ctx,
		`UPDATE transactions
		 SET amount = $2::text::numeric, date = $3::text::date, description = $4, category = $5, updated_at = now()
		 WHERE id = $1::text::uuid
		 RETURNING `+transactionColumns,
		id, t.Amount.String(), t.Date.String(), t.Description, t.Category)
	return oneTransaction(row, "update transaction")
}

func (r *Repository) DeleteTransaction(ctx context.Context, id string) (core.Transaction, error) {
	if !validID(id) {
		return core.Transaction{}, core.ErrNotFound
	}
	p, err := r.pool(ctx)
	if err != nil {
		return core.Transaction{}, err
	}
	row := p.QueryRow(ctx, `DELETE FROM transactions WHERE id = $1::text::uuid RETURNING `+transactionColumns, id)
	return oneTransaction(row, "delete transaction")
}

func (r *Repository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	p, err := r.pool(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := p.Query(ctx, `SELECT id::text, category, amount::text, month, created_at, updated_at FROM budgets ORDER BY seq`)
	if err != nil {
		return nil, &core.StorageError{Op: "list budgets", Err: err}
	}
	defer rows.Close()

	out := make([]core.Budget, 0)
	for rows.Next() {
		var (
			b      core.Budget
			amount string
		)
		if err := rows.Scan(&b.ID, &b.Category, &amount, &b.Month, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, &core.StorageError{Op: "scan budget", Err: err}
		}
		if b.Amount, err = core.MoneyFromString(amount); err != nil {
			return nil, &core.StorageError{Op: "scan budget", Err: err}
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StorageError{Op: "list budgets", Err: err}
	}
	return out, nil
}

func (r *Repository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	p, err := r.pool(ctx)
	if err != nil {
		return core.Budget{}, err
	}
	b.ID = uuid.NewString()
	err = p.QueryRow(ctx,
		`INSERT INTO budgets (id, category, amount, month)
		 VALUES ($1::text::uuid, $2, $3::text::numeric, $4)
		 RETURNING created_at, updated_at`,
		b.ID, b.Category, b.Amount.String(), b.Month).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return core.Budget{}, &core.StorageError{Op: "create budget", Err: err}
	}
	return b, nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]string, error) {
	p, err := r.pool(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := p.Query(ctx, `SELECT name FROM categories ORDER BY seq`)
	if err != nil {
		return nil, &core.StorageError{Op: "list categories", Err: err}
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, &core.StorageError{Op: "list categories", Err: err}
	}
	if out == nil {
		out = make([]string, 0)
	}
	return out, nil
}

func (r *Repository) AddCategory(ctx context.Context, name string) error {
	p, err := r.pool(ctx)
	if err != nil {
		return err
	}
	tag, err := p.Exec(ctx,
		`INSERT INTO categories (name, name_key) VALUES ($1, $2) ON CONFLICT (name_key) DO NOTHING`,
		name, core.CategoryKey(name))
	if err != nil {
		return &core.StorageError{Op: "add category", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return core.ErrDuplicate
	}
	return nil
}
