// Package memory is a process-local store used for development and tests.
// Data is lost on restart.
package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

type Store struct {
	mu      sync.Mutex
	now     func() time.Time
	txs     []core.Transaction
	txIndex map[string]int
	budgets []core.Budget
	cats    []string
	catKeys map[string]struct{}
}

// New returns a store seeded with the given categories and budgets.
func New(cats []string, budgets []core.Budget) *Store {
	s := &Store{
		now:     time.Now,
		txIndex: make(map[string]int),
		catKeys: make(map[string]struct{}),
	}
	for _, c := range cats {
		c = core.CleanText(c)
		if c == "" {
			continue
		}
		if _, ok := s.catKeys[core.CategoryKey(c)]; ok {
			continue
		}
		s.catKeys[core.CategoryKey(c)] = struct{}{}
		s.cats = append(s.cats, c)
	}
	for _, b := range budgets {
		_, _ = s.CreateBudget(context.Background(), b)
	}
	return s
}

// NewSeeded returns a store with the default categories and the two sample
// budgets for April 2023.
func NewSeeded() *Store {
	return New(core.DefaultCategories, SeedBudgets())
}

// NewFromFiles seeds categories from base/seed_categories.txt, one per line,
// falling back to the defaults when the file is missing or empty.
func NewFromFiles(base string) *Store {
	cats := readLines(filepath.Join(base, "seed_categories.txt"))
	if len(cats) == 0 {
		cats = core.DefaultCategories
	}
	return New(cats, SeedBudgets())
}

// SeedBudgets returns the sample budgets a fresh store starts with.
func SeedBudgets() []core.Budget {
	food, _ := core.MoneyFromString("500")
	rent, _ := core.MoneyFromString("1000")
	return []core.Budget{
		{Category: "Food", Amount: food, Month: "2023-04"},
		{Category: "Rent", Amount: rent, Month: "2023-04"},
	}
}

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(make([]core.Transaction, 0, len(s.txs)), s.txs...), nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.txIndex[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	return s.txs[i], nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	t.ID = uuid.NewString()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.txIndex[t.ID] = len(s.txs)
	s.txs = append(s.txs, t)
	return t, nil
}

func (s *Store) UpdateTransaction(_ context.Context, id string, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.txIndex[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	cur := s.txs[i]
	cur.Amount = t.Amount
	cur.Date = t.Date
	cur.Description = t.Description
	cur.Category = t.Category
	cur.UpdatedAt = s.now().UTC()
	s.txs[i] = cur
	return cur, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.txIndex[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	removed := s.txs[i]
	s.txs = append(s.txs[:i], s.txs[i+1:]...)
	delete(s.txIndex, id)
	for j := i; j < len(s.txs); j++ {
		s.txIndex[s.txs[j].ID] = j
	}
	return removed, nil
}

func (s *Store) ListBudgets(_ context.Context) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(make([]core.Budget, 0, len(s.budgets)), s.budgets...), nil
}

func (s *Store) CreateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	b.ID = uuid.NewString()
	b.CreatedAt = now
	b.UpdatedAt = now
	s.budgets = append(s.budgets, b)
	return b, nil
}

func (s *Store) ListCategories(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(make([]string, 0, len(s.cats)), s.cats...), nil
}

func (s *Store) AddCategory(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := core.CategoryKey(name)
	if _, ok := s.catKeys[key]; ok {
		return core.ErrDuplicate
	}
	s.catKeys[key] = struct{}{}
	s.cats = append(s.cats, name)
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
