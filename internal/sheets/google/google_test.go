package google

import (
	"context"
	"errors"
	"strings"
	"testing"

	"fintrack/internal/core"
)

type fakeValues struct {
	rows    map[int][]any
	updates []string
	cleared []string
	getErr  error
}

func newFakeValues() *fakeValues {
	return &fakeValues{rows: map[int][]any{}}
}

func (f *fakeValues) Get(_ context.Context, _, _ string) ([][]any, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	last := 0
	for r := range f.rows {
		if r > last {
			last = r
		}
	}
	out := make([][]any, last)
	for r, v := range f.rows {
		if len(v) > 0 {
			out[r-1] = v[:1]
		}
	}
	return out, nil
}

func (f *fakeValues) Update(_ context.Context, _, rng string, rows [][]any) error {
	f.updates = append(f.updates, rng)
	f.rows[rowOf(rng)] = rows[0]
	return nil
}

func (f *fakeValues) Clear(_ context.Context, _, rng string) error {
	f.cleared = append(f.cleared, rng)
	f.rows[rowOf(rng)] = []any{}
	return nil
}

// rowOf extracts N from "Sheet!AN:EN".
func rowOf(rng string) int {
	cell := rng[strings.Index(rng, "!")+2:]
	n := 0
	for _, c := range cell {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func tx(id, desc string) core.Transaction {
	amount, _ := core.MoneyFromString("12.5")
	return core.Transaction{ID: id, Amount: amount, Date: core.NewDate(2025, 4, 1), Description: desc, Category: "Food"}
}

func TestUpsertAppendsThenRewrites(t *testing.T) {
	values := newFakeValues()
	c := NewWithValues(values, "sheet-id", "")
	ctx := context.Background()

	ref, err := c.Upsert(ctx, tx("a", "Lunch"))
	if err != nil {
		t.Fatal(err)
	}
	if ref != "Transactions!A2:E2" {
		t.Fatalf("expected first row after header, got %s", ref)
	}
	if values.rows[1][0] != "ID" {
		t.Fatalf("expected header row, got %v", values.rows[1])
	}

	if ref, _ := c.Upsert(ctx, tx("b", "Dinner")); ref != "Transactions!A3:E3" {
		t.Fatalf("expected append at row 3, got %s", ref)
	}

	ref, err = c.Upsert(ctx, tx("a", "Brunch"))
	if err != nil || ref != "Transactions!A2:E2" {
		t.Fatalf("expected rewrite of row 2, got %s (%v)", ref, err)
	}
	if values.rows[2][2] != "Brunch" || values.rows[2][3] != "12.5" || values.rows[2][1] != "2025-04-01" {
		t.Fatalf("unexpected row %v", values.rows[2])
	}
}

func TestRemove(t *testing.T) {
	values := newFakeValues()
	c := NewWithValues(values, "sheet-id", "Ledger")
	ctx := context.Background()
	c.Upsert(ctx, tx("a", "Lunch"))
	c.Upsert(ctx, tx("b", "Dinner"))

	if err := c.Remove(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if len(values.cleared) != 1 || values.cleared[0] != "Ledger!A3:E3" {
		t.Fatalf("unexpected clears %v", values.cleared)
	}
	if err := c.Remove(ctx, "missing"); err != nil {
		t.Fatalf("unknown id should not fail, got %v", err)
	}
}

func TestUpsertReadError(t *testing.T) {
	values := newFakeValues()
	values.getErr = errors.New("quota exceeded")
	c := NewWithValues(values, "sheet-id", "")
	if _, err := c.Upsert(context.Background(), tx("a", "Lunch")); err == nil {
		t.Fatal("expected error")
	}
}

func TestRowIndexOf(t *testing.T) {
	rows := [][]any{{"ID"}, {}, {" abc "}, {"def"}}
	cases := map[string]int{"abc": 3, "def": 4, "zzz": 0}
	for id, want := range cases {
		if got := rowIndexOf(rows, id); got != want {
			t.Errorf("rowIndexOf(%q) = %d, want %d", id, got, want)
		}
	}
}

func TestNewRequiresSpreadsheet(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error without spreadsheet id")
	}
}
