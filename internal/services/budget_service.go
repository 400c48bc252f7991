package services

import (
	"context"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type BudgetService struct {
	repo storage.BudgetRepository
	txs  *TransactionService
}

func NewBudgetService(repo storage.BudgetRepository, txs *TransactionService) *BudgetService {
	return &BudgetService{repo: repo, txs: txs}
}

func (s *BudgetService) List(ctx context.Context) ([]core.Budget, error) {
	return s.repo.ListBudgets(ctx)
}

func (s *BudgetService) Create(ctx context.Context, b core.Budget) (core.Budget, error) {
	return s.repo.CreateBudget(ctx, b)
}

// Compare pairs each budgeted category with its spending. An empty month
// compares across all months.
func (s *BudgetService) Compare(ctx context.Context, month string) ([]core.BudgetComparison, error) {
	if month != "" && !core.ValidMonth(month) {
		return nil, core.ValidationErrors{{Field: "month", Message: "Month must be in the format YYYY-MM", Err: core.ErrInvalidMonth}}
	}
	budgets, err := s.repo.ListBudgets(ctx)
	if err != nil {
		return nil, err
	}
	txs, err := s.txs.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return core.CompareBudgets(budgets, txs, month), nil
}
