package services

import (
	"context"

	"fintrack/internal/storage"
)

type CategoryService struct {
	repo storage.CategoryRepository
}

func NewCategoryService(repo storage.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

func (s *CategoryService) List(ctx context.Context) ([]string, error) {
	return s.repo.ListCategories(ctx)
}

// Add appends name. It returns core.ErrDuplicate when the name exists.
func (s *CategoryService) Add(ctx context.Context, name string) error {
	return s.repo.AddCategory(ctx, name)
}
