package service

import (
	"strings"

	"github.com/finbook-app/finbook/pkg/models"
)

// ListCategories returns every category belonging to the owner.
func (s *Service) ListCategories(ownerID uint) ([]models.Category, error) {
	return s.store.ListCategories(ownerID)
}

// CreateCategory adds a category. Kind must be income or expense.
func (s *Service) CreateCategory(ownerID uint, name string, kind models.CategoryKind) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("name is required")
	}
	if !kind.Valid() {
		return nil, validationf("kind must be %q or %q", models.CategoryIncome, models.CategoryExpense)
	}
	if existing, err := s.store.FindCategoryByName(ownerID, name); err == nil && existing != nil {
		return nil, validationf("category %q already exists", name)
	}
	c := &models.Category{Name: name, Kind: kind, UserID: ownerID}
	if err := s.store.CreateCategory(c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCategory removes a category. Transactions that referenced it
// fall back to uncategorized in the store layer.
func (s *Service) DeleteCategory(ownerID, id uint) error {
	return s.store.DeleteCategory(ownerID, id)
}
