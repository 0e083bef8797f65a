package core

import (
	"context"
	"fmt"
	"strings"

	"tracko.app/finance-tracker/internal/store"
	"tracko.app/finance-tracker/internal/utils"
)

type BudgetStore interface {
	ListBudgets(ctx context.Context, userID string) ([]store.Budget, error)
	ReplaceBudgets(ctx context.Context, userID string, budgets []store.Budget) ([]store.Budget, error)
}

type BudgetInput struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

type BudgetService struct {
	store   BudgetStore
	matcher *utils.CategoryMatcher
}

func NewBudgetService(s BudgetStore, matcher *utils.CategoryMatcher) *BudgetService {
	return &BudgetService{store: s, matcher: matcher}
}

func (s *BudgetService) GetBudgets(ctx context.Context, userID string) ([]store.Budget, error) {
	return s.store.ListBudgets(ctx, userID)
}

// SaveBudgets replaces the user's budgets. Duplicate categories are rejected
// rather than silently merged.
func (s *BudgetService) SaveBudgets(ctx context.Context, userID string, inputs []BudgetInput) ([]store.Budget, error) {
	seen := make(map[string]bool, len(inputs))
	budgets := make([]store.Budget, 0, len(inputs))
	for i, in := range inputs {
		category := strings.TrimSpace(in.Category)
		if category == "" {
			return nil, &ValidationError{Field: fmt.Sprintf("budgets[%d].category", i), Message: "is required"}
		}
		if err := validAmount(in.Amount); err != nil {
			return nil, &ValidationError{Field: fmt.Sprintf("budgets[%d].amount", i), Message: "must be a positive number"}
		}
		key := strings.ToLower(category)
		if seen[key] {
			return nil, &ValidationError{Field: fmt.Sprintf("budgets[%d].category", i), Message: fmt.Sprintf("duplicate category %q", category)}
		}
		seen[key] = true
		budgets = append(budgets, store.Budget{Category: category, Amount: in.Amount})
	}
	return s.store.ReplaceBudgets(ctx, userID, budgets)
}

func (s *BudgetService) Categories() []utils.CategoryInfo {
	return s.matcher.Categories()
}
