package core

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"tracko.app/finance-tracker/internal/store"
	"tracko.app/finance-tracker/internal/utils"
)

// ValidationError marks caller mistakes (bad amount, missing name, ...).
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// TransactionStore is the persistence the transaction service writes through.
type TransactionStore interface {
	CreateExpense(ctx context.Context, e *store.Expense) error
	ListExpenses(ctx context.Context, userID string) ([]store.Expense, error)
	DeleteExpense(ctx context.Context, userID, id string) error
	CreateIncome(ctx context.Context, in *store.Income) error
	ListIncome(ctx context.Context, userID string) ([]store.Income, error)
	DeleteIncome(ctx context.Context, userID, id string) error
}

type ExpenseInput struct {
	Name        string    `json:"name"`
	Icon        string    `json:"icon"`
	Category    string    `json:"category"`
	SubCategory string    `json:"subCategory"`
	Amount      float64   `json:"amount"`
	Date        time.Time `json:"date"`
}

type IncomeInput struct {
	Source string    `json:"source"`
	Icon   string    `json:"icon"`
	Amount float64   `json:"amount"`
	Date   time.Time `json:"date"`
}

type TransactionService struct {
	store   TransactionStore
	matcher *utils.CategoryMatcher
}

func NewTransactionService(s TransactionStore, matcher *utils.CategoryMatcher) *TransactionService {
	return &TransactionService{store: s, matcher: matcher}
}

func validAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return &ValidationError{Field: "amount", Message: "must be a positive number"}
	}
	return nil
}

// AddExpense stores an expense. A missing category is inferred from the name
// with the category matcher; a given one is normalized to the catalogue
// spelling when it is a known category and kept verbatim otherwise.
func (s *TransactionService) AddExpense(ctx context.Context, userID string, in ExpenseInput) (*store.Expense, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}
	if err := validAmount(in.Amount); err != nil {
		return nil, err
	}

	category := strings.TrimSpace(in.Category)
	subCategory := strings.TrimSpace(in.SubCategory)
	icon := in.Icon
	if category == "" {
		match := s.matcher.Match(name)
		category = match.Category
		if subCategory == "" {
			subCategory = match.Subcategory
		}
	} else if normalized := s.matcher.Normalize(category); normalized != utils.DefaultCategory {
		category = normalized
	}
	if icon == "" {
		if meta, ok := s.matcher.Metadata(category); ok {
			icon = meta.Icon
		}
	}

	expense := &store.Expense{
		UserID:      userID,
		Name:        name,
		Icon:        icon,
		Category:    category,
		SubCategory: subCategory,
		Amount:      in.Amount,
		Date:        in.Date,
	}
	if err := s.store.CreateExpense(ctx, expense); err != nil {
		return nil, fmt.Errorf("failed to add expense: %w", err)
	}
	return expense, nil
}

func (s *TransactionService) ListExpenses(ctx context.Context, userID string) ([]store.Expense, error) {
	return s.store.ListExpenses(ctx, userID)
}

func (s *TransactionService) DeleteExpense(ctx context.Context, userID, id string) error {
	return s.store.DeleteExpense(ctx, userID, id)
}

func (s *TransactionService) AddIncome(ctx context.Context, userID string, in IncomeInput) (*store.Income, error) {
	source := strings.TrimSpace(in.Source)
	if source == "" {
		return nil, &ValidationError{Field: "source", Message: "is required"}
	}
	if err := validAmount(in.Amount); err != nil {
		return nil, err
	}

	income := &store.Income{
		UserID: userID,
		Source: source,
		Icon:   in.Icon,
		Amount: in.Amount,
		Date:   in.Date,
	}
	if err := s.store.CreateIncome(ctx, income); err != nil {
		return nil, fmt.Errorf("failed to add income: %w", err)
	}
	return income, nil
}

func (s *TransactionService) ListIncome(ctx context.Context, userID string) ([]store.Income, error) {
	return s.store.ListIncome(ctx, userID)
}

func (s *TransactionService) DeleteIncome(ctx context.Context, userID, id string) error {
	return s.store.DeleteIncome(ctx, userID, id)
}
