// Package assistant interprets free-text finance sentences: it either extracts
// a transaction to record or answers a question from the user's ledger.
package assistant

import (
	"context"
	"errors"
	"fmt"

	"tracko.app/finance-tracker/internal/store"
	"tracko.app/finance-tracker/internal/utils"
)

// Ledger is the read-only, user-scoped view of expenses and income.
type Ledger interface {
	Sum(ctx context.Context, userID string, f store.Filter) (float64, error)
	SumByLabel(ctx context.Context, userID string, f store.Filter, limit int) ([]store.GroupTotal, error)
	Recent(ctx context.Context, userID string, f store.Filter, limit int) ([]store.Record, error)
	Largest(ctx context.Context, userID string, f store.Filter, limit int) ([]store.Record, error)
	Records(ctx context.Context, userID string, f store.Filter) ([]store.Record, error)
}

// CategoryResolver maps a free-text term to a catalogue category.
type CategoryResolver interface {
	Match(name string) utils.CategoryMatch
}

type Intent string

const (
	IntentAdd   Intent = "add"
	IntentQuery Intent = "query"
)

type Relevance string

const (
	Relevant    Relevance = "relevant"
	NotRelevant Relevance = "not_relevant"
)

const (
	RefusalAnswer         = "I can only help with your personal finances, like recording expenses and income or answering questions about your spending."
	UnauthenticatedAnswer = "User not authenticated."
)

var ErrEmptySentence = errors.New("sentence is required")

// ClassificationError means the intent could not be determined.
type ClassificationError struct {
	Raw string
	Err error
}

func (e *ClassificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("could not classify input: %v", e.Err)
	}
	return fmt.Sprintf("could not classify input: unexpected intent %q", e.Raw)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// ExtractionError carries the raw model output that failed validation.
type ExtractionError struct {
	Reason string
	Raw    string
}

func (e *ExtractionError) Error() string {
	return "failed to extract transaction: " + e.Reason
}
