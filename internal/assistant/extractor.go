package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"tracko.app/finance-tracker/internal/core"
)

type TransactionType string

const (
	TypeExpense TransactionType = "expense"
	TypeIncome  TransactionType = "income"
)

// ExtractedTransaction is the validated hand-off for the create-transaction
// endpoints. Nothing is persisted here.
type ExtractedTransaction struct {
	Type        TransactionType `json:"type"`
	Amount      float64         `json:"amount"`
	Description string          `json:"description"`
}

func (t ExtractedTransaction) Validate() error {
	switch t.Type {
	case TypeExpense, TypeIncome:
	default:
		return fmt.Errorf("type %q is not income or expense", t.Type)
	}
	if math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) || t.Amount <= 0 {
		return fmt.Errorf("amount %v is not a positive number", t.Amount)
	}
	if strings.TrimSpace(t.Description) == "" {
		return fmt.Errorf("description is empty")
	}
	return nil
}

func (d *Dispatcher) extract(ctx context.Context, sentence string) (ExtractedTransaction, error) {
	raw, err := d.complete(ctx, core.CompletionRequest{
		SystemPrompt: extractSystemPrompt,
		UserPrompt:   extractPrompt(sentence),
		MaxTokens:    100,
		Temperature:  0,
	})
	if err != nil {
		return ExtractedTransaction{}, fmt.Errorf("extraction completion: %w", err)
	}
	return parseExtraction(raw)
}

// parseExtraction decodes and validates model output. Markdown code fences
// are tolerated; anything else that is not a JSON object is rejected.
func parseExtraction(raw string) (ExtractedTransaction, error) {
	fail := func(format string, args ...any) (ExtractedTransaction, error) {
		return ExtractedTransaction{}, &ExtractionError{Reason: fmt.Sprintf(format, args...), Raw: raw}
	}

	var fields struct {
		Type        *string         `json:"type"`
		Amount      json.RawMessage `json:"amount"`
		Description *string         `json:"description"`
	}
	dec := json.NewDecoder(strings.NewReader(stripCodeFence(raw)))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return fail("response is not a JSON object: %v", err)
	}
	if dec.More() {
		return fail("unexpected trailing data after JSON object")
	}

	if fields.Type == nil {
		return fail("type is missing")
	}
	if fields.Description == nil {
		return fail("description is missing")
	}
	amount, err := parseAmount(fields.Amount)
	if err != nil {
		return fail("%v", err)
	}

	t := ExtractedTransaction{
		Type:        TransactionType(strings.ToLower(strings.TrimSpace(*fields.Type))),
		Amount:      amount,
		Description: strings.TrimSpace(*fields.Description),
	}
	if err := t.Validate(); err != nil {
		return fail("%v", err)
	}
	return t, nil
}

// parseAmount accepts a JSON number or a numeric string ("50", "12.75").
func parseAmount(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("amount is missing")
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, fmt.Errorf("amount is not a number: %v", err)
		}
		text = strings.TrimSpace(text)
	}

	amount, err := decimal.NewFromString(text)
	if err != nil {
		return 0, fmt.Errorf("amount %s is not a number", raw)
	}
	if !amount.IsPositive() {
		return 0, fmt.Errorf("amount %s is not a positive number", amount)
	}
	f, _ := amount.Float64()
	return f, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:] // drop the language tag line
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
