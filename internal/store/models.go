package store

import (
	"errors"
	"time"
)

var (
	ErrMissingUser = errors.New("store: user id is required")
	ErrNotFound    = errors.New("store: not found")
)

type User struct {
	ID              string    `json:"id"`
	FullName        string    `json:"fullName"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"` // Do not expose this in JSON responses
	ProfileImageURL *string   `json:"profileImageUrl"`
	CreatedAt       time.Time `json:"createdAt"`
}

type Expense struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Icon        string    `json:"icon,omitempty"`
	Category    string    `json:"category"`
	SubCategory string    `json:"subCategory,omitempty"`
	Amount      float64   `json:"amount"`
	Date        time.Time `json:"date"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Income struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Source    string    `json:"source"`
	Icon      string    `json:"icon,omitempty"`
	Amount    float64   `json:"amount"`
	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"createdAt"`
}

type Budget struct {
	ID       string  `json:"id"`
	UserID   string  `json:"userId"`
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// Kind selects the expenses or the income collection.
type Kind string

const (
	KindExpense Kind = "expense"
	KindIncome  Kind = "income"
)

// Filter narrows a ledger query. Zero From/To mean unbounded; To is exclusive.
// Label is a case-insensitive substring match on category (expenses) or
// source (income).
type Filter struct {
	Kind  Kind
	From  time.Time
	To    time.Time
	Label string
}

// Record is the read-only view of an expense or income row used for aggregation.
type Record struct {
	ID     string    `json:"id"`
	Kind   Kind      `json:"kind"`
	Label  string    `json:"label"`
	Name   string    `json:"name,omitempty"`
	Amount float64   `json:"amount"`
	Date   time.Time `json:"date"`
}

// GroupTotal is the sum of amounts for one category or source.
type GroupTotal struct {
	Label string  `json:"label"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}
