package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// driverName is the mattn driver with ulower(), a Unicode-aware LOWER that
// ledger label filters use.
const driverName = "sqlite3_ulower"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("ulower", strings.ToLower, true)
		},
	})
}

// withPragmas appends the connection options to dsn, which may already carry
// its own query string.
func withPragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on&_busy_timeout=5000"
}

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open(driverName, withPragmas(dataSourceName))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err = runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// User methods
func (s *SQLiteStore) CreateUser(ctx context.Context, fullName, email, passwordHash string, profileImageURL *string) (*User, error) {
	user := &User{
		ID:              uuid.NewString(),
		FullName:        fullName,
		Email:           email,
		PasswordHash:    passwordHash,
		ProfileImageURL: profileImageURL,
		CreatedAt:       s.now().UTC().Truncate(time.Second),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, full_name, email, password_hash, profile_image_url, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		user.ID, user.FullName, user.Email, user.PasswordHash, user.ProfileImageURL, user.CreatedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return user, nil
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.getUser(ctx, "email", email)
}

func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	return s.getUser(ctx, "id", id)
}

func (s *SQLiteStore) getUser(ctx context.Context, column, value string) (*User, error) {
	var (
		user      User
		image     sql.NullString
		createdAt int64
	)
	query := "SELECT id, full_name, email, password_hash, profile_image_url, created_at FROM users WHERE " + column + " = ?"
	err := s.db.QueryRowContext(ctx, query, value).Scan(&user.ID, &user.FullName, &user.Email, &user.PasswordHash, &image, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	if image.Valid {
		user.ProfileImageURL = &image.String
	}
	user.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &user, nil
}

// Expense methods
func (s *SQLiteStore) CreateExpense(ctx context.Context, e *Expense) error {
	if e.UserID == "" {
		return ErrMissingUser
	}
	e.ID = uuid.NewString()
	e.CreatedAt = s.now().UTC().Truncate(time.Second)
	if e.Date.IsZero() {
		e.Date = e.CreatedAt
	}
	e.Date = e.Date.UTC().Truncate(time.Second)

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO expenses (id, user_id, name, icon, category, sub_category, amount, date, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		e.ID, e.UserID, e.Name, e.Icon, e.Category, e.SubCategory, e.Amount, e.Date.Unix(), e.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListExpenses(ctx context.Context, userID string) ([]Expense, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, name, icon, category, sub_category, amount, date, created_at FROM expenses WHERE user_id = ? ORDER BY date DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	expenses := []Expense{}
	for rows.Next() {
		var (
			e               Expense
			date, createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Name, &e.Icon, &e.Category, &e.SubCategory, &e.Amount, &date, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense row: %w", err)
		}
		e.Date = time.Unix(date, 0).UTC()
		e.CreatedAt = time.Unix(createdAt, 0).UTC()
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (s *SQLiteStore) DeleteExpense(ctx context.Context, userID, id string) error {
	return s.deleteOwned(ctx, "expenses", userID, id)
}

// Income methods
func (s *SQLiteStore) CreateIncome(ctx context.Context, in *Income) error {
	if in.UserID == "" {
		return ErrMissingUser
	}
	in.ID = uuid.NewString()
	in.CreatedAt = s.now().UTC().Truncate(time.Second)
	if in.Date.IsZero() {
		in.Date = in.CreatedAt
	}
	in.Date = in.Date.UTC().Truncate(time.Second)

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO income (id, user_id, source, icon, amount, date, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		in.ID, in.UserID, in.Source, in.Icon, in.Amount, in.Date.Unix(), in.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert income: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListIncome(ctx context.Context, userID string) ([]Income, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, source, icon, amount, date, created_at FROM income WHERE user_id = ? ORDER BY date DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query income: %w", err)
	}
	defer rows.Close()

	income := []Income{}
	for rows.Next() {
		var (
			in              Income
			date, createdAt int64
		)
		if err := rows.Scan(&in.ID, &in.UserID, &in.Source, &in.Icon, &in.Amount, &date, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan income row: %w", err)
		}
		in.Date = time.Unix(date, 0).UTC()
		in.CreatedAt = time.Unix(createdAt, 0).UTC()
		income = append(income, in)
	}
	return income, rows.Err()
}

func (s *SQLiteStore) DeleteIncome(ctx context.Context, userID, id string) error {
	return s.deleteOwned(ctx, "income", userID, id)
}

func (s *SQLiteStore) deleteOwned(ctx context.Context, table, userID, id string) error {
	if userID == "" {
		return ErrMissingUser
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Budget methods
func (s *SQLiteStore) ListBudgets(ctx context.Context, userID string) ([]Budget, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	rows, err := s.db.QueryContext(ctx, "SELECT id, user_id, category, amount FROM budgets WHERE user_id = ? ORDER BY category", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer rows.Close()

	budgets := []Budget{}
	for rows.Next() {
		var b Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.Category, &b.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan budget row: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// ReplaceBudgets swaps the user's budget set for budgets in one transaction.
func (s *SQLiteStore) ReplaceBudgets(ctx context.Context, userID string, budgets []Budget) ([]Budget, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin budget transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM budgets WHERE user_id = ?", userID); err != nil {
		return nil, fmt.Errorf("failed to clear budgets: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO budgets (id, user_id, category, amount) VALUES (?, ?, ?, ?)")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare budget insert: %w", err)
	}
	defer stmt.Close()

	saved := make([]Budget, 0, len(budgets))
	for _, b := range budgets {
		b.ID = uuid.NewString()
		b.UserID = userID
		if _, err := stmt.ExecContext(ctx, b.ID, b.UserID, b.Category, b.Amount); err != nil {
			return nil, fmt.Errorf("failed to insert budget %q: %w", b.Category, err)
		}
		saved = append(saved, b)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit budgets: %w", err)
	}
	return saved, nil
}
