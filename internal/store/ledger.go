package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Ledger queries: read-only aggregations over one user's expenses or income.
// Every query is scoped to userID; an empty userID never reaches the database.

type ledgerTable struct {
	name    string
	label   string
	nameCol string
}

func tableFor(kind Kind) (ledgerTable, error) {
	switch kind {
	case KindExpense:
		return ledgerTable{name: "expenses", label: "category", nameCol: "name"}, nil
	case KindIncome:
		return ledgerTable{name: "income", label: "source", nameCol: "source"}, nil
	default:
		return ledgerTable{}, fmt.Errorf("store: unknown ledger kind %q", kind)
	}
}

// where builds the WHERE clause shared by every ledger query.
func (t ledgerTable) where(userID string, f Filter) (string, []any) {
	clauses := []string{"user_id = ?"}
	args := []any{userID}
	if !f.From.IsZero() {
		clauses = append(clauses, "date >= ?")
		args = append(args, f.From.Unix())
	}
	if !f.To.IsZero() {
		clauses = append(clauses, "date < ?")
		args = append(args, f.To.Unix())
	}
	if label := strings.TrimSpace(f.Label); label != "" {
		clauses = append(clauses, "ulower("+t.label+") LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(strings.ToLower(label))+"%")
	}
	return strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Sum returns the total amount matching f; an empty match sums to 0.
func (s *SQLiteStore) Sum(ctx context.Context, userID string, f Filter) (float64, error) {
	if userID == "" {
		return 0, ErrMissingUser
	}
	t, err := tableFor(f.Kind)
	if err != nil {
		return 0, err
	}
	where, args := t.where(userID, f)

	var total float64
	err = s.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(amount), 0) FROM "+t.name+" WHERE "+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum %s: %w", t.name, err)
	}
	return total, nil
}

// SumByLabel groups matching rows by category (expenses) or source (income),
// largest total first. limit <= 0 returns every group.
func (s *SQLiteStore) SumByLabel(ctx context.Context, userID string, f Filter, limit int) ([]GroupTotal, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	t, err := tableFor(f.Kind)
	if err != nil {
		return nil, err
	}
	where, args := t.where(userID, f)

	query := "SELECT " + t.label + ", SUM(amount) AS total, COUNT(*) FROM " + t.name +
		" WHERE " + where + " GROUP BY " + t.label + " ORDER BY total DESC, " + t.label + " ASC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to group %s: %w", t.name, err)
	}
	defer rows.Close()

	groups := []GroupTotal{}
	for rows.Next() {
		var g GroupTotal
		if err := rows.Scan(&g.Label, &g.Total, &g.Count); err != nil {
			return nil, fmt.Errorf("failed to scan %s group: %w", t.name, err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// Recent returns up to limit matching records, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, userID string, f Filter, limit int) ([]Record, error) {
	return s.records(ctx, userID, f, "date DESC", limit)
}

// Largest returns up to limit matching records, biggest amount first.
func (s *SQLiteStore) Largest(ctx context.Context, userID string, f Filter, limit int) ([]Record, error) {
	return s.records(ctx, userID, f, "amount DESC, date DESC", limit)
}

// Records returns every matching record, oldest first.
func (s *SQLiteStore) Records(ctx context.Context, userID string, f Filter) ([]Record, error) {
	return s.records(ctx, userID, f, "date ASC", 0)
}

func (s *SQLiteStore) records(ctx context.Context, userID string, f Filter, order string, limit int) ([]Record, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	t, err := tableFor(f.Kind)
	if err != nil {
		return nil, err
	}
	where, args := t.where(userID, f)

	query := "SELECT id, " + t.label + ", " + t.nameCol + ", amount, date FROM " + t.name +
		" WHERE " + where + " ORDER BY " + order
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s records: %w", t.name, err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var (
			r    Record
			date int64
		)
		if err := rows.Scan(&r.ID, &r.Label, &r.Name, &r.Amount, &date); err != nil {
			return nil, fmt.Errorf("failed to scan %s record: %w", t.name, err)
		}
		r.Kind = f.Kind
		r.Date = time.Unix(date, 0).UTC()
		records = append(records, r)
	}
	return records, rows.Err()
}
