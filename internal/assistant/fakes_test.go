package assistant

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"tracko.app/finance-tracker/internal/core"
	"tracko.app/finance-tracker/internal/store"
	"tracko.app/finance-tracker/internal/utils"
)

const testUser = "user-1"

// testNow is Sunday 15 March 2026, noon UTC.
var testNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 10, 0, 0, 0, time.UTC)
}

type ledgerRow struct {
	user string
	store.Record
}

// fakeLedger applies store.Filter the way the SQLite ledger does.
type fakeLedger struct {
	mu    sync.Mutex
	rows  []ledgerRow
	calls int
}

func (l *fakeLedger) add(user string, kind store.Kind, label, name string, amount float64, date time.Time) {
	l.rows = append(l.rows, ledgerRow{user: user, Record: store.Record{
		ID:     fmt.Sprintf("r%d", len(l.rows)+1),
		Kind:   kind,
		Label:  label,
		Name:   name,
		Amount: amount,
		Date:   date,
	}})
}

func (l *fakeLedger) match(userID string, f store.Filter) ([]store.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if userID == "" {
		return nil, store.ErrMissingUser
	}
	var out []store.Record
	for _, r := range l.rows {
		switch {
		case r.user != userID, r.Kind != f.Kind:
			continue
		case !f.From.IsZero() && r.Date.Before(f.From):
			continue
		case !f.To.IsZero() && !r.Date.Before(f.To):
			continue
		case f.Label != "" && !strings.Contains(strings.ToLower(r.Label), strings.ToLower(f.Label)):
			continue
		}
		out = append(out, r.Record)
	}
	return out, nil
}

func (l *fakeLedger) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func (l *fakeLedger) Sum(ctx context.Context, userID string, f store.Filter) (float64, error) {
	rs, err := l.match(userID, f)
	var total float64
	for _, r := range rs {
		total += r.Amount
	}
	return total, err
}

func (l *fakeLedger) SumByLabel(ctx context.Context, userID string, f store.Filter, limit int) ([]store.GroupTotal, error) {
	rs, err := l.match(userID, f)
	if err != nil {
		return nil, err
	}
	byLabel := map[string]*store.GroupTotal{}
	var groups []store.GroupTotal
	for _, r := range rs {
		g, ok := byLabel[r.Label]
		if !ok {
			g = &store.GroupTotal{Label: r.Label}
			byLabel[r.Label] = g
		}
		g.Total += r.Amount
		g.Count++
	}
	for _, g := range byLabel {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Total > groups[j].Total })
	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}
	return groups, nil
}

func (l *fakeLedger) Recent(ctx context.Context, userID string, f store.Filter, limit int) ([]store.Record, error) {
	rs, err := l.match(userID, f)
	sort.Slice(rs, func(i, j int) bool { return rs[i].Date.After(rs[j].Date) })
	if len(rs) > limit {
		rs = rs[:limit]
	}
	return rs, err
}

func (l *fakeLedger) Largest(ctx context.Context, userID string, f store.Filter, limit int) ([]store.Record, error) {
	rs, err := l.match(userID, f)
	sort.Slice(rs, func(i, j int) bool { return rs[i].Amount > rs[j].Amount })
	if len(rs) > limit {
		rs = rs[:limit]
	}
	return rs, err
}

func (l *fakeLedger) Records(ctx context.Context, userID string, f store.Filter) ([]store.Record, error) {
	rs, err := l.match(userID, f)
	sort.Slice(rs, func(i, j int) bool { return rs[i].Date.Before(rs[j].Date) })
	return rs, err
}

// sampleLedger holds a quarter of activity for testUser plus one row for
// another user that must never leak into answers.
func sampleLedger() *fakeLedger {
	l := &fakeLedger{}
	l.add(testUser, store.KindExpense, "Food & Dining", "Lunch", 85, day(2026, time.March, 2))
	l.add(testUser, store.KindExpense, "Fast Food", "Burger", 25, day(2026, time.March, 10))
	l.add(testUser, store.KindExpense, "Transportation", "Train", 40, day(2026, time.February, 20))
	l.add(testUser, store.KindExpense, "Shopping", "TV", 300, day(2026, time.January, 5))
	l.add(testUser, store.KindIncome, "Salary", "Salary", 1000, day(2026, time.March, 1))
	l.add(testUser, store.KindIncome, "Freelance", "Freelance", 200, day(2026, time.February, 10))
	l.add("user-2", store.KindExpense, "Food & Dining", "Dinner", 999, day(2026, time.March, 3))
	return l
}

type fakeResolver map[string]utils.CategoryMatch

func (r fakeResolver) Match(name string) utils.CategoryMatch {
	if m, ok := r[strings.ToLower(name)]; ok {
		return m
	}
	return utils.CategoryMatch{Category: utils.DefaultCategory}
}

// fakeCompleter answers by system prompt so each stage can be scripted.
type fakeCompleter struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	calls   []core.CompletionRequest
}

func newFakeCompleter(replies map[string]string) *fakeCompleter {
	return &fakeCompleter{replies: replies, errs: map[string]error{}}
}

func (f *fakeCompleter) Complete(ctx context.Context, req core.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if err := f.errs[req.SystemPrompt]; err != nil {
		return "", err
	}
	reply, ok := f.replies[req.SystemPrompt]
	if !ok {
		return "", fmt.Errorf("no scripted reply for %q", req.SystemPrompt)
	}
	return reply, nil
}

func (f *fakeCompleter) called(systemPrompt string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c.SystemPrompt == systemPrompt {
			return true
		}
	}
	return false
}

func (f *fakeCompleter) lastPrompt(systemPrompt string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].SystemPrompt == systemPrompt {
			return f.calls[i].UserPrompt
		}
	}
	return ""
}

func newTestExecutor(l Ledger, opts ...ExecutorOption) *Executor {
	opts = append([]ExecutorOption{WithClock(func() time.Time { return testNow })}, opts...)
	return NewDefaultExecutor(l, opts...)
}
