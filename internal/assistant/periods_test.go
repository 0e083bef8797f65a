package assistant

import (
	"testing"
	"time"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		text      string
		wantLabel string
		wantFrom  string
		wantTo    string
	}{
		{"total expenses for today", "today", "2026-03-15", "2026-03-16"},
		{"spending this week", "this week", "2026-03-09", "2026-03-16"},
		{"total expenses for this month", "this month", "2026-03-01", "2026-04-01"},
		{"total income for last month", "last month", "2026-02-01", "2026-03-01"},
		{"total income for this year", "this year", "2026-01-01", "2027-01-01"},
		{"total expenses for last year", "last year", "2025-01-01", "2026-01-01"},
		{"total expenses in January", "January 2026", "2026-01-01", "2026-02-01"},
		{"total expenses for July", "July 2025", "2025-07-01", "2025-08-01"},
	}

	for _, tt := range tests {
		w, ok := parsePeriod(testNow, tt.text)
		if !ok {
			t.Errorf("parsePeriod(%q) found no period", tt.text)
			continue
		}
		if w.Label != tt.wantLabel || w.From.Format(time.DateOnly) != tt.wantFrom || w.To.Format(time.DateOnly) != tt.wantTo {
			t.Errorf("parsePeriod(%q) = %s [%s, %s), want %s [%s, %s)", tt.text,
				w.Label, w.From.Format(time.DateOnly), w.To.Format(time.DateOnly), tt.wantLabel, tt.wantFrom, tt.wantTo)
		}
	}
}

func TestParsePeriodIgnoresBareMonthWords(t *testing.T) {
	if w, ok := parsePeriod(testNow, "may I see my balance"); ok {
		t.Errorf("parsePeriod found %q in a sentence without a period", w.Label)
	}
}

func TestParsePeriodPrefersPlan(t *testing.T) {
	w, ok := parsePeriod(testNow, "total expenses for last month", "how much did I spend this year")
	if !ok || w.Label != "last month" {
		t.Errorf("got %q, want last month", w.Label)
	}
}

func TestCalendarWindows(t *testing.T) {
	jan := time.Date(2026, time.January, 31, 23, 0, 0, 0, time.UTC)

	if w := monthWindow(jan, 1); w.From.Format(time.DateOnly) != "2025-12-01" || w.To.Format(time.DateOnly) != "2026-01-01" {
		t.Errorf("monthWindow across year = [%s, %s)", w.From, w.To)
	}
	if w := quarterWindow(jan, 1); w.Label != "Q4 2025" || w.From.Format(time.DateOnly) != "2025-10-01" {
		t.Errorf("previous quarter = %s from %s", w.Label, w.From)
	}
	if w := lastMonths(jan, 12); w.From.Format(time.DateOnly) != "2025-02-01" || w.To.Format(time.DateOnly) != "2026-02-01" {
		t.Errorf("lastMonths = [%s, %s)", w.From, w.To)
	}
}

func TestWindowsFollowLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("no tzdata: %v", err)
	}
	// 2026-03-31 20:00 UTC is already April in Tokyo.
	now := time.Date(2026, time.March, 31, 20, 0, 0, 0, time.UTC).In(tokyo)
	w := monthWindow(now, 0)
	if w.Label != "2026-04" {
		t.Errorf("current month in Tokyo = %s, want 2026-04", w.Label)
	}
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{600, "$600"},
		{0, "$0"},
		{42.5, "$42.5"},
		{12.755, "$12.76"},
		{-12.75, "-$12.75"},
		{0.1 + 0.2, "$0.3"},
	}
	for _, tt := range tests {
		if got := formatMoney(tt.in); got != tt.want {
			t.Errorf("formatMoney(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
