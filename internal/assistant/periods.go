package assistant

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Window is a half-open calendar range [From, To).
type Window struct {
	Label string    `json:"label"`
	From  time.Time `json:"from"`
	To    time.Time `json:"to"`
}

func monthStart(now time.Time, back int) time.Time {
	return time.Date(now.Year(), now.Month()-time.Month(back), 1, 0, 0, 0, 0, now.Location())
}

// monthWindow is calendar month i back from now: [y, m-i, 1) to [y, m-i+1, 1).
func monthWindow(now time.Time, back int) Window {
	from := monthStart(now, back)
	return Window{Label: from.Format("2006-01"), From: from, To: monthStart(now, back-1)}
}

// lastMonths covers the n calendar months ending with the current one.
func lastMonths(now time.Time, n int) Window {
	return Window{
		Label: fmt.Sprintf("last %d months", n),
		From:  monthStart(now, n-1),
		To:    monthStart(now, -1),
	}
}

// quarterWindow is the calendar quarter back quarters before the current one.
func quarterWindow(now time.Time, back int) Window {
	q := (int(now.Month())-1)/3 - back
	from := time.Date(now.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 3, 0)
	return Window{
		Label: fmt.Sprintf("Q%d %d", (int(from.Month())-1)/3+1, from.Year()),
		From:  from,
		To:    to,
	}
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

var (
	// Month names need a preposition so "may" the verb is not read as May.
	periodRe = regexp.MustCompile(`(?i)\b(today|this week|this month|last month|this year|last year)\b|\b(?:in|for|during|of)\s+(january|february|march|april|may|june|july|august|september|october|november|december)\b`)

	monthNames = map[string]time.Month{
		"january": time.January, "february": time.February, "march": time.March,
		"april": time.April, "may": time.May, "june": time.June, "july": time.July,
		"august": time.August, "september": time.September, "october": time.October,
		"november": time.November, "december": time.December,
	}
)

// parsePeriod finds the first period phrase in texts (checked in order).
// Named months resolve to their most recent occurrence that is not in the future.
func parsePeriod(now time.Time, texts ...string) (Window, bool) {
	for _, text := range texts {
		m := periodRe.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		phrase := strings.ToLower(m[1] + m[2])
		switch phrase {
		case "today":
			from := dayStart(now)
			return Window{Label: "today", From: from, To: from.AddDate(0, 0, 1)}, true
		case "this week":
			from := dayStart(now).AddDate(0, 0, -((int(now.Weekday()) + 6) % 7)) // weeks start on Monday
			return Window{Label: "this week", From: from, To: from.AddDate(0, 0, 7)}, true
		case "this month":
			w := monthWindow(now, 0)
			w.Label = "this month"
			return w, true
		case "last month":
			w := monthWindow(now, 1)
			w.Label = "last month"
			return w, true
		case "this year":
			from := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
			return Window{Label: "this year", From: from, To: from.AddDate(1, 0, 0)}, true
		case "last year":
			from := time.Date(now.Year()-1, time.January, 1, 0, 0, 0, 0, now.Location())
			return Window{Label: "last year", From: from, To: from.AddDate(1, 0, 0)}, true
		default:
			month := monthNames[phrase]
			year := now.Year()
			if month > now.Month() {
				year--
			}
			from := time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
			return Window{Label: from.Format("January 2006"), From: from, To: from.AddDate(0, 1, 0)}, true
		}
	}
	return Window{}, false
}
