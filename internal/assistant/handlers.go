package assistant

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"tracko.app/finance-tracker/internal/store"
)

const FallbackAnswer = "Sorry, I can only answer questions about total expenses, total income, current balance, " +
	"top spending category, recent transactions, spending on a category, trends, monthly or quarterly comparisons, " +
	"weekday vs weekend spending, savings and income sources for now."

// DefaultRoutes is the executor's priority order: top category, recent
// transactions, analyses, lookups and totals, balance, category lookup.
func DefaultRoutes() []Route {
	return []Route{
		{Name: "top_category", Match: matchEither(`top spending category|most of (my|your) money|categor(y|ies) (i|you) spend the most|biggest spending category|spend the most on`), Handle: topCategory},
		{Name: "recent_transactions", Match: matchEither(`recent (transactions|expenses|incomes?|purchases)|last ` + countWords + ` (transactions|expenses|incomes?|purchases)`), Handle: recentTransactions},
		{Name: "category_trend", Match: matchEither(`categor(y|ies)\W+(\w+\W+){0,3}trend|trends?\W+(\w+\W+){0,3}by categor`), Handle: categoryTrend},
		{Name: "spending_trend", Match: matchEither(`trend|over time|(past|last) (12|twelve) months|over the (past|last) year|changed over`), Handle: spendingTrend},
		{Name: "weekday_weekend", Match: matchEither(`weekdays?|weekends?|day of (the )?week|which days?`), Handle: weekdayWeekend},
		{Name: "average_spending", Match: matchEither(`average|typical(ly)? (month|spend)|usually spend`), Handle: averageSpending},
		{Name: "monthly_breakdown", Match: matchEither(`monthly (breakdown|summary|comparison|overview)|month[- ]by[- ]month|each month|per month|(last|past) ` + countWords + ` months`), Handle: monthlyBreakdown},
		{Name: "category_breakdown", Match: matchEither(`category breakdown|by category|each category|per category|break ?down (of |by )?(my )?(spending|expenses)`), Handle: categoryBreakdown},
		{Name: "savings_comparison", Match: matchEither(`\bsav(e|es|ed|ing|ings)\b`), Handle: savingsComparison},
		{Name: "quarter_comparison", Match: matchEither(`quarter|\bq[1-4]\b`), Handle: quarterComparison},
		{Name: "largest_expense", Match: matchEither(`(largest|biggest|most expensive|highest|priciest) (single )?(expense|purchase|transaction|payment)`), Handle: largestExpense},
		{Name: "income_sources", Match: matchEither(`income sources|sources? of (my )?income|where (does|do) my (income|money) come from|who pays me`), Handle: incomeSources},
		{Name: "total_expenses", Match: matchEither(`total (expenses|spending)|spent in total|overall spending|how much (have|did) i spen[dt] (in total|overall|this|last|in|during|today|so far)`), Handle: totalExpenses},
		{Name: "total_income", Match: matchEither(`total income|how much (did|have) i (earn|earned|make|made)|my earnings|income (for|in|this|last)`), Handle: totalIncome},
		{Name: "current_balance", Match: matchEither(`current balance|\bbalance\b|net worth|how much (money )?do i have`), Handle: currentBalance},
		{Name: "category_spending", Match: func(plan, sentence string) bool { return categoryTerm(plan, sentence) != "" }, Handle: categorySpending},
	}
}

func fallbackHandler(ctx context.Context, q Query) (QueryResult, error) {
	return Literal{Answer: FallbackAnswer, Data: []any{}}, nil
}

type totalRow struct {
	Total float64 `json:"total"`
}

type monthTotal struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
}

func expenses(w Window) store.Filter {
	return store.Filter{Kind: store.KindExpense, From: w.From, To: w.To}
}

func income(w Window) store.Filter {
	return store.Filter{Kind: store.KindIncome, From: w.From, To: w.To}
}

// periodSuffix renders " for last month" style suffixes; empty without a period.
func periodSuffix(w Window, ok bool) string {
	if !ok {
		return ""
	}
	return " for " + w.Label
}

func topCategory(ctx context.Context, q Query) (QueryResult, error) {
	w, ok := parsePeriod(q.Now, q.Plan, q.Sentence)
	groups, err := q.Ledger.SumByLabel(ctx, q.UserID, expenses(w), 1)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return Literal{Answer: "No expenses found to determine top category" + periodSuffix(w, ok) + ".", Data: groups}, nil
	}
	top := groups[0]
	return Literal{
		Answer: fmt.Sprintf("You spend most of your money on %s (%s)%s.", top.Label, formatMoney(top.Total), periodSuffix(w, ok)),
		Data:   groups,
	}, nil
}

const countWords = `(\d+|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve)`

var (
	recentCountRe = regexp.MustCompile(`(?i)\blast ` + countWords + ` (transactions|expenses|incomes?|purchases)`)
	monthsCountRe = regexp.MustCompile(`(?i)\b(?:last|past) ` + countWords + ` months`)
	incomeWordRe  = regexp.MustCompile(`(?i)\bincomes?\b|\bearn`)
	expenseWordRe = regexp.MustCompile(`(?i)\bexpenses?\b|\bspen[dt]|\bpurchases?\b`)

	wordNumbers = map[string]int{
		"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
		"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
	}
)

// countIn reads the number captured by re from the plan, then the sentence.
func countIn(re *regexp.Regexp, def, max int, texts ...string) int {
	for _, text := range texts {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			n = wordNumbers[strings.ToLower(m[1])]
		}
		if n < 1 {
			return def
		}
		if n > max {
			return max
		}
		return n
	}
	return def
}

func recentTransactions(ctx context.Context, q Query) (QueryResult, error) {
	count := countIn(recentCountRe, 5, 50, q.Plan, q.Sentence)

	text := q.Plan + " " + q.Sentence
	wantIncome := incomeWordRe.MatchString(text)
	wantExpense := expenseWordRe.MatchString(text)
	if !wantIncome && !wantExpense {
		wantIncome, wantExpense = true, true
	}

	var records []store.Record
	noun := "transactions"
	if wantExpense {
		rs, err := q.Ledger.Recent(ctx, q.UserID, store.Filter{Kind: store.KindExpense}, count)
		if err != nil {
			return nil, err
		}
		records = append(records, rs...)
		noun = "expenses"
	}
	if wantIncome {
		rs, err := q.Ledger.Recent(ctx, q.UserID, store.Filter{Kind: store.KindIncome}, count)
		if err != nil {
			return nil, err
		}
		records = append(records, rs...)
		if wantExpense {
			noun = "transactions"
		} else {
			noun = "incomes"
		}
	}

	sort.SliceStable(records, func(i, j int) bool { return records[i].Date.After(records[j].Date) })
	if len(records) > count {
		records = records[:count]
	}
	if len(records) == 0 {
		return Literal{Answer: fmt.Sprintf("You have no recorded %s yet.", noun), Data: records}, nil
	}

	items := make([]string, len(records))
	for i, r := range records {
		items[i] = fmt.Sprintf("%s %s", r.Label, formatMoney(r.Amount))
		if noun == "transactions" {
			items[i] = fmt.Sprintf("%s %s", r.Kind, items[i])
		}
	}
	return Literal{
		Answer: fmt.Sprintf("Here are your last %d %s: %s", len(records), noun, strings.Join(items, ", ")),
		Data:   records,
	}, nil
}

// monthIndex is the number of calendar months from `from` to t.
func monthIndex(from, t time.Time) int {
	t = t.In(from.Location())
	return (t.Year()-from.Year())*12 + int(t.Month()) - int(from.Month())
}

// monthlyTotals buckets records into n calendar months starting at from.
func monthlyTotals(records []store.Record, from time.Time, n int) []float64 {
	totals := make([]float64, n)
	for _, r := range records {
		if i := monthIndex(from, r.Date); i >= 0 && i < n {
			totals[i] += r.Amount
		}
	}
	for i := range totals {
		totals[i] = roundCents(totals[i])
	}
	return totals
}

func spendingTrend(ctx context.Context, q Query) (QueryResult, error) {
	const months = 12
	w := lastMonths(q.Now, months)
	records, err := q.Ledger.Records(ctx, q.UserID, expenses(w))
	if err != nil {
		return nil, err
	}

	totals := monthlyTotals(records, w.From, months)
	trend := make([]monthTotal, months)
	for i := range trend {
		trend[i] = monthTotal{Month: w.From.AddDate(0, i, 0).Format("2006-01"), Total: totals[i]}
	}
	return NeedsSynthesis{Data: map[string]any{"trend": trend}}, nil
}

type monthFlow struct {
	Month    string  `json:"month"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Net      float64 `json:"net"`
}

func monthlyBreakdown(ctx context.Context, q Query) (QueryResult, error) {
	months := countIn(monthsCountRe, 6, 24, q.Plan, q.Sentence)
	w := lastMonths(q.Now, months)

	var spent, earned []store.Record
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		spent, err = q.Ledger.Records(gctx, q.UserID, expenses(w))
		return err
	})
	g.Go(func() (err error) {
		earned, err = q.Ledger.Records(gctx, q.UserID, income(w))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := monthlyTotals(spent, w.From, months)
	in := monthlyTotals(earned, w.From, months)
	flows := make([]monthFlow, months)
	for i := range flows {
		flows[i] = monthFlow{
			Month:    w.From.AddDate(0, i, 0).Format("2006-01"),
			Income:   in[i],
			Expenses: out[i],
			Net:      roundCents(in[i] - out[i]),
		}
	}
	return NeedsSynthesis{Data: map[string]any{"months": flows}}, nil
}

type categorySeries struct {
	Category string    `json:"category"`
	Totals   []float64 `json:"totals"`
	Change   float64   `json:"change"`
}

func categoryTrend(ctx context.Context, q Query) (QueryResult, error) {
	const months = 3
	w := lastMonths(q.Now, months)
	records, err := q.Ledger.Records(ctx, q.UserID, expenses(w))
	if err != nil {
		return nil, err
	}

	byCategory := map[string][]store.Record{}
	for _, r := range records {
		byCategory[r.Label] = append(byCategory[r.Label], r)
	}

	series := make([]categorySeries, 0, len(byCategory))
	for category, rs := range byCategory {
		totals := monthlyTotals(rs, w.From, months)
		series = append(series, categorySeries{
			Category: category,
			Totals:   totals,
			Change:   roundCents(totals[months-1] - totals[0]),
		})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Category < series[j].Category })

	labels := make([]string, months)
	for i := range labels {
		labels[i] = w.From.AddDate(0, i, 0).Format("2006-01")
	}
	return NeedsSynthesis{Data: map[string]any{"months": labels, "categories": series}}, nil
}

type categoryShare struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
	Percent  float64 `json:"percent"`
}

func categoryBreakdown(ctx context.Context, q Query) (QueryResult, error) {
	w, ok := parsePeriod(q.Now, q.Plan, q.Sentence)
	groups, err := q.Ledger.SumByLabel(ctx, q.UserID, expenses(w), 0)
	if err != nil {
		return nil, err
	}

	var total float64
	for _, g := range groups {
		total += g.Total
	}
	shares := make([]categoryShare, len(groups))
	for i, g := range groups {
		var pct float64
		if total > 0 {
			pct = roundCents(g.Total / total * 100)
		}
		shares[i] = categoryShare{Category: g.Label, Total: roundCents(g.Total), Count: g.Count, Percent: pct}
	}

	data := map[string]any{"total": roundCents(total), "categories": shares}
	if ok {
		data["period"] = w.Label
	}
	return NeedsSynthesis{Data: data}, nil
}

type dayTotal struct {
	Day   string  `json:"day"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

type splitTotal struct {
	Total        float64 `json:"total"`
	Days         int     `json:"days"`
	DailyAverage float64 `json:"dailyAverage"`
}

func weekdayWeekend(ctx context.Context, q Query) (QueryResult, error) {
	w := lastMonths(q.Now, 3)
	w.To = dayStart(q.Now).AddDate(0, 0, 1)
	records, err := q.Ledger.Records(ctx, q.UserID, expenses(w))
	if err != nil {
		return nil, err
	}

	days := make([]dayTotal, 7)
	for d := range days {
		days[d].Day = time.Weekday(d).String()
	}
	for _, r := range records {
		d := r.Date.In(q.Now.Location()).Weekday()
		days[d].Total += r.Amount
		days[d].Count++
	}

	var weekday, weekend splitTotal
	for d := w.From; d.Before(w.To); d = d.AddDate(0, 0, 1) {
		if isWeekend(d.Weekday()) {
			weekend.Days++
		} else {
			weekday.Days++
		}
	}
	for d := range days {
		days[d].Total = roundCents(days[d].Total)
		if isWeekend(time.Weekday(d)) {
			weekend.Total += days[d].Total
		} else {
			weekday.Total += days[d].Total
		}
	}
	for _, s := range []*splitTotal{&weekday, &weekend} {
		s.Total = roundCents(s.Total)
		if s.Days > 0 {
			s.DailyAverage = roundCents(s.Total / float64(s.Days))
		}
	}

	return NeedsSynthesis{Data: map[string]any{
		"from":    w.From.Format("2006-01-02"),
		"to":      w.To.AddDate(0, 0, -1).Format("2006-01-02"),
		"byDay":   days,
		"weekday": weekday,
		"weekend": weekend,
	}}, nil
}

func isWeekend(d time.Weekday) bool {
	return d == time.Saturday || d == time.Sunday
}

type flowSummary struct {
	Label    string  `json:"label"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Savings  float64 `json:"savings"`
	Rate     float64 `json:"savingsRate"`
}

// flowFor sums income and expenses for each window concurrently.
func flowFor(ctx context.Context, q Query, windows ...Window) ([]flowSummary, error) {
	out := make([]flowSummary, len(windows))
	g, gctx := errgroup.WithContext(ctx)
	for i, w := range windows {
		out[i].Label = w.Label
		g.Go(func() (err error) {
			out[i].Income, err = q.Ledger.Sum(gctx, q.UserID, income(w))
			return err
		})
		g.Go(func() (err error) {
			out[i].Expenses, err = q.Ledger.Sum(gctx, q.UserID, expenses(w))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range out {
		out[i].Income = roundCents(out[i].Income)
		out[i].Expenses = roundCents(out[i].Expenses)
		out[i].Savings = roundCents(out[i].Income - out[i].Expenses)
		if out[i].Income > 0 {
			out[i].Rate = roundCents(out[i].Savings / out[i].Income * 100)
		}
	}
	return out, nil
}

func savingsComparison(ctx context.Context, q Query) (QueryResult, error) {
	this, last := monthWindow(q.Now, 0), monthWindow(q.Now, 1)
	this.Label, last.Label = "this month", "last month"
	flows, err := flowFor(ctx, q, this, last)
	if err != nil {
		return nil, err
	}
	return NeedsSynthesis{Data: map[string]any{"thisMonth": flows[0], "lastMonth": flows[1]}}, nil
}

func quarterComparison(ctx context.Context, q Query) (QueryResult, error) {
	flows, err := flowFor(ctx, q, quarterWindow(q.Now, 0), quarterWindow(q.Now, 1))
	if err != nil {
		return nil, err
	}
	return NeedsSynthesis{Data: map[string]any{"current": flows[0], "previous": flows[1]}}, nil
}

func largestExpense(ctx context.Context, q Query) (QueryResult, error) {
	w, ok := parsePeriod(q.Now, q.Plan, q.Sentence)
	records, err := q.Ledger.Largest(ctx, q.UserID, expenses(w), 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return Literal{Answer: "No expenses found" + periodSuffix(w, ok) + ".", Data: records}, nil
	}
	r := records[0]
	return Literal{
		Answer: fmt.Sprintf("Your largest expense%s was %s in %s (%s) on %s.",
			periodSuffix(w, ok), r.Name, r.Label, formatMoney(r.Amount), r.Date.In(q.Now.Location()).Format("Jan 2, 2006")),
		Data: records,
	}, nil
}

func averageSpending(ctx context.Context, q Query) (QueryResult, error) {
	const months = 6
	// Complete months only.
	w := Window{From: monthStart(q.Now, months), To: monthStart(q.Now, 0)}

	kind, noun := store.KindExpense, "spending"
	if incomeWordRe.MatchString(q.Plan+" "+q.Sentence) && !expenseWordRe.MatchString(q.Plan+" "+q.Sentence) {
		kind, noun = store.KindIncome, "income"
	}

	total, err := q.Ledger.Sum(ctx, q.UserID, store.Filter{Kind: kind, From: w.From, To: w.To})
	if err != nil {
		return nil, err
	}
	avg := roundCents(total / months)
	return Literal{
		Answer: fmt.Sprintf("Your average monthly %s over the last %d months is %s.", noun, months, formatMoney(avg)),
		Data:   map[string]any{"months": months, "total": roundCents(total), "average": avg},
	}, nil
}

func incomeSources(ctx context.Context, q Query) (QueryResult, error) {
	w, ok := parsePeriod(q.Now, q.Plan, q.Sentence)
	groups, err := q.Ledger.SumByLabel(ctx, q.UserID, income(w), 0)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return Literal{Answer: "No income found" + periodSuffix(w, ok) + ".", Data: groups}, nil
	}
	parts := make([]string, len(groups))
	for i, g := range groups {
		parts[i] = fmt.Sprintf("%s (%s)", g.Label, formatMoney(g.Total))
	}
	return Literal{
		Answer: fmt.Sprintf("Your income%s comes from %s.", periodSuffix(w, ok), strings.Join(parts, ", ")),
		Data:   groups,
	}, nil
}

func totalExpenses(ctx context.Context, q Query) (QueryResult, error) {
	w, ok := parsePeriod(q.Now, q.Plan, q.Sentence)
	total, err := q.Ledger.Sum(ctx, q.UserID, expenses(w))
	if err != nil {
		return nil, err
	}
	return Literal{
		Answer: fmt.Sprintf("Your total expenses%s are %s.", periodSuffix(w, ok), formatMoney(total)),
		Data:   []totalRow{{Total: roundCents(total)}},
	}, nil
}

func totalIncome(ctx context.Context, q Query) (QueryResult, error) {
	w, ok := parsePeriod(q.Now, q.Plan, q.Sentence)
	total, err := q.Ledger.Sum(ctx, q.UserID, income(w))
	if err != nil {
		return nil, err
	}
	return Literal{
		Answer: fmt.Sprintf("Your total income%s is %s.", periodSuffix(w, ok), formatMoney(total)),
		Data:   []totalRow{{Total: roundCents(total)}},
	}, nil
}

func currentBalance(ctx context.Context, q Query) (QueryResult, error) {
	var spent, earned float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		spent, err = q.Ledger.Sum(gctx, q.UserID, store.Filter{Kind: store.KindExpense})
		return err
	})
	g.Go(func() (err error) {
		earned, err = q.Ledger.Sum(gctx, q.UserID, store.Filter{Kind: store.KindIncome})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Literal{
		Answer: fmt.Sprintf("Your current balance is %s.", formatMoney(earned-spent)),
		Data: map[string]any{
			"expenses": []totalRow{{Total: roundCents(spent)}},
			"income":   []totalRow{{Total: roundCents(earned)}},
		},
	}, nil
}

var (
	categoryTermRe = regexp.MustCompile(`(?i)\b(?:spen[dt]|spending|expenses?|paid|pay)\s+(?:on|for|at)\s+(?:the\s+)?(?:category\s+)?["']?([\p{L}\p{N}][\p{L}\p{N} &'-]*?)["']?\s*(?:[?.!,]|$|\s(?:for|from|this|last|in|during|over|since|so far|today)\b)`)
	notACategoryRe = regexp.MustCompile(`(?i)^(this|last|past|next|today|the (past|last)|me|it|that|everything|all|average|total|each|every)\b`)
	categorySuffix = regexp.MustCompile(`(?i)\s+(category|categories|expenses?|stuff)$`)
)

// categoryTerm pulls "X" out of "spend on X" from the plan, then the sentence.
func categoryTerm(plan, sentence string) string {
	for _, text := range []string{plan, sentence} {
		m := categoryTermRe.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		term := strings.TrimSpace(categorySuffix.ReplaceAllString(strings.TrimSpace(m[1]), ""))
		if term == "" || notACategoryRe.MatchString(term) {
			continue
		}
		return term
	}
	return ""
}

// categorySpending matches the term as a substring of category names. When
// that finds nothing and the term is an exact catalogue keyword, it retries
// once with the catalogue category.
func categorySpending(ctx context.Context, q Query) (QueryResult, error) {
	term := categoryTerm(q.Plan, q.Sentence)
	w, ok := parsePeriod(q.Now, q.Plan, q.Sentence)

	f := expenses(w)
	f.Label = term
	groups, err := q.Ledger.SumByLabel(ctx, q.UserID, f, 0)
	if err != nil {
		return nil, err
	}

	if len(groups) == 0 && q.Resolver != nil {
		if m := q.Resolver.Match(term); m.Confidence == 1 && !strings.EqualFold(m.Category, term) {
			f.Label = m.Category
			if groups, err = q.Ledger.SumByLabel(ctx, q.UserID, f, 0); err != nil {
				return nil, err
			}
		}
	}

	if len(groups) == 0 {
		return Literal{
			Answer: fmt.Sprintf("No expenses found for category matching '%s'%s.", term, periodSuffix(w, ok)),
			Data:   []store.GroupTotal{},
		}, nil
	}

	var total float64
	parts := make([]string, len(groups))
	for i, g := range groups {
		total += g.Total
		parts[i] = fmt.Sprintf("%s (%s)", g.Label, formatMoney(g.Total))
	}
	if len(groups) == 1 {
		return Literal{
			Answer: fmt.Sprintf("You spent %s on %s%s.", formatMoney(total), groups[0].Label, periodSuffix(w, ok)),
			Data:   groups,
		}, nil
	}
	return Literal{
		Answer: fmt.Sprintf("You spent %s on categories matching '%s'%s: %s.", formatMoney(total), term, periodSuffix(w, ok), strings.Join(parts, ", ")),
		Data:   groups,
	}, nil
}
