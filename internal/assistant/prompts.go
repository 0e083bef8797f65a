package assistant

import (
	"fmt"
	"strings"
)

const (
	relevanceSystemPrompt = "You are a strict gatekeeper for a personal finance assistant. " +
		"Reply with exactly one word: relevant or not_relevant."

	relevanceUserTemplate = `Decide whether the sentence is about the user's personal finances.

A sentence is relevant when it:
- records money the user spent or received (expenses, purchases, bills, salary, refunds),
- asks about the user's own spending, income, balance, savings, budgets or transactions,
- asks for a breakdown, trend or comparison of the user's money over time.

A sentence is not_relevant when it is small talk, general knowledge, weather, news,
coding, or anything that does not touch the user's own money.

Sentence: "%s"
Answer:`

	classifySystemPrompt = "You are a classifier. Reply with exactly one word: add or query."

	classifyUserTemplate = `Classify the sentence as 'add' (the user wants to record an expense or an income)
or 'query' (the user is asking about their finances). Only reply with 'add' or 'query'.
Sentence: "%s"`

	extractSystemPrompt = "You are a helpful assistant that extracts structured data from financial sentences. " +
		"You output STRICT JSON only: no comments, no markdown, no code fences."

	planSystemPrompt = "You are a helpful assistant that creates a one-line data fetch plan for a personal finance database."

	synthesisSystemPrompt = "You are a helpful assistant that answers user questions about their own finances. " +
		"Use ONLY the data you are given; never invent transactions, amounts or dates. " +
		"If the data is empty or does not answer the question, say so plainly. " +
		"Write money with a currency marker (for example $120.50). Keep the answer to two or three sentences."
)

type example struct {
	input  string
	output string
}

var extractExamples = []example{
	{`I spent $50 on groceries`, `{"type":"expense","amount":50,"description":"groceries"}`},
	{`Got paid 2500 salary today`, `{"type":"income","amount":2500,"description":"salary"}`},
	{`paid 12.75 for an uber to the airport`, `{"type":"expense","amount":12.75,"description":"uber to the airport"}`},
	{`received a 40 dollar refund from amazon`, `{"type":"income","amount":40,"description":"refund from amazon"}`},
	{`add expense netflix 15.99`, `{"type":"expense","amount":15.99,"description":"netflix"}`},
}

// planExamples bias the planner toward the phrases the executor recognises.
var planExamples = []example{
	{"What do I spend the most on?", "top spending category"},
	{"Where does most of my money go this month?", "top spending category for this month"},
	{"Show my last 3 expenses", "last 3 expenses"},
	{"What were my most recent incomes?", "last 5 incomes"},
	{"Show my recent transactions", "recent transactions"},
	{"How has my spending changed over the year?", "spending trend over the past 12 months"},
	{"Compare my income and expenses for the last 4 months", "monthly breakdown for the last 4 months"},
	{"How are my categories trending?", "category trend for the last 3 months"},
	{"Break down my spending by category", "spending by category"},
	{"Do I spend more on weekends?", "weekday vs weekend spending"},
	{"Am I saving more than last month?", "savings this month vs last month"},
	{"How did this quarter compare to the last one?", "quarter comparison"},
	{"What was my biggest purchase?", "largest expense"},
	{"What do I usually spend in a month?", "average monthly spending"},
	{"Where does my income come from?", "income sources"},
	{"How much did I spend last month?", "total expenses for last month"},
	{"How much did I spend in July?", "total expenses for July"},
	{"What was my total income this year?", "total income for this year"},
	{"What is my current balance?", "current balance"},
	{"How much did I spend on groceries?", "spending on groceries"},
	{"How much have I spent on travel this month?", "spending on travel for this month"},
}

func relevancePrompt(sentence string) string {
	return fmt.Sprintf(relevanceUserTemplate, sentence)
}

func classifyPrompt(sentence string) string {
	return fmt.Sprintf(classifyUserTemplate, sentence)
}

func extractPrompt(sentence string) string {
	var b strings.Builder
	b.WriteString("Extract from the sentence:\n")
	b.WriteString("1. type: \"income\" or \"expense\"\n")
	b.WriteString("2. amount: a positive number without currency symbols\n")
	b.WriteString("3. description: short text describing what the money was for\n\n")
	b.WriteString("Examples:\n")
	for _, ex := range extractExamples {
		fmt.Fprintf(&b, "Sentence: %q\nJSON: %s\n\n", ex.input, ex.output)
	}
	fmt.Fprintf(&b, "Sentence: %q\nJSON:", sentence)
	return b.String()
}

func planPrompt(sentence string) string {
	var b strings.Builder
	b.WriteString("Given the user's sentence, describe in one short line what data to fetch from their finances (expenses or income).\n")
	b.WriteString("Reuse the wording of the examples whenever it fits and keep any numbers, categories or periods the user mentions.\n\n")
	for _, ex := range planExamples {
		fmt.Fprintf(&b, "Sentence: %q\nPlan: %s\n\n", ex.input, ex.output)
	}
	fmt.Fprintf(&b, "Sentence: %q\nPlan:", sentence)
	return b.String()
}

func synthesisPrompt(dataJSON, sentence string) string {
	return fmt.Sprintf("Data (JSON):\n%s\n\nQuestion: %q\nAnswer:", dataJSON, sentence)
}
