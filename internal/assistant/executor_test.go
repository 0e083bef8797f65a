package assistant

import (
	"context"
	"errors"
	"testing"
)

func TestExecuteWithoutUserNeverQueries(t *testing.T) {
	plans := []string{"current balance", "top spending category", "spending on food", "show me trends in my spending", "nonsense"}
	for _, plan := range plans {
		l := sampleLedger()
		result, _, err := newTestExecutor(l).Execute(context.Background(), "", plan, plan)
		if err != nil {
			t.Fatalf("%q: Execute: %v", plan, err)
		}
		lit, ok := result.(Literal)
		if !ok || lit.Answer != UnauthenticatedAnswer {
			t.Errorf("%q: result = %#v, want unauthenticated literal", plan, result)
		}
		if n := l.callCount(); n != 0 {
			t.Errorf("%q: ledger called %d times", plan, n)
		}
	}
}

func TestRoutePriority(t *testing.T) {
	// Matches both the top category and the 12 month trend patterns.
	plan := "top spending category over the past 12 months"
	e := newTestExecutor(sampleLedger())
	for i := 0; i < 3; i++ {
		_, route, err := e.Execute(context.Background(), testUser, plan, "")
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if route != "top_category" {
			t.Fatalf("call %d: route = %q, want top_category", i, route)
		}
	}
}

func TestFirstMatchingRouteWins(t *testing.T) {
	answer := func(s string) Handler {
		return func(ctx context.Context, q Query) (QueryResult, error) {
			return Literal{Answer: s}, nil
		}
	}
	routes := []Route{
		{Name: "first", Match: matchEither(`balance`), Handle: answer("first")},
		{Name: "second", Match: matchEither(`balance|income`), Handle: answer("second")},
	}
	e := NewExecutor(&fakeLedger{}, answer("fallback"), routes)

	tests := []struct {
		plan, sentence string
		want           string
	}{
		{"current balance", "", "first"},
		{"total income", "", "second"},
		{"something", "what is my BALANCE", "first"},
		{"something", "else", "fallback"},
	}
	for _, tt := range tests {
		result, _, err := e.Execute(context.Background(), testUser, tt.plan, tt.sentence)
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if got := result.(Literal).Answer; got != tt.want {
			t.Errorf("Execute(%q, %q) = %q, want %q", tt.plan, tt.sentence, got, tt.want)
		}
	}
}

func TestExecuteWrapsHandlerError(t *testing.T) {
	boom := errors.New("database is locked")
	routes := []Route{{
		Name:  "broken",
		Match: matchEither(`.`),
		Handle: func(ctx context.Context, q Query) (QueryResult, error) {
			return nil, boom
		},
	}}
	_, route, err := NewExecutor(&fakeLedger{}, fallbackHandler, routes).Execute(context.Background(), testUser, "x", "")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if route != "broken" {
		t.Errorf("route = %q", route)
	}
}

func TestNewExecutorRequiresFallback(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic without fallback")
		}
	}()
	NewExecutor(&fakeLedger{}, nil, DefaultRoutes())
}
