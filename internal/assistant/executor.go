package assistant

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"tracko.app/finance-tracker/internal/logger"
)

// QueryResult is either a Literal answer or data that NeedsSynthesis.
type QueryResult interface {
	queryResult()
	Payload() any
}

// Literal is a finished answer; Data is what it was computed from.
type Literal struct {
	Answer string
	Data   any
}

// NeedsSynthesis asks the caller to phrase an answer from Data.
type NeedsSynthesis struct {
	Data any
}

func (Literal) queryResult()        {}
func (NeedsSynthesis) queryResult() {}

func (l Literal) Payload() any        { return l.Data }
func (n NeedsSynthesis) Payload() any { return n.Data }

// Query is everything a handler may look at. Now is already in the
// executor's location.
type Query struct {
	Ledger   Ledger
	Resolver CategoryResolver
	UserID   string
	Plan     string
	Sentence string
	Now      time.Time
}

type Handler func(ctx context.Context, q Query) (QueryResult, error)

// Route binds a predicate over (plan, sentence) to a handler.
type Route struct {
	Name   string
	Match  func(plan, sentence string) bool
	Handle Handler
}

// matchEither builds a predicate testing a case-insensitive pattern against
// the plan or, failing that, the original sentence.
func matchEither(pattern string) func(plan, sentence string) bool {
	re := regexp.MustCompile(`(?i)` + pattern)
	return func(plan, sentence string) bool {
		return re.MatchString(plan) || re.MatchString(sentence)
	}
}

// Executor runs the first route whose predicate accepts the plan.
type Executor struct {
	ledger   Ledger
	resolver CategoryResolver
	routes   []Route
	fallback Handler
	now      func() time.Time
	loc      *time.Location
}

type ExecutorOption func(*Executor)

func WithClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) { e.now = now }
}

func WithLocation(loc *time.Location) ExecutorOption {
	return func(e *Executor) { e.loc = loc }
}

func WithCategoryResolver(r CategoryResolver) ExecutorOption {
	return func(e *Executor) { e.resolver = r }
}

// NewExecutor takes the fallback separately from routes: it is the arm that
// answers every plan no route accepts.
func NewExecutor(ledger Ledger, fallback Handler, routes []Route, opts ...ExecutorOption) *Executor {
	if fallback == nil {
		panic("assistant: executor requires a fallback handler")
	}
	e := &Executor{
		ledger:   ledger,
		routes:   routes,
		fallback: fallback,
		now:      time.Now,
		loc:      time.UTC,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewDefaultExecutor wires the standard route table and fallback.
func NewDefaultExecutor(ledger Ledger, opts ...ExecutorOption) *Executor {
	return NewExecutor(ledger, fallbackHandler, DefaultRoutes(), opts...)
}

// Execute returns the result and the name of the route that produced it.
func (e *Executor) Execute(ctx context.Context, userID, plan, sentence string) (QueryResult, string, error) {
	if userID == "" {
		return Literal{Answer: UnauthenticatedAnswer}, "unauthenticated", nil
	}

	q := Query{
		Ledger:   e.ledger,
		Resolver: e.resolver,
		UserID:   userID,
		Plan:     plan,
		Sentence: sentence,
		Now:      e.now().In(e.loc),
	}

	name, handle := "fallback", e.fallback
	for _, r := range e.routes {
		if r.Match(plan, sentence) {
			name, handle = r.Name, r.Handle
			break
		}
	}

	log := logger.FromContext(ctx)
	log.Debug().Str("route", name).Str("plan", plan).Msg("executing data plan")

	result, err := handle(ctx, q)
	if err != nil {
		return nil, name, fmt.Errorf("%s: %w", name, err)
	}
	return result, name, nil
}
