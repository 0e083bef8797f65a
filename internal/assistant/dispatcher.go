package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tracko.app/finance-tracker/internal/core"
	"tracko.app/finance-tracker/internal/logger"
)

// Request is one sentence from one (possibly anonymous) user.
type Request struct {
	Sentence string
	UserID   string
}

// Response is AddResponse, QueryResponse or RefusalResponse.
type Response interface {
	response()
}

type AddResponse struct {
	Type        TransactionType `json:"type"`
	Amount      float64         `json:"amount"`
	Description string          `json:"description"`
	IsRelevant  bool            `json:"isRelevant"`
}

type QueryResponse struct {
	Answer     string `json:"answer"`
	Plan       string `json:"plan"`
	IsRelevant bool   `json:"isRelevant"`
	Data       any    `json:"data"`
}

type RefusalResponse struct {
	IsRelevant bool   `json:"isRelevant"`
	Answer     string `json:"answer"`
}

func (AddResponse) response()     {}
func (QueryResponse) response()   {}
func (RefusalResponse) response() {}

// Dispatcher runs a sentence through relevance, intent and then either
// extraction or plan/execute/synthesize.
type Dispatcher struct {
	completer core.Completer
	executor  *Executor
	timeout   time.Duration
}

// NewDispatcher bounds every completion call by timeout; zero disables it.
func NewDispatcher(completer core.Completer, executor *Executor, timeout time.Duration) *Dispatcher {
	return &Dispatcher{completer: completer, executor: executor, timeout: timeout}
}

func (d *Dispatcher) complete(ctx context.Context, req core.CompletionRequest) (string, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	return d.completer.Complete(ctx, req)
}

func (d *Dispatcher) Interpret(ctx context.Context, req Request) (Response, error) {
	sentence := strings.TrimSpace(req.Sentence)
	if sentence == "" {
		return nil, ErrEmptySentence
	}
	log := logger.FromContext(ctx)

	relevance, err := d.relevance(ctx, sentence)
	if err != nil {
		return nil, err
	}
	if relevance == NotRelevant {
		log.Info().Msg("sentence rejected as not relevant")
		return RefusalResponse{IsRelevant: false, Answer: RefusalAnswer}, nil
	}

	intent, err := d.classify(ctx, sentence)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("intent", string(intent)).Msg("sentence classified")

	if intent == IntentAdd {
		t, err := d.extract(ctx, sentence)
		if err != nil {
			return nil, err
		}
		return AddResponse{Type: t.Type, Amount: t.Amount, Description: t.Description, IsRelevant: true}, nil
	}

	plan, err := d.plan(ctx, sentence)
	if err != nil {
		return nil, err
	}

	result, route, err := d.executor.Execute(ctx, req.UserID, plan, sentence)
	if err != nil {
		return nil, err
	}
	log.Info().Str("route", route).Msg("query executed")

	switch r := result.(type) {
	case Literal:
		return QueryResponse{Answer: r.Answer, Plan: plan, IsRelevant: true, Data: r.Data}, nil
	case NeedsSynthesis:
		answer, err := d.synthesize(ctx, r.Data, sentence)
		if err != nil {
			return nil, err
		}
		return QueryResponse{Answer: answer, Plan: plan, IsRelevant: true, Data: r.Data}, nil
	default:
		return nil, fmt.Errorf("unexpected query result %T", result)
	}
}

// relevance only rejects on an explicit "not..." or "irrelevant" answer;
// output it cannot read counts as relevant.
func (d *Dispatcher) relevance(ctx context.Context, sentence string) (Relevance, error) {
	raw, err := d.complete(ctx, core.CompletionRequest{
		SystemPrompt: relevanceSystemPrompt,
		UserPrompt:   relevancePrompt(sentence),
		MaxTokens:    5,
		Temperature:  0,
	})
	if err != nil {
		return "", fmt.Errorf("relevance completion: %w", err)
	}

	answer := normalizeLabel(raw)
	switch {
	case answer == string(Relevant):
		return Relevant, nil
	case strings.HasPrefix(answer, "not"), strings.HasPrefix(answer, "irrelevant"):
		return NotRelevant, nil
	default:
		log := logger.FromContext(ctx)
		log.Warn().Str("raw", raw).Msg("unrecognised relevance answer, treating as relevant")
		return Relevant, nil
	}
}

func (d *Dispatcher) classify(ctx context.Context, sentence string) (Intent, error) {
	raw, err := d.complete(ctx, core.CompletionRequest{
		SystemPrompt: classifySystemPrompt,
		UserPrompt:   classifyPrompt(sentence),
		MaxTokens:    5,
		Temperature:  0,
	})
	if err != nil {
		return "", &ClassificationError{Raw: raw, Err: err}
	}

	switch intent := Intent(normalizeLabel(raw)); intent {
	case IntentAdd, IntentQuery:
		return intent, nil
	default:
		return "", &ClassificationError{Raw: raw}
	}
}

func (d *Dispatcher) plan(ctx context.Context, sentence string) (string, error) {
	raw, err := d.complete(ctx, core.CompletionRequest{
		SystemPrompt: planSystemPrompt,
		UserPrompt:   planPrompt(sentence),
		MaxTokens:    50,
		Temperature:  0,
	})
	if err != nil {
		return "", fmt.Errorf("plan completion: %w", err)
	}
	plan := strings.TrimSpace(raw)
	plan = strings.TrimSpace(strings.TrimPrefix(plan, "Plan:"))
	return plan, nil
}

func (d *Dispatcher) synthesize(ctx context.Context, data any, sentence string) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to encode query data: %w", err)
	}

	raw, err := d.complete(ctx, core.CompletionRequest{
		SystemPrompt: synthesisSystemPrompt,
		UserPrompt:   synthesisPrompt(string(payload), sentence),
		MaxTokens:    200,
		Temperature:  0.2,
	})
	if err != nil {
		return "", fmt.Errorf("synthesis completion: %w", err)
	}
	answer := strings.TrimSpace(raw)
	if answer == "" {
		return "", fmt.Errorf("synthesis completion: %w", core.ErrEmptyCompletion)
	}
	return answer, nil
}

// normalizeLabel lowercases a one-word model answer and drops quotes and
// trailing punctuation.
func normalizeLabel(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Trim(s, "\"'`.!: \n\t")
	if i := strings.IndexAny(s, " \n\t"); i >= 0 {
		s = s[:i]
	}
	return s
}
