package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tracko.app/finance-tracker/internal/core"
)

func newTestDispatcher(c core.Completer, l Ledger) *Dispatcher {
	return NewDispatcher(c, newTestExecutor(l), time.Second)
}

func TestInterpretAddsExpense(t *testing.T) {
	c := newFakeCompleter(map[string]string{
		relevanceSystemPrompt: "relevant",
		classifySystemPrompt:  "add",
		extractSystemPrompt:   `{"type":"expense","amount":50,"description":"groceries"}`,
	})
	l := sampleLedger()

	resp, err := newTestDispatcher(c, l).Interpret(context.Background(), Request{Sentence: "I spent $50 on groceries", UserID: testUser})
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	want := AddResponse{Type: TypeExpense, Amount: 50, Description: "groceries", IsRelevant: true}
	if resp != want {
		t.Errorf("resp = %+v, want %+v", resp, want)
	}
	if c.called(planSystemPrompt) {
		t.Error("planner called on the add path")
	}
	if n := l.callCount(); n != 0 {
		t.Errorf("ledger called %d times on the add path", n)
	}
}

func TestInterpretAnswersBalance(t *testing.T) {
	c := newFakeCompleter(map[string]string{
		relevanceSystemPrompt: "relevant",
		classifySystemPrompt:  "query",
		planSystemPrompt:      "current balance",
	})

	resp, err := newTestDispatcher(c, sampleLedger()).Interpret(context.Background(), Request{Sentence: "What is my current balance?", UserID: testUser})
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	q, ok := resp.(QueryResponse)
	if !ok {
		t.Fatalf("resp = %T, want QueryResponse", resp)
	}
	if q.Answer != "Your current balance is $750." || q.Plan != "current balance" || !q.IsRelevant {
		t.Errorf("resp = %+v", q)
	}
	if c.called(synthesisSystemPrompt) {
		t.Error("synthesizer called for a literal answer")
	}
}

func TestInterpretRefusesIrrelevant(t *testing.T) {
	for _, reply := range []string{"not_relevant", "Not relevant.", "NOT_RELEVANT\n", "Irrelevant", "irrelevant."} {
		c := newFakeCompleter(map[string]string{relevanceSystemPrompt: reply})
		l := sampleLedger()

		resp, err := newTestDispatcher(c, l).Interpret(context.Background(), Request{Sentence: "Tell me about the weather", UserID: testUser})
		if err != nil {
			t.Fatalf("%q: Interpret: %v", reply, err)
		}
		want := RefusalResponse{IsRelevant: false, Answer: RefusalAnswer}
		if resp != want {
			t.Errorf("%q: resp = %+v", reply, resp)
		}
		if len(c.calls) != 1 {
			t.Errorf("%q: %d completion calls, want only the relevance check", reply, len(c.calls))
		}
		if n := l.callCount(); n != 0 {
			t.Errorf("%q: ledger called %d times", reply, n)
		}
	}
}

func TestInterpretTreatsUnreadableRelevanceAsRelevant(t *testing.T) {
	c := newFakeCompleter(map[string]string{
		relevanceSystemPrompt: "maybe?",
		classifySystemPrompt:  "query",
		planSystemPrompt:      "total expenses",
	})
	resp, err := newTestDispatcher(c, sampleLedger()).Interpret(context.Background(), Request{Sentence: "expenses", UserID: testUser})
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if _, ok := resp.(QueryResponse); !ok {
		t.Errorf("resp = %T, want QueryResponse", resp)
	}
}

func TestInterpretNoMatchingCategory(t *testing.T) {
	c := newFakeCompleter(map[string]string{
		relevanceSystemPrompt: "relevant",
		classifySystemPrompt:  "query",
		planSystemPrompt:      "spending on xylophones",
	})
	d := NewDispatcher(c, newTestExecutor(sampleLedger(), WithCategoryResolver(mustMatcher(t))), time.Second)

	resp, err := d.Interpret(context.Background(), Request{Sentence: "How much did I spend on xylophones?", UserID: testUser})
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if got := resp.(QueryResponse).Answer; got != "No expenses found for category matching 'xylophones'." {
		t.Errorf("answer = %q", got)
	}
}

func TestInterpretSynthesizesTrend(t *testing.T) {
	c := newFakeCompleter(map[string]string{
		relevanceSystemPrompt: "relevant",
		classifySystemPrompt:  "query",
		planSystemPrompt:      "show me trends in my spending",
		synthesisSystemPrompt: "  Your spending peaked in January at $300.  ",
	})

	resp, err := newTestDispatcher(c, sampleLedger()).Interpret(context.Background(), Request{Sentence: "How has my spending changed?", UserID: testUser})
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	q := resp.(QueryResponse)
	if q.Answer != "Your spending peaked in January at $300." {
		t.Errorf("answer = %q", q.Answer)
	}
	if _, ok := q.Data.(map[string]any)["trend"]; !ok {
		t.Errorf("data = %#v, want trend", q.Data)
	}
	prompt := c.lastPrompt(synthesisSystemPrompt)
	if !strings.Contains(prompt, `"trend"`) || !strings.Contains(prompt, "How has my spending changed?") {
		t.Errorf("synthesis prompt missing data or question: %s", prompt)
	}
}

func TestInterpretUnauthenticatedQuery(t *testing.T) {
	c := newFakeCompleter(map[string]string{
		relevanceSystemPrompt: "relevant",
		classifySystemPrompt:  "query",
		planSystemPrompt:      "current balance",
	})
	l := sampleLedger()

	resp, err := newTestDispatcher(c, l).Interpret(context.Background(), Request{Sentence: "What is my balance?"})
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if got := resp.(QueryResponse).Answer; got != UnauthenticatedAnswer {
		t.Errorf("answer = %q", got)
	}
	if n := l.callCount(); n != 0 {
		t.Errorf("ledger called %d times", n)
	}
}

func TestInterpretErrors(t *testing.T) {
	upstream := errors.New("quota exceeded")

	t.Run("empty sentence", func(t *testing.T) {
		c := newFakeCompleter(nil)
		_, err := newTestDispatcher(c, sampleLedger()).Interpret(context.Background(), Request{Sentence: "   ", UserID: testUser})
		if !errors.Is(err, ErrEmptySentence) {
			t.Errorf("err = %v, want ErrEmptySentence", err)
		}
		if len(c.calls) != 0 {
			t.Errorf("%d completion calls for an empty sentence", len(c.calls))
		}
	})

	t.Run("unknown intent", func(t *testing.T) {
		c := newFakeCompleter(map[string]string{relevanceSystemPrompt: "relevant", classifySystemPrompt: "delete"})
		_, err := newTestDispatcher(c, sampleLedger()).Interpret(context.Background(), Request{Sentence: "remove my rent", UserID: testUser})
		var ce *ClassificationError
		if !errors.As(err, &ce) || ce.Raw != "delete" {
			t.Errorf("err = %v, want ClassificationError with raw output", err)
		}
	})

	t.Run("classifier failure", func(t *testing.T) {
		c := newFakeCompleter(map[string]string{relevanceSystemPrompt: "relevant"})
		c.errs[classifySystemPrompt] = upstream
		_, err := newTestDispatcher(c, sampleLedger()).Interpret(context.Background(), Request{Sentence: "spent 5 on tea", UserID: testUser})
		var ce *ClassificationError
		if !errors.As(err, &ce) || !errors.Is(err, upstream) {
			t.Errorf("err = %v, want ClassificationError wrapping upstream", err)
		}
	})

	t.Run("bad extraction", func(t *testing.T) {
		c := newFakeCompleter(map[string]string{
			relevanceSystemPrompt: "relevant",
			classifySystemPrompt:  "add",
			extractSystemPrompt:   `{"type":"expense","amount":-3,"description":"tea"}`,
		})
		_, err := newTestDispatcher(c, sampleLedger()).Interpret(context.Background(), Request{Sentence: "spent -3 on tea", UserID: testUser})
		var ee *ExtractionError
		if !errors.As(err, &ee) || !strings.Contains(ee.Raw, "-3") {
			t.Errorf("err = %v, want ExtractionError carrying raw output", err)
		}
	})

	t.Run("relevance failure", func(t *testing.T) {
		c := newFakeCompleter(nil)
		c.errs[relevanceSystemPrompt] = upstream
		_, err := newTestDispatcher(c, sampleLedger()).Interpret(context.Background(), Request{Sentence: "hi", UserID: testUser})
		if !errors.Is(err, upstream) {
			t.Errorf("err = %v, want upstream error", err)
		}
	})

	t.Run("synthesis failure", func(t *testing.T) {
		c := newFakeCompleter(map[string]string{
			relevanceSystemPrompt: "relevant",
			classifySystemPrompt:  "query",
			planSystemPrompt:      "quarter comparison",
		})
		c.errs[synthesisSystemPrompt] = upstream
		_, err := newTestDispatcher(c, sampleLedger()).Interpret(context.Background(), Request{Sentence: "how was this quarter", UserID: testUser})
		if !errors.Is(err, upstream) {
			t.Errorf("err = %v, want upstream error", err)
		}
	})
}

type blockingCompleter struct{}

func (blockingCompleter) Complete(ctx context.Context, req core.CompletionRequest) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestInterpretBoundsCompletionCalls(t *testing.T) {
	d := NewDispatcher(blockingCompleter{}, newTestExecutor(sampleLedger()), 20*time.Millisecond)
	_, err := d.Interpret(context.Background(), Request{Sentence: "What is my balance?", UserID: testUser})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}
