package insight_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/fintrackhq/fintrack-bff-go/internal/domain"
	"github.com/fintrackhq/fintrack-bff-go/internal/infra/cache"
	"github.com/fintrackhq/fintrack-bff-go/internal/infra/observability"
	"github.com/fintrackhq/fintrack-bff-go/internal/infra/resilience"
	"github.com/fintrackhq/fintrack-bff-go/internal/insight"
)

// --- Mocks ---

type mockGenerator struct {
	mu        sync.Mutex
	text      string
	err       error
	callCount int
	gate      chan struct{} // when set, Generate blocks until closed
}

func (m *mockGenerator) Generate(ctx context.Context, _ string) (*domain.Generation, error) {
	m.mu.Lock()
	m.callCount++
	gate := m.gate
	text, err := m.text, m.err
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &domain.Generation{
		Text:   text,
		Tokens: domain.TokenUsage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
	}, nil
}

func (m *mockGenerator) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

func newRequestor(gen *mockGenerator, max int) (*insight.Requestor, *cache.InMemory[[]string]) {
	c := cache.New[[]string](time.Minute)
	r := insight.NewRequestor(
		gen,
		c,
		resilience.NewBulkhead(4),
		observability.NewMetrics(),
		zap.NewNop(),
		time.Second,
		max,
	)
	return r, c
}

// --- Tests ---

func TestSuggestions_ParsesModelOutput(t *testing.T) {
	gen := &mockGenerator{text: "• Save more\n**Bold tip**\nInsights: Track spending"}
	r, c := newRequestor(gen, 3)
	defer c.Close()

	got, fallback := r.Suggestions(context.Background(), "user-1", nil)

	if fallback {
		t.Fatal("expected generated suggestions, got fallback")
	}
	want := []string{"Save more", "Bold tip", "Track spending"}
	if len(got) != len(want) {
		t.Fatalf("expected %d suggestions, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("suggestion %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestSuggestions_FallbackOnError(t *testing.T) {
	gen := &mockGenerator{err: errors.New("service unreachable")}
	r, c := newRequestor(gen, 3)
	defer c.Close()

	got, fallback := r.Suggestions(context.Background(), "user-1", nil)

	if !fallback {
		t.Fatal("expected fallback flag")
	}
	if len(got) == 0 || len(got) > 3 {
		t.Errorf("expected 1..3 fallback suggestions, got %d", len(got))
	}
	if got[0] != insight.FallbackSuggestions[0] {
		t.Errorf("expected fixed fallback content, got %v", got)
	}
}

func TestSuggestions_FallbackBoundedByMax(t *testing.T) {
	gen := &mockGenerator{err: errors.New("down")}
	r, c := newRequestor(gen, 2)
	defer c.Close()

	got, _ := r.Suggestions(context.Background(), "user-1", nil)

	if len(got) != 2 {
		t.Errorf("expected fallback truncated to 2, got %d", len(got))
	}
}

func TestSuggestions_FallbackOnUnparsableOutput(t *testing.T) {
	gen := &mockGenerator{text: "   \n**\n"}
	r, c := newRequestor(gen, 3)
	defer c.Close()

	_, fallback := r.Suggestions(context.Background(), "user-1", nil)

	if !fallback {
		t.Error("expected fallback when output parses to nothing")
	}
}

func TestSuggestions_FallbackOnTimeout(t *testing.T) {
	gate := make(chan struct{}) // never closed: generator hangs
	gen := &mockGenerator{text: "- tip", gate: gate}
	c := cache.New[[]string](time.Minute)
	defer c.Close()
	r := insight.NewRequestor(
		gen, c, resilience.NewBulkhead(4), observability.NewMetrics(),
		zap.NewNop(), 20*time.Millisecond, 3,
	)

	start := time.Now()
	_, fallback := r.Suggestions(context.Background(), "user-1", nil)

	if !fallback {
		t.Fatal("expected fallback on timeout")
	}
	if time.Since(start) > time.Second {
		t.Error("suggestions call blocked past its deadline")
	}
}

func TestSuggestions_CachesPerUser(t *testing.T) {
	gen := &mockGenerator{text: "- cached tip"}
	r, c := newRequestor(gen, 3)
	defer c.Close()

	r.Suggestions(context.Background(), "user-1", nil)
	r.Suggestions(context.Background(), "user-1", nil)

	if gen.calls() != 1 {
		t.Errorf("expected 1 generator call, got %d", gen.calls())
	}

	r.Suggestions(context.Background(), "user-2", nil)
	if gen.calls() != 2 {
		t.Errorf("expected per-user cache keys, got %d calls", gen.calls())
	}
}

func TestSuggestions_FallbackNotCached(t *testing.T) {
	gen := &mockGenerator{err: errors.New("down")}
	r, c := newRequestor(gen, 3)
	defer c.Close()

	r.Suggestions(context.Background(), "user-1", nil)

	gen.mu.Lock()
	gen.err = nil
	gen.text = "- recovered tip"
	gen.mu.Unlock()

	got, fallback := r.Suggestions(context.Background(), "user-1", nil)
	if fallback {
		t.Fatal("expected fresh generation after recovery")
	}
	if got[0] != "recovered tip" {
		t.Errorf("expected recovered tip, got %v", got)
	}
}

func TestSuggestions_LastRequestWins(t *testing.T) {
	gate := make(chan struct{})
	gen := &mockGenerator{text: "- stale tip", gate: gate}
	c := cache.New[[]string](time.Minute)
	defer c.Close()
	r := insight.NewRequestor(
		gen, c, resilience.NewBulkhead(4), observability.NewMetrics(),
		zap.NewNop(), time.Second, 3,
	)

	// First request blocks inside the generator.
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Suggestions(context.Background(), "user-1", nil)
	}()

	// Give the first request time to register its token and block.
	time.Sleep(20 * time.Millisecond)

	// Second, newer request completes immediately and caches its result.
	gen.mu.Lock()
	gen.gate = nil
	gen.text = "- fresh tip"
	gen.mu.Unlock()
	got, _ := r.Suggestions(context.Background(), "user-1", nil)
	if got[0] != "fresh tip" {
		t.Fatalf("expected fresh tip, got %v", got)
	}

	// Release the stale request; its result must not overwrite the cache.
	gen.mu.Lock()
	gen.text = "- stale tip"
	gen.mu.Unlock()
	close(gate)
	<-done

	cached, ok := c.Get("insights:user-1")
	if !ok {
		t.Fatal("expected cached suggestions")
	}
	if cached[0] != "fresh tip" {
		t.Errorf("stale result overwrote fresh cache: %v", cached)
	}
}

func TestInvalidate(t *testing.T) {
	gen := &mockGenerator{text: "- tip"}
	r, c := newRequestor(gen, 3)
	defer c.Close()

	r.Suggestions(context.Background(), "user-1", nil)
	r.Invalidate("user-1")
	r.Suggestions(context.Background(), "user-1", nil)

	if gen.calls() != 2 {
		t.Errorf("expected regeneration after invalidate, got %d calls", gen.calls())
	}
}

func TestChat_Fallback(t *testing.T) {
	gen := &mockGenerator{err: errors.New("down")}
	r, c := newRequestor(gen, 3)
	defer c.Close()

	reply, fallback := r.Chat(context.Background(), "how do I save?")

	if !fallback {
		t.Fatal("expected fallback reply")
	}
	if reply == "" {
		t.Error("fallback reply must not be empty")
	}
}

func TestChat_Success(t *testing.T) {
	gen := &mockGenerator{text: "  Spend less than you earn.  "}
	r, c := newRequestor(gen, 3)
	defer c.Close()

	reply, fallback := r.Chat(context.Background(), "how do I save?")

	if fallback {
		t.Fatal("expected generated reply")
	}
	if reply != "Spend less than you earn." {
		t.Errorf("expected trimmed reply, got %q", reply)
	}
}

func TestRecommendCategory(t *testing.T) {
	gen := &mockGenerator{text: "\n- Transportation\n"}
	r, c := newRequestor(gen, 3)
	defer c.Close()

	if got := r.RecommendCategory(context.Background(), "uber ride"); got != "Transportation" {
		t.Errorf("expected Transportation, got %q", got)
	}
}

func TestRecommendCategory_Fallback(t *testing.T) {
	gen := &mockGenerator{err: errors.New("down")}
	r, c := newRequestor(gen, 3)
	defer c.Close()

	if got := r.RecommendCategory(context.Background(), "uber ride"); got != "General" {
		t.Errorf("expected General fallback, got %q", got)
	}
}
