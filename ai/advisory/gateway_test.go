package advisory

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/qntx-astro/errors"
	"github.com/teranos/qntx-astro/logger"
	q "github.com/teranos/qntx-astro/quantity"
)

// fakeGenerator answers prompts through reply and records every call.
type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	pings   int
	pingErr error
	reply   func(call int, prompt string) (string, error)
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	call := len(f.prompts)
	f.mu.Unlock()
	return f.reply(call, prompt)
}

func (f *fakeGenerator) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	return f.pingErr
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

const allAngles = `{"fields":[
	{"field":"a","physicalQuantity":"angle","recommendedUnit":"deg","confidence":0.9},
	{"field":"b","physicalQuantity":"angle","recommendedUnit":"deg","confidence":0.9},
	{"field":"c","physicalQuantity":"angle","recommendedUnit":"deg","confidence":0.9},
	{"field":"d","physicalQuantity":"angle","recommendedUnit":"deg","confidence":0.9},
	{"field":"e","physicalQuantity":"angle","recommendedUnit":"deg","confidence":0.9}
]}`

func inputs(names ...string) []FieldInput {
	out := make([]FieldInput, len(names))
	for i, n := range names {
		out[i] = FieldInput{Name: n, Samples: []any{1.5}}
	}
	return out
}

func newTestGateway(t *testing.T, gen Generator, metrics *Metrics) *Gateway {
	g := NewGateway(gen, Config{Enabled: true, Model: "test"}, metrics, zaptest.NewLogger(t).Sugar())
	g.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return g
}

func TestClassifyBatch(t *testing.T) {
	t.Run("first attempt succeeds", func(t *testing.T) {
		gen := &fakeGenerator{reply: func(int, string) (string, error) { return allAngles, nil }}
		got := newTestGateway(t, gen, nil).ClassifyBatch(context.Background(), inputs("a", "b"), Hints{})
		require.Len(t, got, 2)
		assert.Equal(t, q.Angle, got["a"].Quantity)
		assert.Equal(t, 1, gen.calls())
	})

	t.Run("malformed then corrective succeeds", func(t *testing.T) {
		gen := &fakeGenerator{reply: func(call int, _ string) (string, error) {
			if call == 1 {
				return "I think a is an angle.", nil
			}
			return allAngles, nil
		}}
		got := newTestGateway(t, gen, nil).ClassifyBatch(context.Background(), inputs("a"), Hints{})
		require.Len(t, got, 1)
		require.Equal(t, 2, gen.calls())
		assert.False(t, strings.HasPrefix(gen.prompts[0], "Your previous output"))
		assert.True(t, strings.HasPrefix(gen.prompts[1], "Your previous output was invalid JSON."))
	})

	t.Run("two failures give nil", func(t *testing.T) {
		gen := &fakeGenerator{reply: func(int, string) (string, error) {
			return "", errors.Wrap(ErrBadStatus, "status 500")
		}}
		assert.Nil(t, newTestGateway(t, gen, nil).ClassifyBatch(context.Background(), inputs("a"), Hints{}))
		assert.Equal(t, 2, gen.calls())
	})

	t.Run("more than four fields is refused", func(t *testing.T) {
		gen := &fakeGenerator{reply: func(int, string) (string, error) { return allAngles, nil }}
		assert.Nil(t, newTestGateway(t, gen, nil).ClassifyBatch(context.Background(), inputs("a", "b", "c", "d", "e"), Hints{}))
		assert.Zero(t, gen.calls())
	})

	t.Run("disabled gateway never calls", func(t *testing.T) {
		gen := &fakeGenerator{reply: func(int, string) (string, error) { return allAngles, nil }}
		g := NewGateway(gen, Config{Enabled: false}, nil, nil)
		assert.False(t, g.Enabled())
		assert.Nil(t, g.ClassifyBatch(context.Background(), inputs("a"), Hints{}))
		assert.Zero(t, gen.calls())
	})

	t.Run("canceled context does not retry", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		gen := &fakeGenerator{reply: func(int, string) (string, error) {
			cancel()
			return "", context.Canceled
		}}
		assert.Nil(t, newTestGateway(t, gen, nil).ClassifyBatch(ctx, inputs("a"), Hints{}))
		assert.Equal(t, 1, gen.calls())
	})

	t.Run("panic in the generator is contained", func(t *testing.T) {
		gen := &fakeGenerator{reply: func(int, string) (string, error) { panic("boom") }}
		assert.NotPanics(t, func() {
			assert.Nil(t, newTestGateway(t, gen, nil).ClassifyBatch(context.Background(), inputs("a"), Hints{}))
		})
	})

	t.Run("slow generator hits the per-call timeout", func(t *testing.T) {
		gen := &fakeGenerator{reply: func(int, string) (string, error) { return "", nil }}
		slow := generatorFunc(func(ctx context.Context, prompt string) (string, error) {
			gen.Generate(ctx, prompt)
			<-ctx.Done()
			return "", ctx.Err()
		})
		g := NewGateway(slow, Config{Enabled: true, Timeout: 20 * time.Millisecond}, nil, zaptest.NewLogger(t).Sugar())
		g.sleep = func(ctx context.Context, d time.Duration) error { return nil }
		assert.Nil(t, g.ClassifyBatch(context.Background(), inputs("a"), Hints{}))
		assert.Equal(t, 2, gen.calls(), "a timeout is retried once")
	})
}

type generatorFunc func(ctx context.Context, prompt string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func TestClassifyAll(t *testing.T) {
	t.Run("splits into batches of four", func(t *testing.T) {
		gen := &fakeGenerator{reply: func(int, string) (string, error) { return allAngles, nil }}
		report := newTestGateway(t, gen, nil).ClassifyAll(context.Background(), inputs("a", "b", "c", "d", "e"), Hints{})
		assert.Len(t, report.Results, 5)
		assert.Empty(t, report.Fallback)
		assert.False(t, report.UsedFallback())
		assert.Equal(t, 2, report.Succeeded)
		assert.Equal(t, 2, gen.calls())
	})

	t.Run("failed batch is halved", func(t *testing.T) {
		gen := &fakeGenerator{reply: func(_ int, prompt string) (string, error) {
			if strings.Contains(prompt, "3. name:") {
				return "{not json", nil
			}
			return allAngles, nil
		}}
		report := newTestGateway(t, gen, nil).ClassifyAll(context.Background(), inputs("a", "b", "c", "d"), Hints{})
		assert.Len(t, report.Results, 4)
		assert.Empty(t, report.Fallback)
		assert.Equal(t, 2, report.Succeeded)
		assert.Equal(t, 4, gen.calls(), "two failed attempts, then one call per half")
	})

	t.Run("unanswered fields fall back in input order", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		metrics := NewMetrics(reg)
		gen := &fakeGenerator{reply: func(int, string) (string, error) {
			return `{"fields":[{"field":"b","physicalQuantity":"mass","unit":"kg"}]}`, nil
		}}
		report := newTestGateway(t, gen, metrics).ClassifyAll(context.Background(), inputs("c", "b", "a"), Hints{})
		assert.True(t, report.UsedFallback())
		assert.Equal(t, []string{"c", "a"}, report.Fallback)
		assert.Equal(t, q.Mass, report.Results["b"].Quantity)
		assert.Equal(t, 2.0, testutil.ToFloat64(metrics.fallbackFields))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("ok")))
	})

	t.Run("everything fails", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		metrics := NewMetrics(reg)
		gen := &fakeGenerator{reply: func(int, string) (string, error) { return "", errors.New("connection refused") }}
		report := newTestGateway(t, gen, metrics).ClassifyAll(context.Background(), inputs("a", "b"), Hints{})
		assert.Empty(t, report.Results)
		assert.Equal(t, []string{"a", "b"}, report.Fallback)
		// 2 attempts on the pair, then 2 attempts per single-field half.
		assert.Equal(t, 6, gen.calls())
		assert.Equal(t, 6.0, testutil.ToFloat64(metrics.requests.WithLabelValues("transport_error")))
		assert.Equal(t, 2, report.Failed)
	})

	t.Run("disabled marks everything fallback", func(t *testing.T) {
		g := NewGateway(nil, Config{Enabled: true}, nil, nil)
		report := g.ClassifyAll(context.Background(), inputs("x", "y"), Hints{})
		assert.Equal(t, []string{"x", "y"}, report.Fallback)
	})

	t.Run("canceled before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		gen := &fakeGenerator{reply: func(int, string) (string, error) { return allAngles, nil }}
		report := newTestGateway(t, gen, nil).ClassifyAll(ctx, inputs("a", "b"), Hints{})
		assert.Zero(t, gen.calls())
		assert.Equal(t, []string{"a", "b"}, report.Fallback)
	})

	t.Run("empty input", func(t *testing.T) {
		report := newTestGateway(t, &fakeGenerator{}, nil).ClassifyAll(context.Background(), nil, Hints{})
		assert.Empty(t, report.Results)
		assert.False(t, report.UsedFallback())
	})
}

func TestAvailable(t *testing.T) {
	gen := &fakeGenerator{reply: func(int, string) (string, error) { return allAngles, nil }}
	g := newTestGateway(t, gen, nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	var hc HealthCache
	assert.True(t, g.Available(context.Background(), &hc))
	assert.True(t, g.Available(context.Background(), &hc))
	assert.Equal(t, 1, gen.pings, "second check is served from the cache")

	now = now.Add(2 * time.Minute)
	gen.pingErr = errors.New("connection refused")
	assert.False(t, g.Available(context.Background(), &hc))
	assert.Equal(t, 2, gen.pings)
	assert.False(t, hc.Healthy)

	// nil cache always pings.
	assert.False(t, g.Available(context.Background(), nil))
	assert.Equal(t, 3, gen.pings)

	// generators without Ping are assumed reachable.
	plain := NewGateway(generatorFunc(func(context.Context, string) (string, error) { return "", nil }), Config{Enabled: true}, nil, nil)
	assert.True(t, plain.Available(context.Background(), nil))
}

func TestChunk(t *testing.T) {
	parts := chunk(inputs("a", "b", "c", "d", "e", "f", "g", "h", "i"), 4)
	require.Len(t, parts, 3)
	assert.Len(t, parts[0], 4)
	assert.Len(t, parts[2], 1)
	assert.Nil(t, chunk(nil, 4))
}

type callLog struct {
	mu    sync.Mutex
	calls []Call
}

func (l *callLog) RecordCall(ctx context.Context, c Call) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, c)
}

func TestRecorderSeesEveryAttempt(t *testing.T) {
	gen := &fakeGenerator{reply: func(call int, _ string) (string, error) {
		if call == 1 {
			return "not json", nil
		}
		return allAngles, nil
	}}
	g := newTestGateway(t, gen, nil)
	rec := &callLog{}
	g.SetRecorder(rec)

	ctx := logger.WithRunID(context.Background(), "run-1")
	got := g.ClassifyBatch(ctx, inputs("a", "b"), Hints{})
	require.Len(t, got, 2)

	require.Len(t, rec.calls, 2)
	first, second := rec.calls[0], rec.calls[1]
	assert.Equal(t, "malformed", first.Outcome)
	assert.False(t, first.Success())
	assert.NotEmpty(t, first.Error)
	assert.False(t, first.Corrective)

	assert.True(t, second.Success())
	assert.True(t, second.Corrective)
	assert.Equal(t, "run-1", second.RunID)
	assert.Equal(t, "test", second.Model)
	assert.Equal(t, []string{"a", "b"}, second.Fields)
	assert.Positive(t, second.PromptChars)
	assert.Equal(t, len(allAngles), second.ResponseChars)
}
