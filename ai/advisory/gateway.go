package advisory

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/teranos/qntx-astro/errors"
	"github.com/teranos/qntx-astro/logger"
)

// Config tunes the gateway. Zero values take the defaults below.
type Config struct {
	Enabled           bool
	Model             string
	Timeout           time.Duration
	RetryDelay        time.Duration
	BatchSize         int
	Concurrency       int
	RequestsPerMinute int
	HealthTTL         time.Duration
	SampleValues      int
}

const (
	defaultTimeout   = 30 * time.Second
	defaultHealthTTL = time.Minute
	pingTimeout      = 3 * time.Second
)

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	if c.BatchSize <= 0 || c.BatchSize > MaxBatchSize {
		c.BatchSize = MaxBatchSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.HealthTTL <= 0 {
		c.HealthTTL = defaultHealthTTL
	}
	if c.SampleValues <= 0 || c.SampleValues > MaxSampleValues {
		c.SampleValues = MaxSampleValues
	}
	return c
}

// Gateway batches fields into prompts, retries once with a corrective
// prompt, and turns every failure into an absent result.
type Gateway struct {
	client   Generator
	cfg      Config
	limiter  *rate.Limiter
	metrics  *Metrics
	recorder CallRecorder
	logger   *zap.SugaredLogger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewGateway wires a gateway around client. metrics and log may be nil.
func NewGateway(client Generator, cfg Config, metrics *Metrics, log *zap.SugaredLogger) *Gateway {
	cfg = cfg.withDefaults()
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(cfg.RequestsPerMinute) / 60)
	}
	return &Gateway{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, cfg.Concurrency),
		metrics: metrics,
		logger:  logger.OrNop(log),
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// Enabled reports whether advisory calls are configured at all.
func (g *Gateway) Enabled() bool {
	return g != nil && g.cfg.Enabled && g.client != nil
}

// Available answers from hc while it is valid, otherwise pings the endpoint
// and records the answer in hc. Generators without Ping are assumed up.
func (g *Gateway) Available(ctx context.Context, hc *HealthCache) bool {
	if !g.Enabled() {
		return false
	}
	now := g.now()
	if hc.Valid(now) {
		return hc.Healthy
	}

	healthy := true
	if p, ok := g.client.(Pinger); ok {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := p.Ping(pctx)
		cancel()
		if err != nil {
			healthy = false
			g.logger.Warnw("Advisory endpoint unavailable", logger.FieldModel, g.cfg.Model, logger.FieldError, err.Error())
		}
	}
	if hc != nil {
		hc.Record(healthy, now, g.cfg.HealthTTL)
	}
	return healthy
}

// ClassifyBatch classifies at most MaxBatchSize fields. It returns nil when
// the advisory service could not produce a usable answer; it never panics.
func (g *Gateway) ClassifyBatch(ctx context.Context, fields []FieldInput, hints Hints) (result map[string]Classification) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Errorw("Advisory batch panicked", "panic", r)
			result = nil
		}
	}()

	if !g.Enabled() || len(fields) == 0 {
		return nil
	}
	if len(fields) > MaxBatchSize {
		g.logger.Warnw("Advisory batch too large", logger.FieldBatchSize, len(fields))
		return nil
	}

	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}

	state := stateFirst
	attempt := 0
	for {
		switch state {
		case stateDone:
			return result
		case stateFallback:
			return nil
		case stateCorrective:
			if err := g.sleep(ctx, g.cfg.RetryDelay); err != nil {
				state = next(state, outcomeCanceled)
				continue
			}
		}

		attempt++
		var o outcome
		result, o = g.attempt(ctx, fields, names, hints, state == stateCorrective)
		g.logger.Debugw("Advisory attempt",
			logger.FieldAttempt, attempt,
			logger.FieldBatchSize, len(fields),
			logger.FieldStatus, o.String(),
		)
		state = next(state, o)
	}
}

func (g *Gateway) attempt(ctx context.Context, fields []FieldInput, names []string, hints Hints, corrective bool) (map[string]Classification, outcome) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, outcomeCanceled
	}

	prompt := BuildPrompt(PromptInput{
		Fields:       fields,
		Hints:        hints,
		Corrective:   corrective,
		SampleValues: g.cfg.SampleValues,
	})

	cctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	start := g.now()
	text, err := g.client.Generate(cctx, prompt)
	elapsed := g.now().Sub(start)

	call := Call{
		RunID:         logger.RunIDFromContext(ctx),
		Model:         g.cfg.Model,
		Fields:        names,
		Corrective:    corrective,
		RequestedAt:   start,
		Duration:      elapsed,
		PromptChars:   len(prompt),
		ResponseChars: len(text),
	}

	if err != nil {
		o := classifyError(ctx, err)
		g.metrics.observe(o, elapsed.Seconds())
		call.Outcome, call.Error = o.String(), err.Error()
		g.record(ctx, call)
		g.logger.Warnw("Advisory request failed",
			logger.FieldModel, g.cfg.Model,
			logger.FieldStatus, o.String(),
			logger.FieldError, err.Error(),
		)
		return nil, o
	}

	parsed, err := ParseResponse(text, names)
	if err != nil {
		g.metrics.observe(outcomeMalformed, elapsed.Seconds())
		call.Outcome, call.Error = outcomeMalformed.String(), err.Error()
		g.record(ctx, call)
		g.logger.Warnw("Advisory response rejected", logger.FieldModel, g.cfg.Model, logger.FieldError, err.Error())
		return nil, outcomeMalformed
	}
	g.metrics.observe(outcomeOK, elapsed.Seconds())
	call.Outcome = outcomeOK.String()
	g.record(ctx, call)
	return parsed, outcomeOK
}

func classifyError(parent context.Context, err error) outcome {
	switch {
	case parent.Err() != nil:
		return outcomeCanceled
	case errors.Is(err, ErrBadStatus):
		return outcomeBadStatus
	default:
		return outcomeTransport
	}
}

// BatchReport summarizes ClassifyAll.
type BatchReport struct {
	Results map[string]Classification
	// Fallback lists fields the advisory service did not answer, in input order.
	Fallback  []string
	Succeeded int
	Failed    int
}

// UsedFallback reports whether any field was left unanswered.
func (r BatchReport) UsedFallback() bool {
	return len(r.Fallback) > 0
}

// ClassifyAll splits fields into batches and classifies them on up to
// Concurrency goroutines. A failed batch of more than one field is halved and
// each half tried once more. On cancellation pending batches are skipped and
// completed results are kept.
func (g *Gateway) ClassifyAll(ctx context.Context, fields []FieldInput, hints Hints) BatchReport {
	report := BatchReport{Results: map[string]Classification{}}
	if len(fields) == 0 {
		return report
	}
	if !g.Enabled() {
		report.Fallback = fieldNames(fields)
		return report
	}

	var mu sync.Mutex
	collect := func(res map[string]Classification, ok bool) {
		mu.Lock()
		defer mu.Unlock()
		for k, v := range res {
			report.Results[k] = v
		}
		if ok {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}

	eg := new(errgroup.Group)
	eg.SetLimit(g.cfg.Concurrency)
	for _, batch := range chunk(fields, g.cfg.BatchSize) {
		eg.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if res := g.ClassifyBatch(ctx, batch, hints); res != nil {
				collect(res, true)
				return nil
			}
			if len(batch) == 1 || ctx.Err() != nil {
				collect(nil, false)
				return nil
			}
			half := (len(batch) + 1) / 2
			for _, part := range [][]FieldInput{batch[:half], batch[half:]} {
				if ctx.Err() != nil {
					return nil
				}
				res := g.ClassifyBatch(ctx, part, hints)
				collect(res, res != nil)
			}
			return nil
		})
	}
	_ = eg.Wait()

	for _, f := range fields {
		if _, ok := report.Results[f.Name]; !ok {
			report.Fallback = append(report.Fallback, f.Name)
		}
	}
	g.metrics.fallback(len(report.Fallback))
	if len(report.Fallback) > 0 {
		g.logger.Infow("Advisory fallback",
			logger.FieldCount, len(report.Fallback),
			"failed_batches", report.Failed,
		)
	}
	return report
}

func chunk(fields []FieldInput, size int) [][]FieldInput {
	var out [][]FieldInput
	for len(fields) > 0 {
		n := size
		if n > len(fields) {
			n = len(fields)
		}
		out = append(out, fields[:n])
		fields = fields[n:]
	}
	return out
}

func fieldNames(fields []FieldInput) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
