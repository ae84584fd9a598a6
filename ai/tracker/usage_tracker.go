// Package tracker persists advisory inference attempts and summarizes them.
package tracker

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/qntx-astro/ai/advisory"
	"github.com/teranos/qntx-astro/db"
	"github.com/teranos/qntx-astro/errors"
	"github.com/teranos/qntx-astro/logger"
)

// UsageTracker records advisory calls in the advisory_calls table
type UsageTracker struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewUsageTracker creates a tracker on a migrated database
func NewUsageTracker(db *sql.DB, log *zap.SugaredLogger) *UsageTracker {
	return &UsageTracker{
		db:     db,
		logger: logger.OrNop(log),
	}
}

// RecordCall implements advisory.CallRecorder. Failures are logged only.
func (t *UsageTracker) RecordCall(ctx context.Context, call advisory.Call) {
	err := t.TrackCall(ctx, call)
	switch {
	case err == nil:
	case db.IsDatabaseClosed(err):
		// the server is draining and has already closed the database
		logger.FromContext(ctx, t.logger).Debugw("Advisory call not recorded, database closed",
			logger.FieldModel, call.Model,
		)
	default:
		logger.FromContext(ctx, t.logger).Warnw("Failed to record advisory call",
			logger.FieldModel, call.Model,
			logger.FieldError, err.Error(),
		)
	}
}

// TrackCall inserts one call
func (t *UsageTracker) TrackCall(ctx context.Context, call advisory.Call) error {
	query := `
		INSERT INTO advisory_calls (
			run_id, model, fields, batch_size, corrective, outcome, success,
			duration_ms, prompt_chars, response_chars, error_message, requested_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	requested := call.RequestedAt
	if requested.IsZero() {
		requested = time.Now()
	}
	_, err := t.db.ExecContext(ctx, query,
		nullable(call.RunID), call.Model, strings.Join(call.Fields, ","), len(call.Fields),
		call.Corrective, call.Outcome, call.Success(),
		call.Duration.Milliseconds(), call.PromptChars, call.ResponseChars,
		nullable(call.Error), requested.UTC(),
	)
	return errors.Wrap(err, "insert advisory call")
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// UsageStats represents aggregated usage statistics
type UsageStats struct {
	TotalRequests      int     `json:"total_requests"`
	SuccessfulRequests int     `json:"successful_requests"`
	CorrectiveRequests int     `json:"corrective_requests"`
	SuccessRate        float64 `json:"success_rate"`
	FieldsAsked        int     `json:"fields_asked"`
	AvgDurationMS      float64 `json:"avg_duration_ms"`
	UniqueModels       int     `json:"unique_models"`
}

// GetUsageStats returns usage statistics since the given time
func (t *UsageTracker) GetUsageStats(ctx context.Context, since time.Time) (*UsageStats, error) {
	query := `
		SELECT
			COUNT(*) as total_requests,
			COUNT(CASE WHEN success = 1 THEN 1 END) as successful_requests,
			COUNT(CASE WHEN corrective = 1 THEN 1 END) as corrective_requests,
			COALESCE(SUM(batch_size), 0) as fields_asked,
			COALESCE(AVG(duration_ms), 0) as avg_duration_ms,
			COUNT(DISTINCT model) as unique_models
		FROM advisory_calls
		WHERE requested_at >= ?`

	var stats UsageStats
	err := t.db.QueryRowContext(ctx, query, since.UTC()).Scan(
		&stats.TotalRequests, &stats.SuccessfulRequests, &stats.CorrectiveRequests,
		&stats.FieldsAsked, &stats.AvgDurationMS, &stats.UniqueModels,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query advisory usage")
	}

	if stats.TotalRequests > 0 {
		stats.SuccessRate = float64(stats.SuccessfulRequests) / float64(stats.TotalRequests)
	}
	return &stats, nil
}

// ModelBreakdown represents usage statistics for a specific model
type ModelBreakdown struct {
	ModelName     string  `json:"model_name"`
	RequestCount  int     `json:"request_count"`
	SuccessCount  int     `json:"success_count"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
}

// GetModelBreakdown returns usage grouped by model, busiest first
func (t *UsageTracker) GetModelBreakdown(ctx context.Context, since time.Time) ([]ModelBreakdown, error) {
	query := `
		SELECT
			model,
			COUNT(*) as request_count,
			COUNT(CASE WHEN success = 1 THEN 1 END) as success_count,
			AVG(duration_ms) as avg_duration_ms
		FROM advisory_calls
		WHERE requested_at >= ?
		GROUP BY model
		ORDER BY request_count DESC, model`

	rows, err := t.db.QueryContext(ctx, query, since.UTC())
	if err != nil {
		return nil, errors.Wrap(err, "query model breakdown")
	}
	defer rows.Close()

	var breakdown []ModelBreakdown
	for rows.Next() {
		var mb ModelBreakdown
		if err := rows.Scan(&mb.ModelName, &mb.RequestCount, &mb.SuccessCount, &mb.AvgDurationMS); err != nil {
			return nil, errors.Wrap(err, "scan model breakdown")
		}
		breakdown = append(breakdown, mb)
	}
	return breakdown, errors.Wrap(rows.Err(), "iterate model breakdown")
}

// OutcomeCounts returns how many attempts ended in each outcome
func (t *UsageTracker) OutcomeCounts(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := t.db.QueryContext(ctx,
		"SELECT outcome, COUNT(*) FROM advisory_calls WHERE requested_at >= ? GROUP BY outcome", since.UTC())
	if err != nil {
		return nil, errors.Wrap(err, "query advisory outcomes")
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, errors.Wrap(err, "scan advisory outcome")
		}
		out[outcome] = n
	}
	return out, errors.Wrap(rows.Err(), "iterate advisory outcomes")
}

// Report bundles the summaries served by the API and the CLI
type Report struct {
	Since    time.Time        `json:"since"`
	Stats    *UsageStats      `json:"stats"`
	Models   []ModelBreakdown `json:"models"`
	Outcomes map[string]int   `json:"outcomes"`
}

// Report summarizes the last days of advisory usage
func (t *UsageTracker) Report(ctx context.Context, days int) (*Report, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().AddDate(0, 0, -days)

	stats, err := t.GetUsageStats(ctx, since)
	if err != nil {
		return nil, err
	}
	models, err := t.GetModelBreakdown(ctx, since)
	if err != nil {
		return nil, err
	}
	outcomes, err := t.OutcomeCounts(ctx, since)
	if err != nil {
		return nil, err
	}
	if models == nil {
		models = []ModelBreakdown{}
	}
	return &Report{Since: since.UTC(), Stats: stats, Models: models, Outcomes: outcomes}, nil
}
