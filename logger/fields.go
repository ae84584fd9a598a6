package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for structured logging. Use these instead of raw strings.
const (
	// Identity and context
	FieldRunID     = "run_id"
	FieldRequestID = "request_id"
	FieldDataset   = "dataset"
	FieldComponent = "component"

	// Classification
	FieldField      = "field"
	FieldQuantity   = "quantity"
	FieldEncoding   = "encoding"
	FieldProvenance = "provenance"
	FieldRule       = "rule"
	FieldConfidence = "confidence"
	FieldUnit       = "unit"

	// Advisory calls
	FieldModel     = "model"
	FieldAttempt   = "attempt"
	FieldBatchSize = "batch_size"
	FieldBatch     = "batch"

	// Operations
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatus     = "status"
	FieldDurationMS = "duration_ms"
	FieldCount      = "count"
	FieldError      = "error"
	FieldFile       = "file"
	FieldAddress    = "address"
)

type contextKey string

const (
	runIDKey     contextKey = "logger_run_id"
	requestIDKey contextKey = "logger_request_id"
	datasetKey   contextKey = "logger_dataset"
)

// WithRunID adds a classification run ID to the context for logging
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// WithRequestID adds an HTTP request ID to the context for logging
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithDataset adds the dataset name to the context for logging
func WithDataset(ctx context.Context, dataset string) context.Context {
	return context.WithValue(ctx, datasetKey, dataset)
}

// RunIDFromContext returns the run ID set by WithRunID, or "".
func RunIDFromContext(ctx context.Context) string {
	runID, _ := ctx.Value(runIDKey).(string)
	return runID
}

// FieldsFromContext extracts logging fields from context as key-value pairs
// suitable for Infow/Warnw.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if runID, ok := ctx.Value(runIDKey).(string); ok && runID != "" {
		fields = append(fields, FieldRunID, runID)
	}
	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		fields = append(fields, FieldRequestID, requestID)
	}
	if dataset, ok := ctx.Value(datasetKey).(string); ok && dataset != "" {
		fields = append(fields, FieldDataset, dataset)
	}

	return fields
}

// FromContext decorates base with the fields carried by ctx.
// A nil base uses the global Logger.
func FromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if base == nil {
		base = Logger
	}
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection:
//
//	gw := advisory.NewGateway(client, cfg, logger.ComponentLogger("advisory"))
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l
}
