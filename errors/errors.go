// Package errors is the error package for qntx-astro.
//
// It re-exports github.com/cockroachdb/errors so every package wraps, annotates
// and inspects errors the same way:
//
//	if err := client.Generate(ctx, prompt); err != nil {
//	    return errors.Wrap(err, "advisory batch")
//	}
//
//	return errors.WithHint(err, "is the inference server running?")
//
// Classification never surfaces these errors to callers; they are logged and
// turned into a fallback. Config loading, unit conversion and the HTTP/CLI
// boundary do return them.
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Join         = crdb.Join
)

// User-facing annotations
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
	GetStack       = crdb.GetReportableStackTrace
)

var AssertionFailedf = crdb.AssertionFailedf

// Common sentinels. Wrap them to add context; check them with Is.
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates the request was malformed or invalid
	ErrInvalidRequest = New("invalid request")

	// ErrServiceUnavailable indicates a required service is not available
	ErrServiceUnavailable = New("service unavailable")

	// ErrTimeout indicates an operation timed out
	ErrTimeout = New("operation timed out")
)

// Classification and conversion sentinels.
var (
	// ErrAdvisoryUnavailable means the inference endpoint is disabled, unhealthy or unreachable.
	ErrAdvisoryUnavailable = Wrap(ErrServiceUnavailable, "advisory classifier")

	// ErrMalformedAdvisory means the advisory output could not be turned into a classification.
	ErrMalformedAdvisory = New("malformed advisory output")

	// ErrUnknownUnit means a unit is not in the canonical table of its quantity.
	ErrUnknownUnit = New("unknown unit")

	// ErrNotConvertible means the encoding or quantity does not admit linear conversion.
	ErrNotConvertible = New("not convertible")
)

// IsInvalidRequestError checks if an error is or wraps ErrInvalidRequest
func IsInvalidRequestError(err error) bool {
	return err != nil && Is(err, ErrInvalidRequest)
}

// IsServiceUnavailableError checks if an error is or wraps ErrServiceUnavailable
func IsServiceUnavailableError(err error) bool {
	return err != nil && Is(err, ErrServiceUnavailable)
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidRequest, Newf(format, args...).Error())
}
