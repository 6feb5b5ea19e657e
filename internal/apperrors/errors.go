// Package apperrors defines the error taxonomy surfaced by the prediction API.
// Handlers map these to structured JSON payloads; services wrap causes with %w
// so errors.Is works across layers.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound - unknown match or team identifier.
	ErrNotFound = errors.New("not found")

	// ErrDataInsufficient - too few samples to train or validate a model.
	ErrDataInsufficient = errors.New("insufficient data")

	// ErrModelUnavailable - no model artifact has been trained yet.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrUpstreamUnavailable - the data provider failed and no cached copy exists.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrValidation - malformed request or filter parameters.
	ErrValidation = errors.New("validation failed")
)

// Code returns the wire code for an error, or "internal" when the error is not
// part of the taxonomy.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDataInsufficient):
		return "data_insufficient"
	case errors.Is(err, ErrModelUnavailable):
		return "model_unavailable"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	default:
		return "internal"
	}
}

// NotFoundf wraps ErrNotFound with context.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// DataInsufficientf wraps ErrDataInsufficient with context.
func DataInsufficientf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrDataInsufficient)...)
}

// Validationf wraps ErrValidation with context.
func Validationf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}
