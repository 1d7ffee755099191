package model

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies estimate failures. The HTTP layer maps kinds onto status codes.
type ErrorKind string

const (
	KindInvalidInput          ErrorKind = "InvalidInput"
	KindSnapshotUnavailable   ErrorKind = "SnapshotUnavailable"
	KindInsufficientLiquidity ErrorKind = "InsufficientLiquidity"
	KindInternal              ErrorKind = "InternalComputationError"
)

// Sentinels for errors.Is. An *EstimateError matches the sentinel of its kind.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrSnapshotUnavailable   = errors.New("snapshot unavailable")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrInternal              = errors.New("internal computation error")
)

// EstimateError is the single typed error surfaced for a failed estimate.
type EstimateError struct {
	Kind  ErrorKind
	Field string // offending request field, InvalidInput only
	Err   error
}

func (e *EstimateError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s %v", e.Kind, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *EstimateError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrInsufficientLiquidity) and friends work without
// callers knowing the concrete type.
func (e *EstimateError) Is(target error) bool {
	return target == sentinelFor(e.Kind)
}

func sentinelFor(k ErrorKind) error {
	switch k {
	case KindInvalidInput:
		return ErrInvalidInput
	case KindSnapshotUnavailable:
		return ErrSnapshotUnavailable
	case KindInsufficientLiquidity:
		return ErrInsufficientLiquidity
	case KindInternal:
		return ErrInternal
	}
	return nil
}

// NewInvalidInput reports a user-correctable problem with one request field.
func NewInvalidInput(field, reason string) *EstimateError {
	return &EstimateError{Kind: KindInvalidInput, Field: field, Err: errors.New(reason)}
}

// NewSnapshotUnavailable reports a missing or stale book for venue/symbol.
func NewSnapshotUnavailable(venue, symbol, reason string) *EstimateError {
	return &EstimateError{
		Kind: KindSnapshotUnavailable,
		Err:  fmt.Errorf("no usable order book for %s %s: %s", venue, symbol, reason),
	}
}

// NewInsufficientLiquidity reports that the visible book cannot absorb the order.
func NewInsufficientLiquidity(requested, available float64, unit QuantityUnit) *EstimateError {
	return &EstimateError{
		Kind: KindInsufficientLiquidity,
		Err:  fmt.Errorf("requested %g %s but visible depth is %g %s", requested, unit, available, unit),
	}
}

// NewInternal wraps an unexpected numeric failure.
func NewInternal(format string, args ...any) *EstimateError {
	return &EstimateError{Kind: KindInternal, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the kind of err, treating anything untyped as internal.
func KindOf(err error) ErrorKind {
	var ee *EstimateError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return KindInternal
}

// Abandoned reports whether err comes from the caller cancelling the request
// or its deadline passing, as opposed to a failed estimate.
func Abandoned(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// FieldOf returns the offending field of an InvalidInput error, or "".
func FieldOf(err error) string {
	var ee *EstimateError
	if errors.As(err, &ee) {
		return ee.Field
	}
	return ""
}
