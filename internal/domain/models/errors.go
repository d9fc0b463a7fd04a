package models

import (
	"errors"
	"fmt"
	"time"
)

// FailureKind classifies why a source attempt did not produce a forecast.
type FailureKind string

const (
	FailureTransport  FailureKind = "transport"  // network, timeout, non-2xx
	FailureData       FailureKind = "data"       // malformed or missing fields, "no data" sentinels
	FailureSubprocess FailureKind = "subprocess" // external model exited non-zero or printed garbage
	FailureDefect     FailureKind = "defect"     // a source broke its own contract (panic, invalid output)
)

// SourceError is the Failure signal a source hands back to the cascade.
type SourceError struct {
	Source    string
	Kind      FailureKind
	Cause     error
	Timestamp time.Time
}

// NewSourceError stamps a failure with the current time.
func NewSourceError(source string, kind FailureKind, cause error) *SourceError {
	return &SourceError{Source: source, Kind: kind, Cause: cause, Timestamp: time.Now()}
}

func (e *SourceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s failure: %v", e.Source, e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s: %s failure", e.Source, e.Kind)
}

// Unwrap returns the underlying cause.
func (e *SourceError) Unwrap() error { return e.Cause }

// IsKind reports whether err carries a SourceError of the given kind.
func IsKind(err error, kind FailureKind) bool {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}

// ErrNoData is returned by wire clients when the upstream answered but had nothing usable.
var ErrNoData = errors.New("no data available")
