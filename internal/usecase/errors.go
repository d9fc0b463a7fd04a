package usecase

import "errors"

var (
	// ErrInvalidRequest wraps every rejected symbol or horizon.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrCascadeExhausted means every source failed, including the one that must not.
	ErrCascadeExhausted = errors.New("all forecast sources failed")
	// ErrSpotUnavailable wraps a failed live quote lookup.
	ErrSpotUnavailable = errors.New("spot price unavailable")
)

const (
	MinDays = 1
	MaxDays = 365
)
