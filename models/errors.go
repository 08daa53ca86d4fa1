package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput rejects bad window sizes, card counts or deltas before any work
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientGroupSize means groups A, B or C hold fewer than 2 numbers
	ErrInsufficientGroupSize = errors.New("groups A, B and C must have at least 2 numbers each")

	// ErrGenerationExhausted means the retry budget ran out before enough unique combinations were found
	ErrGenerationExhausted = errors.New("could not generate enough unique combinations")

	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountExists       = errors.New("account already exists")
	ErrAccountInactive     = errors.New("account inactive")
	ErrHistoryUnavailable  = errors.New("draw history unavailable")
	ErrRateLimited         = errors.New("rate limit exceeded")
)

// RateLimitError carries the advertised retry delay of a rejected request
type RateLimitError struct {
	RetryAfterSeconds int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: retry after %ds", ErrRateLimited, e.RetryAfterSeconds)
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}
