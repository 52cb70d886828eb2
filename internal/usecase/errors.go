package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrMalformedRecord marks a raw match that cannot be normalized. The
	// record is dropped and the cycle continues.
	ErrMalformedRecord = errors.New("malformed match record")
	// ErrFetchFailure marks a failed provider or local store read. The
	// scheduler degrades to whatever source is still available.
	ErrFetchFailure = errors.New("match fetch failed")
)
