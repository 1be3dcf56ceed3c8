package main

import "github.com/therenotomorrow/ex"

const (
	// ErrInvalidJSON is recorded when a created paste comes back with a body
	// that cannot be decoded.
	ErrInvalidJSON = ex.Error("Response is not valid JSON")

	// ErrHTTPStatus is recorded for any non-2xx response.
	ErrHTTPStatus = ex.Error("unexpected http status")

	ErrUnknownProfile = ex.Error("unknown profile")
	ErrInvalidWait    = ex.Error("invalid wait range")
	ErrInvalidWeights = ex.Error("task weights must not all be zero")
	ErrInvalidUsers   = ex.Error("users must be positive")
)
