package gemini

import "errors"

// Sentinel errors for the Gemini adapters.
var (
	// ErrInvalidConfig indicates the adapter was constructed with
	// missing or invalid configuration.
	ErrInvalidConfig = errors.New("invalid gemini configuration")

	// ErrEmptyInput indicates the caller passed empty text.
	ErrEmptyInput = errors.New("input text cannot be empty")

	// ErrInvalidResponse indicates the model returned something the
	// adapter could not use (empty, malformed JSON, wrong shape).
	// Not retried.
	ErrInvalidResponse = errors.New("invalid model response")

	// ErrTransientFailure indicates the API call failed in a way that
	// may succeed on retry; returned once retries are exhausted.
	ErrTransientFailure = errors.New("transient gemini failure")
)
