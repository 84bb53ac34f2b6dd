package provider

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse marks a 2xx provider response whose body lacks
// the fields the adapter needs. Callers treat it like any other
// provider request failure.
var ErrMalformedResponse = errors.New("malformed provider response")

// ProviderError is a failed call to the FooPay API: either a transport
// error (StatusCode 0) or an unexpected HTTP status.
type ProviderError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("provider %s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func IsProviderError(err error) (*ProviderError, bool) {
	var provErr *ProviderError
	ok := errors.As(err, &provErr)
	return provErr, ok
}
