package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrAuthentication indicates the provider rejected our client credentials.
	ErrAuthentication = errors.New("failed to authenticate with Telstra API")
	// ErrNoActiveNumbers indicates no virtual numbers are currently leased.
	ErrNoActiveNumbers = errors.New("no active numbers leased")
	// ErrNumberMismatch indicates the caller named a number that is not among the leased set.
	ErrNumberMismatch = errors.New("requested number does not match any current leased numbers")
)

// ProviderError carries a non-2xx provider response, or a local
// transport failure (StatusCode 500, Err set).
type ProviderError struct {
	StatusCode int
	Body       json.RawMessage
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider call failed: %v", e.Err)
	}
	if len(e.Body) > 0 {
		return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, string(e.Body))
	}
	return fmt.Sprintf("provider returned status %d", e.StatusCode)
}

func (e *ProviderError) Unwrap() error { return e.Err }
