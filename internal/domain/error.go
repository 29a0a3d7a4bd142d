package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidRequest  = errors.New("invalid request")

	// Persistence
	ErrInvalidExecContext = errors.New("invalid database executor")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// Provider failure kinds
	ErrUnconfigured = errors.New("provider not configured")
	ErrUnauthorized = errors.New("provider rejected credentials")
	ErrRemote       = errors.New("provider returned an error")
	ErrTimeout      = errors.New("provider timed out")
	ErrNoOutput     = errors.New("provider returned no output")

	ErrAllProvidersFailed = errors.New("all providers failed")

	// Render pipeline
	ErrNoClips      = errors.New("no clips were created successfully")
	ErrQueueFull    = errors.New("render queue full")
	ErrInvalidState = errors.New("invalid job state")
)

// ProviderError is the typed failure a provider client returns.
// Kind is always one of the provider sentinels above.
type ProviderError struct {
	Provider   string
	Kind       error
	Status     int
	RetryAfter time.Duration
	Err        error
}

func NewProviderError(provider string, kind error, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ProviderError) Is(target error) bool { return target == e.Kind }

func (e *ProviderError) Unwrap() error { return e.Err }

// AllProvidersFailedError keeps every per-provider reason of a failed chain run.
type AllProvidersFailedError struct {
	Failures *multierror.Error
}

// AppendFailure records the failure of one provider.
func (e *AllProvidersFailedError) AppendFailure(provider string, err error) {
	e.Failures = multierror.Append(e.Failures, fmt.Errorf("%s: %w", provider, err))
	e.Failures.ErrorFormat = joinFailures
}

func (e *AllProvidersFailedError) Error() string {
	if e.Failures == nil || len(e.Failures.Errors) == 0 {
		return ErrAllProvidersFailed.Error() + ": no providers in chain"
	}
	return ErrAllProvidersFailed.Error() + ": " + e.Failures.Error()
}

func (e *AllProvidersFailedError) Is(target error) bool { return target == ErrAllProvidersFailed }

// Unwrap exposes individual failures so errors.Is(err, ErrUnconfigured) works on the aggregate.
func (e *AllProvidersFailedError) Unwrap() []error {
	if e.Failures == nil {
		return nil
	}
	return e.Failures.Errors
}

func joinFailures(errs []error) string {
	parts := make([]string, 0, len(errs))
	for _, err := range errs {
		parts = append(parts, err.Error())
	}
	return strings.Join(parts, "; ")
}
