package domain

import (
	"fmt"
	"strings"
)

// FieldViolation describes a single failed validation constraint.
type FieldViolation struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
}

// ValidationError reports malformed input. It is raised before any network
// activity and is never retried.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Field, v.Constraint))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// violations accumulates field constraint failures during validation.
type violations struct {
	list []FieldViolation
}

func (v *violations) add(field, constraint string) {
	v.list = append(v.list, FieldViolation{Field: field, Constraint: constraint})
}

// err returns a ValidationError if any violation was recorded, nil otherwise.
func (v *violations) err() error {
	if len(v.list) == 0 {
		return nil
	}
	return &ValidationError{Violations: v.list}
}

// ConfigurationError reports a missing credential or an unsupported provider.
// It is fatal at startup; the service must not serve traffic.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// NewConfigurationError creates a ConfigurationError with a formatted reason.
func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// ProviderError reports a failed outbound call, a provider-reported error, or
// a structurally incomplete provider response. Provider errors are retried
// with backoff and surfaced unchanged once retries are exhausted.
type ProviderError struct {
	Provider string
	Op       string
	Reason   string
	Err      error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Provider, e.Op, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a ProviderError. err may be nil when the provider
// responded but the response itself indicated failure.
func NewProviderError(provider, op, reason string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, Reason: reason, Err: err}
}
