package updater

import "fmt"

// ConfigError reports a company that is missing from the policy document
// or whose entry is invalid.
// It is never retried.
type ConfigError struct {
	Slug    string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for %s: %s", e.Slug, e.Message)
}

// UpdateError wraps a failed single-company run with its slug.
type UpdateError struct {
	Slug  string
	Stage string
	Cause error
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("update %s: %s: %v", e.Slug, e.Stage, e.Cause)
}

func (e *UpdateError) Unwrap() error {
	return e.Cause
}
