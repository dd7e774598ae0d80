package syncer

import "fmt"

// ConfigError is a fatal misconfiguration (missing bucket, parent id,
// unknown provider). It is raised before any remote I/O happens.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

func NewConfigError(field, reason string) *ConfigError {
	return &ConfigError{Field: field, Reason: reason}
}

// AggregateError is raised after a full apply pass when one or more per-item
// operations failed. It carries the partial summary so the caller can report
// exactly what succeeded.
type AggregateError struct {
	Summary *Summary
}

func (e *AggregateError) Error() string {
	return fmt.Sprintf(
		"sync: %d operation(s) failed (%d uploaded, %d deleted)",
		len(e.Summary.Errors),
		len(e.Summary.Uploads),
		len(e.Summary.Deletes),
	)
}
