package security

import (
	"fmt"
	"regexp"
)

// Request limits applied when config leaves them unset.
const (
	DefaultMaxBatch   = 10000
	DefaultMaxMetrics = 64
	MaxMetricNameLen  = 64
	MaxK              = 10000
)

// ValidationError represents a field validation error.
type ValidationError struct {
	Field      string
	Value      any
	Constraint string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation failed for %s: %s (got: %v)", e.Field, e.Constraint, e.Value)
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Constraint)
}

var (
	runIDRegex      = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,63}$`)
	metricNameRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*(@[^@\s]*)?$`)
)

// ValidateRunID checks a run identifier used as a storage key or file name.
func ValidateRunID(id string) error {
	if id == "" {
		return &ValidationError{Field: "run_id", Constraint: "required"}
	}
	if !runIDRegex.MatchString(id) {
		return &ValidationError{Field: "run_id", Value: SanitizeForLog(id),
			Constraint: "must be 1-64 alphanumeric, hyphen or underscore characters"}
	}
	return nil
}

// ValidateMetricNames checks count and lexical shape of requested metric
// identifiers. Semantic checks (known base, valid k) belong to the registry.
func ValidateMetricNames(names []string, maxMetrics int) error {
	if maxMetrics <= 0 {
		maxMetrics = DefaultMaxMetrics
	}
	if len(names) == 0 {
		return &ValidationError{Field: "metrics", Constraint: "at least one metric is required"}
	}
	if len(names) > maxMetrics {
		return &ValidationError{Field: "metrics", Value: len(names),
			Constraint: fmt.Sprintf("at most %d metrics per request", maxMetrics)}
	}
	for i, name := range names {
		field := fmt.Sprintf("metrics[%d]", i)
		if len(name) > MaxMetricNameLen {
			return &ValidationError{Field: field, Value: len(name),
				Constraint: fmt.Sprintf("maximum length is %d characters", MaxMetricNameLen)}
		}
		if !metricNameRegex.MatchString(name) {
			return &ValidationError{Field: field, Value: SanitizeForLog(name),
				Constraint: "must be a metric name optionally followed by @k"}
		}
	}
	return nil
}

// ValidateBatchSize checks the number of records in one request.
func ValidateBatchSize(n, maxBatch int) error {
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatch
	}
	if n == 0 {
		return &ValidationError{Field: "records", Constraint: "at least one record is required"}
	}
	if n > maxBatch {
		return &ValidationError{Field: "records", Value: n,
			Constraint: fmt.Sprintf("at most %d records per request", maxBatch)}
	}
	return nil
}

// ValidateK checks a default cutoff coming from a parameter map.
func ValidateK(k int) error {
	if k < 1 || k > MaxK {
		return &ValidationError{Field: "retrieval.k", Value: k,
			Constraint: fmt.Sprintf("must be between 1 and %d", MaxK)}
	}
	return nil
}
