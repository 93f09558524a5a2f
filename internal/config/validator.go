package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/coral-asprof/internal/asprof"
	"github.com/coral-mesh/coral-asprof/internal/logging"
)

// ValidationError represents a single validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// MultiValidationError collects every validation error found.
type MultiValidationError struct {
	Errors []ValidationError
}

// Error implements the error interface.
func (e *MultiValidationError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "validation failed with %d errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, err.Error())
	}
	return b.String()
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []ValidationError
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}
	positive := func(field string, d time.Duration) {
		if d <= 0 {
			add(field, "must be positive, got %s", d)
		}
	}

	if _, err := asprof.ParseEventType(c.Event); err != nil {
		add("event", "%v", err)
	}
	positive("interval", c.Interval)
	positive("upload_interval", c.UploadInterval)
	positive("probe_timeout", c.ProbeTimeout)
	if c.UploadInterval > 0 && c.Interval > 0 && c.UploadInterval < c.Interval {
		add("upload_interval", "must not be shorter than interval (%s)", c.Interval)
	}

	if c.Staging.Namespace == "" {
		add("staging.namespace", "must not be empty")
	} else if strings.ContainsAny(c.Staging.Namespace, `/\`) {
		add("staging.namespace", "must not contain path separators")
	}

	positive("storage.retention", c.Storage.Retention)
	positive("storage.cleanup_interval", c.Storage.CleanupInterval)

	if c.Metrics.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Addr); err != nil {
			add("metrics.addr", "invalid listen address %q: %v", c.Metrics.Addr, err)
		}
	}

	if c.Log.Level != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
			add("log.level", "unknown level %q", c.Log.Level)
		}
	}
	switch c.Log.Format {
	case "", logging.FormatAuto, logging.FormatJSON, logging.FormatPretty:
	default:
		add("log.format", "must be one of %s, %s, %s", logging.FormatAuto, logging.FormatJSON, logging.FormatPretty)
	}

	if len(errs) > 0 {
		return &MultiValidationError{Errors: errs}
	}
	return nil
}

// EventType returns the parsed sampling event. Call after Validate.
func (c *Config) EventType() asprof.EventType {
	event, err := asprof.ParseEventType(c.Event)
	if err != nil {
		return asprof.EventITimer
	}
	return event
}
