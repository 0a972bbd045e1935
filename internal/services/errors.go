package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnavailable marks an acquisition capability that cannot run in this
	// environment at all (missing binary, missing credentials, disabled).
	ErrUnavailable   = errors.New("capability unavailable")
	ErrExternalTool  = errors.New("external tool error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Unavailable is shorthand for Wrap(ErrUnavailable, component, "", reason, err).
func Unavailable(component, reason string, err error) error {
	return Wrap(ErrUnavailable, component, "", reason, err)
}

// IsUnavailable reports whether err marks a capability that could not run.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
