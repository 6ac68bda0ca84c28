package exchange

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
)

// FormWideField designates errors that are not tied to a single field.
const FormWideField = "__all__"

// UnreachableMessage is shown for transport failures
const UnreachableMessage = "Unable to reach the exchange, please retry"

// FieldErrors maps a field name (or FormWideField) to its ordered messages.
type FieldErrors map[string][]string

// FormWide returns the messages not tied to a field
func (f FieldErrors) FormWide() []string {
	return f[FormWideField]
}

// Fields returns the names of fields carrying errors, sorted, excluding FormWideField.
func (f FieldErrors) Fields() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		if name != FormWideField {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// RejectedError is returned when the exchange answered with a validation or lookup failure.
type RejectedError struct {
	Op     string
	Status int
	Fields FieldErrors
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected (%d): %v", e.Op, e.Status, map[string][]string(e.Fields))
}

// NotFound reports whether the exchange did not know the resource
func (e *RejectedError) NotFound() bool {
	return e.Status == http.StatusNotFound
}

// TransportError is returned when the exchange could not be reached or answered unintelligibly.
type TransportError struct {
	Op     string
	Status int // 0 when no response was received
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s failed with status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a 404 rejection
func IsNotFound(err error) bool {
	var rejected *RejectedError
	return errors.As(err, &rejected) && rejected.NotFound()
}

// ErrorFields converts any error into messages suitable for inline display.
func ErrorFields(err error) FieldErrors {
	if err == nil {
		return nil
	}

	var rejected *RejectedError
	if errors.As(err, &rejected) && len(rejected.Fields) > 0 {
		return rejected.Fields
	}

	var transport *TransportError
	if errors.As(err, &transport) {
		return FieldErrors{FormWideField: {UnreachableMessage}}
	}

	return FieldErrors{FormWideField: {err.Error()}}
}
