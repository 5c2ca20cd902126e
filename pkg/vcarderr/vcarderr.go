// Package vcarderr defines the error kinds raised while lexing, building,
// and parsing vCard data.
//
// Every error returned by the rolodex packages that stems from bad input
// wraps exactly one of the sentinel kinds below, so callers classify with
// errors.Is and inspect context with errors.As:
//
//	var verr *vcarderr.Error
//	if errors.Is(err, vcarderr.ErrUndefinedProperty) && errors.As(err, &verr) {
//		fmt.Println("unknown property", verr.Property)
//	}
package vcarderr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedCard reports a document that violates the whole-card
	// grammar (missing BEGIN, VERSION or END).
	ErrMalformedCard = errors.New("malformed card")

	// ErrMalformedProperty reports a content line that does not have the
	// shape its specification requires.
	ErrMalformedProperty = errors.New("malformed property")

	// ErrMalformedParameter reports a bad TYPE token, MEDIATYPE, PREF or
	// other parameter.
	ErrMalformedParameter = errors.New("malformed parameter")

	// ErrUndefinedProperty reports a property name absent from the
	// registry under the strict policy.
	ErrUndefinedProperty = errors.New("undefined property")

	// ErrInvalidValue reports a value that fails semantic validation.
	ErrInvalidValue = errors.New("invalid value")
)

// Error carries the context of a failure together with its kind.
type Error struct {
	Kind      error
	Property  string
	Parameter string
	Value     string
	Reason    string
	Err       error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.Error())
	if e.Property != "" {
		fmt.Fprintf(&sb, " %s", strings.ToUpper(e.Property))
	}
	if e.Parameter != "" {
		fmt.Fprintf(&sb, " parameter %s", strings.ToUpper(e.Parameter))
	}
	if e.Reason != "" {
		fmt.Fprintf(&sb, ": %s", e.Reason)
	}
	if e.Value != "" {
		fmt.Fprintf(&sb, " (got: %q)", e.Value)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// MalformedCard builds an ErrMalformedCard error.
func MalformedCard(reason string) *Error {
	return &Error{Kind: ErrMalformedCard, Reason: reason}
}

// MalformedProperty builds an ErrMalformedProperty error for the named property.
func MalformedProperty(property, reason string) *Error {
	return &Error{Kind: ErrMalformedProperty, Property: property, Reason: reason}
}

// MalformedParameter builds an ErrMalformedParameter error naming the
// parameter and the offending value.
func MalformedParameter(property, parameter, value, reason string) *Error {
	return &Error{
		Kind:      ErrMalformedParameter,
		Property:  property,
		Parameter: parameter,
		Value:     value,
		Reason:    reason,
	}
}

// UndefinedProperty builds an ErrUndefinedProperty error.
func UndefinedProperty(property string) *Error {
	return &Error{Kind: ErrUndefinedProperty, Property: property, Reason: "not in the specification registry"}
}

// InvalidValue builds an ErrInvalidValue error.
func InvalidValue(property, value, reason string) *Error {
	return &Error{Kind: ErrInvalidValue, Property: property, Value: value, Reason: reason}
}

// WithProperty fills in the property name on a *Error that lacks one and
// returns err unchanged otherwise.
func WithProperty(err error, property string) error {
	var verr *Error
	if errors.As(err, &verr) && verr.Property == "" {
		verr.Property = property
	}
	return err
}
