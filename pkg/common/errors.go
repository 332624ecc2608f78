package common

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies an error for transport mapping.
type Kind uint8

const (
	Other Kind = iota
	Invalid
	Unauthorized
	NotFound
	Conflict
	Unexpected
)

func (k Kind) String() string {
	switch k {
	case Invalid:
		return "invalid"
	case Unauthorized:
		return "unauthorized"
	case NotFound:
		return "not found"
	case Conflict:
		return "conflict"
	case Unexpected:
		return "unexpected"
	}
	return "other"
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a classified error. err may be nil.
func E(kind Kind, message string, err error) error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFoundErr(entity string) error {
	return E(NotFound, entity+" not found", nil)
}

func InvalidBodyErr(err error) error {
	return E(Invalid, "invalid request body", err)
}

func UnexpectedErr(err error) error {
	return E(Unexpected, "unexpected error", err)
}

// KindOf returns the kind of the outermost classified error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Other
}

// Message returns the client-safe message for err. Unclassified and
// unexpected errors never expose their text.
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Kind == Unexpected || e.Kind == Other {
		return "Internal server error"
	}
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	if e.Kind == Invalid && e.Err != nil {
		var ve *ValidationErrors
		if errors.As(e.Err, &ve) {
			return e.Message + ": " + ve.Error()
		}
	}
	return e.Message
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Invalid:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// ValidationErrors collects field level problems.
type ValidationErrors struct {
	fields map[string][]string
}

func ValidationErrs() *ValidationErrors {
	return &ValidationErrors{fields: map[string][]string{}}
}

func (v *ValidationErrors) Add(field, msg string) {
	v.fields[field] = append(v.fields[field], msg)
}

func (v *ValidationErrors) Len() int {
	return len(v.fields)
}

func (v *ValidationErrors) Error() string {
	keys := make([]string, 0, len(v.fields))
	for k := range v.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+strings.Join(v.fields[k], ", "))
	}
	return strings.Join(parts, "; ")
}

// Err returns nil when nothing was added.
func (v *ValidationErrors) Err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return v
}

func ValidationFailedErr(err error) error {
	return E(Invalid, "validation failed", err)
}
