// Package errx provides registry-based structured errors.
//
// Each package owns a Registry with a unique prefix and registers its error
// codes once at init time. Constructed errors carry a stable code, an error
// type, an HTTP status for the transport layer, optional details and an
// optional cause.
package errx

import (
	"fmt"
	"strings"
)

// Type classifies an error for handling decisions.
type Type string

const (
	TypeValidation   Type = "validation"
	TypeNotFound     Type = "not_found"
	TypeBusiness     Type = "business"
	TypeUnauthorized Type = "unauthorized"
	TypeExternal     Type = "external"
	TypeInternal     Type = "internal"
)

// Code identifies a registered error definition.
type Code string

type definition struct {
	code       string
	errType    Type
	httpStatus int
	message    string
}

// Registry holds the error definitions of one package.
type Registry struct {
	prefix      string
	definitions map[Code]definition
}

// NewRegistry creates a registry with the given code prefix.
func NewRegistry(prefix string) *Registry {
	return &Registry{
		prefix:      strings.ToUpper(prefix),
		definitions: make(map[Code]definition),
	}
}

// Register adds an error definition and returns its code.
// Registering the same code twice panics: codes are wired at init time and
// a duplicate is a programming error.
func (r *Registry) Register(code string, t Type, httpStatus int, message string) Code {
	full := Code(r.prefix + "." + code)
	if _, exists := r.definitions[full]; exists {
		panic(fmt.Sprintf("errx: duplicate error code %s", full))
	}
	r.definitions[full] = definition{
		code:       string(full),
		errType:    t,
		httpStatus: httpStatus,
		message:    message,
	}
	return full
}

// Error is a structured error created from a registry.
type Error struct {
	Code       string         `json:"code"`
	Type       Type           `json:"type"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

// New creates an error from a registered code.
func (r *Registry) New(code Code) *Error {
	def, ok := r.definitions[code]
	if !ok {
		return &Error{
			Code:       string(code),
			Type:       TypeInternal,
			Message:    "unregistered error code",
			HTTPStatus: 500,
		}
	}
	return &Error{
		Code:       def.code,
		Type:       def.errType,
		Message:    def.message,
		HTTPStatus: def.httpStatus,
	}
}

// NewWithMessage creates an error with the registered metadata but a
// custom message.
func (r *Registry) NewWithMessage(code Code, message string) *Error {
	err := r.New(code)
	err.Message = message
	return err
}

// NewWithCause creates an error wrapping an underlying cause.
func (r *Registry) NewWithCause(code Code, cause error) *Error {
	err := r.New(code)
	err.Cause = cause
	return err
}

// WithDetail attaches a key/value detail and returns the error for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches two registry errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}
