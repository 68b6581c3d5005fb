package domain

import (
	"errors"
	"strings"
)

var (
	ErrNotFound          = errors.New("product not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicateRequest  = errors.New("duplicate request")
	ErrDuplicateSKU      = errors.New("duplicate sku")
)

const (
	MsgNameRequired    = "name required"
	MsgSKUTooShort     = "sku too short"
	MsgDuplicateSKU    = "duplicate sku"
	MsgInvalidPrice    = "invalid price"
	MsgNegativeStock   = "negative stock"
	MsgInvalidCategory = "invalid category"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports every rule a create request violated.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

func (e *ValidationError) Messages() []string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Message
	}
	return msgs
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages(), ", ")
}
