package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInsufficientCash  = errors.New("insufficient cash")
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
)

// ValidationError maps request fields to what is wrong with them.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

// OrNil returns nil when no field was flagged.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

type NotFoundError struct {
	Entity string
	ID     int64
	Key    string
}

func (e *NotFoundError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
	}
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

type StockError struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (e *StockError) Error() string {
	name := e.ProductName
	if name == "" {
		name = fmt.Sprintf("product %d", e.ProductID)
	}
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", name, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

type CashError struct {
	Total    decimal.Decimal
	Received decimal.Decimal
}

func (e *CashError) Error() string {
	return fmt.Sprintf("insufficient cash: total %s, received %s", e.Total.StringFixed(2), e.Received.StringFixed(2))
}

func (e *CashError) Unwrap() error { return ErrInsufficientCash }

// ReferencedError reports a delete blocked by rows that still point at the entity.
type ReferencedError struct {
	Entity string
	ID     int64
	By     string
}

func (e *ReferencedError) Error() string {
	return fmt.Sprintf("cannot delete %s %d: referenced by %s", e.Entity, e.ID, e.By)
}

func (e *ReferencedError) Unwrap() error { return ErrConflict }

type DuplicateError struct {
	Field string
	Value string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Field, e.Value)
}

func (e *DuplicateError) Unwrap() error { return ErrConflict }
