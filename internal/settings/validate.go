package settings

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/models"
)

// ValidationError reports a value rejected by its FieldSpec.
type ValidationError struct {
	Key string
	Msg string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Key, e.Msg)
}

func (e *ValidationError) Unwrap() error {
	return models.ErrValidation
}

// Validate checks value against f. Values are expected in
// JSON-decoded form (see normalize).
func Validate(f FieldSpec, value any) error {
	if msg := check(f.Type, value); msg != "" {
		return &ValidationError{Key: f.Key, Msg: msg}
	}

	switch f.Type {
	case TypeInt, TypeFloat:
		n := value.(float64)
		if f.Min != nil && n < *f.Min {
			return &ValidationError{Key: f.Key, Msg: fmt.Sprintf("%v below minimum %v", n, *f.Min)}
		}
		if f.Max != nil && n > *f.Max {
			return &ValidationError{Key: f.Key, Msg: fmt.Sprintf("%v above maximum %v", n, *f.Max)}
		}

	case TypeEnum:
		choices := f.Choices()
		if len(choices) > 0 && !contains(choices, value) {
			return &ValidationError{Key: f.Key, Msg: fmt.Sprintf("%v is not one of %v", value, choices)}
		}

	case TypeDict, TypeObject:
		if f.ValueType == "" {
			return nil
		}
		var errs []error
		for k, v := range value.(map[string]any) {
			if msg := check(f.ValueType, v); msg != "" {
				errs = append(errs, &ValidationError{Key: f.Key + "." + k, Msg: msg})
			}
		}
		return errors.Join(errs...)
	}

	return nil
}

// check returns a non-empty message when value does not have type t.
func check(t FieldType, value any) string {
	switch t {
	case TypeBool:
		if _, ok := value.(bool); !ok {
			return fmt.Sprintf("expected bool, got %T", value)
		}
	case TypeInt:
		n, ok := value.(float64)
		if !ok {
			return fmt.Sprintf("expected int, got %T", value)
		}
		if n != math.Trunc(n) {
			return fmt.Sprintf("expected int, got %v", n)
		}
	case TypeFloat:
		if _, ok := value.(float64); !ok {
			return fmt.Sprintf("expected number, got %T", value)
		}
	case TypeString, TypePath:
		if _, ok := value.(string); !ok {
			return fmt.Sprintf("expected string, got %T", value)
		}
	case TypeEnum:
		if value == nil {
			return "expected enum value, got null"
		}
	case TypeArray:
		if _, ok := value.([]any); !ok {
			return fmt.Sprintf("expected array, got %T", value)
		}
	case TypeDict, TypeObject:
		if _, ok := value.(map[string]any); !ok {
			return fmt.Sprintf("expected object, got %T", value)
		}
	}
	return ""
}

func contains(choices []any, v any) bool {
	for _, c := range choices {
		if reflect.DeepEqual(c, v) {
			return true
		}
	}
	return false
}
