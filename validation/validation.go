// Package validation holds the field rules entity aggregates apply before deciding.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/c0deZ3R0/go-ledger-kit/errors"
)

// Result is the outcome of one rule.
type Result struct {
	IsValid bool
	Errors  []string
}

// Rule validates one string value.
type Rule interface {
	Validate(value string) Result
}

// RuleFunc adapts a function to Rule.
type RuleFunc func(value string) Result

func (f RuleFunc) Validate(value string) Result { return f(value) }

func ok() Result { return Result{IsValid: true} }

func fail(format string, args ...any) Result {
	return Result{Errors: []string{fmt.Sprintf(format, args...)}}
}

// Required rejects empty or whitespace-only values.
func Required() Rule {
	return RuleFunc(func(value string) Result {
		if strings.TrimSpace(value) == "" {
			return fail("is required")
		}
		return ok()
	})
}

// MaxLength rejects values longer than n characters.
func MaxLength(n int) Rule {
	return RuleFunc(func(value string) Result {
		if l := utf8.RuneCountInString(value); l > n {
			return fail("must be at most %d characters (got %d)", n, l)
		}
		return ok()
	})
}

// OneOf rejects values outside allowed.
func OneOf(allowed ...string) Rule {
	return RuleFunc(func(value string) Result {
		for _, a := range allowed {
			if value == a {
				return ok()
			}
		}
		return fail("must be one of %s", strings.Join(allowed, ", "))
	})
}

// FieldError lists the failures of one field.
type FieldError struct {
	Field    string
	Messages []string
}

// Errors is the aggregated validation failure of a command.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Field+" "+strings.Join(fe.Messages, "; "))
	}
	return strings.Join(parts, ", ")
}

// Field pairs a value with the rules it must pass.
type Field struct {
	Name  string
	Value string
	Rules []Rule
}

// F is shorthand for constructing a Field.
func F(name, value string, rules ...Rule) Field {
	return Field{Name: name, Value: value, Rules: rules}
}

// Check runs every rule of every field and returns a VALIDATION error listing all
// failures, or nil.
func Check(fields ...Field) error {
	var errs Errors
	for _, f := range fields {
		var msgs []string
		for _, r := range f.Rules {
			if res := r.Validate(f.Value); !res.IsValid {
				msgs = append(msgs, res.Errors...)
			}
		}
		if len(msgs) > 0 {
			errs = append(errs, FieldError{Field: f.Name, Messages: msgs})
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.NewValidationError(errors.OpDecide, errs)
}

// Invalid returns a VALIDATION error for a rule that is not expressible per field.
func Invalid(format string, args ...any) error {
	return errors.NewValidationError(errors.OpDecide, fmt.Errorf(format, args...))
}
