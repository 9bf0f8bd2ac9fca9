// Package domain defines the normalized, broker-agnostic records produced by
// statement parsing.
//
// Records are plain values. Build them through the NewXxx constructors, which
// validate required fields, currency codes and sign constraints and return a
// descriptive error instead of a half-filled record. Money amounts use
// shopspring/decimal so that statement values round-trip exactly.
package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// RUB is the settlement currency of the Moscow Exchange derivatives market.
const RUB = "RUB"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Decimals validate as float64 so numeric tags (gte, gt, ne) apply.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	// Report JSON names in errors.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// FieldError describes one invalid field of a record.
type FieldError struct {
	Field string
	Rule  string
	Value any
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: failed %q (value %v)", e.Field, e.Rule, e.Value)
}

// InvalidRecordError is returned by constructors when validation fails.
type InvalidRecordError struct {
	Record string
	Fields []FieldError
}

func (e *InvalidRecordError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("invalid %s: %s", e.Record, strings.Join(parts, "; "))
}

func check[T any](record string, v T) (T, error) {
	err := validate.Struct(v)
	if err == nil {
		return v, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		var zero T
		return zero, fmt.Errorf("validate %s: %w", record, err)
	}

	out := &InvalidRecordError{Record: record}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field: fe.Field(),
			Rule:  fe.Tag(),
			Value: fe.Value(),
		})
	}
	var zero T
	return zero, out
}
