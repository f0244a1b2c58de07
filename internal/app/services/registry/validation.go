package registry

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/R3E-Network/constants_registry/internal/app/domain/constant"
)

// ValidationError lists every payload field that failed validation, keyed by
// its JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+" "+e.Fields[name])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Validator checks write payloads before they reach storage.
type Validator struct {
	v *validator.Validate
}

// NewValidator builds a validator reporting fields by their JSON names.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Domain validates a domain payload.
func (v *Validator) Domain(in constant.DomainInput) error {
	return v.check(in, nil)
}

// Constant validates a constant payload. The value may be a string (possibly
// empty) or a number but must be present.
func (v *Validator) Constant(in constant.ConstantInput) error {
	extra := map[string]string{}
	if !in.Value.IsSet() {
		extra["value"] = "is required"
	}
	return v.check(in, extra)
}

func (v *Validator) check(payload interface{}, extra map[string]string) error {
	fields := map[string]string{}
	for k, msg := range extra {
		fields[k] = msg
	}

	if err := v.v.Struct(payload); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			fields[fe.Field()] = describe(fe)
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
