// Package validation wraps go-playground/validator with the field rules the
// services share and renders failures as apperr validation errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"biblioteca/internal/apperr"
)

// MinPublicationYear is exclusive: books must be published after it.
const MinPublicationYear = 1450

// Validator checks structs tagged with `validate:"..."`. Besides the built-in
// rules it understands:
//
//	pubyear      MinPublicationYear < value <= current year
//	trimmed_min  string length after trimming spaces is at least the param
type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

// New builds a Validator. now decides the current year for `pubyear`.
func New(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}

	v := &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      now,
	}

	v.validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// both registrations only fail on an empty tag name
	_ = v.validate.RegisterValidation("pubyear", func(fl validator.FieldLevel) bool {
		year := fl.Field().Int()
		return year > MinPublicationYear && year <= int64(v.now().Year())
	})
	_ = v.validate.RegisterValidation("trimmed_min", func(fl validator.FieldLevel) bool {
		var limit int
		if _, err := fmt.Sscan(fl.Param(), &limit); err != nil {
			return false
		}
		return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) >= limit
	})

	return v
}

// Struct validates s and returns nil or an *apperr.Error of kind Validation.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate %T: %w", s, err)
	}

	fields := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperr.FieldError{
			Field:   fe.Field(),
			Message: v.message(fe),
		})
	}
	return apperr.InvalidFields(fields)
}

func (v *Validator) message(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String

	switch fe.Tag() {
	case "required":
		return "Campo requerido"
	case "min":
		if isString {
			return fmt.Sprintf("Debe tener al menos %s caracteres", fe.Param())
		}
		return fmt.Sprintf("Debe ser mayor o igual a %s", fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("Debe tener como máximo %s caracteres", fe.Param())
		}
		return fmt.Sprintf("Debe ser menor o igual a %s", fe.Param())
	case "gt":
		return fmt.Sprintf("Debe ser mayor a %s", fe.Param())
	case "email":
		return "Debe ser un correo electrónico válido"
	case "oneof":
		return fmt.Sprintf("Debe ser uno de: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "trimmed_min":
		return fmt.Sprintf("Debe tener al menos %s caracteres sin contar espacios", fe.Param())
	case "pubyear":
		if year, ok := fe.Value().(int); ok && year <= MinPublicationYear {
			return fmt.Sprintf("El año debe ser mayor a %d", MinPublicationYear)
		}
		return fmt.Sprintf("El año no puede ser mayor al año actual (%d)", v.now().Year())
	default:
		return fmt.Sprintf("No cumple la regla %q", fe.Tag())
	}
}
