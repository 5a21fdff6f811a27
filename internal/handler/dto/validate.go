package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/shopspring/decimal"
)

// ValidationError carries one translated message per invalid JSON field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, msg := range e.Fields {
		parts = append(parts, msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validator validates request DTOs and translates failures to English.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewValidator builds a Validator that understands decimal amounts.
func NewValidator() (*Validator, error) {
	v := validator.New()

	eng := en.New()
	translator, found := ut.New(eng, eng).GetTranslator("en")
	if !found {
		return nil, errors.New("english translator not found")
	}
	if err := en_translations.RegisterDefaultTranslations(v, translator); err != nil {
		return nil, fmt.Errorf("register translations: %w", err)
	}

	// Report JSON names rather than Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Numeric tags (gte, lte, required) compare decimals as float64.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	// Sub-cent amounts are checked at struct level, where the decimal is
	// still visible.
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		req, ok := sl.Current().Interface().(ExpenseRequest)
		if !ok {
			return
		}
		if !req.Amount.Equal(req.Amount.Round(2)) {
			sl.ReportError(req.Amount, "amount", "Amount", "cents", "")
		}
	}, ExpenseRequest{})
	err := v.RegisterTranslation("cents", translator,
		func(ut ut.Translator) error {
			return ut.Add("cents", "{0} must have at most two decimal places", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T("cents", fe.Field())
			return msg
		},
	)
	if err != nil {
		return nil, fmt.Errorf("register cents translation: %w", err)
	}

	return &Validator{validate: v, translator: translator}, nil
}

// Struct validates s. Failures are returned as *ValidationError.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err
	}

	fields := make(map[string]string, len(errs))
	for _, fe := range errs {
		fields[fe.Field()] = fe.Translate(v.translator)
	}
	return &ValidationError{Fields: fields}
}
