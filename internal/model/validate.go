package model

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/erazemk/stash/internal/hashcode"
)

var (
	validate   *validator.Validate
	translator ut.Translator

	hashCodeTag  = "hashcode"
	hashCodeText = "{0} must be 6 or 40 letters and digits"
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(hashCodeTag, func(fl validator.FieldLevel) bool {
		return hashcode.Valid(fl.Field().String())
	})
	_ = validate.RegisterTranslation(hashCodeTag, translator,
		func(t ut.Translator) error { return t.Add(hashCodeTag, hashCodeText, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(hashCodeTag, fe.Field())
			return s
		},
	)
}

// Validate checks v against its struct tags. Failures come back as a
// *ValidationError; anything else indicates a programming error.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Message: fe.Translate(translator)})
	}
	return NewValidationError(fields...)
}
