package validate

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
)

// PlaygroundV10 Validator implementation using go-playground
type PlaygroundV10 struct {
	core  *validator.Validate
	trans ut.Translator
}

var _ Validator = &PlaygroundV10{}

// supported message locales
const (
	LocaleEN = "en"
	LocaleZH = "zh"
)

// finite rejects NaN and infinities, which min/max comparisons let through
const finiteTag = "finite"

var finiteMessages = map[string]string{
	LocaleEN: "{0} must be a finite number",
	LocaleZH: "{0}必须是有限数字",
}

// NewValidator create a new Validator, locale selects the message language ("en" or "zh")
func NewValidator(locale ...string) *PlaygroundV10 {
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale, zh.New())

	validate := validator.New()
	lang := LocaleEN // en translator as default
	if len(locale) > 0 && locale[0] == LocaleZH {
		lang = LocaleZH
	}
	trans, _ := uni.GetTranslator(lang)
	if lang == LocaleZH {
		zh_translations.RegisterDefaultTranslations(validate, trans)
	} else {
		en_translations.RegisterDefaultTranslations(validate, trans)
	}
	registerFinite(validate, trans, finiteMessages[lang])
	validate.RegisterTagNameFunc(JSONTagName)
	return &PlaygroundV10{
		core:  validate,
		trans: trans,
	}
}

// JSONTagName report struct field names by their json (or yaml) tag
func JSONTagName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		name = strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return ""
		}
	}
	return name
}

// Struct validate struct
func (v PlaygroundV10) Struct(s interface{}) FieldErrors {
	if err := v.core.Struct(s); err != nil {
		return v.translate(err)
	}
	return nil
}

// Var validate a single value against tag
func (v PlaygroundV10) Var(varName string, value interface{}, tag string) FieldErrors {
	if err := v.core.Var(value, tag); err != nil {
		var result FieldErrors
		for _, item := range v.translate(err) {
			// Var errors carry no field name
			result = append(result, NewFieldError(varName, strings.TrimSpace(varName+item.Reason)))
		}
		return result
	}
	return nil
}

// Empty check if value is empty
func (v PlaygroundV10) Empty(varName string, s interface{}) FieldErrors {
	if err := v.core.Var(s, "required"); err != nil {
		return FieldErrors{NewFieldError(varName, fmt.Sprintf("%s is required", varName))}
	}
	return nil
}

func (v PlaygroundV10) translate(err error) FieldErrors {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return FieldErrors{NewFieldError("", err.Error())}
	}
	var result FieldErrors
	for _, item := range errs {
		result = append(result, NewFieldError(item.Field(), item.Translate(v.trans)))
	}
	return result
}

func registerFinite(v *validator.Validate, trans ut.Translator, message string) {
	v.RegisterValidation(finiteTag, func(fl validator.FieldLevel) bool {
		switch fl.Field().Kind() {
		case reflect.Float32, reflect.Float64:
			f := fl.Field().Float()
			return !math.IsNaN(f) && !math.IsInf(f, 0)
		}
		return true
	})
	v.RegisterTranslation(finiteTag, trans,
		func(t ut.Translator) error {
			return t.Add(finiteTag, message, true)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(finiteTag, fe.Field())
			return msg
		},
	)
}
