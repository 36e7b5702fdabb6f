package validator

import (
	"crypto-collector/utility/appError"
	"crypto-collector/utility/constants"
	"crypto-collector/utility/errorcode"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/shopspring/decimal"
	validation "gopkg.in/go-playground/validator.v9"
	en_translations "gopkg.in/go-playground/validator.v9/translations/en"
)

// Validator ... request validation with english messages
type Validator struct {
	validate   *validation.Validate
	translator ut.Translator
}

// New ... registers the collector's tags (currency, amount) and their messages
func New() (*Validator, error) {
	validate := validation.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	if err := validate.RegisterValidation("currency", isCatalogued); err != nil {
		return nil, err
	}
	if err := validate.RegisterValidation("amount", isPositiveAmount); err != nil {
		return nil, err
	}
	translator, err := CustomizeMessages(validate)
	if err != nil {
		return nil, err
	}
	return &Validator{validate: validate, translator: translator}, nil
}

// Struct ... nil, or the field messages of every failed rule
func (v *Validator) Struct(value interface{}) []map[string]string {
	err := v.validate.Struct(value)
	if err == nil {
		return nil
	}
	fieldErrors, ok := err.(validation.ValidationErrors)
	if !ok {
		return []map[string]string{{"error": err.Error()}}
	}
	messages := make([]map[string]string, 0, len(fieldErrors))
	for _, fieldErr := range fieldErrors {
		messages = append(messages, map[string]string{fieldErr.Field(): fieldErr.Translate(v.translator)})
	}
	return messages
}

func isCatalogued(field validation.FieldLevel) bool {
	_, ok := constants.Lookup(strings.ToUpper(field.Field().String()))
	return ok
}

func isPositiveAmount(field validation.FieldLevel) bool {
	amount, err := decimal.NewFromString(strings.TrimSpace(field.Field().String()))
	return err == nil && amount.IsPositive()
}

// CustomizeMessages ... Customize validation error messages
func CustomizeMessages(validator *validation.Validate) (ut.Translator, error) {
	translator := en.New()
	uni := ut.New(translator, translator)

	trans, found := uni.GetTranslator("en")
	if !found {
		return trans, appError.Err{ErrType: errorcode.SERVER_ERR_CODE, ErrCode: http.StatusInternalServerError, Err: errors.New("translator not found")}
	}

	if err := en_translations.RegisterDefaultTranslations(validator, trans); err != nil {
		return trans, appError.Err{ErrType: errorcode.SERVER_ERR_CODE, ErrCode: http.StatusInternalServerError, Err: err}
	}

	_ = validator.RegisterTranslation("required", trans, func(ut ut.Translator) error {
		return ut.Add("required", "{0} is a required field", true)
	}, func(ut ut.Translator, fe validation.FieldError) string {
		t, _ := ut.T("required", fe.Field())
		return t
	})

	_ = validator.RegisterTranslation("currency", trans, func(ut ut.Translator) error {
		return ut.Add("currency", "{0} must be one of ETH, USDT_ERC20, TRX, USDT_TRC20", true)
	}, func(ut ut.Translator, fe validation.FieldError) string {
		t, _ := ut.T("currency", fe.Field())
		return t
	})

	_ = validator.RegisterTranslation("amount", trans, func(ut ut.Translator) error {
		return ut.Add("amount", "{0} must be a positive decimal number", true)
	}, func(ut ut.Translator, fe validation.FieldError) string {
		t, _ := ut.T("amount", fe.Field())
		return t
	})

	return trans, nil
}
