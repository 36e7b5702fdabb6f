package appError

import (
	"crypto-collector/utility/errorcode"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Err ... service error with a transport code and an error type
type Err struct {
	ErrCode int
	ErrType string
	Err     error
	ErrData interface{}
}

func (e Err) Error() string {
	return fmt.Sprintf("%s", e.Err)
}

func (e Err) Unwrap() error {
	return e.Err
}

// New ... builds an Err from a format string
func New(code int, errType string, format string, args ...interface{}) Err {
	return Err{ErrCode: code, ErrType: errType, Err: fmt.Errorf(format, args...)}
}

// Configuration ... deployment misconfiguration, never retried
func Configuration(format string, args ...interface{}) Err {
	return New(http.StatusInternalServerError, errorcode.CONFIGURATION_ERR, format, args...)
}

// UnsupportedCurrency ... currency not served by the selected network
func UnsupportedCurrency(currency string) Err {
	err := New(http.StatusBadRequest, errorcode.UNSUPPORTED_CURRENCY, errorcode.UNSUPPORTED_CURRENCY_MSG, currency)
	err.ErrData = currency
	return err
}

// Is ... reports whether err carries the given error type
func Is(err error, errType string) bool {
	var appErr Err
	if errors.As(err, &appErr) {
		return appErr.ErrType == errType
	}
	return false
}

// Code ... transport code of err, 500 when err is not an Err
func Code(err error) int {
	var appErr Err
	if errors.As(err, &appErr) && appErr.ErrCode != 0 {
		return appErr.ErrCode
	}
	return http.StatusInternalServerError
}

// Type ... error type of err, SERVER_ERR when err is not an Err
func Type(err error) string {
	var appErr Err
	if errors.As(err, &appErr) && appErr.ErrType != "" {
		return appErr.ErrType
	}
	return errorcode.SERVER_ERR
}

// Data ... payload attached to err, nil when there is none
func Data(err error) interface{} {
	var appErr Err
	if errors.As(err, &appErr) {
		return appErr.ErrData
	}
	return nil
}

// GetSQLErr ... driver message of a mysql error without its numeric prefix
func GetSQLErr(err error) string {
	errDef := strings.Split(err.Error(), ":")
	errSubstring := errDef[1:]
	switch errDef[0] {
	case "Error 1062":
		return strings.Join(errSubstring, " ")
	case "Error 1366":
		return strings.Join(errSubstring, " ")
	default:
		return err.Error()
	}
}
