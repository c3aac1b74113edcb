// Package errors carries coded errors for the backtester.
//
// Code ranges:
//   - 1-99: unknown and general errors
//   - 100-199: invalid configuration, parameters and signals
//   - 200-299: missing or unloadable candle data
//   - 300-399: indicator calculation
//   - 400-499: signal generator failures and version mismatches
//   - 600-699: simulation engine, result store and output writing
//   - 800-899: lifecycle callback failures
//
// Typical use:
//
//	err := errors.NewDataError(errors.ErrCodeDataNotFound, "PEPEUSDT", "15m", "no data file in %s", dir)
//	if errors.HasCode(err, errors.ErrCodeDataNotFound) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error is a coded error. Symbol and Interval are set on data errors only.
type Error struct {
	Code     ErrorCode
	Message  string
	Symbol   string
	Interval string
	Cause    error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps cause with a code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps cause with a code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return Wrap(code, fmt.Sprintf(format, args...), cause)
}

// NewDataError creates an error about the candles of one symbol. interval may be empty
// when the error concerns the symbol as a whole.
func NewDataError(code ErrorCode, symbol, interval, format string, args ...any) *Error {
	return &Error{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Symbol:   symbol,
		Interval: interval,
	}
}

// Error implements the error interface, e.g. "[200] PEPEUSDT/15m: no data file".
func (e *Error) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%d] ", e.Code)

	if e.Symbol != "" {
		b.WriteString(e.Symbol)

		if e.Interval != "" {
			b.WriteString("/" + e.Interval)
		}

		b.WriteString(": ")
	}

	b.WriteString(e.Message)

	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}

	return b.String()
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HasCode reports whether the outermost *Error in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	var e *Error

	return errors.As(err, &e) && e.Code == code
}

// DataLocation returns the symbol and interval of the first data error in err's chain.
func DataLocation(err error) (symbol, interval string, ok bool) {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return "", "", false
		}

		if e.Symbol != "" {
			return e.Symbol, e.Interval, true
		}

		err = e.Cause
	}

	return "", "", false
}

// InsufficientDataError reports that an indicator got fewer candles than it needs.
// It is a warning: callers treat it as "not warmed up yet" rather than a failure.
type InsufficientDataError struct {
	Indicator string
	Required  int
	Actual    int
}

// NewInsufficientDataError creates a new InsufficientDataError.
func NewInsufficientDataError(indicator string, required, actual int) *InsufficientDataError {
	return &InsufficientDataError{
		Indicator: indicator,
		Required:  required,
		Actual:    actual,
	}
}

// Error implements the error interface.
func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s needs %d candles, got %d", e.Indicator, e.Required, e.Actual)
}

// IsInsufficientDataError checks the error chain for an InsufficientDataError.
func IsInsufficientDataError(err error) bool {
	var insufficientErr *InsufficientDataError

	return errors.As(err, &insufficientErr)
}
