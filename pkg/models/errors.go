package models

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable failure code surfaced to callers of settlement operations
type ErrorCode uint16

const (
	CodeNotInitialized ErrorCode = iota + 1
	CodeUnauthorized
	CodeNotFound
	CodeInvalidPriceFeed
	CodeInvalidIntentID
	CodeInvalidEthAddress
	CodeTokenFactoryNotSet
	CodeAlreadyInitialized
	CodeInvalidPrice
	CodeInvalidSlippage
	CodeAmountOutOfRange
	CodeArithmeticOverflow
	CodeInvalidTransition
	CodeBurnFailed
)

var codeNames = map[ErrorCode]string{
	CodeNotInitialized:     "NotInitialized",
	CodeUnauthorized:       "Unauthorized",
	CodeNotFound:           "NotFound",
	CodeInvalidPriceFeed:   "InvalidPriceFeed",
	CodeInvalidIntentID:    "InvalidIntentId",
	CodeInvalidEthAddress:  "InvalidEthAddress",
	CodeTokenFactoryNotSet: "TokenFactoryNotSet",
	CodeAlreadyInitialized: "AlreadyInitialized",
	CodeInvalidPrice:       "InvalidPrice",
	CodeInvalidSlippage:    "InvalidSlippage",
	CodeAmountOutOfRange:   "AmountOutOfRange",
	CodeArithmeticOverflow: "ArithmeticOverflow",
	CodeInvalidTransition:  "InvalidTransition",
	CodeBurnFailed:         "BurnFailed",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(%d)", uint16(c))
}

// Sentinels for errors.Is matching, they carry no operation or detail
var (
	ErrNotInitialized     = &Error{Code: CodeNotInitialized}
	ErrUnauthorized       = &Error{Code: CodeUnauthorized}
	ErrNotFound           = &Error{Code: CodeNotFound}
	ErrInvalidPriceFeed   = &Error{Code: CodeInvalidPriceFeed}
	ErrInvalidIntentID    = &Error{Code: CodeInvalidIntentID}
	ErrInvalidEthAddress  = &Error{Code: CodeInvalidEthAddress}
	ErrTokenFactoryNotSet = &Error{Code: CodeTokenFactoryNotSet}
	ErrAlreadyInitialized = &Error{Code: CodeAlreadyInitialized}
	ErrInvalidPrice       = &Error{Code: CodeInvalidPrice}
	ErrInvalidSlippage    = &Error{Code: CodeInvalidSlippage}
	ErrAmountOutOfRange   = &Error{Code: CodeAmountOutOfRange}
	ErrArithmeticOverflow = &Error{Code: CodeArithmeticOverflow}
	ErrInvalidTransition  = &Error{Code: CodeInvalidTransition}
	ErrBurnFailed         = &Error{Code: CodeBurnFailed}
)

// Error is a coded failure. Two errors match under errors.Is when their codes are equal.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Err     error
}

// NewError creates a coded error for the given operation
func NewError(code ErrorCode, op string, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError attaches a code to an underlying cause
func WrapError(code ErrorCode, op string, err error) *Error {
	return &Error{
		Code: code,
		Op:   op,
		Err:  err,
	}
}

func (e *Error) Error() string {
	msg := e.Code.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error carrying the same code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// CodeOf extracts the failure code from err, or 0 if err carries none
func CodeOf(err error) ErrorCode {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return 0
}
