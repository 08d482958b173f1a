package restock

import (
	"errors"
	"fmt"
)

// Code classifies the outcome of a webhook or of a single recipient delivery.
type Code string

const (
	CodeInvalidPayload     Code = "INVALID_PAYLOAD"
	CodeMissingProductInfo Code = "MISSING_PRODUCT_INFO"
	CodeMethodNotAllowed   Code = "METHOD_NOT_ALLOWED"
	CodeNotRestocked       Code = "NOT_RESTOCKED"
	CodeDispatched         Code = "DISPATCHED"
	CodeDispatchError      Code = "DISPATCH_ERROR"

	CodeFetchError  Code = "FETCH_ERROR"
	CodeDeleteError Code = "DELETE_ERROR"

	CodeRenderFailed Code = "RENDER_FAILED"
	CodeSendFailed   Code = "SEND_FAILED"
	CodeDeleteFailed Code = "DELETE_FAILED"
)

// Error is a coded error raised by the restock pipeline.
type Error struct {
	Code Code
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError returns an *Error for op with the given code.
func NewError(code Code, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// ValidationError is returned by ParseStockChangeEvent when the payload is rejected.
type ValidationError struct {
	Code    Code
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for %q: %s", e.Field, e.Message)
	}
	return e.Message
}
