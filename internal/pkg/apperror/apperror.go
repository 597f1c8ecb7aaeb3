package apperror

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeForbidden         Code = "FORBIDDEN"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeAlreadyGranted    Code = "ALREADY_GRANTED"
	CodeDuplicatePending  Code = "DUPLICATE_PENDING"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeStore             Code = "STORE_ERROR"
	CodeDependency        Code = "DEPENDENCY_ERROR"
	CodeInternal          Code = "INTERNAL_ERROR"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
	},
	CodeUnauthorized: {
		HTTPStatus:    http.StatusUnauthorized,
		PublicMessage: "authentication required",
	},
	CodeForbidden: {
		HTTPStatus:    http.StatusForbidden,
		PublicMessage: "access denied",
	},
	CodeNotFound: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "resource not found",
	},
	CodeConflict: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "conflict detected",
	},
	CodeAlreadyGranted: {
		HTTPStatus:     http.StatusConflict,
		PublicMessage:  "you already have access to this level",
		DetailsAllowed: true,
	},
	CodeDuplicatePending: {
		HTTPStatus:     http.StatusConflict,
		PublicMessage:  "you already have a pending request for this level",
		DetailsAllowed: true,
	},
	CodeInvalidTransition: {
		HTTPStatus:     http.StatusConflict,
		PublicMessage:  "request has already been reviewed",
		DetailsAllowed: true,
	},
	CodeStore: {
		HTTPStatus:    http.StatusServiceUnavailable,
		Retryable:     true,
		PublicMessage: "storage unavailable",
	},
	CodeDependency: {
		HTTPStatus:     http.StatusServiceUnavailable,
		Retryable:      true,
		PublicMessage:  "dependency unavailable",
		DetailsAllowed: true,
	},
	CodeInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "internal server error",
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the first *Error in err's chain, or nil.
func As(err error) *Error {
	var target *Error
	if stdErrors.As(err, &target) {
		return target
	}
	return nil
}

// CodeOf returns the code of err, defaulting to CodeInternal for untyped errors.
func CodeOf(err error) Code {
	if e := As(err); e != nil {
		return e.Code()
	}
	return CodeInternal
}

func IsCode(err error, code Code) bool {
	e := As(err)
	return e != nil && e.code == code
}

func AlreadyGranted(levelID string) *Error {
	return New(CodeAlreadyGranted, MetadataFor(CodeAlreadyGranted).PublicMessage).
		WithDetails(map[string]any{"level_id": levelID, "has_access": true})
}

func DuplicatePending(requestID string) *Error {
	return New(CodeDuplicatePending, MetadataFor(CodeDuplicatePending).PublicMessage).
		WithDetails(map[string]any{"request_id": requestID})
}

func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}

func Forbidden(message string) *Error {
	return New(CodeForbidden, message)
}

func InvalidTransition(requestID, status string) *Error {
	return New(CodeInvalidTransition, MetadataFor(CodeInvalidTransition).PublicMessage).
		WithDetails(map[string]any{"request_id": requestID, "status": status})
}

func Store(err error, message string) *Error {
	return Wrap(CodeStore, err, message)
}

func Validation(message string) *Error {
	return New(CodeValidation, message)
}
