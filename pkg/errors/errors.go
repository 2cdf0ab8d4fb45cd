package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// Metadata is how a code is presented over HTTP. PublicMessage is the
// Vietnamese fallback shown when an error carries no client-safe message.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
	// MessageExposed lets the error's own message reach the client.
	MessageExposed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:    {HTTPStatus: http.StatusBadRequest, PublicMessage: "Dữ liệu không hợp lệ", DetailsAllowed: true, MessageExposed: true},
	CodeUnauthorized:  {HTTPStatus: http.StatusUnauthorized, PublicMessage: "Vui lòng đăng nhập", MessageExposed: true},
	CodeForbidden:     {HTTPStatus: http.StatusForbidden, PublicMessage: "Bạn không có quyền thực hiện thao tác này", MessageExposed: true},
	CodeNotFound:      {HTTPStatus: http.StatusNotFound, PublicMessage: "Không tìm thấy dữ liệu", MessageExposed: true},
	CodeConflict:      {HTTPStatus: http.StatusConflict, PublicMessage: "Dữ liệu đã tồn tại", DetailsAllowed: true, MessageExposed: true},
	CodeStateConflict: {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "Không thể chuyển trạng thái", DetailsAllowed: true, MessageExposed: true},
	CodeRateLimit:     {HTTPStatus: http.StatusTooManyRequests, PublicMessage: "Quá nhiều yêu cầu, vui lòng thử lại sau", MessageExposed: true},
	CodeInternal:      {HTTPStatus: http.StatusInternalServerError, Retryable: true, PublicMessage: "Đã có lỗi xảy ra, vui lòng thử lại"},
	CodeDependency:    {HTTPStatus: http.StatusServiceUnavailable, Retryable: true, PublicMessage: "Dịch vụ tạm thời không khả dụng", DetailsAllowed: true},
}

// MetadataFor falls back to INTERNAL_ERROR for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is the typed error carried from services to the HTTP layer.
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

// FieldErrors maps a request field to what is wrong with it.
type FieldErrors map[string]string

// Invalid builds a VALIDATION_ERROR whose message lists the offending fields.
func Invalid(fields FieldErrors) *Error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	msg := "validation failed"
	if len(names) > 0 {
		msg = "invalid fields: " + strings.Join(names, ", ")
	}
	return New(CodeValidation, msg).WithDetails(fields)
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
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the first typed error in err's chain.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries the given typed code anywhere in its chain.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
