package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes. Each maps to one HTTP status through HTTPStatus.
const (
	EINVALID      = "invalid"          // 400
	EUNAUTHORIZED = "unauthorized"     // 401
	EPAYMENT      = "payment_required" // 402
	EFORBIDDEN    = "forbidden"        // 403
	ENOTFOUND     = "not_found"        // 404
	ECONFLICT     = "conflict"         // 409: duplicate wishlist item, stock race, cancelled order paid
	EGONE         = "gone"             // 410
	ETOOLARGE     = "too_large"        // 413
	ERATELIMIT    = "rate_limit"       // 429
	EINTERNAL     = "internal"         // 500, message hidden
	EGATEWAY      = "gateway_error"    // 500, message shown
	ENOTIMPL      = "not_implemented"  // 501
)

const internalMessage = "An internal error occurred. Please try again later."

// Error is a coded application error. Message is safe to show callers
// except when Code is EINTERNAL. Op and Err are for logs only.
type Error struct {
	Code    string
	Message string
	Op      string // e.g. "order.create"
	Details any    // rendered next to the message, never for EINTERNAL
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match package-level sentinels by code and message, so
// copies made by WithOp still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code && e.Message == t.Message
}

// WithOp returns a copy of e tagged with op.
func (e *Error) WithOp(op string) *Error {
	cp := *e
	cp.Op = op
	return &cp
}

// ErrorCode returns the code carried by err. Validation errors are
// EINVALID and anything unrecognised is EINTERNAL. A nil err has no code.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return EINVALID
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage returns the text a caller may see. Internal and foreign
// errors collapse to a generic message.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		if len(ve.Problems) == 1 {
			return ve.Problems[0]
		}
		return ve.Message()
	}
	var e *Error
	if errors.As(err, &e) && e.Code != EINTERNAL {
		return e.Message
	}
	return internalMessage
}

// ErrorDetails returns the problem list of a validation error or the
// Details of a non-internal Error.
func ErrorDetails(err error) any {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Problems
	}
	var e *Error
	if errors.As(err, &e) && e.Code != EINTERNAL {
		return e.Details
	}
	return nil
}

// ErrorOp returns the operation recorded on err, if any.
func ErrorOp(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Op
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// Errorf builds an Error with a formatted message.
func Errorf(code, op, format string, args ...interface{}) error {
	return &Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches code, op and message to err. It returns nil for a nil
// err.
func WrapError(err error, code, op, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Op: op, Message: message, Err: err}
}

// ValidationError collects every problem found in a request so the client
// can show them together. Problems keep the order they were found in.
type ValidationError struct {
	Title    string // shown when there is more than one problem
	Problems []string
	Op       string
}

// Message is the top-level text: Title, or "Validation failed".
func (e *ValidationError) Message() string {
	if e.Title != "" {
		return e.Title
	}
	return "Validation failed"
}

func (e *ValidationError) Error() string {
	var msg string
	if len(e.Problems) == 1 {
		msg = e.Problems[0]
	} else {
		msg = fmt.Sprintf("%s: %d problems", e.Message(), len(e.Problems))
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

// Add records one more problem.
func (e *ValidationError) Add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// HasProblems reports whether Add was called.
func (e *ValidationError) HasProblems() bool {
	return len(e.Problems) > 0
}

// Err returns e, or nil when nothing was recorded.
func (e *ValidationError) Err() error {
	if !e.HasProblems() {
		return nil
	}
	return e
}

// NewValidationError is a ValidationError holding a single problem.
func NewValidationError(op, message string) error {
	return &ValidationError{Op: op, Problems: []string{message}}
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NotFound reports that resource does not exist, as "<resource> not found".
func NotFound(op, resource string) error {
	return &Error{Code: ENOTFOUND, Op: op, Message: resource + " not found"}
}

func Unauthorized(op, message string) error {
	return &Error{Code: EUNAUTHORIZED, Op: op, Message: message}
}

func Forbidden(op, message string) error {
	return &Error{Code: EFORBIDDEN, Op: op, Message: message}
}

func Invalid(op, message string) error {
	return &Error{Code: EINVALID, Op: op, Message: message}
}

// InvalidWithDetails is Invalid plus structured details, such as the
// totals a client sent next to the ones the server computed.
func InvalidWithDetails(op, message string, details any) error {
	return &Error{Code: EINVALID, Op: op, Message: message, Details: details}
}

func Conflict(op, message string) error {
	return &Error{Code: ECONFLICT, Op: op, Message: message}
}

// Gateway reports a failed payment gateway call. Unlike Internal, message
// reaches the caller.
func Gateway(err error, op, message string) error {
	return &Error{Code: EGATEWAY, Op: op, Message: message, Err: err}
}

// Internal wraps an unexpected failure. Callers only ever see the generic
// message; message and err are logged.
func Internal(err error, op, message string) error {
	return &Error{Code: EINTERNAL, Op: op, Message: message, Err: err}
}

var statusByCode = map[string]int{
	EINVALID:      http.StatusBadRequest,
	EUNAUTHORIZED: http.StatusUnauthorized,
	EPAYMENT:      http.StatusPaymentRequired,
	EFORBIDDEN:    http.StatusForbidden,
	ENOTFOUND:     http.StatusNotFound,
	ECONFLICT:     http.StatusConflict,
	EGONE:         http.StatusGone,
	ETOOLARGE:     http.StatusRequestEntityTooLarge,
	ERATELIMIT:    http.StatusTooManyRequests,
	ENOTIMPL:      http.StatusNotImplemented,
}

// HTTPStatus maps an error code to the status it is served with. EINTERNAL,
// EGATEWAY and unknown codes are 500.
func HTTPStatus(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
