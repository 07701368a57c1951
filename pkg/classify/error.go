package classify

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidKeyPart is returned when an idempotency key component is empty.
var ErrInvalidKeyPart = errors.New("classify: idempotency key part is empty")

// ClassifiedError is a job failure reduced to a stable code and a retry verdict.
// It is stored verbatim on failed jobs and serialized with them.
type ClassifiedError struct {
	cause      error
	Message    string        `json:"message"`
	Code       string        `json:"code"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
	Retryable  bool          `json:"retryable"`
}

// Error returns the failure message.
func (e *ClassifiedError) Error() string {
	return e.Message
}

// Unwrap returns the original error, if any.
func (e *ClassifiedError) Unwrap() error {
	return e.cause
}

// New creates a classified error for code. Retryability follows the code sets;
// codes outside both sets are treated as retryable.
func New(code, message string) *ClassifiedError {
	return &ClassifiedError{
		Message:   message,
		Code:      code,
		Retryable: !IsPermanentCode(code),
	}
}

// Newf is New with a formatted message.
func Newf(code, format string, args ...any) *ClassifiedError {
	return New(code, fmt.Sprintf(format, args...))
}

// WithCode attaches an explicit code to err. The result classifies by the
// code sets regardless of the message.
func WithCode(err error, code string) *ClassifiedError {
	if err == nil {
		return nil
	}
	ce := New(code, err.Error())
	ce.cause = err
	return ce
}

// Permanent classifies err and marks it non-retryable, keeping its code.
func Permanent(err error) *ClassifiedError {
	ce := Classify(err)
	if ce == nil {
		return nil
	}
	if !ce.Retryable {
		return ce
	}
	out := *ce
	out.Retryable = false
	out.cause = err
	return &out
}

// Retryable classifies err and marks it retryable, keeping its code.
func Retryable(err error) *ClassifiedError {
	ce := Classify(err)
	if ce == nil {
		return nil
	}
	if ce.Retryable {
		return ce
	}
	out := *ce
	out.Retryable = true
	out.cause = err
	return &out
}

// IsRetryable reports whether err should be retried. A nil error is not.
func IsRetryable(err error) bool {
	ce := Classify(err)
	return ce != nil && ce.Retryable
}
