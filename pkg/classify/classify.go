package classify

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type coder interface {
	Code() string
}

type statusCoder interface {
	StatusCode() int
}

type vendorTyped interface {
	ErrorType() string
}

type retryAfterer interface {
	RetryAfter() time.Duration
}

func as[T any](err error) (T, bool) {
	var target T
	ok := errors.As(err, &target)
	return target, ok
}

// Classify reduces err to a ClassifiedError. It returns nil for a nil error.
// Classifying an already classified error returns it unchanged.
func Classify(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	if ce, ok := as[*ClassifiedError](err); ok {
		return ce
	}

	ce := &ClassifiedError{
		Message: err.Error(),
		cause:   err,
	}
	if ra, ok := as[retryAfterer](err); ok {
		ce.RetryAfter = ra.RetryAfter()
	}

	code := explicitCode(err)
	if code == "" {
		code = structuredCode(err)
	}
	if code == "" {
		code = messageCode(err.Error())
	}
	if code == "" {
		code = CodeUnknown
	}

	ce.Code = code
	ce.Retryable = !IsPermanentCode(code)
	return ce
}

func explicitCode(err error) string {
	c, ok := as[coder](err)
	if !ok {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(c.Code()))
}

func structuredCode(err error) string {
	if pgErr, ok := as[*pgconn.PgError](err); ok {
		if code := sqlStateCode(pgErr.Code); code != "" {
			return code
		}
	}
	if sc, ok := as[statusCoder](err); ok {
		if code := httpStatusCode(sc.StatusCode()); code != "" {
			return code
		}
	}
	if vt, ok := as[vendorTyped](err); ok {
		if code := vendorCode(vt.ErrorType()); code != "" {
			return code
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, context.Canceled):
		return CodeInterrupted
	case errors.Is(err, pgx.ErrNoRows):
		return CodeNotFound
	case errors.Is(err, syscall.ECONNREFUSED):
		return CodeConnectionRefused
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE):
		return CodeConnectionReset
	case errors.Is(err, syscall.ETIMEDOUT):
		return CodeTimeout
	}

	if _, ok := as[*net.DNSError](err); ok {
		return CodeDNS
	}
	if ne, ok := as[net.Error](err); ok {
		if ne.Timeout() {
			return CodeTimeout
		}
		return CodeNetwork
	}
	return ""
}

// sqlStateCode maps Postgres SQLSTATE values.
func sqlStateCode(state string) string {
	switch state {
	case "40P01":
		return CodeDeadlock
	case "40001":
		return CodeSerialization
	case "55P03":
		return CodeLockTimeout
	case "57014":
		return CodeTimeout
	case "53300":
		return CodeTooManyConnections
	case "23505":
		return CodeUniqueViolation
	case "23503":
		return CodeForeignKey
	}
	switch {
	case strings.HasPrefix(state, "23"):
		return CodeDataIntegrity
	case strings.HasPrefix(state, "22"):
		return CodeInvalidInput
	case strings.HasPrefix(state, "28"):
		return CodeAuthentication
	case strings.HasPrefix(state, "08"):
		return CodeNetwork
	}
	return ""
}

func httpStatusCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusPaymentRequired:
		return CodeInsufficientBalance
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound, http.StatusGone:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusRequestTimeout:
		return CodeTimeout
	case http.StatusTooManyRequests:
		return CodeRateLimited
	case http.StatusInternalServerError:
		return CodeInternalServer
	case http.StatusBadGateway:
		return CodeBadGateway
	case http.StatusServiceUnavailable:
		return CodeServiceUnavailable
	case http.StatusGatewayTimeout:
		return CodeGatewayTimeout
	}
	switch {
	case status >= 500 && status <= 599:
		return CodeServiceUnavailable
	case status >= 400 && status <= 499:
		return CodeInvalidInput
	}
	return ""
}

// vendorCode maps payment-processor style error types.
func vendorCode(kind string) string {
	switch strings.ToLower(kind) {
	case "card_error":
		return CodeCardDeclined
	case "invalid_request_error", "validation_error":
		return CodeValidation
	case "authentication_error":
		return CodeAuthentication
	case "permission_error":
		return CodeForbidden
	case "idempotency_error":
		return CodeAlreadyProcessed
	case "rate_limit_error":
		return CodeRateLimited
	case "api_connection_error":
		return CodeNetwork
	case "api_error", "service_unavailable":
		return CodeVendorUnavailable
	}
	return ""
}

type messagePattern struct {
	substr string
	code   string
}

// messagePatterns are matched against the lowercased message in order.
// Business invariants come first so a message mentioning both a balance
// problem and a network hiccup stays permanent.
var messagePatterns = []messagePattern{
	{"insufficient balance", CodeInsufficientBalance},
	{"insufficient funds", CodeInsufficientBalance},
	{"already processed", CodeAlreadyProcessed},
	{"already exists", CodeDuplicate},
	{"duplicate key", CodeUniqueViolation},
	{"violates foreign key", CodeForeignKey},
	{"tenantid", CodeMissingTenant},
	{"card declined", CodeCardDeclined},
	{"card was declined", CodeCardDeclined},
	{"account closed", CodeAccountClosed},
	{"unauthorized", CodeUnauthorized},
	{"forbidden", CodeForbidden},
	{"permission denied", CodeForbidden},
	{"invalid credentials", CodeAuthentication},
	{"authentication failed", CodeAuthentication},
	{"validation", CodeValidation},
	{"not configured", CodeConfiguration},
	{"misconfigured", CodeConfiguration},
	{"econnrefused", CodeConnectionRefused},
	{"connection refused", CodeConnectionRefused},
	{"econnreset", CodeConnectionReset},
	{"connection reset", CodeConnectionReset},
	{"broken pipe", CodeConnectionReset},
	{"etimedout", CodeTimeout},
	{"timed out", CodeTimeout},
	{"timeout", CodeTimeout},
	{"enotfound", CodeDNS},
	{"no such host", CodeDNS},
	{"rate limit", CodeRateLimited},
	{"too many requests", CodeRateLimited},
	{"service unavailable", CodeServiceUnavailable},
	{"bad gateway", CodeBadGateway},
	{"deadlock", CodeDeadlock},
	{"lock wait", CodeLockTimeout},
	{"could not serialize", CodeSerialization},
	{"too many connections", CodeTooManyConnections},
	{"temporarily unavailable", CodeTemporary},
	{"try again", CodeTemporary},
	{"network", CodeNetwork},
}

func messageCode(msg string) string {
	msg = strings.ToLower(msg)
	for _, p := range messagePatterns {
		if strings.Contains(msg, p.substr) {
			return p.code
		}
	}
	return ""
}
