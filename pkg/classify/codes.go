package classify

// Permanent codes. A job failing with one of these is not retried.
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeInvalidPayload      = "INVALID_PAYLOAD"
	CodeMissingTenant       = "MISSING_TENANT"
	CodeUnknownEvent        = "UNKNOWN_EVENT"
	CodeNoHandler           = "NO_HANDLER"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeAuthentication      = "AUTHENTICATION_FAILED"
	CodeConfiguration       = "CONFIGURATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeConflict            = "CONFLICT"
	CodeAlreadyProcessed    = "ALREADY_PROCESSED"
	CodeDuplicate           = "DUPLICATE"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeInvalidState        = "INVALID_STATE"
	CodeCardDeclined        = "CARD_DECLINED"
	CodeAccountClosed       = "ACCOUNT_CLOSED"
	CodeUniqueViolation     = "UNIQUE_VIOLATION"
	CodeForeignKey          = "FOREIGN_KEY_VIOLATION"
	CodeDataIntegrity       = "DATA_INTEGRITY"
	CodeCancelled           = "CANCELLED"
)

// Retryable codes.
const (
	CodeNetwork             = "NETWORK_ERROR"
	CodeConnectionRefused   = "CONNECTION_REFUSED"
	CodeConnectionReset     = "CONNECTION_RESET"
	CodeTimeout             = "TIMEOUT"
	CodeDNS                 = "DNS_ERROR"
	CodeRateLimited         = "RATE_LIMITED"
	CodeServiceUnavailable  = "SERVICE_UNAVAILABLE"
	CodeInternalServer      = "INTERNAL_SERVER_ERROR"
	CodeBadGateway          = "BAD_GATEWAY"
	CodeGatewayTimeout      = "GATEWAY_TIMEOUT"
	CodeDeadlock            = "DEADLOCK"
	CodeLockTimeout         = "LOCK_TIMEOUT"
	CodeSerialization       = "SERIALIZATION_FAILURE"
	CodeTooManyConnections  = "TOO_MANY_CONNECTIONS"
	CodeTemporary           = "TEMPORARY_FAILURE"
	CodeVendorUnavailable   = "VENDOR_UNAVAILABLE"
	CodeInterrupted         = "INTERRUPTED"
	CodePanic               = "PANIC"
	CodeUnknown             = "UNKNOWN"
)

// PermanentCodes is the closed set of codes that must not be retried.
var PermanentCodes = map[string]struct{}{
	CodeValidation:          {},
	CodeInvalidInput:        {},
	CodeInvalidPayload:      {},
	CodeMissingTenant:       {},
	CodeUnknownEvent:        {},
	CodeNoHandler:           {},
	CodeUnauthorized:        {},
	CodeForbidden:           {},
	CodeAuthentication:      {},
	CodeConfiguration:       {},
	CodeNotFound:            {},
	CodeConflict:            {},
	CodeAlreadyProcessed:    {},
	CodeDuplicate:           {},
	CodeInsufficientBalance: {},
	CodeInvalidState:        {},
	CodeCardDeclined:        {},
	CodeAccountClosed:       {},
	CodeUniqueViolation:     {},
	CodeForeignKey:          {},
	CodeDataIntegrity:       {},
	CodeCancelled:           {},
}

// RetryableCodes is the closed set of codes that are safe to retry.
var RetryableCodes = map[string]struct{}{
	CodeNetwork:            {},
	CodeConnectionRefused:  {},
	CodeConnectionReset:    {},
	CodeTimeout:            {},
	CodeDNS:                {},
	CodeRateLimited:        {},
	CodeServiceUnavailable: {},
	CodeInternalServer:     {},
	CodeBadGateway:         {},
	CodeGatewayTimeout:     {},
	CodeDeadlock:           {},
	CodeLockTimeout:        {},
	CodeSerialization:      {},
	CodeTooManyConnections: {},
	CodeTemporary:          {},
	CodeVendorUnavailable:  {},
	CodeInterrupted:        {},
	CodePanic:              {},
	CodeUnknown:            {},
}

// IsPermanentCode reports whether code belongs to PermanentCodes.
func IsPermanentCode(code string) bool {
	_, ok := PermanentCodes[code]
	return ok
}

// IsRetryableCode reports whether code belongs to RetryableCodes.
func IsRetryableCode(code string) bool {
	_, ok := RetryableCodes[code]
	return ok
}
