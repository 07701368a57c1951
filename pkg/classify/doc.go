// Package classify turns arbitrary job failures into structured errors that
// decide retry behavior.
//
// Every failure is reduced to a ClassifiedError carrying a stable code and a
// retryable flag. Codes come from two closed sets: PermanentCodes (validation,
// authorization, configuration, business invariants, data integrity) and
// RetryableCodes (network, rate limiting, upstream 5xx, lock contention).
//
// Classify inspects, in order:
//
//  1. an error that is already classified (returned unchanged),
//  2. an explicit code exposed by a Code() string method,
//  3. structured fields: HTTP status, vendor error type, Postgres SQLSTATE,
//     context deadlines, network and syscall errors,
//  4. case-insensitive message patterns such as "ECONNREFUSED" or
//     "insufficient balance".
//
// Anything else is UNKNOWN and retryable.
//
// Decide combines a classification with the attempt budget and a backoff
// strategy:
//
//	d := classify.Decide(err, job.Attempts, job.MaxAttempts, backoff.Default())
//	switch d.Action {
//	case classify.ActionAbort:
//	    // mark failed
//	case classify.ActionDelay:
//	    // requeue after d.Delay
//	case classify.ActionRetry:
//	    // requeue now
//	}
package classify
