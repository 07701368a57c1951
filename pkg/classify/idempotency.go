package classify

import (
	"fmt"
	"strings"
)

// IdempotencyKey derives a stable key for a monetary operation, for example
// a payout or a commission credit. Retried attempts of the same operation
// produce the same key, so downstream processors and the idempotency
// middleware can refuse to apply it twice.
//
// Example:
//
//	key, err := classify.IdempotencyKey(tenantID, "payout", payoutID)
//	// "t_123:payout:po_456"
//
// Parts are joined with ":". A ":" or "%" inside a part is percent-encoded,
// so distinct part lists never produce the same key.
func IdempotencyKey(tenantID, operation, entityID string, extra ...string) (string, error) {
	parts := make([]string, 0, 3+len(extra))
	for i, p := range append([]string{tenantID, operation, entityID}, extra...) {
		p = strings.TrimSpace(p)
		if p == "" {
			return "", fmt.Errorf("%w: position %d", ErrInvalidKeyPart, i)
		}
		parts = append(parts, keyEscaper.Replace(p))
	}
	return strings.Join(parts, ":"), nil
}

var keyEscaper = strings.NewReplacer("%", "%25", ":", "%3A")
