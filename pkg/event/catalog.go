package event

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
)

// Known event names.
const (
	OrderCreated        = "order.created"
	OrderUpdated        = "order.updated"
	OrderRefunded       = "order.refunded"
	PayoutRequested     = "payout.requested"
	PayoutCompleted     = "payout.completed"
	CommissionCredited  = "commission.credited"
	AttributionComputed = "attribution.computed"
	TaxFormGenerate     = "taxform.generate"
	EmailSend           = "email.send"
	SMSSend             = "sms.send"
	SystemHeartbeat     = "system.heartbeat"
)

var nameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)+$`)

// ValidName reports whether name is a dot-namespaced lowercase identifier.
func ValidName(name string) bool {
	return nameRe.MatchString(name)
}

// Definition describes an event and the defaults applied when it is sent.
// Zero values mean "no default".
type Definition struct {
	Name        string
	Description string
	Queue       string
	MaxAttempts int
	Priority    int
}

// Catalog is the closed mapping from event name to definition.
// A Catalog is read-only after construction and safe for concurrent use.
type Catalog struct {
	defs map[string]Definition
}

// NewCatalog builds a catalog. It fails on invalid or duplicate names.
func NewCatalog(defs ...Definition) (*Catalog, error) {
	c := &Catalog{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if !ValidName(d.Name) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidName, d.Name)
		}
		if _, dup := c.defs[d.Name]; dup {
			return nil, fmt.Errorf("event: duplicate definition %q", d.Name)
		}
		c.defs[d.Name] = d
	}
	return c, nil
}

// MustCatalog is NewCatalog that panics on error.
func MustCatalog(defs ...Definition) *Catalog {
	c, err := NewCatalog(defs...)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the definition for name.
func (c *Catalog) Lookup(name string) (Definition, bool) {
	if c == nil {
		return Definition{}, false
	}
	d, ok := c.defs[name]
	return d, ok
}

// Check returns ErrUnknownEvent when name is not in the catalog.
// A nil catalog accepts every name.
func (c *Catalog) Check(name string) error {
	if c == nil {
		return nil
	}
	if _, ok := c.defs[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEvent, name)
	}
	return nil
}

// Names returns all event names in sorted order.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(c.defs))
}

// DefaultCatalog returns the catalog of built-in events.
func DefaultCatalog() *Catalog {
	return MustCatalog(
		Definition{Name: OrderCreated, Description: "order placed on a connected store"},
		Definition{Name: OrderUpdated, Description: "order fields or status changed"},
		Definition{Name: OrderRefunded, Description: "order refunded fully or partially"},
		Definition{Name: PayoutRequested, Description: "affiliate requested a payout", Queue: "payments", MaxAttempts: 5, Priority: 10},
		Definition{Name: PayoutCompleted, Description: "payout settled by the processor", Queue: "payments", Priority: 10},
		Definition{Name: CommissionCredited, Description: "commission credited to a ledger", Queue: "payments", MaxAttempts: 5, Priority: 5},
		Definition{Name: AttributionComputed, Description: "order attributed to an affiliate"},
		Definition{Name: TaxFormGenerate, Description: "generate a yearly tax form", Queue: "reports", MaxAttempts: 2},
		Definition{Name: EmailSend, Description: "deliver a transactional email", Queue: "notifications"},
		Definition{Name: SMSSend, Description: "deliver a text message", Queue: "notifications"},
		Definition{Name: SystemHeartbeat, Description: "periodic liveness probe for the job pipeline", MaxAttempts: 1},
	)
}
