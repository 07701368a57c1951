// Package event defines the envelope every job is enqueued with and the
// tenant rule that guards it.
//
// An event is a dot-namespaced name ("order.created", "payout.requested")
// plus a payload. Every payload must carry a non-empty string tenantId;
// ValidateTenantID enforces this at the provider boundary and again right
// before a handler runs, so no job ever executes without a tenant.
//
// Catalog is the closed set of known events. Providers configured with a
// catalog reject unknown names and fill in per-event defaults (queue,
// attempts, priority) that the caller left unset.
//
//	cat := event.DefaultCatalog()
//	def, ok := cat.Lookup(event.OrderCreated)
package event
