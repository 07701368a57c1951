// Package tenant carries the tenant of the running job through the context
// and optionally scopes handler execution to that tenant.
//
// A Scoper wraps a handler call in a tenant-bound resource. PgScoper opens a
// transaction and sets the app.tenant_id setting, so row-level security
// policies apply to every query the handler runs through TxFromContext:
//
//	CREATE POLICY tenant_isolation ON orders
//	    USING (tenant_id = current_setting('app.tenant_id'));
//
// When no scoper is configured, handlers run unscoped.
package tenant
