// Package schedule holds the catalog of recurring jobs: a name mapped to a
// cron expression, an IANA timezone and the event to send on every tick.
//
// The catalog is plain data loaded from YAML:
//
//	schedules:
//	  - name: nightly-payouts
//	    event: payout.requested
//	    cron: "0 2 * * *"
//	    timezone: America/New_York
//	    payload:
//	      tenantId: system
//
// Validate checks every expression with robfig/cron and every payload with the
// tenant rule. The local provider never executes schedules; production
// backends translate the catalog into their own periodic triggers.
package schedule
