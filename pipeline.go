package jobcore

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/jobcore/pkg/dedup"
	"github.com/dmitrymomot/jobcore/pkg/middleware"
	"github.com/dmitrymomot/jobcore/pkg/tenant"
)

// Pipeline describes the standard middleware chain. Zero fields leave their
// stage out, except Timeout, which falls back to middleware.DefaultTimeout.
type Pipeline struct {
	Logger *slog.Logger

	// Timeout bounds each attempt.
	Timeout time.Duration

	// Observe receives the duration of every attempt.
	Observe middleware.TimingFunc

	// Limiter caps attempts across all tenants; TenantLimiters caps each
	// tenant separately. Both may be set.
	Limiter        *middleware.Limiter
	TenantLimiters *middleware.Limiters

	// Dedup skips jobs already processed under DedupKey within DedupTTL.
	Dedup    dedup.Store
	DedupKey middleware.KeyFunc
	DedupTTL time.Duration

	// Scoper runs handlers inside a tenant-bound resource.
	Scoper tenant.Scoper
}

// Middleware returns the chain, outermost first: timeout, recover, logging,
// timing, classification, rate limits, idempotency, tenant context.
func (p Pipeline) Middleware() []middleware.Middleware {
	mws := []middleware.Middleware{
		middleware.Timeout(p.Timeout),
		middleware.Recover(p.Logger),
	}
	if p.Logger != nil {
		mws = append(mws, middleware.Logging(p.Logger))
	}
	if p.Observe != nil {
		mws = append(mws, middleware.Timing(p.Observe))
	}
	mws = append(mws, middleware.ErrorClassification())
	if p.Limiter != nil {
		mws = append(mws, middleware.RateLimit(p.Limiter))
	}
	if p.TenantLimiters != nil {
		mws = append(mws, middleware.TenantRateLimit(p.TenantLimiters))
	}
	if p.Dedup != nil {
		mws = append(mws, middleware.Idempotency(p.Dedup, p.DedupKey, p.DedupTTL, p.Logger))
	}
	return append(mws, middleware.TenantContext(p.Scoper, p.Logger))
}

// DefaultPipeline is the chain most workers want: default timeout, panic
// recovery, logging, classification and tenant context. A nil scoper runs
// handlers unscoped.
func DefaultPipeline(log *slog.Logger, scoper tenant.Scoper) []middleware.Middleware {
	return Pipeline{Logger: log, Scoper: scoper}.Middleware()
}
