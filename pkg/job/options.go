package job

import (
	"time"

	"github.com/dmitrymomot/jobcore/pkg/event"
)

// DefaultQueue is used when neither the caller nor the event catalog names a queue.
const DefaultQueue = "default"

// DefaultMaxAttempts is used when neither the caller nor the catalog sets a budget.
const DefaultMaxAttempts = 3

// SendOptions controls how a job is queued.
type SendOptions struct {
	ScheduledFor   time.Time
	IdempotencyKey string
	Queue          string
	Tags           []string
	Delay          time.Duration
	MaxAttempts    int
	Priority       int
	prioritySet    bool
}

// SendOption configures a single Send call.
type SendOption func(*SendOptions)

// NewSendOptions applies opts over zero values.
func NewSendOptions(opts ...SendOption) SendOptions {
	var o SendOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithDelay postpones the first attempt by d.
//
// Example:
//
//	provider.Send(ctx, event.EmailSend, payload, job.WithDelay(10*time.Minute))
func WithDelay(d time.Duration) SendOption {
	return func(o *SendOptions) {
		if d > 0 {
			o.Delay = d
		}
	}
}

// ScheduledFor postpones the first attempt until t. It takes precedence over WithDelay.
func ScheduledFor(t time.Time) SendOption {
	return func(o *SendOptions) {
		o.ScheduledFor = t
	}
}

// WithIdempotencyKey deduplicates sends: a second send with the same key
// returns the first job instead of queueing another.
//
// Example:
//
//	key, _ := classify.IdempotencyKey(tenantID, "payout", payoutID)
//	provider.Send(ctx, event.PayoutRequested, payload, job.WithIdempotencyKey(key))
func WithIdempotencyKey(key string) SendOption {
	return func(o *SendOptions) {
		o.IdempotencyKey = key
	}
}

// WithMaxAttempts sets the total number of attempts, including the first.
func WithMaxAttempts(n int) SendOption {
	return func(o *SendOptions) {
		if n > 0 {
			o.MaxAttempts = n
		}
	}
}

// InQueue routes the job to a named queue.
func InQueue(name string) SendOption {
	return func(o *SendOptions) {
		if name != "" {
			o.Queue = name
		}
	}
}

// WithPriority sets the job priority. Higher values run first among due jobs.
func WithPriority(p int) SendOption {
	return func(o *SendOptions) {
		o.Priority = p
		o.prioritySet = true
	}
}

// WithTags attaches metadata tags.
func WithTags(tags ...string) SendOption {
	return func(o *SendOptions) {
		o.Tags = append(o.Tags, tags...)
	}
}

// ApplyDefaults fills options the caller left unset from the event
// definition, then from the provider-wide attempt budget.
func (o *SendOptions) ApplyDefaults(def event.Definition, maxAttempts int) {
	if o.Queue == "" {
		o.Queue = def.Queue
	}
	if o.Queue == "" {
		o.Queue = DefaultQueue
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = def.MaxAttempts
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = maxAttempts
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if !o.prioritySet {
		o.Priority = def.Priority
	}
}

// RunAt returns when the first attempt becomes due.
func (o SendOptions) RunAt(now time.Time) time.Time {
	if !o.ScheduledFor.IsZero() {
		return o.ScheduledFor
	}
	return now.Add(o.Delay)
}
