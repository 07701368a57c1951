package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"runtime/debug"
	"slices"
	"sync"

	"github.com/dmitrymomot/jobcore/pkg/classify"
)

// Handler executes one attempt of a job.
// A returned error or a Result with Success unset fails the attempt.
type Handler func(ctx context.Context, jc JobContext) (Result, error)

// Result is what a handler reports for a finished attempt.
type Result struct {
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Success bool   `json:"success"`
}

// OK is a successful result carrying data.
func OK(data any) Result {
	return Result{Success: true, Data: data}
}

// Fail is a failed result with a message.
func Fail(msg string) Result {
	return Result{Error: msg}
}

// Err returns nil for a successful result, otherwise an error with its message.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	if r.Error == "" {
		return errors.New("job reported failure")
	}
	return errors.New(r.Error)
}

// PanicError is returned when a handler panics.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("job handler panic: %v", e.Value)
}

// Code reports the classification code for panics.
func (e *PanicError) Code() string {
	return classify.CodePanic
}

// Run invokes h, recovers panics and folds a failed Result into an error.
// On success it returns the result data encoded as JSON.
func Run(ctx context.Context, h Handler, jc JobContext) (data json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			data = nil
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	res, err := h(ctx, jc)
	if err != nil {
		return nil, err
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	if res.Data == nil {
		return nil, nil
	}
	raw, err := json.Marshal(res.Data)
	if err != nil {
		return nil, fmt.Errorf("job: encode result: %w", err)
	}
	return raw, nil
}

// HandlerFunc adapts a function taking a typed payload into a Handler.
// Undecodable payloads fail permanently.
func HandlerFunc[P any](fn func(ctx context.Context, jc JobContext, payload P) (any, error)) Handler {
	return func(ctx context.Context, jc JobContext) (Result, error) {
		p, err := Decode[P](jc)
		if err != nil {
			return Result{}, classify.WithCode(err, classify.CodeInvalidPayload)
		}
		data, err := fn(ctx, jc, p)
		if err != nil {
			return Result{}, err
		}
		return OK(data), nil
	}
}

// Registrar accepts handler registrations. Every Provider is a Registrar.
type Registrar interface {
	RegisterHandler(event string, h Handler)
}

// RegisterTask registers a task using structural typing.
// The task must implement Name() and Handle(ctx, JobContext, P).
// The payload type is given explicitly; the task type is inferred.
//
// Example:
//
//	type CreditCommission struct{ ledger *ledger.Service }
//
//	func (t *CreditCommission) Name() string { return event.CommissionCredited }
//	func (t *CreditCommission) Handle(ctx context.Context, jc job.JobContext, p event.CommissionPayload) (any, error) {
//	    return nil, t.ledger.Credit(ctx, p.TenantID(), p.CommissionID, p.AmountCents)
//	}
//
//	job.RegisterTask[event.CommissionPayload](provider, &CreditCommission{ledger: svc})
func RegisterTask[P any, T interface {
	Name() string
	Handle(context.Context, JobContext, P) (any, error)
}](r Registrar, task T) {
	r.RegisterHandler(task.Name(), HandlerFunc(task.Handle))
}

// Registry stores handlers by event name. It is safe for concurrent use.
type Registry struct {
	handlers map[string]Handler
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds or replaces the handler for name. A nil handler is ignored.
func (r *Registry) Register(name string, h Handler) {
	if h == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Get returns the handler for name.
func (r *Registry) Get(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered event names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.handlers))
}

// MissingHandler is the permanent error recorded when a job has no handler.
func MissingHandler(name string) error {
	return classify.WithCode(fmt.Errorf("%w: %s", ErrNoHandler, name), classify.CodeNoHandler)
}
