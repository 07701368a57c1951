package tenant

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/jobcore/pkg/db"
)

// ErrScopeUnavailable is returned when a scoped resource cannot be acquired.
// Callers may fall back to unscoped execution.
var ErrScopeUnavailable = errors.New("tenant: scope unavailable")

// ErrInvalidSetting is returned for a setting name that is not a dotted identifier.
var ErrInvalidSetting = errors.New("tenant: invalid setting name")

// Scoper runs fn inside a resource bound to tenantID.
type Scoper interface {
	Scope(ctx context.Context, tenantID string, fn func(ctx context.Context) error) error
}

// ScoperFunc adapts a function to the Scoper interface.
type ScoperFunc func(ctx context.Context, tenantID string, fn func(ctx context.Context) error) error

// Scope calls f.
func (f ScoperFunc) Scope(ctx context.Context, tenantID string, fn func(ctx context.Context) error) error {
	return f(ctx, tenantID, fn)
}

const defaultSetting = "app.tenant_id"

var settingRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*\.[a-z_][a-z0-9_]*$`)

type txKey struct{}

// TxFromContext returns the tenant-scoped transaction opened by PgScoper.
func TxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// PgScoper scopes execution to a Postgres transaction with the tenant
// setting applied for the duration of the transaction.
type PgScoper struct {
	pool    *pgxpool.Pool
	setting string
}

// PgOption configures a PgScoper.
type PgOption func(*PgScoper)

// WithSetting overrides the session setting name. Default: app.tenant_id.
func WithSetting(name string) PgOption {
	return func(s *PgScoper) {
		if name != "" {
			s.setting = name
		}
	}
}

// NewPgScoper creates a scoper over pool.
func NewPgScoper(pool *pgxpool.Pool, opts ...PgOption) (*PgScoper, error) {
	s := &PgScoper{pool: pool, setting: defaultSetting}
	for _, opt := range opts {
		opt(s)
	}
	if !settingRe.MatchString(s.setting) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSetting, s.setting)
	}
	return s, nil
}

// Scope begins a transaction, applies the tenant setting and runs fn with the
// transaction in ctx. The transaction commits when fn succeeds and rolls back
// otherwise. A panic in fn rolls back and is re-raised.
func (s *PgScoper) Scope(ctx context.Context, tenantID string, fn func(ctx context.Context) error) error {
	if s == nil || s.pool == nil {
		return ErrScopeUnavailable
	}

	var scoped bool
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT set_config($1, $2, true)", s.setting, tenantID); err != nil {
			return errors.Join(ErrScopeUnavailable, err)
		}
		scoped = true
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
	if err != nil && !scoped && !errors.Is(err, ErrScopeUnavailable) {
		return errors.Join(ErrScopeUnavailable, err)
	}
	return err
}
