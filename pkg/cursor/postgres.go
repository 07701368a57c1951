package cursor

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/jobcore/pkg/db"
)

//go:embed migrations/*.sql
var migrations embed.FS

// MigrationsTable records applied cursor migrations.
const MigrationsTable = "jobcore_cursor_migrations"

// Migrate creates the job_cursors table.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("cursor: migrations: %w", err)
	}
	return db.Migrate(ctx, pool, sub, MigrationsTable, log)
}

// Postgres stores checkpoints in the job_cursors table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a store over pool. Run Migrate first.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Load returns the checkpoint of jobID or ErrNotFound.
func (p *Postgres) Load(ctx context.Context, jobID string) (State, error) {
	const q = `SELECT job_id, cursor, "offset", processed_count, total_count, last_updated
		FROM job_cursors WHERE job_id = $1`

	var st State
	err := p.pool.QueryRow(ctx, q, jobID).Scan(
		&st.JobID, &st.Cursor, &st.Offset, &st.ProcessedCount, &st.TotalCount, &st.LastUpdated,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return State{}, ErrNotFound
	}
	if err != nil {
		return State{}, fmt.Errorf("cursor: load %s: %w", jobID, err)
	}
	return st, nil
}

// Save inserts or replaces the checkpoint of s.JobID.
func (p *Postgres) Save(ctx context.Context, s State) error {
	if s.JobID == "" {
		return ErrEmptyJobID
	}

	const q = `INSERT INTO job_cursors (job_id, cursor, "offset", processed_count, total_count, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (job_id) DO UPDATE SET
			cursor = EXCLUDED.cursor,
			"offset" = EXCLUDED."offset",
			processed_count = EXCLUDED.processed_count,
			total_count = EXCLUDED.total_count,
			last_updated = EXCLUDED.last_updated`

	if _, err := p.pool.Exec(ctx, q, s.JobID, s.Cursor, s.Offset, s.ProcessedCount, s.TotalCount, s.LastUpdated); err != nil {
		return fmt.Errorf("cursor: save %s: %w", s.JobID, err)
	}
	return nil
}

// Delete removes the checkpoint of jobID.
func (p *Postgres) Delete(ctx context.Context, jobID string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM job_cursors WHERE job_id = $1`, jobID); err != nil {
		return fmt.Errorf("cursor: delete %s: %w", jobID, err)
	}
	return nil
}
