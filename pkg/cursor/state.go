package cursor

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Store.Load when no checkpoint exists.
var ErrNotFound = errors.New("cursor: not found")

// ErrEmptyJobID is returned for a checkpoint without a job ID.
var ErrEmptyJobID = errors.New("cursor: empty job id")

// State is the checkpoint of a paginated job.
type State struct {
	LastUpdated    time.Time `json:"lastUpdated"`
	TotalCount     *int64    `json:"totalCount,omitempty"`
	JobID          string    `json:"jobId"`
	Cursor         string    `json:"cursor"`
	Offset         int64     `json:"offset"`
	ProcessedCount int64     `json:"processedCount"`
}

// New returns the initial checkpoint of jobID.
func New(jobID string) State {
	return State{JobID: jobID}
}

// Page describes one processed page.
type Page struct {
	// Total, when known, is the total number of items across all pages.
	Total *int64
	// Cursor is the opaque position of the next page.
	Cursor string
	// Processed is the number of items handled on this page.
	Processed int
	// Done marks the last page.
	Done bool
}

// Update advances s past page p.
func Update(s State, p Page, now time.Time) State {
	next := s
	next.Cursor = p.Cursor
	next.Offset += int64(p.Processed)
	next.ProcessedCount += int64(p.Processed)
	if p.Total != nil {
		total := *p.Total
		next.TotalCount = &total
	}
	next.LastUpdated = now
	return next
}

// Progress returns the processed fraction in [0, 1], or -1 when the total is unknown.
func (s State) Progress() float64 {
	if s.TotalCount == nil || *s.TotalCount <= 0 {
		return -1
	}
	return min(float64(s.ProcessedCount)/float64(*s.TotalCount), 1)
}

// Store persists checkpoints.
type Store interface {
	Load(ctx context.Context, jobID string) (State, error)
	Save(ctx context.Context, s State) error
	Delete(ctx context.Context, jobID string) error
}

// PageFunc processes the page at st.Cursor.
type PageFunc func(ctx context.Context, st State) (Page, error)

// Resume runs page from the saved checkpoint of jobID until a page reports
// Done. The checkpoint is saved after every page and deleted at the end. A
// page error returns the last saved state with the error; the page that
// failed is not recorded and runs again on the next attempt.
func Resume(ctx context.Context, store Store, jobID string, page PageFunc) (State, error) {
	if jobID == "" {
		return State{}, ErrEmptyJobID
	}

	st, err := store.Load(ctx, jobID)
	switch {
	case errors.Is(err, ErrNotFound):
		st = New(jobID)
	case err != nil:
		return State{}, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return st, err
		}

		p, err := page(ctx, st)
		if err != nil {
			return st, err
		}
		st = Update(st, p, time.Now())

		if p.Done {
			if err := store.Delete(ctx, jobID); err != nil {
				return st, err
			}
			return st, nil
		}
		if err := store.Save(ctx, st); err != nil {
			return st, err
		}
	}
}
