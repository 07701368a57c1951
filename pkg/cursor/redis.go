package cursor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores checkpoints as JSON values. Checkpoints expire after ttl so
// abandoned jobs do not leak keys.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedis creates a store. An empty prefix defaults to "cursor"; a
// non-positive ttl keeps checkpoints until deleted.
func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "cursor"
	}
	return &Redis{client: client, prefix: prefix, ttl: max(ttl, 0)}
}

// Load returns the checkpoint of jobID or ErrNotFound.
func (r *Redis) Load(ctx context.Context, jobID string) (State, error) {
	raw, err := r.client.Get(ctx, r.key(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, ErrNotFound
	}
	if err != nil {
		return State{}, fmt.Errorf("cursor: load %s: %w", jobID, err)
	}

	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, fmt.Errorf("cursor: decode %s: %w", jobID, err)
	}
	return st, nil
}

// Save stores s. When a ttl is set, the expiry restarts on every save.
func (r *Redis) Save(ctx context.Context, s State) error {
	if s.JobID == "" {
		return ErrEmptyJobID
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("cursor: encode %s: %w", s.JobID, err)
	}
	if err := r.client.Set(ctx, r.key(s.JobID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("cursor: save %s: %w", s.JobID, err)
	}
	return nil
}

// Delete removes the checkpoint of jobID. A missing checkpoint is not an error.
func (r *Redis) Delete(ctx context.Context, jobID string) error {
	if err := r.client.Del(ctx, r.key(jobID)).Err(); err != nil {
		return fmt.Errorf("cursor: delete %s: %w", jobID, err)
	}
	return nil
}

func (r *Redis) key(jobID string) string {
	return r.prefix + ":" + jobID
}
