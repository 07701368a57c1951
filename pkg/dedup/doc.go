// Package dedup remembers which idempotency keys have already been
// processed.
//
// A Store answers two questions: has this key been marked, and mark it for a
// while. Memory keeps marks in process with a background janitor; Redis keeps
// them in a shared Redis so every worker sees the same marks.
//
//	store := dedup.NewRedis(client, dedup.WithPrefix("jobs:done"))
//	seen, err := store.Has(ctx, key)
//	...
//	err = store.Set(ctx, key, 24*time.Hour)
package dedup
