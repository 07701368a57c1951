// Package cursor checkpoints paginated jobs so a retried attempt resumes at
// the last saved page instead of starting over.
//
// A handler walking a remote API page by page keeps a State keyed by its job
// ID. Resume loads the checkpoint, calls the page function until it reports
// the last page, saves after every page and deletes the checkpoint when done:
//
//	st, err := cursor.Resume(ctx, store, jc.ID, func(ctx context.Context, st cursor.State) (cursor.Page, error) {
//		orders, next, err := shop.ListOrders(ctx, st.Cursor, 100)
//		if err != nil {
//			return cursor.Page{}, err
//		}
//		return cursor.Page{Cursor: next, Processed: len(orders), Done: next == ""}, importOrders(ctx, orders)
//	})
//
// Stores: Memory for tests and the local backend, Postgres (table
// job_cursors, migrated with goose) and Redis.
package cursor
