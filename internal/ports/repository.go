package ports

import "context"

// Port: the data-access boundary over the relational store.
// Implementations run one statement per call; there are no transactions or retries,
// and the caller decides whether a failure aborts its work.
type Repository interface {
	// Run a SELECT and return every row keyed by column name.
	FetchAll(ctx context.Context, query string, args ...any) ([]Row, error)
	// Run an INSERT/UPDATE/DELETE and return the affected row count.
	Execute(ctx context.Context, query string, args ...any) (int64, error)
}
