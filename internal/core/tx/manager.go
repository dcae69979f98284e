// Package tx defines the transaction contract domain services depend
// on. The Postgres implementation lives in infrastructure/storage;
// keeping only the interface here lets ledger appends, document
// posting, and number reservation compose into one atomic unit without
// the domain importing a driver.
package tx

import (
	"context"
)

// Manager runs a function inside a database transaction.
//
// The transaction travels through the context: repositories resolve
// their querier from it, so everything called within fn joins the same
// commit or rollback. Nested calls reuse the ambient transaction.
type Manager interface {
	// RunInTransaction executes fn transactionally. An error from fn
	// rolls everything back; nil commits.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager additionally offers read-only transactions for
// multi-statement queries that need a consistent snapshot.
type ReadOnlyManager interface {
	Manager

	// ReadOnly executes fn in a read-only transaction; writes fail.
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
