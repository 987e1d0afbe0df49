package store

import "database/sql"

// Both the raw connection pool and a transaction must satisfy DBTX so
// store implementations can run inside or outside RunInTransaction.
var (
	_ DBTX = (*sql.DB)(nil)
	_ DBTX = (*sql.Tx)(nil)
)
