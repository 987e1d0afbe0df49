// Package postgres provides PostgreSQL-backed implementations of the
// storage interfaces defined in the internal/store package. It owns query
// execution, mapping between domain entities (users, documents, operation
// records) and database rows, and translation of driver errors into the
// store package's sentinel errors.
package postgres
