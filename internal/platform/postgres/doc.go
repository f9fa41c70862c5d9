// Package postgres provides PostgreSQL-backed implementations of the
// store interfaces. Tasks are persisted in a single table with a version
// column; every mutation is a conditional update against the version the
// caller read, so concurrent writers cannot silently overwrite each
// other.
package postgres
