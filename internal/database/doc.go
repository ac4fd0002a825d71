// Package database builds the PostgreSQL connection pool used by the
// notification journal.
package database
