// Package database provides the PostgreSQL persistence layer: connection
// pooling, schema migrations, and the pgx-backed repositories behind the
// domain repository interfaces.
package database
