// Package postgres implements simplecms.Repository on PostgreSQL through pgx.
// The schema ships as embedded goose migrations; see Migrate.
package postgres
