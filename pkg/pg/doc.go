// Package pg opens the PostgreSQL pool used by the persistent secret store and
// applies its embedded goose migrations.
//
// Connect retries with a linearly growing delay so the service tolerates a
// database that starts after it. Migrate bridges the pgx pool to database/sql
// for goose and reads migration files from any fs.FS, normally an embed.FS
// owned by the store package. Error helpers classify pgx and PostgreSQL errors
// by SQLSTATE.
package pg
