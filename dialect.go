/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migratekit

// Dialect defines possible values for planned supported SQL dialects.
type Dialect string

// SQL dialects.
const (
	DialectSQLite   Dialect = "sqlite3"
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
	DialectPgx      Dialect = "pgx"
	DialectMSSQL    Dialect = "mssql"
)

// SupportedDialects returns all dialects known to the package.
func SupportedDialects() []Dialect {
	return []Dialect{DialectSQLite, DialectMySQL, DialectPostgres, DialectPgx, DialectMSSQL}
}

// IsPostgres reports whether the dialect talks to PostgreSQL (lib/pq or pgx driver).
func (d Dialect) IsPostgres() bool {
	return d == DialectPostgres || d == DialectPgx
}
