/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package sqladapter

import (
	"fmt"

	"github.com/acronis/go-migratekit"
)

// mssqlDefaultSchema replaces the default schema of options, MSSQL has no "public" schema.
const mssqlDefaultSchema = "dbo"

// createVersionTableSQL returns the dialect-specific DDL for the version table.
func createVersionTableSQL(dialect migratekit.Dialect, schema, table string) (string, error) {
	switch dialect {
	case migratekit.DialectMySQL:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			version VARCHAR(255) NOT NULL,
			checksum VARCHAR(64) NOT NULL DEFAULT '',
			applied_at DATETIME(6) NOT NULL
		)`, quoteIdent(dialect, table)), nil

	case migratekit.DialectPostgres, migratekit.DialectPgx:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			version VARCHAR(255) NOT NULL,
			checksum VARCHAR(64) NOT NULL DEFAULT '',
			applied_at TIMESTAMP NOT NULL
		)`, quoteIdent(dialect, schema), quoteIdent(dialect, table)), nil

	case migratekit.DialectSQLite:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			version VARCHAR(255) NOT NULL,
			checksum VARCHAR(64) NOT NULL DEFAULT '',
			applied_at DATETIME NOT NULL
		)`, quoteIdent(dialect, table)), nil

	case migratekit.DialectMSSQL:
		// MSSQL doesn't support CREATE TABLE IF NOT EXISTS, use conditional check
		return fmt.Sprintf(`IF OBJECT_ID(N'%s.%s', N'U') IS NULL
			CREATE TABLE %s.%s (
				version VARCHAR(255) NOT NULL,
				checksum VARCHAR(64) NOT NULL DEFAULT '',
				applied_at DATETIME2 NOT NULL
			)`, schema, table, quoteIdent(dialect, schema), quoteIdent(dialect, table)), nil

	default:
		return "", fmt.Errorf("unsupported dialect: %s", dialect)
	}
}

// createSchemaSQL returns the DDL for the schema of the version table or "" if the dialect has no schemas.
func createSchemaSQL(dialect migratekit.Dialect, schema string) string {
	if dialect.IsPostgres() {
		return fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", quoteIdent(dialect, schema))
	}
	return ""
}

// hasSchemas reports whether the version table is qualified with a schema.
func hasSchemas(dialect migratekit.Dialect) bool {
	return dialect.IsPostgres() || dialect == migratekit.DialectMSSQL
}

func quoteIdent(dialect migratekit.Dialect, name string) string {
	switch dialect {
	case migratekit.DialectMySQL:
		return "`" + name + "`"
	case migratekit.DialectMSSQL:
		return "[" + name + "]"
	default:
		return `"` + name + `"`
	}
}

// goquDialect returns the name of the goqu dialect for the database dialect.
func goquDialect(dialect migratekit.Dialect) (string, error) {
	switch dialect {
	case migratekit.DialectPostgres, migratekit.DialectPgx:
		return "postgres", nil
	case migratekit.DialectMySQL:
		return "mysql", nil
	case migratekit.DialectSQLite:
		return "sqlite3", nil
	case migratekit.DialectMSSQL:
		return "sqlserver", nil
	default:
		return "", fmt.Errorf("unsupported dialect: %s", dialect)
	}
}
