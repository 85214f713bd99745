/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package migratekit contains the SQL plumbing shared by the migration engine and its adapters:
// supported dialects, transaction helpers with retries and a per-driver registry of functions
// that classify errors as retryable (deadlocks, serialization failures, busy databases).
//
// The engine itself lives in the migrate package, the semantic version model in the version package.
// Driver-specific classifiers are registered by importing one of the pgx, postgres, mysql, sqlite
// or mssql packages for side effects:
//
//	import _ "github.com/acronis/go-migratekit/pgx"
package migratekit
