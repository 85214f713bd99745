/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package distrlock

import (
	"fmt"
	"strconv"
	"time"

	"github.com/acronis/go-migratekit"
)

type dbQueries struct {
	createTable   string
	dropTable     string
	initLock      string
	acquireLock   string
	releaseLock   string
	extendLock    string
	intervalMaker func(interval time.Duration) interface{}
}

func newDBQueries(dialect migratekit.Dialect, tableName string) (dbQueries, error) {
	switch dialect {
	case migratekit.DialectPostgres, migratekit.DialectPgx:
		return dbQueries{
			createTable:   fmt.Sprintf(postgresCreateTableQuery, tableName),
			dropTable:     fmt.Sprintf(postgresDropTableQuery, tableName),
			initLock:      fmt.Sprintf(postgresInitLockQuery, tableName),
			acquireLock:   fmt.Sprintf(postgresAcquireLockQuery, tableName),
			releaseLock:   fmt.Sprintf(postgresReleaseLockQuery, tableName),
			extendLock:    fmt.Sprintf(postgresExtendLockQuery, tableName),
			intervalMaker: postgresMakeInterval,
		}, nil
	case migratekit.DialectMySQL:
		return dbQueries{
			createTable:   fmt.Sprintf(mySQLCreateTableQuery, tableName),
			dropTable:     fmt.Sprintf(mySQLDropTableQuery, tableName),
			initLock:      fmt.Sprintf(mySQLInitLockQuery, tableName),
			acquireLock:   fmt.Sprintf(mySQLAcquireLockQuery, tableName),
			releaseLock:   fmt.Sprintf(mySQLReleaseLockQuery, tableName),
			extendLock:    fmt.Sprintf(mySQLExtendLockQuery, tableName),
			intervalMaker: mySQLMakeInterval,
		}, nil
	case migratekit.DialectSQLite:
		return dbQueries{
			createTable:   fmt.Sprintf(sqliteCreateTableQuery, tableName),
			dropTable:     fmt.Sprintf(sqliteDropTableQuery, tableName),
			initLock:      fmt.Sprintf(sqliteInitLockQuery, tableName),
			acquireLock:   fmt.Sprintf(sqliteAcquireLockQuery, tableName),
			releaseLock:   fmt.Sprintf(sqliteReleaseLockQuery, tableName),
			extendLock:    fmt.Sprintf(sqliteExtendLockQuery, tableName),
			intervalMaker: millisecondsInterval,
		}, nil
	case migratekit.DialectMSSQL:
		return dbQueries{
			createTable:   fmt.Sprintf(msSQLCreateTableQuery, tableName, tableName),
			dropTable:     fmt.Sprintf(msSQLDropTableQuery, tableName),
			initLock:      fmt.Sprintf(msSQLInitLockQuery, tableName, tableName),
			acquireLock:   fmt.Sprintf(msSQLAcquireLockQuery, tableName),
			releaseLock:   fmt.Sprintf(msSQLReleaseLockQuery, tableName),
			extendLock:    fmt.Sprintf(msSQLExtendLockQuery, tableName),
			intervalMaker: millisecondsInterval,
		}, nil
	default:
		return dbQueries{}, fmt.Errorf("unsupported sql dialect %q", dialect)
	}
}

//nolint:lll
const (
	postgresCreateTableQuery = `CREATE TABLE IF NOT EXISTS "%s" (lock_key varchar(255) PRIMARY KEY, token uuid, expire_at timestamp);`
	postgresDropTableQuery   = `DROP TABLE IF EXISTS "%s";`
	postgresInitLockQuery    = `INSERT INTO "%s" (lock_key) VALUES ($1) ON CONFLICT (lock_key) DO NOTHING;`
	postgresAcquireLockQuery = `UPDATE "%s" SET expire_at = NOW() + $1::interval, token = $2 WHERE lock_key = $3 AND ((expire_at IS NULL OR expire_at < NOW()) OR token = $4);`
	postgresReleaseLockQuery = `UPDATE "%s" SET expire_at = NULL WHERE lock_key = $1 AND token = $2 AND expire_at >= NOW();`
	postgresExtendLockQuery  = `UPDATE "%s" SET expire_at = NOW() + $1::interval WHERE lock_key = $2 AND token = $3 AND expire_at >= NOW();`
)

func postgresMakeInterval(interval time.Duration) interface{} {
	return strconv.FormatInt(interval.Microseconds(), 10) + " microseconds"
}

//nolint:lll
const (
	mySQLCreateTableQuery = "CREATE TABLE IF NOT EXISTS `%s` (lock_key VARCHAR(255) PRIMARY KEY, token VARCHAR(36), expire_at BIGINT);"
	mySQLDropTableQuery   = "DROP TABLE IF EXISTS `%s`;"
	mySQLInitLockQuery    = "INSERT IGNORE `%s` (lock_key) VALUES (?);"
	mySQLAcquireLockQuery = "UPDATE `%s` SET expire_at = UNIX_TIMESTAMP(DATE_ADD(CURTIME(4), INTERVAL ? MICROSECOND))*10000, token = ? WHERE lock_key = ? AND ((expire_at IS NULL OR expire_at < UNIX_TIMESTAMP(CURTIME(4))*10000) OR token = ?);"
	mySQLReleaseLockQuery = "UPDATE `%s` SET expire_at = NULL WHERE lock_key = ? AND token = ? AND expire_at >= UNIX_TIMESTAMP(CURTIME(4))*10000;"
	mySQLExtendLockQuery  = "UPDATE `%s` SET expire_at = UNIX_TIMESTAMP(DATE_ADD(CURTIME(4), INTERVAL ? MICROSECOND))*10000 WHERE lock_key = ? AND token = ? AND expire_at >= UNIX_TIMESTAMP(CURTIME(4))*10000;"
)

func mySQLMakeInterval(interval time.Duration) interface{} {
	return strconv.FormatInt(interval.Microseconds(), 10)
}

// SQLite has no timestamp type, expire_at keeps Unix time in milliseconds.
const sqliteNowMillis = `CAST((julianday('now') - 2440587.5) * 86400000 AS INTEGER)`

//nolint:lll
const (
	sqliteCreateTableQuery = `CREATE TABLE IF NOT EXISTS "%s" (lock_key VARCHAR(255) PRIMARY KEY, token VARCHAR(36), expire_at INTEGER);`
	sqliteDropTableQuery   = `DROP TABLE IF EXISTS "%s";`
	sqliteInitLockQuery    = `INSERT OR IGNORE INTO "%s" (lock_key) VALUES (?);`
	sqliteAcquireLockQuery = `UPDATE "%s" SET expire_at = ` + sqliteNowMillis + ` + ?, token = ? WHERE lock_key = ? AND ((expire_at IS NULL OR expire_at < ` + sqliteNowMillis + `) OR token = ?);`
	sqliteReleaseLockQuery = `UPDATE "%s" SET expire_at = NULL WHERE lock_key = ? AND token = ? AND expire_at >= ` + sqliteNowMillis + `;`
	sqliteExtendLockQuery  = `UPDATE "%s" SET expire_at = ` + sqliteNowMillis + ` + ? WHERE lock_key = ? AND token = ? AND expire_at >= ` + sqliteNowMillis + `;`
)

const msSQLNowMillis = `DATEDIFF_BIG(MILLISECOND, '1970-01-01', SYSUTCDATETIME())`

//nolint:lll
const (
	msSQLCreateTableQuery = `IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE [%s] (lock_key VARCHAR(255) PRIMARY KEY, token VARCHAR(36), expire_at BIGINT);`
	msSQLDropTableQuery   = `DROP TABLE IF EXISTS [%s];`
	msSQLInitLockQuery    = `IF NOT EXISTS (SELECT 1 FROM [%s] WITH (UPDLOCK, HOLDLOCK) WHERE lock_key = @p1) INSERT INTO [%s] (lock_key) VALUES (@p1);`
	msSQLAcquireLockQuery = `UPDATE [%s] SET expire_at = ` + msSQLNowMillis + ` + @p1, token = @p2 WHERE lock_key = @p3 AND ((expire_at IS NULL OR expire_at < ` + msSQLNowMillis + `) OR token = @p4);`
	msSQLReleaseLockQuery = `UPDATE [%s] SET expire_at = NULL WHERE lock_key = @p1 AND token = @p2 AND expire_at >= ` + msSQLNowMillis + `;`
	msSQLExtendLockQuery  = `UPDATE [%s] SET expire_at = ` + msSQLNowMillis + ` + @p1 WHERE lock_key = @p2 AND token = @p3 AND expire_at >= ` + msSQLNowMillis + `;`
)

func millisecondsInterval(interval time.Duration) interface{} {
	return interval.Milliseconds()
}
