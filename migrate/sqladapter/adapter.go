/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package sqladapter implements migrate.Adapter for SQL databases accessed via database/sql.
//
// The current version is kept in a single-row table (schema_version by default) with the version,
// the checksum of the version and the time it was applied. Runs are serialized between processes
// with a distributed lock from the distrlock package. Call EnsureSchema before the first migration
// to create both tables.
package sqladapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/acronis/go-appkit/log"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"     // register goqu mysql dialect
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"  // register goqu postgres dialect
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"   // register goqu sqlite3 dialect
	_ "github.com/doug-martin/goqu/v9/dialect/sqlserver" // register goqu sqlserver dialect
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/acronis/go-migratekit"
	"github.com/acronis/go-migratekit/distrlock"
	"github.com/acronis/go-migratekit/migrate"
)

// DefaultLockTTL is the default time-to-live of the migration lock. The lock is extended every half of it.
const DefaultLockTTL = time.Minute

// ErrLockLost is returned by Execute when the migration lock expired and could not be extended.
var ErrLockLost = errors.New("migration lock lost")

var (
	_ migrate.Adapter[*sql.Tx] = (*Adapter)(nil)
	_ migrate.Locker           = (*Adapter)(nil)
	_ migrate.RetryClassifier  = (*Adapter)(nil)
)

// AdapterOption is a functional option for New.
type AdapterOption func(*adapterSettings)

type adapterSettings struct {
	lockDisabled  bool
	lockTTL       time.Duration
	lockTableName string
	txOptions     *sql.TxOptions
	logger        log.FieldLogger
}

// WithoutLock disables the distributed lock. Use it when the database is migrated by a single process.
func WithoutLock() AdapterOption {
	return func(s *adapterSettings) {
		s.lockDisabled = true
	}
}

// WithLockTTL sets the time-to-live of the migration lock.
func WithLockTTL(ttl time.Duration) AdapterOption {
	return func(s *adapterSettings) {
		s.lockTTL = ttl
	}
}

// WithLockTableName sets the name of the table that stores distributed locks.
func WithLockTableName(name string) AdapterOption {
	return func(s *adapterSettings) {
		s.lockTableName = name
	}
}

// WithTxOptions sets options of the migration transaction.
func WithTxOptions(txOpts *sql.TxOptions) AdapterOption {
	return func(s *adapterSettings) {
		s.txOptions = txOpts
	}
}

// WithLogger sets a logger for errors that happen in background (e.g., lock extension failures).
func WithLogger(logger log.FieldLogger) AdapterOption {
	return func(s *adapterSettings) {
		s.logger = logger
	}
}

// Adapter is a migrate.Adapter for SQL databases.
type Adapter struct {
	db          *sql.DB
	dialect     migratekit.Dialect
	opts        migrate.Options
	settings    adapterSettings
	builder     goqu.DialectWrapper
	schema      string
	table       exp.IdentifierExpression
	lockManager *distrlock.DBManager

	mu            sync.Mutex
	lock          *distrlock.DBLock
	stopKeepAlive func()
	lockLost      <-chan struct{}
}

// New creates a new Adapter for the database of the given dialect.
// The version table name, its schema, the lock key and the statement timeout are taken from opts.
func New(db *sql.DB, dialect migratekit.Dialect, opts migrate.Options, adapterOpts ...AdapterOption) (*Adapter, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	settings := adapterSettings{lockTTL: DefaultLockTTL, lockTableName: distrlock.DefaultTableName}
	for _, opt := range adapterOpts {
		opt(&settings)
	}
	if settings.lockTTL <= 0 {
		return nil, fmt.Errorf("lock TTL must be positive")
	}

	goquDialectName, err := goquDialect(dialect)
	if err != nil {
		return nil, err
	}
	lockManager, err := distrlock.NewDBManager(dialect, distrlock.WithTableName(settings.lockTableName))
	if err != nil {
		return nil, fmt.Errorf("create lock manager: %w", err)
	}
	if !settings.lockDisabled && len(opts.LockKey()) > distrlock.MaxKeyLength {
		return nil, fmt.Errorf("lock key cannot be longer than %d symbols", distrlock.MaxKeyLength)
	}

	a := &Adapter{
		db:          db,
		dialect:     dialect,
		opts:        opts,
		settings:    settings,
		builder:     goqu.Dialect(goquDialectName),
		lockManager: lockManager,
	}
	if hasSchemas(dialect) {
		a.schema = opts.Schema()
		if dialect == migratekit.DialectMSSQL && a.schema == migrate.DefaultSchema {
			a.schema = mssqlDefaultSchema
		}
		a.table = goqu.S(a.schema).Table(opts.Table())
	} else {
		a.table = goqu.T(opts.Table())
	}
	return a, nil
}

// EnsureSchema creates the version table and, if locking is enabled, the distributed locks table.
func (a *Adapter) EnsureSchema(ctx context.Context) error {
	if schemaSQL := createSchemaSQL(a.dialect, a.schema); schemaSQL != "" {
		if _, err := a.db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema %s: %w", a.schema, err)
		}
	}

	tableSQL, err := createVersionTableSQL(a.dialect, a.schema, a.opts.Table())
	if err != nil {
		return err
	}
	if _, err = a.db.ExecContext(ctx, tableSQL); err != nil {
		return fmt.Errorf("create version table: %w", err)
	}

	if a.settings.lockDisabled {
		return nil
	}
	if _, err = a.db.ExecContext(ctx, a.lockManager.CreateTableSQL()); err != nil {
		return fmt.Errorf("create distributed locks table: %w", err)
	}
	return nil
}

// QueryVersion returns the version saved by the last successful migration or nil if there is none.
func (a *Adapter) QueryVersion(ctx context.Context) (*migrate.StoredVersion, error) {
	query, args, err := a.builder.From(a.table).
		Select("version", "checksum").
		Order(goqu.C("applied_at").Desc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build version query: %w", err)
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query version: %w", err)
	}
	defer rows.Close() // nolint: errcheck

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return nil, fmt.Errorf("query version: %w", err)
		}
		return nil, nil
	}
	var stored migrate.StoredVersion
	if err = rows.Scan(&stored.Version, &stored.Checksum); err != nil {
		return nil, fmt.Errorf("scan version row: %w", err)
	}
	return &stored, nil
}

// SaveVersion replaces the saved version with the target version of the run.
func (a *Adapter) SaveVersion(ctx context.Context, tx *sql.Tx, result *migrate.Result) error {
	deleteSQL, deleteArgs, err := a.builder.Delete(a.table).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("build version delete: %w", err)
	}
	if _, err = tx.ExecContext(ctx, deleteSQL, deleteArgs...); err != nil {
		return fmt.Errorf("delete previous version: %w", err)
	}

	appliedAt := result.FinishedAt
	if appliedAt.IsZero() {
		appliedAt = time.Now()
	}
	insertSQL, insertArgs, err := a.builder.Insert(a.table).Rows(goqu.Record{
		"version":    result.ToVersion,
		"checksum":   result.Checksum,
		"applied_at": appliedAt.UTC(),
	}).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("build version insert: %w", err)
	}
	if _, err = tx.ExecContext(ctx, insertSQL, insertArgs...); err != nil {
		return fmt.Errorf("insert version: %w", err)
	}
	return nil
}

// Execute runs all statements of a migration file. Every statement gets its own timeout if it's configured.
func (a *Adapter) Execute(ctx context.Context, tx *sql.Tx, entry migrate.Entry, content []byte) error {
	if a.isLockLost() {
		return ErrLockLost
	}
	for i, stmt := range splitStatements(string(content)) {
		if err := a.execStatement(ctx, tx, stmt); err != nil {
			return fmt.Errorf("execute statement %d of %s: %w", i+1, entry.Name, err)
		}
	}
	return nil
}

func (a *Adapter) execStatement(ctx context.Context, tx *sql.Tx, stmt string) error {
	if timeout := a.opts.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	_, err := tx.ExecContext(ctx, stmt)
	return err
}

// Transaction runs fn in a transaction. The transaction itself is not repeated,
// the Migrator retries every migration file separately.
func (a *Adapter) Transaction(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return migratekit.DoInTx(ctx, a.db, func(tx *sql.Tx) error {
		return fn(ctx, tx)
	}, migratekit.WithTxOptions(a.settings.txOptions))
}

// AcquireLock acquires the migration lock and starts extending it in background until ReleaseLock is called.
func (a *Adapter) AcquireLock(ctx context.Context) error {
	if a.settings.lockDisabled {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lock != nil {
		return fmt.Errorf("lock with key %s is already held by the adapter", a.lock.Key)
	}

	lock, err := a.lockManager.NewLock(ctx, a.db, a.opts.LockKey())
	if err != nil {
		return err
	}
	if err = lock.Acquire(ctx, a.db, a.settings.lockTTL); err != nil {
		return fmt.Errorf("acquire lock with key %s: %w", lock.Key, err)
	}
	a.lock = &lock
	a.stopKeepAlive, a.lockLost = lock.KeepAlive(context.Background(), a.db, a.settings.lockTTL/2, a.distrlockLogger())
	return nil
}

// ReleaseLock stops extending the migration lock and releases it.
func (a *Adapter) ReleaseLock(ctx context.Context) error {
	if a.settings.lockDisabled {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lock == nil {
		return nil
	}

	// If the release fails, the lock row expires after its TTL.
	lock := a.lock
	a.stopKeepAlive()
	a.lock, a.stopKeepAlive, a.lockLost = nil, nil, nil
	if err := lock.Release(ctx, a.db); err != nil && !errors.Is(err, distrlock.ErrLockAlreadyReleased) {
		return fmt.Errorf("release lock with key %s: %w", lock.Key, err)
	}
	return nil
}

// IsRetryable reports whether the error is worth retrying. Errors registered as retryable for the driver
// (see migratekit.RegisterIsRetryableFunc) and a lock held by another process are retryable.
func (a *Adapter) IsRetryable(err error) bool {
	if errors.Is(err, distrlock.ErrLockAlreadyAcquired) {
		return true
	}
	if isRetryable := migratekit.GetIsRetryable(a.db.Driver()); isRetryable != nil {
		return isRetryable(err)
	}
	return false
}

func (a *Adapter) isLockLost() bool {
	a.mu.Lock()
	lost := a.lockLost
	a.mu.Unlock()
	if lost == nil {
		return false
	}
	select {
	case <-lost:
		return true
	default:
		return false
	}
}

func (a *Adapter) distrlockLogger() distrlock.Logger {
	if a.settings.logger == nil {
		return nil
	}
	return lockLogger{a.settings.logger}
}

type lockLogger struct {
	logger log.FieldLogger
}

func (l lockLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}
