/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Example of applying SQL migrations embedded into the binary.
//
// Upgrade scripts live in migrations/upgrade. Scripts that roll the database back to a version
// live in migrations/downgrade and are named after that version (0.0.0 rolls back everything).
//
//	go run . -dialect sqlite3 -dsn file:example.db -target 1.1.0
//	go run . -dialect sqlite3 -dsn file:example.db -target 1.0.0 -down
//	go run . -dialect sqlite3 -dsn file:example.db -reset
package main

import (
	"context"
	"database/sql"
	"embed"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"path"

	"github.com/acronis/go-appkit/config"
	"github.com/acronis/go-appkit/log"
	"github.com/spf13/afero"

	"github.com/acronis/go-migratekit"
	"github.com/acronis/go-migratekit/migrate"
	"github.com/acronis/go-migratekit/migrate/sqladapter"
	_ "github.com/acronis/go-migratekit/mssql"
	_ "github.com/acronis/go-migratekit/mysql"
	_ "github.com/acronis/go-migratekit/pgx"
	_ "github.com/acronis/go-migratekit/postgres"
	_ "github.com/acronis/go-migratekit/sqlite"
)

//go:embed migrations
var migrationFS embed.FS

const downgradeDirName = "downgrade"

func main() {
	if err := runMigrations(); err != nil {
		stdlog.Fatal(err)
	}
}

func runMigrations() error {
	var (
		cfgPath, dialectName, dsn, target string
		migrateDown, reset, verbose       bool
	)
	flag.StringVar(&cfgPath, "config", "config.yml", "path to the YAML configuration file")
	flag.StringVar(&dialectName, "dialect", string(migratekit.DialectSQLite), "SQL dialect, supported values: sqlite3, mysql, postgres, pgx, mssql")
	flag.StringVar(&dsn, "dsn", os.Getenv("DB_DSN"), "database DSN")
	flag.StringVar(&target, "target", "", "target version")
	flag.BoolVar(&migrateDown, "down", false, "migrate down to the target version")
	flag.BoolVar(&reset, "reset", false, "roll back all migrations")
	flag.BoolVar(&verbose, "verbose", false, "enable debug logging")
	flag.Parse()

	dialect, err := parseDialect(dialectName)
	if err != nil {
		return err
	}

	logLevel := log.LevelInfo
	if verbose {
		logLevel = log.LevelDebug
	}
	logger, loggerClose := log.NewLogger(&log.Config{Output: log.OutputStderr, Level: logLevel})
	defer loggerClose()

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	if migrateDown || reset {
		cfg.Root = path.Join(path.Dir(cfg.Root), downgradeDirName)
	}
	opts, err := cfg.Options(migrate.WithFs(&afero.FromIOFS{FS: migrationFS}))
	if err != nil {
		return fmt.Errorf("make migration options: %w", err)
	}

	dbConn, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer dbConn.Close() // nolint: errcheck

	ctx := context.Background()
	adapter, err := sqladapter.New(dbConn, dialect, opts, sqladapter.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create migration adapter: %w", err)
	}
	if err = adapter.EnsureSchema(ctx); err != nil {
		return err
	}

	metrics := migrate.NewPrometheusMetrics()
	metrics.MustRegister()
	defer metrics.Unregister()

	migrator, err := migrate.NewMigrator[*sql.Tx](adapter, opts, logger, migrate.WithMetrics(metrics))
	if err != nil {
		return err
	}

	var res *migrate.Result
	if reset {
		res, err = migrator.Reset(ctx)
	} else {
		res, err = migrator.Migrate(ctx, target)
	}
	if err != nil {
		return err
	}
	for _, entry := range res.Entries {
		logger.Info("applied", log.String("file", entry.Name), log.String("version", entry.Version.String()))
	}
	return nil
}

func loadConfig(cfgPath string) (*migrate.Config, error) {
	f, err := os.Open(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close() // nolint: errcheck

	cfg := migrate.NewConfig()
	if err = config.NewDefaultLoader("").LoadFromReader(f, config.DataTypeYAML, cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func parseDialect(name string) (migratekit.Dialect, error) {
	for _, dialect := range migratekit.SupportedDialects() {
		if string(dialect) == name {
			return dialect, nil
		}
	}
	return "", fmt.Errorf("unknown dialect: %s", name)
}
