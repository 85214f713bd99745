/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package migrate provides a versioned migration engine.
//
// Migration files are named after semantic versions. In file mode every file under the migrations root
// is matched against a pattern with the "version" named group ("1.2.0_add_users.sql"). In directory mode
// every sub-directory of the root is named after a version and all matching files inside it share it
// ("1.2.0/01_tables.sql", "1.2.0/02_indexes.sql"). Files of one version are executed in the order of their names.
//
// Migrator brings a store from the current version to the target one:
//   - upgrade executes files with versions in (current, target] in ascending order;
//   - downgrade executes files with versions in [target, current) in descending order;
//   - if the target version is already applied, the stored checksum is verified and nothing is executed.
//
// The whole run holds a lock and executes all files in one transaction together with saving the new version.
// Store-specific work is done by an Adapter (see the sqladapter package for SQL databases).
//
// Basic usage:
//
//	//go:embed migrations
//	var migrationFS embed.FS
//
//	func applyMigrations(db *sql.DB, logger log.FieldLogger) error {
//	    opts, err := migrate.NewOptions("migrations", migrate.WithFs(&afero.FromIOFS{FS: migrationFS}))
//	    if err != nil {
//	        return err
//	    }
//	    adapter, err := sqladapter.New(db, migratekit.DialectPostgres, opts)
//	    if err != nil {
//	        return err
//	    }
//	    if err = adapter.EnsureSchema(context.Background()); err != nil {
//	        return err
//	    }
//	    migrator, err := migrate.NewMigrator[*sql.Tx](adapter, opts, logger)
//	    if err != nil {
//	        return err
//	    }
//	    _, err = migrator.Migrate(context.Background(), "1.2.0")
//	    return err
//	}
//
// Checksums are kept on two levels. Every Entry carries the SHA-256 of its contents, and every version
// is fingerprinted by AggregateChecksum, which is the checksum of its only file or the hash of file names
// for versions with several files.
package migrate
