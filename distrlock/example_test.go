/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package distrlock_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/acronis/go-migratekit"
	"github.com/acronis/go-migratekit/distrlock"
)

func ExampleNewDBManager() {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	lockManager, err := distrlock.NewDBManager(migratekit.DialectSQLite,
		distrlock.WithTableName("my_distributed_locks"))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	// Create table for locks.
	if _, err = db.ExecContext(ctx, lockManager.CreateTableSQL()); err != nil {
		log.Fatal(err)
	}

	const lockKey = "test-lock-key"
	lock, err := lockManager.NewLock(ctx, db, lockKey)
	if err != nil {
		log.Fatal(err)
	}

	// Acquire lock with a short TTL and let it expire.
	if err = lock.Acquire(ctx, db, 50*time.Millisecond); err != nil {
		log.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	if err = lock.Release(ctx, db); errors.Is(err, distrlock.ErrLockAlreadyReleased) {
		fmt.Println("distributed lock already released")
	}

	// Output:
	// distributed lock already released
}
