package repository

import (
	"database/sql"
	"fmt"
	"hash/fnv"
	"testing"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// The attempt numbering transaction uses two Postgres built-ins. The
// in-memory test database registers compatible shims so the repository
// SQL runs unchanged.
func init() {
	sql.Register("sqlite3_pgshim", &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			if err := conn.RegisterFunc("hashtext", func(s string) int64 {
				h := fnv.New32a()
				_, _ = h.Write([]byte(s))
				return int64(int32(h.Sum32()))
			}, true); err != nil {
				return err
			}
			return conn.RegisterFunc("pg_advisory_xact_lock", func(int64) int64 { return 0 }, true)
		},
	})
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite3_pgshim", DSN: dsn}, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(
		&NotificationModel{},
		&DeliveryAttemptModel{},
		&RateLimitWindowModel{},
		&TemplateModel{},
	); err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}
