package db

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/subcheck/backend/internal/infrastructure/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// openTestDB returns a migrated in-memory database. The shared cache keeps
// the database alive across pooled connections; _fk enables cascade deletes.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", uuid.NewString())
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("access sql.DB: %v", err)
	}
	// One connection keeps concurrent writers queued instead of tripping
	// sqlite's table-lock errors.
	sqlDB.SetMaxOpenConns(1)
	if err := RunMigrations(database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(database)
	})
	return database
}

func testLogger() *logger.Logger {
	return logger.NewNop()
}
