package services

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/subcheck/backend/internal/core/ports"
	"github.com/subcheck/backend/internal/infrastructure/db"
	"github.com/subcheck/backend/internal/infrastructure/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type testEnv struct {
	db        *gorm.DB
	roundRepo ports.RoundRepository
	taskRepo  ports.TaskRepository
	log       *logger.Logger
}

func newTestEnv(t *testing.T) *testEnv {
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
	if err := db.RunMigrations(database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close(database)
	})

	log := logger.NewNop()
	return &testEnv{
		db:        database,
		roundRepo: db.NewRoundRepository(database, log),
		taskRepo:  db.NewTaskRepository(database, log),
		log:       log,
	}
}

func (e *testEnv) newTasking(maxPerSubnet, maxPerNode int) *TaskingService {
	return NewTaskingService(TaskingServiceConfig{
		TaskRepo:          e.taskRepo,
		Logger:            e.log,
		MaxTasksPerSubnet: maxPerSubnet,
		MaxTasksPerNode:   maxPerNode,
	})
}
