package db

import (
	"github.com/subcheck/backend/internal/domain"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	err := db.AutoMigrate(
		&domain.Round{},
		&domain.SubnetTask{},
	)
	if err != nil {
		return err
	}

	if err := createCustomIndexes(db); err != nil {
		return err
	}

	return nil
}

func createCustomIndexes(db *gorm.DB) error {
	// Partial unique index enforcing the single-active-round invariant at the
	// storage layer: a second concurrent activation fails instead of leaving
	// two active rounds behind.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_checker_rounds_single_active
		ON checker_rounds (active)
		WHERE active
	`).Error; err != nil {
		return err
	}

	// Index for task lookup by round and subnet
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_checker_subnet_tasks_round_subnet
		ON checker_subnet_tasks (round_id, subnet)
	`).Error; err != nil {
		return err
	}

	return nil
}
