package db

import (
	"context"

	"github.com/subcheck/backend/internal/core/ports"
	"github.com/subcheck/backend/internal/domain"
	"github.com/subcheck/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type taskRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskRepository(db *gorm.DB, log *logger.Logger) ports.TaskRepository {
	return &taskRepository{
		db:  db,
		log: log,
	}
}

// CreateBatch wraps the insert in its own transaction so a failure here rolls
// back this batch only; concurrent batches for other subnets are untouched.
func (r *taskRepository) CreateBatch(ctx context.Context, tasks []domain.SubnetTask) error {
	if len(tasks) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&tasks).Error
	})
	if err != nil {
		r.log.Errorw("task_repo_create_batch_failed", "round_id", tasks[0].RoundID, "subnet", tasks[0].Subnet, "count", len(tasks), "error", err)
		return err
	}
	r.log.Infow("task_repo_create_batch_ok", "round_id", tasks[0].RoundID, "subnet", tasks[0].Subnet, "count", len(tasks))
	return nil
}

func (r *taskRepository) GetByRoundID(ctx context.Context, roundID uint) ([]domain.SubnetTask, error) {
	var tasks []domain.SubnetTask
	err := r.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Order("subnet, id").
		Find(&tasks).Error
	if err != nil {
		r.log.Errorw("task_repo_list_failed", "round_id", roundID, "error", err)
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) CountBySubnet(ctx context.Context, roundID uint) (map[string]int64, error) {
	var rows []struct {
		Subnet string
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&domain.SubnetTask{}).
		Select("subnet, count(*) as count").
		Where("round_id = ?", roundID).
		Group("subnet").
		Find(&rows).Error
	if err != nil {
		r.log.Errorw("task_repo_count_failed", "round_id", roundID, "error", err)
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Subnet] = row.Count
	}
	return counts, nil
}
