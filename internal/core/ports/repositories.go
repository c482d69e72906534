package ports

import (
	"context"
	"time"

	"github.com/subcheck/backend/internal/domain"
)

type RoundRepository interface {
	Create(ctx context.Context, round *domain.Round) error
	GetByID(ctx context.Context, id uint) (*domain.Round, error)
	GetActive(ctx context.Context) (*domain.Round, error)
	// Activate flips every currently-active round off and the given round on,
	// inside a single transaction.
	Activate(ctx context.Context, id uint) error
	// DeleteEndedBefore removes inactive rounds whose end_time is before the
	// cutoff; their tasks go with them via cascade. Returns rows removed.
	DeleteEndedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type TaskRepository interface {
	// CreateBatch inserts all tasks in one transaction; all-or-nothing.
	CreateBatch(ctx context.Context, tasks []domain.SubnetTask) error
	GetByRoundID(ctx context.Context, roundID uint) ([]domain.SubnetTask, error)
	CountBySubnet(ctx context.Context, roundID uint) (map[string]int64, error)
}
