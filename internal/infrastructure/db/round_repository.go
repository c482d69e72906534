package db

import (
	"context"
	"errors"
	"time"

	"github.com/subcheck/backend/internal/core/ports"
	"github.com/subcheck/backend/internal/domain"
	"github.com/subcheck/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type roundRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoundRepository(db *gorm.DB, log *logger.Logger) ports.RoundRepository {
	return &roundRepository{
		db:  db,
		log: log,
	}
}

func (r *roundRepository) Create(ctx context.Context, round *domain.Round) error {
	if err := r.db.WithContext(ctx).Create(round).Error; err != nil {
		r.log.Errorw("round_repo_create_failed", "start_time", round.StartTime, "end_time", round.EndTime, "error", err)
		return err
	}
	r.log.Infow("round_repo_create_ok", "id", round.ID, "start_time", round.StartTime, "end_time", round.EndTime)
	return nil
}

func (r *roundRepository) GetByID(ctx context.Context, id uint) (*domain.Round, error) {
	var round domain.Round
	err := r.db.WithContext(ctx).First(&round, id).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Errorw("round_repo_get_failed", "id", id, "error", err)
		}
		return nil, err
	}
	return &round, nil
}

func (r *roundRepository) GetActive(ctx context.Context) (*domain.Round, error) {
	var round domain.Round
	err := r.db.WithContext(ctx).Where("active = ?", true).First(&round).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Errorw("round_repo_get_active_failed", "error", err)
		}
		return nil, err
	}
	return &round, nil
}

func (r *roundRepository) Activate(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Round{}).
			Where("active = ? AND id <> ?", true, id).
			Update("active", false).Error; err != nil {
			return err
		}
		res := tx.Model(&domain.Round{}).Where("id = ?", id).Update("active", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		r.log.Errorw("round_repo_activate_failed", "id", id, "error", err)
		return err
	}
	r.log.Infow("round_repo_activate_ok", "id", id)
	return nil
}

func (r *roundRepository) DeleteEndedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("active = ? AND end_time < ?", false, cutoff).
		Delete(&domain.Round{})
	if res.Error != nil {
		r.log.Errorw("round_repo_sweep_failed", "cutoff", cutoff, "error", res.Error)
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		r.log.Infow("round_repo_sweep_ok", "cutoff", cutoff, "count", res.RowsAffected)
	}
	return res.RowsAffected, nil
}
