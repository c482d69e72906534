package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/subcheck/backend/internal/core/ports"
	"github.com/subcheck/backend/internal/domain"
	"github.com/subcheck/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

// RoundService owns the round lifecycle: it resumes or creates the active
// round on Start and then drives expiry checks on a fixed interval. Expiry
// detection latency is bounded by the check interval, not by end_time itself.
type RoundService struct {
	roundRepo ports.RoundRepository
	tasking   ports.TaskingService
	logger    *logger.Logger

	roundDuration   time.Duration
	checkInterval   time.Duration
	retention       time.Duration
	maxTasksPerNode int

	started atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}

	mu          sync.Mutex
	subscribers map[int]chan domain.RoundEvent
	nextSubID   int
}

type RoundServiceConfig struct {
	RoundRepo       ports.RoundRepository
	Tasking         ports.TaskingService
	Logger          *logger.Logger
	RoundDuration   time.Duration
	CheckInterval   time.Duration
	Retention       time.Duration
	MaxTasksPerNode int
}

func NewRoundService(cfg RoundServiceConfig) *RoundService {
	return &RoundService{
		roundRepo:       cfg.RoundRepo,
		tasking:         cfg.Tasking,
		logger:          cfg.Logger,
		roundDuration:   cfg.RoundDuration,
		checkInterval:   cfg.CheckInterval,
		retention:       cfg.Retention,
		maxTasksPerNode: cfg.MaxTasksPerNode,
		subscribers:     make(map[int]chan domain.RoundEvent),
	}
}

// Start resumes the active round if one exists and has not expired, otherwise
// performs a full transition, then begins periodic expiry checks. A second
// concurrent Start is a no-op. If the initial transition fails the error is
// returned and no check loop runs; retrying is the caller's decision.
func (s *RoundService) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		s.logger.Warnw("round_service_already_started")
		return nil
	}

	current, err := s.roundRepo.GetActive(ctx)
	switch {
	case err == nil && !current.Expired(time.Now()):
		s.logger.Infow("round_resumed", "id", current.ID, "start_time", current.StartTime, "end_time", current.EndTime)
	default:
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			// Fail open: a transient read error must not wedge scheduling.
			s.logger.Warnw("active_round_read_failed", "error", err)
		}
		if _, err := s.transition(ctx); err != nil {
			s.started.Store(false)
			return fmt.Errorf("initial round transition: %w", err)
		}
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(loopCtx)

	s.logger.Infow("round_service_started", "check_interval", s.checkInterval, "round_duration", s.roundDuration)
	return nil
}

// Stop cancels future checks. A tick already in progress, including its
// transition and sampler calls, runs to completion.
func (s *RoundService) Stop() {
	if !s.started.CompareAndSwap(true, false) {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Infow("round_service_stopped")
}

func (s *RoundService) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick deliberately runs against the background context: Stop must not cancel
// in-flight storage work.
func (s *RoundService) tick() {
	ctx := context.Background()

	current, err := s.roundRepo.GetActive(ctx)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Warnw("active_round_read_failed", "error", err)
	}

	if current == nil || current.Expired(time.Now()) {
		if _, err := s.transition(ctx); err != nil {
			// Retried on the next tick.
			s.logger.Errorw("round_transition_failed", "error", err)
		}
	}

	s.sweep(ctx)
}

// TransitionNow forces a transition immediately, outside the tick schedule.
func (s *RoundService) TransitionNow(ctx context.Context) (*domain.Round, error) {
	return s.transition(ctx)
}

// transition creates the next round, populates it with tasks for every
// registered subnet, and only then flips the active flags in one transaction.
// The new round is never observable as active before its tasks have settled.
func (s *RoundService) transition(ctx context.Context) (*domain.Round, error) {
	previous, err := s.roundRepo.GetActive(ctx)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Warnw("active_round_read_failed", "error", err)
		previous = nil
	}

	now := time.Now()
	round := &domain.Round{
		StartTime:       now,
		EndTime:         now.Add(s.roundDuration),
		MaxTasksPerNode: s.maxTasksPerNode,
	}
	if err := s.roundRepo.Create(ctx, round); err != nil {
		return nil, fmt.Errorf("create round: %w", err)
	}

	s.tasking.GenerateTasksForRound(ctx, round.ID)

	if err := s.roundRepo.Activate(ctx, round.ID); err != nil {
		return nil, fmt.Errorf("activate round %d: %w", round.ID, err)
	}

	event := domain.RoundEvent{
		RoundID:   round.ID,
		StartTime: round.StartTime,
		EndTime:   round.EndTime,
	}
	if previous != nil {
		event.PreviousRoundID = previous.ID
		s.logger.Infow("round_transitioned", "previous_id", previous.ID, "id", round.ID, "end_time", round.EndTime)
	} else {
		s.logger.Infow("round_started", "id", round.ID, "end_time", round.EndTime)
	}
	s.publish(event)

	return round, nil
}

func (s *RoundService) sweep(ctx context.Context) {
	if s.retention <= 0 {
		return
	}
	cutoff := time.Now().Add(-s.retention)
	if _, err := s.roundRepo.DeleteEndedBefore(ctx, cutoff); err != nil {
		s.logger.Errorw("round_sweep_failed", "cutoff", cutoff, "error", err)
	}
}

// Subscribe registers a transition listener. Slow consumers drop events
// rather than block the transition path.
func (s *RoundService) Subscribe() (<-chan domain.RoundEvent, func()) {
	ch := make(chan domain.RoundEvent, 8)

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if existing, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(existing)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *RoundService) publish(event domain.RoundEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
