package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/subcheck/backend/internal/domain"
)

func newRoundService(env *testEnv, tasking *TaskingService, overrides ...func(*RoundServiceConfig)) *RoundService {
	cfg := RoundServiceConfig{
		RoundRepo:       env.roundRepo,
		Tasking:         tasking,
		Logger:          env.log,
		RoundDuration:   10 * time.Minute,
		CheckInterval:   time.Hour, // ticks never fire during most tests
		MaxTasksPerNode: 4,
	}
	for _, override := range overrides {
		override(&cfg)
	}
	return NewRoundService(cfg)
}

func countRounds(t *testing.T, env *testEnv) (total, active int64) {
	t.Helper()
	if err := env.db.Model(&domain.Round{}).Count(&total).Error; err != nil {
		t.Fatalf("count rounds: %v", err)
	}
	if err := env.db.Model(&domain.Round{}).Where("active = ?", true).Count(&active).Error; err != nil {
		t.Fatalf("count active rounds: %v", err)
	}
	return total, active
}

func TestRoundService_StartCreatesInitialRound(t *testing.T) {
	env := newTestEnv(t)
	tasking := env.newTasking(16, 4)
	if err := tasking.RegisterTaskSampler("walrus", staticSampler(domain.JSONB{"payloadId": "task1"})); err != nil {
		t.Fatalf("register sampler: %v", err)
	}
	svc := newRoundService(env, tasking)

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer svc.Stop()

	total, active := countRounds(t, env)
	if total != 1 || active != 1 {
		t.Fatalf("expected 1 round, 1 active; got %d/%d", total, active)
	}

	round, err := env.roundRepo.GetActive(context.Background())
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if got := round.EndTime.Sub(round.StartTime); got != 10*time.Minute {
		t.Fatalf("round duration must equal the configured duration, got %s", got)
	}

	tasks, err := env.taskRepo.GetByRoundID(context.Background(), round.ID)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected the initial round to be populated before activation, got %d tasks", len(tasks))
	}
}

func TestRoundService_StartTwiceIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	svc := newRoundService(env, env.newTasking(16, 4))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.Start(context.Background()); err != nil {
				t.Errorf("start: %v", err)
			}
		}()
	}
	wg.Wait()
	defer svc.Stop()

	total, active := countRounds(t, env)
	if total != 1 || active != 1 {
		t.Fatalf("concurrent Start must create one initial round; got %d/%d", total, active)
	}
}

func TestRoundService_ResumesUnexpiredRound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	now := time.Now()
	seeded := &domain.Round{
		StartTime: now.Add(-time.Minute),
		EndTime:   now.Add(10 * time.Minute),
		Active:    true,
	}
	if err := env.db.Create(seeded).Error; err != nil {
		t.Fatalf("seed active round: %v", err)
	}

	svc := newRoundService(env, env.newTasking(16, 4))
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer svc.Stop()

	total, active := countRounds(t, env)
	if total != 1 || active != 1 {
		t.Fatalf("resume must not create a round; got %d/%d", total, active)
	}

	current, err := env.roundRepo.GetActive(ctx)
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if current.ID != seeded.ID || !current.StartTime.Equal(seeded.StartTime) {
		t.Fatalf("expected the seeded round resumed untouched, got id=%d start=%s", current.ID, current.StartTime)
	}
}

func TestRoundService_TransitionsExpiredRoundOnStart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	now := time.Now()
	seeded := &domain.Round{
		StartTime: now.Add(-20 * time.Minute),
		EndTime:   now.Add(-10 * time.Minute),
		Active:    true,
	}
	if err := env.db.Create(seeded).Error; err != nil {
		t.Fatalf("seed expired round: %v", err)
	}

	svc := newRoundService(env, env.newTasking(16, 4))
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer svc.Stop()

	total, active := countRounds(t, env)
	if total != 2 || active != 1 {
		t.Fatalf("expected 2 rounds with 1 active; got %d/%d", total, active)
	}

	original, err := env.roundRepo.GetByID(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("get original: %v", err)
	}
	if original.Active {
		t.Fatal("superseded round must be inactive")
	}

	current, err := env.roundRepo.GetActive(ctx)
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if current.ID == seeded.ID {
		t.Fatal("expected a new round to be active")
	}
	if !current.StartTime.After(seeded.EndTime) {
		t.Fatalf("new round must start after the original's end: %s !> %s", current.StartTime, seeded.EndTime)
	}
}

func TestRoundService_ExactlyOneActiveAfterTransitions(t *testing.T) {
	env := newTestEnv(t)
	svc := newRoundService(env, env.newTasking(16, 4))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.TransitionNow(ctx); err != nil {
			t.Fatalf("transition %d: %v", i, err)
		}
	}

	total, active := countRounds(t, env)
	if total != 3 || active != 1 {
		t.Fatalf("expected 3 rounds with exactly 1 active; got %d/%d", total, active)
	}
}

func TestRoundService_TransitionPublishesEvent(t *testing.T) {
	env := newTestEnv(t)
	svc := newRoundService(env, env.newTasking(16, 4))

	events, cancel := svc.Subscribe()
	defer cancel()

	round, err := svc.TransitionNow(context.Background())
	if err != nil {
		t.Fatalf("transition: %v", err)
	}

	select {
	case event := <-events:
		if event.RoundID != round.ID {
			t.Fatalf("expected event for round %d, got %d", round.ID, event.RoundID)
		}
		if !event.EndTime.After(event.StartTime) {
			t.Fatal("event end_time must be after start_time")
		}
	case <-time.After(time.Second):
		t.Fatal("expected a round event after transition")
	}
}

func TestRoundService_StopIsSafeAfterStart(t *testing.T) {
	env := newTestEnv(t)
	svc := newRoundService(env, env.newTasking(16, 4))

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	svc.Stop()

	// Stop again is a no-op.
	svc.Stop()
}

func TestRoundService_TickSweepsOldRounds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	now := time.Now()
	stale := &domain.Round{
		StartTime: now.Add(-3 * time.Hour),
		EndTime:   now.Add(-2 * time.Hour),
	}
	if err := env.roundRepo.Create(ctx, stale); err != nil {
		t.Fatalf("seed stale round: %v", err)
	}

	svc := newRoundService(env, env.newTasking(16, 4), func(cfg *RoundServiceConfig) {
		cfg.CheckInterval = 20 * time.Millisecond
		cfg.Retention = time.Hour
	})
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer svc.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := env.roundRepo.GetByID(ctx, stale.ID); err != nil {
			return // swept
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("expected the stale round to be swept within the deadline")
}
