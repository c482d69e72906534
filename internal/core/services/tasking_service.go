package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/subcheck/backend/internal/core/ports"
	"github.com/subcheck/backend/internal/domain"
	"github.com/subcheck/backend/internal/infrastructure/logger"
)

// TaskingService owns the subnet -> sampler registry and fans task generation
// out across all registered subnets. Each subnet is its own failure domain: a
// sampler error or a failed insert for one subnet never touches the others.
type TaskingService struct {
	taskRepo ports.TaskRepository
	logger   *logger.Logger

	maxTasksPerSubnet int
	maxTasksPerNode   int

	mu       sync.RWMutex
	samplers map[string]ports.Sampler
}

type TaskingServiceConfig struct {
	TaskRepo          ports.TaskRepository
	Logger            *logger.Logger
	MaxTasksPerSubnet int
	MaxTasksPerNode   int
}

func NewTaskingService(cfg TaskingServiceConfig) *TaskingService {
	return &TaskingService{
		taskRepo:          cfg.TaskRepo,
		logger:            cfg.Logger,
		maxTasksPerSubnet: cfg.MaxTasksPerSubnet,
		maxTasksPerNode:   cfg.MaxTasksPerNode,
		samplers:          make(map[string]ports.Sampler),
	}
}

// RegisterTaskSampler registers the sampler for a subnet. Re-registration
// overwrites. A nil sampler is rejected without touching the registry.
func (s *TaskingService) RegisterTaskSampler(subnet string, fn ports.Sampler) error {
	if fn == nil {
		return fmt.Errorf("%w: %s", ErrNilSampler, subnet)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.samplers[subnet] = fn

	s.logger.Infow("task_sampler_registered", "subnet", subnet)
	return nil
}

func (s *TaskingService) Subnets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subnets := make([]string, 0, len(s.samplers))
	for subnet := range s.samplers {
		subnets = append(subnets, subnet)
	}
	return subnets
}

// GenerateTasksForRound invokes every registered sampler concurrently and
// persists each subnet's results in its own transaction. The call returns
// once all subnets have settled, success or failure. With zero registered
// samplers it is a no-op.
func (s *TaskingService) GenerateTasksForRound(ctx context.Context, roundID uint) {
	s.mu.RLock()
	samplers := make(map[string]ports.Sampler, len(s.samplers))
	for subnet, fn := range s.samplers {
		samplers[subnet] = fn
	}
	s.mu.RUnlock()

	if len(samplers) == 0 {
		s.logger.Infow("task_generation_skipped_no_samplers", "round_id", roundID)
		return
	}

	var wg sync.WaitGroup
	for subnet, fn := range samplers {
		wg.Add(1)
		go func(subnet string, fn ports.Sampler) {
			defer wg.Done()
			s.generateForSubnet(ctx, roundID, subnet, fn)
		}(subnet, fn)
	}
	wg.Wait()

	s.logger.Infow("task_generation_settled", "round_id", roundID, "subnets", len(samplers))
}

func (s *TaskingService) generateForSubnet(ctx context.Context, roundID uint, subnet string, fn ports.Sampler) {
	hint := ports.SamplerHint{
		Subnet:          subnet,
		MaxTasks:        s.maxTasksPerSubnet,
		MaxTasksPerNode: s.maxTasksPerNode,
	}

	definitions, err := callSampler(ctx, fn, hint)
	if err != nil {
		s.logger.Errorw("subnet_sampler_failed", "round_id", roundID, "subnet", subnet, "error", err)
		return
	}
	if len(definitions) == 0 {
		s.logger.Infow("subnet_sampler_empty", "round_id", roundID, "subnet", subnet)
		return
	}

	tasks := make([]domain.SubnetTask, 0, len(definitions))
	for _, definition := range definitions {
		tasks = append(tasks, domain.SubnetTask{
			RoundID:        roundID,
			Subnet:         subnet,
			TaskDefinition: definition,
		})
	}

	if err := s.taskRepo.CreateBatch(ctx, tasks); err != nil {
		s.logger.Errorw("subnet_tasks_insert_failed", "round_id", roundID, "subnet", subnet, "count", len(tasks), "error", err)
		return
	}

	s.logger.Infow("subnet_tasks_generated", "round_id", roundID, "subnet", subnet, "count", len(tasks))
}

// callSampler shields the fan-out from caller-supplied code: a panicking
// sampler becomes an error for its own subnet instead of taking the process
// down.
func callSampler(ctx context.Context, fn ports.Sampler, hint ports.SamplerHint) (definitions []domain.JSONB, err error) {
	defer func() {
		if r := recover(); r != nil {
			definitions = nil
			err = fmt.Errorf("sampler panic: %v", r)
		}
	}()
	return fn(ctx, hint)
}
