package ports

import (
	"context"

	"github.com/subcheck/backend/internal/domain"
)

// Sampler produces zero or more task definitions for one subnet. The hint is
// advisory: the orchestrator never truncates what a sampler returns.
type Sampler func(ctx context.Context, hint SamplerHint) ([]domain.JSONB, error)

type SamplerHint struct {
	Subnet          string
	MaxTasks        int
	MaxTasksPerNode int
}

type TaskingService interface {
	RegisterTaskSampler(subnet string, fn Sampler) error
	// GenerateTasksForRound fans out all registered samplers concurrently.
	// Per-subnet failures are logged and isolated, never returned.
	GenerateTasksForRound(ctx context.Context, roundID uint)
	Subnets() []string
}

type RoundService interface {
	Start(ctx context.Context) error
	Stop()
	// TransitionNow forces an immediate round transition regardless of the
	// current round's expiry.
	TransitionNow(ctx context.Context) (*domain.Round, error)
	// Subscribe returns a channel of round transition events and a cancel
	// function that releases the subscription.
	Subscribe() (<-chan domain.RoundEvent, func())
}
