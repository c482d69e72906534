// Package samplers provides the built-in task samplers registered at
// startup. Each sampler builds opaque task definitions for one subnet; the
// verification worker fleet that consumes them is a separate system.
package samplers

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/subcheck/backend/internal/core/ports"
	"github.com/subcheck/backend/internal/domain"
)

// ProbeSampler emits storage-probe challenges against a fixed endpoint list.
// Endpoints are drawn without replacement, at most MaxTasks per round.
type ProbeSampler struct {
	endpoints []string
}

func NewProbeSampler(endpoints []string) *ProbeSampler {
	return &ProbeSampler{endpoints: endpoints}
}

func (p *ProbeSampler) Sample(ctx context.Context, hint ports.SamplerHint) ([]domain.JSONB, error) {
	if len(p.endpoints) == 0 {
		return nil, fmt.Errorf("probe sampler %s: no endpoints configured", hint.Subnet)
	}

	n := len(p.endpoints)
	if hint.MaxTasks > 0 && n > hint.MaxTasks {
		n = hint.MaxTasks
	}

	definitions := make([]domain.JSONB, 0, n)
	for _, idx := range rand.Perm(len(p.endpoints))[:n] {
		definitions = append(definitions, domain.JSONB{
			"subnet":             hint.Subnet,
			"endpoint":           p.endpoints[idx],
			"challenge_id":       uuid.New().String(),
			"issued_at":          time.Now().UTC().Format(time.RFC3339),
			"max_tasks_per_node": hint.MaxTasksPerNode,
		})
	}
	return definitions, nil
}
