package dto

import (
	"time"

	"github.com/subcheck/backend/internal/domain"
)

type TaskResponse struct {
	Subnet         string       `json:"subnet"`
	TaskDefinition domain.JSONB `json:"task_definition"`
}

type RoundResponse struct {
	ID              uint           `json:"id"`
	StartTime       time.Time      `json:"start_time"`
	EndTime         time.Time      `json:"end_time"`
	Active          bool           `json:"active"`
	MaxTasksPerNode int            `json:"max_tasks_per_node"`
	CreatedAt       time.Time      `json:"created_at"`
	Tasks           []TaskResponse `json:"tasks"`
}

func RoundToResponse(round *domain.Round, tasks []domain.SubnetTask) RoundResponse {
	taskResponses := make([]TaskResponse, len(tasks))
	for i, task := range tasks {
		taskResponses[i] = TaskResponse{
			Subnet:         task.Subnet,
			TaskDefinition: task.TaskDefinition,
		}
	}
	return RoundResponse{
		ID:              round.ID,
		StartTime:       round.StartTime,
		EndTime:         round.EndTime,
		Active:          round.Active,
		MaxTasksPerNode: round.MaxTasksPerNode,
		CreatedAt:       round.CreatedAt,
		Tasks:           taskResponses,
	}
}

type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}
