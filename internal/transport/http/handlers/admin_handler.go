package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/subcheck/backend/internal/core/ports"
	"github.com/subcheck/backend/internal/infrastructure/logger"
	"github.com/subcheck/backend/internal/transport/http/dto"
)

type AdminHandler struct {
	rounds   ports.RoundService
	taskRepo ports.TaskRepository
	logger   *logger.Logger
}

func NewAdminHandler(rounds ports.RoundService, taskRepo ports.TaskRepository, logger *logger.Logger) *AdminHandler {
	return &AdminHandler{
		rounds:   rounds,
		taskRepo: taskRepo,
		logger:   logger,
	}
}

// ForceTransition ends the current round immediately and starts the next one.
// Ops escape hatch; the scheduler keeps ticking on its own interval.
func (h *AdminHandler) ForceTransition(c *fiber.Ctx) error {
	h.logger.Infow("forced_round_transition_requested", "client_ip", c.IP())

	round, err := h.rounds.TransitionNow(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	tasks, err := h.taskRepo.GetByRoundID(c.Context(), round.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(dto.RoundToResponse(round, tasks))
}
