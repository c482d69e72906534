package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/subcheck/backend/internal/core/ports"
	"github.com/subcheck/backend/internal/infrastructure/logger"
	"github.com/subcheck/backend/internal/transport/http/dto"
	"gorm.io/gorm"
)

type RoundHandler struct {
	roundRepo ports.RoundRepository
	taskRepo  ports.TaskRepository
	logger    *logger.Logger
}

func NewRoundHandler(roundRepo ports.RoundRepository, taskRepo ports.TaskRepository, logger *logger.Logger) *RoundHandler {
	return &RoundHandler{
		roundRepo: roundRepo,
		taskRepo:  taskRepo,
		logger:    logger,
	}
}

func (h *RoundHandler) GetCurrentRound(c *fiber.Ctx) error {
	round, err := h.roundRepo.GetActive(c.Context())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "no active round"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	tasks, err := h.taskRepo.GetByRoundID(c.Context(), round.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(dto.RoundToResponse(round, tasks))
}

func (h *RoundHandler) GetRound(c *fiber.Ctx) error {
	id64, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid round id"})
	}

	round, err := h.roundRepo.GetByID(c.Context(), uint(id64))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "round not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	tasks, err := h.taskRepo.GetByRoundID(c.Context(), round.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(dto.RoundToResponse(round, tasks))
}
