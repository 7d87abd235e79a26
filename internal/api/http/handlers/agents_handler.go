package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sac-service/internal/api/dto"
	"github.com/spec-kit/sac-service/internal/domain"
	"github.com/spec-kit/sac-service/internal/service"
	apperrors "github.com/spec-kit/sac-service/pkg/util/errorutil"
)

// AgentsHandler manages support agents.
type AgentsHandler struct {
	agents *service.AgentService
}

// NewAgentsHandler constructs handler.
func NewAgentsHandler(agents *service.AgentService) *AgentsHandler {
	return &AgentsHandler{agents: agents}
}

// List handles GET /agents.
func (h *AgentsHandler) List(c *fiber.Ctx) error {
	agents, err := h.agents.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": agents})
}

// Get handles GET /agents/:id.
func (h *AgentsHandler) Get(c *fiber.Ctx) error {
	agent, err := h.agents.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": agent})
}

// Create handles POST /agents.
func (h *AgentsHandler) Create(c *fiber.Ctx) error {
	input, err := parseAgentRequest(c)
	if err != nil {
		return err
	}
	agent, err := h.agents.Create(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": agent})
}

// Update handles PUT /agents/:id.
func (h *AgentsHandler) Update(c *fiber.Ctx) error {
	input, err := parseAgentRequest(c)
	if err != nil {
		return err
	}
	agent, err := h.agents.Update(c.UserContext(), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": agent})
}

// Delete handles DELETE /agents/:id.
func (h *AgentsHandler) Delete(c *fiber.Ctx) error {
	if err := h.agents.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	c.Status(http.StatusNoContent)
	return nil
}

func parseAgentRequest(c *fiber.Ctx) (service.AgentInput, error) {
	var req dto.AgentRequest
	if err := c.BodyParser(&req); err != nil {
		return service.AgentInput{}, apperrors.NewValidationError("invalid payload", nil)
	}
	return service.AgentInput{
		Name:   req.Name,
		Email:  req.Email,
		Status: domain.AgentStatus(req.Status),
		Order:  req.RoundRobinOrder,
	}, nil
}
