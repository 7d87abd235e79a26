package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sac-service/internal/service"
	"github.com/spec-kit/sac-service/internal/worker"
)

// ViewsHandler serves alerts, dashboards and reference lists.
type ViewsHandler struct {
	dashboard *service.DashboardService
	refresher *worker.Refresher
}

// NewViewsHandler constructs handler. A nil refresher computes snapshots on demand.
func NewViewsHandler(dashboard *service.DashboardService, refresher *worker.Refresher) *ViewsHandler {
	return &ViewsHandler{dashboard: dashboard, refresher: refresher}
}

// Alerts handles GET /alerts.
func (h *ViewsHandler) Alerts(c *fiber.Ctx) error {
	result, err := h.dashboard.Alerts(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// Supervisor handles GET /dashboard/supervisor?period=.
func (h *ViewsHandler) Supervisor(c *fiber.Ctx) error {
	period, err := ParsePeriod(c.Query("period"))
	if err != nil {
		return err
	}
	view, err := h.dashboard.Supervisor(c.UserContext(), period)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": view})
}

// Manager handles GET /dashboard/manager?period=.
func (h *ViewsHandler) Manager(c *fiber.Ctx) error {
	period, err := ParsePeriod(c.Query("period"))
	if err != nil {
		return err
	}
	view, err := h.dashboard.Manager(c.UserContext(), period)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": view})
}

// Snapshot handles GET /dashboard/snapshot.
func (h *ViewsHandler) Snapshot(c *fiber.Ctx) error {
	var (
		snap service.Snapshot
		err  error
	)
	if h.refresher != nil {
		snap, err = h.refresher.Latest(c.UserContext())
	} else {
		snap, err = h.dashboard.Snapshot(c.UserContext())
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": snap})
}

// Categories handles GET /categories.
func (h *ViewsHandler) Categories(c *fiber.Ctx) error {
	categories, err := h.dashboard.Categories(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": categories})
}
