package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sac-service/internal/aggregate"
	"github.com/spec-kit/sac-service/internal/api/dto"
	"github.com/spec-kit/sac-service/internal/auth"
	"github.com/spec-kit/sac-service/internal/domain"
	"github.com/spec-kit/sac-service/internal/service"
	"github.com/spec-kit/sac-service/internal/sla"
	apperrors "github.com/spec-kit/sac-service/pkg/util/errorutil"
)

// CasesHandler serves the inbox, case detail and case mutations.
type CasesHandler struct {
	cases     *service.CaseService
	dashboard *service.DashboardService
	clock     domain.Clock
}

// NewCasesHandler constructs handler.
func NewCasesHandler(cases *service.CaseService, dashboard *service.DashboardService, clock domain.Clock) *CasesHandler {
	if clock == nil {
		clock = domain.RealClock{}
	}
	return &CasesHandler{cases: cases, dashboard: dashboard, clock: clock}
}

// List handles GET /cases?q=&status=&quick=&sort=&dir=.
func (h *CasesHandler) List(c *fiber.Ctx) error {
	query, err := ParseInboxQuery(c.Query("q"), c.Query("status"), c.Query("quick"), c.Query("sort"), c.Query("dir"))
	if err != nil {
		return err
	}
	result, err := h.dashboard.Inbox(c.UserContext(), query)
	if err != nil {
		return err
	}
	items := make([]dto.CaseDetail, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, dto.NewCaseDetail(&result.Items[i].Case, result.Items[i].Classification))
	}
	return c.JSON(fiber.Map{
		"data": items,
		"meta": fiber.Map{"total": result.Total, "matched": result.Matched},
	})
}

// Get handles GET /cases/:id.
func (h *CasesHandler) Get(c *fiber.Ctx) error {
	record, err := h.cases.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.detail(record)})
}

// Create handles POST /cases.
func (h *CasesHandler) Create(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	var req dto.CreateCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	record, err := h.cases.Create(c.UserContext(), principal.Actor(), service.CaseInput{
		Subject:     req.Subject,
		Description: req.Description,
		ClientName:  req.ClientName,
		ClientEmail: req.ClientEmail,
		CategoryID:  req.CategoryID,
		AgentID:     req.AgentID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": h.detail(record)})
}

// PatchStatus handles PATCH /cases/:id/status.
func (h *CasesHandler) PatchStatus(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}

	record, err := h.cases.PatchStatus(c.UserContext(), principal.Actor(), c.Params("id"), domain.CaseStatus(req.Status), req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.detail(record)})
}

func (h *CasesHandler) detail(record *domain.Case) dto.CaseDetail {
	return dto.NewCaseDetail(record, sla.Classify(*record, h.clock.Now()))
}

// ParseInboxQuery validates the inbox controls.
func ParseInboxQuery(search, status, quick, sortKey, dir string) (aggregate.InboxQuery, error) {
	q, err := aggregate.ParseInboxQuery(search, status, quick, sortKey, dir)
	if err != nil {
		return q, apperrors.NewValidationError(err.Error(), map[string]any{
			"q": search, "status": status, "quick": quick, "sort": sortKey, "dir": dir,
		})
	}
	return q, nil
}

// ParsePeriod validates the dashboard period parameter.
func ParsePeriod(val string) (aggregate.Period, error) {
	period, err := aggregate.ParsePeriod(val)
	if err != nil {
		return period, apperrors.NewValidationError(err.Error(), map[string]any{"period": val})
	}
	return period, nil
}
