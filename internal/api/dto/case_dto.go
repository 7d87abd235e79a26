package dto

import (
	"github.com/spec-kit/sac-service/internal/domain"
	"github.com/spec-kit/sac-service/internal/sla"
)

// CreateCaseRequest payload for POST /cases.
type CreateCaseRequest struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`
	CategoryID  string `json:"category_id"`
	AgentID     string `json:"agent_id"`
}

// UpdateStatusRequest payload for PATCH /cases/:id/status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// CaseDetail is a case with its live classification and next allowed statuses.
type CaseDetail struct {
	*domain.Case
	AgentDisplayName string             `json:"agent_display_name"`
	CategoryName     string             `json:"category_name"`
	Classification   sla.Classification `json:"classification"`
	AllowedStatuses  []string           `json:"allowed_statuses"`
}

// NewCaseDetail builds the detail view.
func NewCaseDetail(c *domain.Case, classification sla.Classification) CaseDetail {
	name := domain.UncategorizedName
	if c.Category != nil {
		name = c.Category.Name
	}
	return CaseDetail{
		Case:             c,
		AgentDisplayName: c.DisplayAgentName(),
		CategoryName:     name,
		Classification:   classification,
		AllowedStatuses:  domain.StatusStrings(c.Status.NextStatuses()),
	}
}
