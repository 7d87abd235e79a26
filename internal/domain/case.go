package domain

import "time"

// CaseStatus enumerates lifecycle states for cases.
type CaseStatus string

const (
	CaseStatusNew           CaseStatus = "Nuevo"
	CaseStatusInProgress    CaseStatus = "En Proceso"
	CaseStatusPendingClient CaseStatus = "Pendiente Cliente"
	CaseStatusEscalated     CaseStatus = "Escalado"
	CaseStatusResolved      CaseStatus = "Resuelto"
	CaseStatusClosed        CaseStatus = "Cerrado"
)

// UnassignedAgentName is displayed for cases without an agent.
const UnassignedAgentName = "Sin asignar"

// Case is the aggregate for customer support cases.
type Case struct {
	ID          string         `json:"id"`
	Status      CaseStatus     `json:"status"`
	CategoryID  string         `json:"category_id"`
	Category    *Category      `json:"category,omitempty"`
	ClientName  string         `json:"client_name"`
	ClientEmail string         `json:"client_email,omitempty"`
	Subject     string         `json:"subject"`
	Description string         `json:"description"`
	AgentID     string         `json:"agent_id,omitempty"`
	AgentName   string         `json:"agent_name,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	History     []HistoryEvent `json:"history"`
}

// HistoryEvent is an append-only entry in a case's history.
type HistoryEvent struct {
	At         time.Time  `json:"at"`
	Actor      string     `json:"actor"`
	Detail     string     `json:"detail"`
	FromStatus CaseStatus `json:"from_status,omitempty"`
	ToStatus   CaseStatus `json:"to_status,omitempty"`
}

// Assigned reports whether the case has an agent.
func (c *Case) Assigned() bool {
	return c.AgentID != ""
}

// DisplayAgentName returns the agent name or the unassigned placeholder.
func (c *Case) DisplayAgentName() string {
	if c.AgentID == "" || c.AgentName == "" {
		return UnassignedAgentName
	}
	return c.AgentName
}

// SLADays returns the category SLA budget, or 0 when the category is missing.
func (c *Case) SLADays() int {
	if c.Category == nil {
		return 0
	}
	return c.Category.SLADays
}

// Clone returns a deep copy so callers can mutate without touching stored state.
func (c *Case) Clone() *Case {
	if c == nil {
		return nil
	}
	cp := *c
	if c.Category != nil {
		cat := *c.Category
		cp.Category = &cat
	}
	cp.History = append([]HistoryEvent(nil), c.History...)
	return &cp
}
