package domain

import "time"

// AgentStatus represents availability of an agent.
type AgentStatus string

const (
	AgentStatusActive   AgentStatus = "Activo"
	AgentStatusInactive AgentStatus = "Inactivo"
	AgentStatusVacation AgentStatus = "Vacaciones"
)

// Valid reports whether s is a known agent status.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusActive, AgentStatusInactive, AgentStatusVacation:
		return true
	}
	return false
}

// Agent models a support agent. ActiveCases is recomputed from cases on read.
type Agent struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Email           string      `json:"email"`
	Status          AgentStatus `json:"status"`
	RoundRobinOrder int         `json:"round_robin_order"`
	ActiveCases     int         `json:"active_cases"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Available reports whether the agent can receive new cases.
func (a *Agent) Available() bool {
	return a.Status == AgentStatusActive
}
