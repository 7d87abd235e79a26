package dto

// AgentRequest payload for creating or updating an agent.
type AgentRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Status          string `json:"status"`
	RoundRobinOrder *int   `json:"round_robin_order"`
}
