package domain

// UncategorizedName is displayed for cases whose category cannot be resolved.
const UncategorizedName = "Sin categoría"

// Category is immutable reference data carrying the SLA budget.
type Category struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	SLADays int    `json:"sla_days"`
	Active  bool   `json:"active"`
}
