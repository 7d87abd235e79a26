// Package sla derives SLA expiry, priority tier and time-to-breach for cases.
package sla

import (
	"sort"
	"time"

	"github.com/spec-kit/sac-service/internal/domain"
)

// Priority is the computed urgency tier of a case.
type Priority string

const (
	PriorityCritical Priority = "Critica"
	PriorityHigh     Priority = "Alta"
	PriorityMedium   Priority = "Media"
)

// Rank orders tiers; higher is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	}
	return 0
}

const day = 24 * time.Hour

// Classification is the derived view of a case at a given instant.
type Classification struct {
	DaysOpen          int      `json:"days_open"`
	SLADays           int      `json:"sla_days"`
	SLAExpired        bool     `json:"sla_expired"`
	Priority          Priority `json:"priority"`
	RemainingDays     int      `json:"remaining_days"`
	HoursToBreach     int      `json:"hours_to_breach"`
	NearBreach        bool     `json:"near_breach"`
	BreachesWithin24h bool     `json:"breaches_within_24h"`
}

// DaysOpen returns whole days elapsed between createdAt and now, never negative.
func DaysOpen(createdAt, now time.Time) int {
	if createdAt.IsZero() || !now.After(createdAt) {
		return 0
	}
	return int(now.Sub(createdAt) / day)
}

// Expired applies the SLA budget rule. A missing or zero budget expires after day 0.
func Expired(daysOpen, slaDays int) bool {
	if slaDays <= 0 {
		return daysOpen > 0
	}
	return daysOpen >= slaDays
}

// Classify derives the classification of c at now. It has no side effects.
func Classify(c domain.Case, now time.Time) Classification {
	daysOpen := DaysOpen(c.CreatedAt, now)
	slaDays := c.SLADays()
	if slaDays < 0 {
		slaDays = 0
	}

	out := Classification{
		DaysOpen:      daysOpen,
		SLADays:       slaDays,
		SLAExpired:    Expired(daysOpen, slaDays),
		RemainingDays: slaDays - daysOpen,
	}

	if !c.CreatedAt.IsZero() {
		deadline := c.CreatedAt.Add(time.Duration(slaDays) * day)
		out.HoursToBreach = int(deadline.Sub(now) / time.Hour)
	}
	out.NearBreach = !out.SLAExpired && out.RemainingDays <= 1
	out.BreachesWithin24h = !out.SLAExpired && out.HoursToBreach > 0 && out.HoursToBreach <= 24

	switch {
	case c.Status == domain.CaseStatusEscalated:
		out.Priority = PriorityCritical
	case out.SLAExpired:
		out.Priority = PriorityHigh
	case c.Status == domain.CaseStatusInProgress && out.RemainingDays <= 1:
		out.Priority = PriorityHigh
	default:
		out.Priority = PriorityMedium
	}
	return out
}

// Classified pairs a case with its classification.
type Classified struct {
	Case           domain.Case    `json:"case"`
	Classification Classification `json:"classification"`
}

// ClassifyAll classifies every case, preserving input order.
func ClassifyAll(cases []domain.Case, now time.Time) []Classified {
	out := make([]Classified, 0, len(cases))
	for _, c := range cases {
		out = append(out, Classified{Case: c, Classification: Classify(c, now)})
	}
	return out
}

// MoreUrgent orders by tier descending, then days open descending.
func MoreUrgent(a, b Classification) bool {
	if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
		return ra > rb
	}
	return a.DaysOpen > b.DaysOpen
}

// SortByPriority stable-sorts items most urgent first.
func SortByPriority(items []Classified) {
	sort.SliceStable(items, func(i, j int) bool {
		return MoreUrgent(items[i].Classification, items[j].Classification)
	})
}
