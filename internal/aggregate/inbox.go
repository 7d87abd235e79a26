// Package aggregate builds the ordered lists and counters each screen shows.
// All functions are pure: they never mutate their inputs.
package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/sac-service/internal/domain"
	"github.com/spec-kit/sac-service/internal/sla"
)

// QuickFilter is a single-select shortcut that overrides the status filter.
type QuickFilter string

const (
	QuickAll       QuickFilter = "all"
	QuickEscalated QuickFilter = "escalated"
	QuickOverdue   QuickFilter = "overdue"
	QuickNew       QuickFilter = "new"
)

// SortKey selects the inbox ordering.
type SortKey string

const (
	SortPriority SortKey = "priority"
	SortStatus   SortKey = "status"
	SortClient   SortKey = "client"
	SortCreated  SortKey = "created"
	SortAgent    SortKey = "agent"
)

// Direction toggles ascending or descending order.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// InboxQuery captures the inbox controls.
type InboxQuery struct {
	Search    string
	Status    domain.CaseStatus
	Quick     QuickFilter
	Sort      SortKey
	Direction Direction
}

// InboxResult is the list rendered by the inbox.
type InboxResult struct {
	Items   []sla.Classified `json:"items"`
	Total   int              `json:"total"`
	Matched int              `json:"matched"`
}

// ParseQuickFilter validates a quick filter value; empty means all.
func ParseQuickFilter(val string) (QuickFilter, error) {
	switch q := QuickFilter(strings.ToLower(strings.TrimSpace(val))); q {
	case "":
		return QuickAll, nil
	case QuickAll, QuickEscalated, QuickOverdue, QuickNew:
		return q, nil
	}
	return "", fmt.Errorf("unknown quick filter %q", val)
}

// ParseSortKey validates a sort key; empty means priority.
func ParseSortKey(val string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(val))); k {
	case "":
		return SortPriority, nil
	case SortPriority, SortStatus, SortClient, SortCreated, SortAgent:
		return k, nil
	}
	return "", fmt.Errorf("unknown sort key %q", val)
}

// ParseDirection validates a direction; empty means desc.
func ParseDirection(val string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(val))); d {
	case "":
		return Desc, nil
	case Asc, Desc:
		return d, nil
	}
	return "", fmt.Errorf("unknown direction %q", val)
}

// ParseInboxQuery validates raw inbox controls. Empty values take defaults.
func ParseInboxQuery(search, status, quick, sortKey, dir string) (InboxQuery, error) {
	q := InboxQuery{Search: search}
	if status != "" {
		q.Status = domain.CaseStatus(status)
		if !q.Status.Valid() {
			return q, fmt.Errorf("unknown status %q", status)
		}
	}
	var err error
	if q.Quick, err = ParseQuickFilter(quick); err != nil {
		return q, err
	}
	if q.Sort, err = ParseSortKey(sortKey); err != nil {
		return q, err
	}
	if q.Direction, err = ParseDirection(dir); err != nil {
		return q, err
	}
	return q, nil
}

// Inbox filters, classifies and sorts cases for the inbox view.
func Inbox(cases []domain.Case, q InboxQuery, now time.Time) InboxResult {
	classified := sla.ClassifyAll(cases, now)
	search := strings.ToLower(strings.TrimSpace(q.Search))

	items := make([]sla.Classified, 0, len(classified))
	for _, item := range classified {
		if search != "" && !matchesSearch(item.Case, search) {
			continue
		}
		if !matchesFilter(item, q) {
			continue
		}
		items = append(items, item)
	}

	sortInbox(items, q.Sort, q.Direction)
	return InboxResult{Items: items, Total: len(cases), Matched: len(items)}
}

func matchesSearch(c domain.Case, needle string) bool {
	return strings.Contains(strings.ToLower(c.ID), needle) ||
		strings.Contains(strings.ToLower(c.ClientName), needle) ||
		strings.Contains(strings.ToLower(c.Subject), needle)
}

func matchesFilter(item sla.Classified, q InboxQuery) bool {
	switch q.Quick {
	case QuickEscalated:
		return item.Case.Status == domain.CaseStatusEscalated
	case QuickOverdue:
		return item.Classification.SLAExpired
	case QuickNew:
		return item.Case.Status == domain.CaseStatusNew
	}
	if q.Status != "" {
		return item.Case.Status == q.Status
	}
	return true
}

func sortInbox(items []sla.Classified, key SortKey, dir Direction) {
	if key == "" || key == SortPriority {
		sla.SortByPriority(items)
		if dir == Asc {
			reverse(items)
		}
		return
	}

	cmp := compareBy(key)
	sort.SliceStable(items, func(i, j int) bool {
		c := cmp(items[i].Case, items[j].Case)
		if dir == Asc {
			return c < 0
		}
		return c > 0
	})
}

func compareBy(key SortKey) func(a, b domain.Case) int {
	switch key {
	case SortStatus:
		return func(a, b domain.Case) int { return a.Status.Rank() - b.Status.Rank() }
	case SortClient:
		return func(a, b domain.Case) int {
			return strings.Compare(strings.ToLower(a.ClientName), strings.ToLower(b.ClientName))
		}
	case SortAgent:
		return func(a, b domain.Case) int {
			return strings.Compare(strings.ToLower(a.DisplayAgentName()), strings.ToLower(b.DisplayAgentName()))
		}
	default:
		return func(a, b domain.Case) int { return a.CreatedAt.Compare(b.CreatedAt) }
	}
}

func reverse(items []sla.Classified) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}
