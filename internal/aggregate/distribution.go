package aggregate

import (
	"math"
	"sort"

	"github.com/spec-kit/sac-service/internal/domain"
)

// UnknownStatusKey buckets cases whose status is outside the enumeration.
const UnknownStatusKey = "Desconocido"

// UncategorizedKey buckets cases whose category cannot be resolved.
const UncategorizedKey = ""

// Share is a count and its percentage of the total, to one decimal. Key is
// the status or category id; Label is the display name.
type Share struct {
	Key     string  `json:"key"`
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// StatusDistribution counts cases per status, in enumeration order. Unknown
// statuses are counted under UnknownStatusKey so the shares cover every case.
func StatusDistribution(cases []domain.Case) []Share {
	statuses := domain.AllCaseStatuses()
	buckets := make([]Share, 0, len(statuses)+1)
	index := make(map[string]int, len(statuses))
	for _, s := range statuses {
		index[string(s)] = len(buckets)
		buckets = append(buckets, Share{Key: string(s), Label: string(s)})
	}
	unknown := -1
	for _, c := range cases {
		i, ok := index[string(c.Status)]
		if !ok {
			if unknown < 0 {
				unknown = len(buckets)
				buckets = append(buckets, Share{Key: UnknownStatusKey, Label: UnknownStatusKey})
			}
			i = unknown
		}
		buckets[i].Count++
	}
	return shares(buckets, len(cases))
}

// CategoryDistribution counts cases per category id, in categories order.
// Cases whose category is unknown are grouped under UncategorizedKey.
func CategoryDistribution(cases []domain.Case, categories []domain.Category) []Share {
	buckets := make([]Share, 0, len(categories)+1)
	index := make(map[string]int, len(categories))
	for _, cat := range categories {
		if _, dup := index[cat.ID]; dup {
			continue
		}
		index[cat.ID] = len(buckets)
		buckets = append(buckets, Share{Key: cat.ID, Label: cat.Name})
	}
	uncategorized := -1
	for _, c := range cases {
		i, ok := index[c.CategoryID]
		if !ok || c.CategoryID == UncategorizedKey {
			if uncategorized < 0 {
				uncategorized = len(buckets)
				buckets = append(buckets, Share{Key: UncategorizedKey, Label: domain.UncategorizedName})
			}
			i = uncategorized
		}
		buckets[i].Count++
	}
	return shares(buckets, len(cases))
}

// shares distributes 100.0% across keys with the largest-remainder method
// in tenths of a percent, so a non-empty total always sums to exactly 100.0.
func shares(buckets []Share, total int) []Share {
	if total <= 0 {
		return buckets
	}

	tenths := make([]int, len(buckets))
	remainders := make([]int, len(buckets))
	assigned := 0
	for i, b := range buckets {
		scaled := b.Count * 1000
		tenths[i] = scaled / total
		remainders[i] = scaled % total
		assigned += tenths[i]
	}

	order := make([]int, len(buckets))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]] > remainders[order[b]]
	})
	for _, idx := range order {
		if assigned >= 1000 || remainders[idx] == 0 {
			break
		}
		tenths[idx]++
		assigned++
	}

	for i := range buckets {
		buckets[i].Percent = float64(tenths[i]) / 10
	}
	return buckets
}

func percentOf(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}
