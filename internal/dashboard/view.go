package dashboard

import (
	"sort"
	"strings"

	"github.com/oreopets/portal/internal/backend"
)

// SortField names a sortable column.
type SortField string

const (
	SortDate   SortField = "date"
	SortTime   SortField = "time"
	SortStatus SortField = "status"
)

// precedence is fixed; operators only flip directions.
var precedence = []SortField{SortDate, SortTime, SortStatus}

// SortKey is one column of the sort order.
type SortKey struct {
	Field SortField
	Desc  bool
}

// Filter is the transient view state of the dashboard.
type Filter struct {
	// Phone matches as a case-insensitive substring.
	Phone string
	// Date matches YYYY-MM-DD exactly.
	Date string
	Sort []SortKey
}

// DefaultSort orders by date, time and status, all ascending.
func DefaultSort() []SortKey {
	keys := make([]SortKey, len(precedence))
	for i, field := range precedence {
		keys[i] = SortKey{Field: field}
	}
	return keys
}

// ParseSort reads "date:desc,time" style values. Unknown fields are ignored
// and the result always follows the fixed precedence.
func ParseSort(raw string) []SortKey {
	desc := make(map[SortField]bool, len(precedence))
	present := make(map[SortField]bool, len(precedence))
	for _, part := range strings.Split(raw, ",") {
		field, dir, _ := strings.Cut(strings.TrimSpace(part), ":")
		key := SortField(strings.ToLower(field))
		if !isSortField(key) {
			continue
		}
		present[key] = true
		desc[key] = strings.EqualFold(dir, "desc")
	}
	if len(present) == 0 {
		return DefaultSort()
	}

	keys := make([]SortKey, 0, len(present))
	for _, field := range precedence {
		if present[field] {
			keys = append(keys, SortKey{Field: field, Desc: desc[field]})
		}
	}
	return keys
}

// CompleteSort returns keys with every sortable field present, in
// precedence order. Missing fields sort ascending.
func CompleteSort(keys []SortKey) []SortKey {
	desc := make(map[SortField]bool, len(keys))
	for _, key := range keys {
		desc[key.Field] = key.Desc
	}
	out := make([]SortKey, len(precedence))
	for i, field := range precedence {
		out[i] = SortKey{Field: field, Desc: desc[field]}
	}
	return out
}

// FormatSort is the inverse of ParseSort.
func FormatSort(keys []SortKey) string {
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		dir := "asc"
		if key.Desc {
			dir = "desc"
		}
		parts = append(parts, string(key.Field)+":"+dir)
	}
	return strings.Join(parts, ",")
}

// Toggle flips the direction of one key and leaves the others alone.
func (f Filter) Toggle(field SortField) Filter {
	keys := make([]SortKey, len(f.Sort))
	copy(keys, f.Sort)
	for i := range keys {
		if keys[i].Field == field {
			keys[i].Desc = !keys[i].Desc
		}
	}
	f.Sort = keys
	return f
}

// Direction returns whether field currently sorts descending.
func (f Filter) Direction(field SortField) (desc bool, ok bool) {
	for _, key := range f.Sort {
		if key.Field == field {
			return key.Desc, true
		}
	}
	return false, false
}

// View filters the records and sorts them stably by the filter's keys. The
// input slice is not modified.
func View(records []backend.Reservation, f Filter) []backend.Reservation {
	phone := strings.ToLower(strings.TrimSpace(f.Phone))
	date := strings.TrimSpace(f.Date)

	out := make([]backend.Reservation, 0, len(records))
	for _, r := range records {
		if phone != "" && !strings.Contains(strings.ToLower(r.Phone), phone) {
			continue
		}
		if date != "" && r.Date != date {
			continue
		}
		out = append(out, r)
	}

	keys := f.Sort
	if len(keys) == 0 {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		for _, key := range keys {
			c := compareField(out[i], out[j], key.Field)
			if c == 0 {
				continue
			}
			if key.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return out
}

func compareField(a, b backend.Reservation, field SortField) int {
	switch field {
	case SortDate:
		return strings.Compare(a.Date, b.Date)
	case SortTime:
		return strings.Compare(a.Time, b.Time)
	case SortStatus:
		return strings.Compare(strings.ToLower(a.Status), strings.ToLower(b.Status))
	default:
		return 0
	}
}

func isSortField(field SortField) bool {
	for _, known := range precedence {
		if known == field {
			return true
		}
	}
	return false
}
