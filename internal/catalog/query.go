package catalog

import (
	"strings"

	"mineralcatalog/pkg/domain"
)

// DefaultLimit is the page size used when a list query does not set one.
const DefaultLimit = 10

// ListQuery filters and pages the collection. Nil bounds and an empty Name do
// not constrain the result.
type ListQuery struct {
	Skip        int
	Limit       int
	MinHardness *float64
	MaxHardness *float64
	Name        string
}

// NewListQuery returns a query with the default offset and page size.
func NewListQuery() ListQuery {
	return ListQuery{Skip: 0, Limit: DefaultLimit}
}

// Matches reports whether m satisfies every supplied predicate. Bounds are
// inclusive and the name match is a case-insensitive substring test. A NaN
// bound retains nothing.
func (q ListQuery) Matches(m domain.Mineral) bool {
	if q.MinHardness != nil && !(m.Hardness >= *q.MinHardness) {
		return false
	}
	if q.MaxHardness != nil && !(m.Hardness <= *q.MaxHardness) {
		return false
	}
	if q.Name != "" && !containsFold(m.Name, q.Name) {
		return false
	}
	return true
}

// Apply filters ms in stored order and returns the [skip, skip+limit) window
// of the matches. Negative offsets and limits count as zero.
func (q ListQuery) Apply(ms []domain.Mineral) []domain.Mineral {
	matched := make([]domain.Mineral, 0, len(ms))
	for _, m := range ms {
		if q.Matches(m) {
			matched = append(matched, m)
		}
	}
	return paginate(matched, q.Skip, q.Limit)
}

// SearchQuery holds the optional case-insensitive substring filters of a
// search. Empty strings do not constrain the result.
type SearchQuery struct {
	Color  string
	Rarity string
	Origin string
}

// Matches reports whether m satisfies every supplied filter. Color and rarity
// filters never match a record lacking the field.
func (q SearchQuery) Matches(m domain.Mineral) bool {
	if q.Color != "" && (!m.HasColor() || !containsFold(*m.Color, q.Color)) {
		return false
	}
	if q.Rarity != "" && (!m.HasRarity() || !containsFold(*m.Rarity, q.Rarity)) {
		return false
	}
	if q.Origin != "" && !containsFold(m.Origin, q.Origin) {
		return false
	}
	return true
}

// Apply returns the matching records in stored order.
func (q SearchQuery) Apply(ms []domain.Mineral) []domain.Mineral {
	out := make([]domain.Mineral, 0, len(ms))
	for _, m := range ms {
		if q.Matches(m) {
			out = append(out, m)
		}
	}
	return out
}

func paginate(ms []domain.Mineral, skip, limit int) []domain.Mineral {
	skip = max(skip, 0)
	limit = max(limit, 0)
	if skip >= len(ms) {
		return []domain.Mineral{}
	}
	// skip+limit may overflow for very large limits.
	limit = min(limit, len(ms)-skip)
	return ms[skip : skip+limit]
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
