package dataprocessing

import (
	"strings"

	"sponsorama/pkg/contracts/domain"
)

// Apply returns the records matching every non-empty facet of filter, in input order.
// Matching is a case-insensitive substring test; SearchTerm matches the name, the
// period or the target. The input slice is never modified.
func Apply(records []domain.CampaignRecord, filter domain.FilterState) []domain.CampaignRecord {
	out := make([]domain.CampaignRecord, 0, len(records))
	if filter.IsEmpty() {
		return append(out, records...)
	}

	f := filter.Normalized()
	for _, r := range records {
		if Matches(r, f) {
			out = append(out, r)
		}
	}
	return out
}

// Matches reports whether r satisfies a filter already passed through Normalized.
func Matches(r domain.CampaignRecord, normalized domain.FilterState) bool {
	period := strings.ToLower(r.Period)
	target := strings.ToLower(r.Target)

	if normalized.Period != "" && !strings.Contains(period, normalized.Period) {
		return false
	}
	if normalized.Target != "" && !strings.Contains(target, normalized.Target) {
		return false
	}
	if term := normalized.SearchTerm; term != "" {
		return strings.Contains(strings.ToLower(r.Name), term) ||
			strings.Contains(period, term) ||
			strings.Contains(target, term)
	}
	return true
}
