package dataprocessing

import (
	"sort"

	"sponsorama/pkg/contracts/domain"
)

// Facets lists the distinct non-empty periods and targets of records, sorted
// ascending, with the number of records per target.
func Facets(records []domain.CampaignRecord) domain.FacetOptions {
	periods := make(map[string]struct{})
	distribution := make(map[string]int)

	for _, r := range records {
		if r.Period != "" {
			periods[r.Period] = struct{}{}
		}
		if r.Target != "" {
			distribution[r.Target]++
		}
	}

	opts := domain.FacetOptions{
		Periods:            make([]string, 0, len(periods)),
		Targets:            make([]string, 0, len(distribution)),
		TargetDistribution: distribution,
	}
	for p := range periods {
		opts.Periods = append(opts.Periods, p)
	}
	for t := range distribution {
		opts.Targets = append(opts.Targets, t)
	}
	sort.Strings(opts.Periods)
	sort.Strings(opts.Targets)
	return opts
}
