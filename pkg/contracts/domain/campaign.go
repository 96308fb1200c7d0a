package domain

import "strings"

// CampaignRecord is one validated advertising campaign extracted from a workbook.
// Records are immutable once built; copies are handed out, never pointers into a dataset.
type CampaignRecord struct {
	ID         string  `json:"id" validate:"required,uuid"`
	Name       string  `json:"name" validate:"required"`
	Period     string  `json:"period"`
	Target     string  `json:"target"`
	CountA     int64   `json:"count_a" validate:"min=0"`
	CountB     int64   `json:"count_b" validate:"min=0"`
	CountTotal int64   `json:"count_total" validate:"min=0"`
	GRPA       float64 `json:"grp_a" validate:"min=0"`
	GRPB       float64 `json:"grp_b" validate:"min=0"`
	GRPTotal   float64 `json:"grp_total" validate:"gt=0"`
	Coverage   float64 `json:"coverage"`
	Frequency  float64 `json:"frequency" validate:"min=0"`
}

// Valid reports whether the record may be admitted to a dataset.
func (r CampaignRecord) Valid() bool {
	return r.Name != "" && r.GRPTotal > 0
}

// FilterState holds the three independent facets applied to a dataset.
// An empty facet places no constraint.
type FilterState struct {
	Period     string `json:"period" validate:"max=200"`
	Target     string `json:"target" validate:"max=200"`
	SearchTerm string `json:"search_term" validate:"max=200"`
}

// IsEmpty reports whether no facet constrains the records.
func (f FilterState) IsEmpty() bool {
	return f.Period == "" && f.Target == "" && f.SearchTerm == ""
}

// Normalized returns the filter with every facet lower-cased once,
// ready for repeated case-insensitive substring matching.
func (f FilterState) Normalized() FilterState {
	return FilterState{
		Period:     strings.ToLower(f.Period),
		Target:     strings.ToLower(f.Target),
		SearchTerm: strings.ToLower(f.SearchTerm),
	}
}

// FilterPatch is a partial filter update; nil fields are left untouched.
type FilterPatch struct {
	Period     *string `json:"period,omitempty" validate:"omitempty,max=200"`
	Target     *string `json:"target,omitempty" validate:"omitempty,max=200"`
	SearchTerm *string `json:"search_term,omitempty" validate:"omitempty,max=200"`
}

// Apply merges the patch into f and returns the result.
func (p FilterPatch) Apply(f FilterState) FilterState {
	if p.Period != nil {
		f.Period = *p.Period
	}
	if p.Target != nil {
		f.Target = *p.Target
	}
	if p.SearchTerm != nil {
		f.SearchTerm = *p.SearchTerm
	}
	return f
}

// SummaryIndicators are the rolled-up indicators of a record set. Never stored.
type SummaryIndicators struct {
	TotalCampaigns int     `json:"total_campaigns"`
	AvgGRP         float64 `json:"avg_grp"`
	AvgCoverage    float64 `json:"avg_coverage"`
	AvgFrequency   float64 `json:"avg_frequency"`
	TotalCount     int64   `json:"total_count"`
}

// FileFailure names an input file that contributed no records and why.
type FileFailure struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// IngestionResult is the combined outcome of processing a batch of files.
type IngestionResult struct {
	Records  []CampaignRecord `json:"records"`
	Failures []FileFailure    `json:"failures"`
	Success  bool             `json:"success"`
	Message  string           `json:"message"`
}

// FacetOptions lists the values a user can pick for each categorical facet.
type FacetOptions struct {
	Periods            []string       `json:"periods"`
	Targets            []string       `json:"targets"`
	TargetDistribution map[string]int `json:"target_distribution"`
}
