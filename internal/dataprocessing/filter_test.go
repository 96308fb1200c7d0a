package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sponsorama/pkg/contracts/domain"
)

func TestApply(t *testing.T) {
	records := []domain.CampaignRecord{
		rec("Spot Été", "S1 2024", "Hommes 25-49", 10, 0, 0, 0),
		rec("Radio", "S2 2024", "Femmes", 10, 0, 0, 0),
		rec("Affichage", "S1 2025", "hommes", 10, 0, 0, 0),
		rec("Digital", "T3 2024", "Ensemble", 10, 0, 0, 0),
	}

	tests := []struct {
		name   string
		filter domain.FilterState
		want   []string
	}{
		{"empty filter is identity", domain.FilterState{}, []string{"Spot Été", "Radio", "Affichage", "Digital"}},
		{"target case-insensitive", domain.FilterState{Target: "hommes"}, []string{"Spot Été", "Affichage"}},
		{"period substring", domain.FilterState{Period: "s1"}, []string{"Spot Été", "Affichage"}},
		{"facets combine with AND", domain.FilterState{Period: "2024", Target: "HOMMES"}, []string{"Spot Été"}},
		{"search matches name", domain.FilterState{SearchTerm: "radio"}, []string{"Radio"}},
		{"search matches period", domain.FilterState{SearchTerm: "t3"}, []string{"Digital"}},
		{"search matches target", domain.FilterState{SearchTerm: "femmes"}, []string{"Radio"}},
		{"search with accents", domain.FilterState{SearchTerm: "été"}, []string{"Spot Été"}},
		{"no match", domain.FilterState{Target: "enfants"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(Apply(records, tt.filter)))
		})
	}
}

func TestApply_Idempotent(t *testing.T) {
	records := []domain.CampaignRecord{
		rec("A", "S1", "Hommes", 1, 0, 0, 0),
		rec("B", "S1", "Femmes", 1, 0, 0, 0),
		rec("C", "S2", "Hommes", 1, 0, 0, 0),
	}
	filter := domain.FilterState{Target: "hommes"}

	once := Apply(records, filter)
	assert.Equal(t, once, Apply(once, filter))
	assert.Len(t, once, 2)
}

func TestApply_DoesNotAliasInput(t *testing.T) {
	records := []domain.CampaignRecord{rec("A", "", "", 1, 0, 0, 0)}

	out := Apply(records, domain.FilterState{})
	out[0].Name = "changed"
	assert.Equal(t, "A", records[0].Name)
}
