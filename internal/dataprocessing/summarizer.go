package dataprocessing

import (
	"math"

	"github.com/shopspring/decimal"

	"sponsorama/pkg/contracts/domain"
)

// Rounding places of the summary averages.
const (
	grpPlaces       = 0
	coveragePlaces  = 1
	frequencyPlaces = 1
)

// Summarize computes the summary indicators of records.
//
// Averages are computed on exact decimal sums, then rounded half away from zero:
// AvgGRP to an integer, AvgCoverage and AvgFrequency to one decimal. The result
// therefore does not depend on record order. An empty input yields the zero value.
func Summarize(records []domain.CampaignRecord) domain.SummaryIndicators {
	if len(records) == 0 {
		return domain.SummaryIndicators{}
	}

	var (
		grp, coverage, frequency decimal.Decimal
		total                    int64
	)
	for _, r := range records {
		grp = grp.Add(toDecimal(r.GRPTotal))
		coverage = coverage.Add(toDecimal(r.Coverage))
		frequency = frequency.Add(toDecimal(r.Frequency))
		total += r.CountTotal
	}

	n := decimal.NewFromInt(int64(len(records)))
	return domain.SummaryIndicators{
		TotalCampaigns: len(records),
		AvgGRP:         mean(grp, n, grpPlaces),
		AvgCoverage:    mean(coverage, n, coveragePlaces),
		AvgFrequency:   mean(frequency, n, frequencyPlaces),
		TotalCount:     total,
	}
}

func mean(sum, n decimal.Decimal, places int32) float64 {
	return sum.Div(n).Round(places).InexactFloat64()
}

// toDecimal converts v exactly; NaN and infinities count as the numeric fallback.
func toDecimal(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.NewFromFloat(numericFallback)
	}
	return decimal.NewFromFloat(v)
}
