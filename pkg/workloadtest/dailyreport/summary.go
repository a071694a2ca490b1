package dailyreport

import (
	"github.com/montanaflynn/stats"
)

// Summarize condenses deltas. Records without a percentage only count as invalid.
func Summarize(deltas []DeltaRecord) Summary {
	summary := Summary{Cases: len(deltas)}
	var values stats.Float64Data
	for _, delta := range deltas {
		if delta.Err != nil {
			summary.Invalid++
			continue
		}
		if delta.IsRegression {
			summary.Regressions++
		}
		values = append(values, delta.Value)
	}
	if len(values) == 0 {
		return summary
	}
	// errors are only returned for empty input
	summary.Mean, _ = stats.Round(mustFloat(values.Mean()), 2)
	summary.Median, _ = stats.Round(mustFloat(values.Median()), 2)
	summary.Worst = mustFloat(values.Min())
	summary.Best = mustFloat(values.Max())
	return summary
}

func mustFloat(value float64, _ error) float64 {
	return value
}
