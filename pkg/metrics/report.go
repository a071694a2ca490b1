package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/arkcompiler/workload-tools/pkg/results"
)

// CaseDelta is the change of one workload case.
type CaseDelta struct {
	Case       string
	Percentage float64
	Regression bool
	// Valid is false when no percentage could be computed.
	Valid bool
}

// ReportSummary holds the aggregate values of a report.
type ReportSummary struct {
	Regressions int
	Invalid     int
	Mean        float64
	Median      float64
}

// NewReportRegistry creates a registry holding the gauges of a report.
func NewReportRegistry(boundary float64, deltas []CaseDelta, summary ReportSummary) (*prometheus.Registry, error) {
	caseDelta := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "workload_case_delta_percent",
		Help: "Relative change of a workload case between the two newest result files.",
	}, []string{"case"})
	caseRegression := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "workload_case_regression",
		Help: "1 if the workload case changed beyond the boundary, 0 otherwise.",
	}, []string{"case"})
	boundaryGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "workload_report_boundary_percent",
		Help: "Boundary below which a change is a regression.",
	})
	regressions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "workload_report_regressions",
		Help: "Number of regressed workload cases.",
	})
	invalid := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "workload_report_invalid_cases",
		Help: "Number of workload cases without a computable change.",
	})
	aggregate := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "workload_report_delta_percent",
		Help: "Aggregated relative change over all valid workload cases.",
	}, []string{"aggregation"})

	registry := prometheus.NewRegistry()
	for _, collector := range []prometheus.Collector{caseDelta, caseRegression, boundaryGauge, regressions, invalid, aggregate} {
		if err := registry.Register(collector); err != nil {
			return nil, err
		}
	}

	for _, delta := range deltas {
		if !delta.Valid {
			continue
		}
		caseDelta.WithLabelValues(delta.Case).Set(delta.Percentage)
		if delta.Regression {
			caseRegression.WithLabelValues(delta.Case).Set(1)
		} else {
			caseRegression.WithLabelValues(delta.Case).Set(0)
		}
	}
	boundaryGauge.Set(boundary)
	regressions.Set(float64(summary.Regressions))
	invalid.Set(float64(summary.Invalid))
	aggregate.WithLabelValues("mean").Set(summary.Mean)
	aggregate.WithLabelValues("median").Set(summary.Median)
	return registry, nil
}

// WriteReportTextfile writes the gauges of a report in the text exposition
// format, for collection by a node exporter textfile collector.
func WriteReportTextfile(path string, boundary float64, deltas []CaseDelta, summary ReportSummary) error {
	registry, err := NewReportRegistry(boundary, deltas, summary)
	if err != nil {
		return results.ForReason(results.ReasonIOFailure).WithError(err).Errorf("failed to register report metrics")
	}
	if err := prometheus.WriteToTextfile(path, registry); err != nil {
		return results.ForReason(results.ReasonIOFailure).WithError(err).Errorf("failed to write report metrics to %s", path)
	}
	return nil
}
