package dailyreport

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/utils/clock"

	"github.com/arkcompiler/workload-tools/pkg/api"
	"github.com/arkcompiler/workload-tools/pkg/metrics"
)

// DailyReportOptions compares the two newest result files of a directory.
type DailyReportOptions struct {
	fs          afero.Fs
	clock       clock.PassiveClock
	dir         string
	results     api.ResultsConfig
	report      api.ReportConfig
	metricsFile string
}

// NewDailyReportOptions creates options for reporting on the result files in dir.
func NewDailyReportOptions(fs afero.Fs, clock clock.PassiveClock, dir string, config api.WorkloadConfig, metricsFile string) *DailyReportOptions {
	return &DailyReportOptions{
		fs:          fs,
		clock:       clock,
		dir:         dir,
		results:     config.Results,
		report:      config.Report,
		metricsFile: metricsFile,
	}
}

// Run produces the report. Having fewer than two result files and having
// result files that cannot be compared are outcomes, not errors; errors are
// only returned when inputs or artifacts cannot be read or written.
func (o *DailyReportOptions) Run(ctx context.Context) (*Report, error) {
	logger := logrus.WithField("dir", o.dir)
	renderer, err := NewRenderer(o.fs, o.clock, o.report, o.dir)
	if err != nil {
		return nil, err
	}
	if err := renderer.Clear(); err != nil {
		return nil, err
	}

	scan, err := ScanResultFiles(o.fs, o.dir, o.results)
	if err != nil {
		return nil, err
	}
	report := &Report{Outcome: OutcomeSkipped, Skipped: scan.Skipped}
	if len(scan.Skipped) > 0 {
		logger.WithError(utilerrors.NewAggregate(scan.Skipped)).Warnf("Ignored %d result files.", len(scan.Skipped))
	}
	newer, older, ok := scan.LatestPair()
	if !ok {
		logger.WithField("files", len(scan.Files)).Info("Fewer than two result files, no report generated.")
		return report, nil
	}
	report.Newer, report.Older = newer, older
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	newerRows, err := ReadResultRows(o.fs, newer)
	if err != nil {
		return nil, err
	}
	olderRows, err := ReadResultRows(o.fs, older)
	if err != nil {
		return nil, err
	}

	switch o.report.Alignment {
	case api.AlignByCase:
		newerRows, olderRows, report.Anomalies = alignByCase(newerRows, olderRows)
	default:
		if len(newerRows) == len(olderRows) {
			report.Anomalies = positionalAnomalies(newerRows, olderRows)
		}
	}
	for _, anomaly := range report.Anomalies {
		logger.WithField("anomaly", anomaly).Warn("Result files are not aligned.")
	}

	report.Deltas, err = ComputeDeltas(newerRows, olderRows, o.report.Boundary)
	if errors.Is(err, ErrRowCountMismatch) {
		logger.WithError(err).Warn("Cannot compare result files, no report generated.")
		report.Outcome = OutcomeRejected
		report.Rejection = err
		return report, nil
	} else if err != nil {
		return nil, err
	}
	logger.Infof("generate report dependent files: [%s %s]", newer.Path, older.Path)
	var invalid []error
	for _, delta := range report.Deltas {
		if delta.Err != nil {
			invalid = append(invalid, delta.Err)
		}
	}
	if len(invalid) > 0 {
		logger.WithError(utilerrors.NewAggregate(invalid)).Warnf("Could not compute the change of %d cases.", len(invalid))
	}

	report.Artifacts, err = renderer.Render(report.Deltas)
	if err != nil {
		return nil, err
	}
	report.Outcome = OutcomeRendered
	report.Summary = Summarize(report.Deltas)
	logger.WithFields(logrus.Fields{
		"cases":       report.Summary.Cases,
		"regressions": report.Summary.Regressions,
		"invalid":     report.Summary.Invalid,
		"mean":        report.Summary.Mean,
		"median":      report.Summary.Median,
		"latest":      report.Artifacts.Latest,
		"dated":       report.Artifacts.Dated,
	}).Info("Generated daily report.")

	if o.metricsFile != "" {
		if err := metrics.WriteReportTextfile(o.metricsFile, o.report.Boundary, toCaseDeltas(report.Deltas), metrics.ReportSummary{
			Regressions: report.Summary.Regressions,
			Invalid:     report.Summary.Invalid,
			Mean:        report.Summary.Mean,
			Median:      report.Summary.Median,
		}); err != nil {
			return nil, err
		}
	}
	return report, nil
}

func toCaseDeltas(deltas []DeltaRecord) []metrics.CaseDelta {
	converted := make([]metrics.CaseDelta, 0, len(deltas))
	for _, delta := range deltas {
		converted = append(converted, metrics.CaseDelta{
			Case:       delta.Case,
			Percentage: delta.Value,
			Regression: delta.IsRegression,
			Valid:      delta.Err == nil,
		})
	}
	return converted
}
