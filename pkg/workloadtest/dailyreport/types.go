package dailyreport

import (
	"errors"
	"time"
)

var (
	// ErrRowCountMismatch is wrapped by ComputeDeltas when the result files
	// hold a different number of cases.
	ErrRowCountMismatch = errors.New("cannot compare, row count mismatch")
	// ErrDivisionByZero is carried by a DeltaRecord whose newer average is zero.
	ErrDivisionByZero = errors.New("division by zero")
)

// ResultFile is a timestamped result spreadsheet produced by the benchmark driver.
type ResultFile struct {
	Path      string
	Timestamp time.Time
}

// ResultRow is one case of a result file: its first and last cell.
type ResultRow struct {
	Case    string
	Average float64
}

// DeltaRecord is the change of one case between the older and the newer result file.
type DeltaRecord struct {
	Case string `json:"case"`
	// Percentage is the rendered change, e.g. "-25.00%".
	Percentage string `json:"percentage"`
	// Value is Percentage as a number.
	Value        float64 `json:"value"`
	IsRegression bool    `json:"is_regression"`
	// Err is set when no percentage could be computed for the case.
	Err error `json:"-"`
}

// Flagged determines whether the record is highlighted in the report.
func (d DeltaRecord) Flagged() bool {
	return d.IsRegression || d.Err != nil
}

// Outcome is the result of a report run.
type Outcome string

const (
	// OutcomeSkipped means fewer than two result files were found.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeRejected means the result files could not be compared.
	OutcomeRejected Outcome = "rejected"
	// OutcomeRendered means the report artifacts were written.
	OutcomeRendered Outcome = "rendered"
)

// Artifacts are the files a rendered report produced.
type Artifacts struct {
	TextLog string
	Dated   string
	Latest  string
}

// Summary condenses the valid deltas of a report.
type Summary struct {
	Cases       int
	Regressions int
	Invalid     int
	Mean        float64
	Median      float64
	Worst       float64
	Best        float64
}

// Report is the result of one report run.
type Report struct {
	Outcome Outcome
	// Newer and Older are the compared result files, unset when skipped.
	Newer, Older ResultFile
	Deltas       []DeltaRecord
	// Anomalies describe cases that could not be paired reliably.
	Anomalies []string
	// Skipped holds result files that were ignored while scanning.
	Skipped   []error
	Summary   Summary
	Artifacts *Artifacts
	// Rejection explains a rejected outcome.
	Rejection error
}

// Regressions is the number of regressed cases in the report.
func (r *Report) Regressions() int {
	if r == nil {
		return 0
	}
	return r.Summary.Regressions
}
