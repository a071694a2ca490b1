package dailyreport

import (
	"fmt"
	"math"
	"strconv"

	"github.com/arkcompiler/workload-tools/pkg/results"
)

// divisionByZeroCell is rendered instead of a percentage when the newer average is zero.
const divisionByZeroCell = "#DIV/0!"

// ComputeDeltas pairs newer and older row by row and computes the relative
// change of every case against the newer average:
//
//	percentage = (newer - older) / newer * 100
//
// A case is a regression when its two-decimal percentage is strictly below
// boundary. Records keep the order of the input rows. Differing row counts
// are rejected with an error wrapping ErrRowCountMismatch.
func ComputeDeltas(newer, older []ResultRow, boundary float64) ([]DeltaRecord, error) {
	if len(newer) != len(older) {
		return nil, results.ForReason(results.ReasonRowCountMismatch).WithError(ErrRowCountMismatch).Errorf("newer result file has %d rows, older has %d", len(newer), len(older))
	}
	deltas := make([]DeltaRecord, 0, len(newer))
	for i := range newer {
		deltas = append(deltas, computeDelta(newer[i], older[i], boundary))
	}
	return deltas, nil
}

func computeDelta(newer, older ResultRow, boundary float64) DeltaRecord {
	record := DeltaRecord{Case: newer.Case}
	if newer.Average == 0 {
		record.Percentage = divisionByZeroCell
		record.Err = results.ForReason(results.ReasonDivisionByZero).WithError(ErrDivisionByZero).Errorf("case %q has a zero newer average", newer.Case)
		return record
	}
	difference := (newer.Average - older.Average) / newer.Average * 100
	if math.IsNaN(difference) || math.IsInf(difference, 0) {
		record.Percentage = divisionByZeroCell
		record.Err = results.ForReason(results.ReasonInputFormat).Errorf("case %q has no finite change between %v and %v", newer.Case, older.Average, newer.Average)
		return record
	}
	record.Percentage = FormatPercentage(difference)
	// Regressions are decided on the rounded value.
	record.Value, _ = strconv.ParseFloat(record.Percentage[:len(record.Percentage)-1], 64)
	record.IsRegression = record.Value < boundary
	return record
}

// FormatPercentage renders a percentage with two decimals and a percent sign.
func FormatPercentage(value float64) string {
	return fmt.Sprintf("%.2f%%", value)
}
