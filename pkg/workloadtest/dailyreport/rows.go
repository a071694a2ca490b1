package dailyreport

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/arkcompiler/workload-tools/pkg/results"
)

// ReadResultRows reads the cases of the active sheet of a result file.
// The first row is a header. Each following row contributes its first
// cell as the case and its last non-empty cell as the average.
func ReadResultRows(fs afero.Fs, file ResultFile) ([]ResultRow, error) {
	f, err := fs.Open(file.Path)
	if err != nil {
		return nil, results.ForReason(results.ReasonIOFailure).WithError(err).Errorf("failed to open result file %s", file.Path)
	}
	defer f.Close()
	book, err := excelize.OpenReader(f)
	if err != nil {
		return nil, results.ForReason(results.ReasonInputFormat).WithError(err).Errorf("failed to read result file %s", file.Path)
	}
	defer book.Close()
	sheet := book.GetSheetName(book.GetActiveSheetIndex())
	raw, err := book.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, results.ForReason(results.ReasonInputFormat).WithError(err).Errorf("failed to read sheet %q of %s", sheet, file.Path)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	rows := make([]ResultRow, 0, len(raw)-1)
	for i, cells := range raw[1:] {
		row, err := parseResultRow(cells)
		if err != nil {
			return nil, results.ForReason(results.ReasonInputFormat).WithError(err).Errorf("invalid row %d of %s", i+2, file.Path)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseResultRow(cells []string) (ResultRow, error) {
	last := len(cells) - 1
	for last >= 0 && strings.TrimSpace(cells[last]) == "" {
		last--
	}
	if last < 1 {
		return ResultRow{}, fmt.Errorf("expected a case and an average, got %d cells", last+1)
	}
	average, err := strconv.ParseFloat(strings.TrimSpace(cells[last]), 64)
	if err != nil {
		return ResultRow{}, fmt.Errorf("average %q is not a number", cells[last])
	}
	return ResultRow{Case: cells[0], Average: average}, nil
}

// positionalAnomalies pairs rows by index and describes every index where
// the case names of the two files differ.
func positionalAnomalies(newer, older []ResultRow) []string {
	var anomalies []string
	for i := 0; i < len(newer) && i < len(older); i++ {
		if newer[i].Case != older[i].Case {
			anomalies = append(anomalies, fmt.Sprintf("row %d compares case %q with case %q", i+1, newer[i].Case, older[i].Case))
		}
	}
	return anomalies
}

// alignByCase re-keys both row sequences by case name. The returned
// sequences are equally long and follow the order of newer; cases present
// in only one file are dropped and described as anomalies.
func alignByCase(newer, older []ResultRow) (alignedNewer, alignedOlder []ResultRow, anomalies []string) {
	olderByCase := make(map[string]ResultRow, len(older))
	olderCases := sets.New[string]()
	for _, row := range older {
		if olderCases.Has(row.Case) {
			anomalies = append(anomalies, fmt.Sprintf("case %q appears more than once in the older result file", row.Case))
			continue
		}
		olderCases.Insert(row.Case)
		olderByCase[row.Case] = row
	}
	newerCases := sets.New[string]()
	for _, row := range newer {
		if newerCases.Has(row.Case) {
			anomalies = append(anomalies, fmt.Sprintf("case %q appears more than once in the newer result file", row.Case))
			continue
		}
		newerCases.Insert(row.Case)
		match, ok := olderByCase[row.Case]
		if !ok {
			anomalies = append(anomalies, fmt.Sprintf("case %q is missing from the older result file", row.Case))
			continue
		}
		alignedNewer = append(alignedNewer, row)
		alignedOlder = append(alignedOlder, match)
	}
	for _, name := range sets.List(olderCases.Difference(newerCases)) {
		anomalies = append(anomalies, fmt.Sprintf("case %q is missing from the newer result file", name))
	}
	return alignedNewer, alignedOlder, anomalies
}
