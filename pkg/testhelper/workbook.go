package testhelper

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"
)

// WriteWorkbook writes a single-sheet workbook holding rows to path on fs.
// The first row is usually the header.
func WriteWorkbook(t *testing.T, fs afero.Fs, path string, rows ...[]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			t.Errorf("failed to close workbook: %v", err)
		}
	}()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("failed to name cell: %v", err)
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("failed to write row %d: %v", i+1, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("failed to serialize workbook: %v", err)
	}
	if err := afero.WriteFile(fs, path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("failed to write workbook %s: %v", path, err)
	}
}

// ReadWorkbook returns the raw cell values of the active sheet of the workbook at path.
func ReadWorkbook(t *testing.T, fs afero.Fs, path string) [][]string {
	t.Helper()
	file, err := fs.Open(path)
	if err != nil {
		t.Fatalf("failed to open workbook %s: %v", path, err)
	}
	defer file.Close()
	f, err := excelize.OpenReader(file)
	if err != nil {
		t.Fatalf("failed to read workbook %s: %v", path, err)
	}
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()), excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("failed to read rows of %s: %v", path, err)
	}
	return rows
}
