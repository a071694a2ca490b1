package dailyreport

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"

	"k8s.io/utils/clock"

	"github.com/arkcompiler/workload-tools/pkg/api"
	"github.com/arkcompiler/workload-tools/pkg/results"
)

const (
	textLogHeader  = "case:percentage\n"
	highlightColor = "FF0000"
)

var reportHeader = []interface{}{"case", "percentage"}

// Renderer owns the report artifacts: the append-only text log, the dated
// spreadsheet in the history directory and the latest spreadsheet in the
// output directory.
type Renderer struct {
	fs    afero.Fs
	clock clock.PassiveClock

	outputDir   string
	historyDir  string
	textLog     string
	latestName  string
	datedPrefix string
}

// NewRenderer creates a Renderer. Relative paths in config are resolved
// against baseDir, which also receives dated spreadsheets when no history
// directory is configured. The output directory is cleared on every report,
// so it may be neither baseDir nor the history directory.
func NewRenderer(fs afero.Fs, clock clock.PassiveClock, config api.ReportConfig, baseDir string) (*Renderer, error) {
	resolve := func(path string) string {
		if path == "" || filepath.IsAbs(path) {
			return path
		}
		return filepath.Join(baseDir, path)
	}
	historyDir := resolve(config.HistoryDir)
	if historyDir == "" {
		historyDir = baseDir
	}
	outputDir := resolve(config.OutputDir)
	switch filepath.Clean(outputDir) {
	case filepath.Clean(baseDir):
		return nil, results.ForReason(results.ReasonLoadingConfig).Errorf("output directory %s is the results directory and would be cleared", outputDir)
	case filepath.Clean(historyDir):
		return nil, results.ForReason(results.ReasonLoadingConfig).Errorf("output directory %s is the history directory and would be cleared", outputDir)
	}
	return &Renderer{
		fs:          fs,
		clock:       clock,
		outputDir:   outputDir,
		historyDir:  historyDir,
		textLog:     resolve(config.TextLog),
		latestName:  config.LatestName,
		datedPrefix: config.DatedPrefix,
	}, nil
}

// Clear removes the regular files of the output directory, creating it when
// missing. Subdirectories and the text log are kept.
func (r *Renderer) Clear() error {
	if err := r.fs.MkdirAll(r.outputDir, 0755); err != nil {
		return results.ForReason(results.ReasonIOFailure).WithError(err).Errorf("failed to create output directory %s", r.outputDir)
	}
	entries, err := afero.ReadDir(r.fs, r.outputDir)
	if err != nil {
		return results.ForReason(results.ReasonIOFailure).WithError(err).Errorf("failed to list output directory %s", r.outputDir)
	}
	for _, entry := range entries {
		if !entry.Mode().IsRegular() {
			continue
		}
		path := filepath.Join(r.outputDir, entry.Name())
		if filepath.Clean(path) == filepath.Clean(r.textLog) {
			continue
		}
		if err := r.fs.Remove(path); err != nil {
			return results.ForReason(results.ReasonIOFailure).WithError(err).Errorf("failed to remove %s", path)
		}
		logrus.WithField("file", path).Debug("Removed previous report output.")
	}
	return nil
}

// Render writes deltas to every artifact. Both spreadsheets are staged
// before either is moved into place and the text log is appended last, so a
// failed render leaves none of the three behind.
func (r *Renderer) Render(deltas []DeltaRecord) (*Artifacts, error) {
	content, err := renderWorkbook(deltas)
	if err != nil {
		return nil, results.ForReason(results.ReasonIOFailure).WithError(err).Errorf("failed to render report spreadsheet")
	}
	artifacts := &Artifacts{
		TextLog: r.textLog,
		Dated:   filepath.Join(r.historyDir, r.datedPrefix+r.clock.Now().Format(api.ResultTimestampLayout)+".xlsx"),
		Latest:  filepath.Join(r.outputDir, r.latestName),
	}

	destinations := []string{artifacts.Dated, artifacts.Latest}
	var staged []string
	for _, path := range destinations {
		tmp, err := r.stage(path, content)
		if err != nil {
			r.remove(staged...)
			return nil, err
		}
		staged = append(staged, tmp)
	}
	for i, path := range destinations {
		if err := r.fs.Rename(staged[i], path); err != nil {
			r.remove(staged[i:]...)
			r.remove(destinations[:i]...)
			return nil, results.ForReason(results.ReasonIOFailure).WithError(err).Errorf("failed to move report into %s", path)
		}
	}
	if err := r.appendTextLog(deltas); err != nil {
		r.remove(destinations...)
		return nil, err
	}
	return artifacts, nil
}

func (r *Renderer) appendTextLog(deltas []DeltaRecord) error {
	var buf strings.Builder
	buf.WriteString(textLogHeader)
	for _, delta := range deltas {
		buf.WriteString(delta.Case + delta.Percentage + "\n")
	}
	if err := r.fs.MkdirAll(filepath.Dir(r.textLog), 0755); err != nil {
		return results.ForReason(results.ReasonIOFailure).WithError(err).Errorf("failed to create directory for %s", r.textLog)
	}
	f, err := r.fs.OpenFile(r.textLog, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return results.ForReason(results.ReasonIOFailure).WithError(err).Errorf("failed to open text log %s", r.textLog)
	}
	if _, err := f.WriteString(buf.String()); err != nil {
		_ = f.Close()
		return results.ForReason(results.ReasonIOFailure).WithError(err).Errorf("failed to append to text log %s", r.textLog)
	}
	return results.ForReason(results.ReasonIOFailure).ForError(f.Close())
}

// stage writes content to a temporary file next to path and returns its name.
func (r *Renderer) stage(path string, content []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := r.fs.MkdirAll(dir, 0755); err != nil {
		return "", results.ForReason(results.ReasonIOFailure).WithError(err).Errorf("failed to create directory %s", dir)
	}
	tmp, err := afero.TempFile(r.fs, dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return "", results.ForReason(results.ReasonIOFailure).WithError(err).Errorf("failed to create temporary file for %s", path)
	}
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		r.remove(tmp.Name())
		return "", results.ForReason(results.ReasonIOFailure).WithError(err).Errorf("failed to write %s", path)
	}
	if err := tmp.Close(); err != nil {
		r.remove(tmp.Name())
		return "", results.ForReason(results.ReasonIOFailure).WithError(err).Errorf("failed to write %s", path)
	}
	return tmp.Name(), nil
}

func (r *Renderer) remove(paths ...string) {
	for _, path := range paths {
		if err := r.fs.Remove(path); err != nil && !os.IsNotExist(err) {
			logrus.WithError(err).WithField("file", path).Warn("Failed to remove partial report output.")
		}
	}
}

// renderWorkbook builds the single-sheet report and serialises it.
func renderWorkbook(deltas []DeltaRecord) ([]byte, error) {
	book := excelize.NewFile()
	defer book.Close()
	sheet := book.GetSheetName(book.GetActiveSheetIndex())
	highlight, err := book.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{highlightColor}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create highlight style: %w", err)
	}
	header := reportHeader
	if err := book.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for i, delta := range deltas {
		row := []interface{}{delta.Case, delta.Percentage}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := book.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write case %q: %w", delta.Case, err)
		}
		if !delta.Flagged() {
			continue
		}
		percentageCell, err := excelize.CoordinatesToCellName(2, i+2)
		if err != nil {
			return nil, err
		}
		if err := book.SetCellStyle(sheet, percentageCell, percentageCell, highlight); err != nil {
			return nil, fmt.Errorf("failed to highlight case %q: %w", delta.Case, err)
		}
	}
	var buf bytes.Buffer
	if err := book.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize report: %w", err)
	}
	return buf.Bytes(), nil
}
