package dailyreport

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	clocktesting "k8s.io/utils/clock/testing"

	"github.com/arkcompiler/workload-tools/pkg/api"
	"github.com/arkcompiler/workload-tools/pkg/results"
	"github.com/arkcompiler/workload-tools/pkg/testhelper"
)

const dataDir = "/work/data"

type caseAverage struct {
	name    string
	average float64
}

func writeResultFile(t *testing.T, fs afero.Fs, name string, cases ...caseAverage) {
	t.Helper()
	rows := [][]interface{}{{"case", "run 1", "average"}}
	for _, c := range cases {
		rows = append(rows, []interface{}{c.name, c.average, c.average})
	}
	testhelper.WriteWorkbook(t, fs, filepath.Join(dataDir, name), rows...)
}

func newTestOptions(fs afero.Fs, clock *clocktesting.FakePassiveClock, mutate func(*api.WorkloadConfig)) *DailyReportOptions {
	config := api.DefaultWorkloadConfig()
	if mutate != nil {
		mutate(&config)
	}
	return NewDailyReportOptions(fs, clock, dataDir, config, "")
}

func TestRunReportsRegression(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeResultFile(t, fs, "pgo_data_20240101000000.xlsx", caseAverage{"ai-astar", 100})
	writeResultFile(t, fs, "pgo_data_20240102000000.xlsx", caseAverage{"ai-astar", 80})

	report, err := newTestOptions(fs, clocktesting.NewFakePassiveClock(renderTime), nil).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Outcome != OutcomeRendered {
		t.Fatalf("expected a rendered report, got %s", report.Outcome)
	}
	if filepath.Base(report.Newer.Path) != "pgo_data_20240102000000.xlsx" || filepath.Base(report.Older.Path) != "pgo_data_20240101000000.xlsx" {
		t.Errorf("unexpected pair %s, %s", report.Newer, report.Older)
	}
	testhelper.Diff(t, "latest spreadsheet", testhelper.ReadWorkbook(t, fs, report.Artifacts.Latest), [][]string{
		{"case", "percentage"},
		{"ai-astar", "-25.00%"},
	})
	if report.Regressions() != 1 || !report.Deltas[0].Flagged() {
		t.Errorf("expected ai-astar to regress, got %+v", report.Deltas)
	}
}

func TestRunIdenticalAverages(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeResultFile(t, fs, "pgo_data_20240101000000.xlsx", caseAverage{"ai-astar", 42}, caseAverage{"base64", 7})
	writeResultFile(t, fs, "pgo_data_20240102000000.xlsx", caseAverage{"ai-astar", 42}, caseAverage{"base64", 7})

	report, err := newTestOptions(fs, clocktesting.NewFakePassiveClock(renderTime), nil).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testhelper.Diff(t, "latest spreadsheet", testhelper.ReadWorkbook(t, fs, report.Artifacts.Latest), [][]string{
		{"case", "percentage"},
		{"ai-astar", "0.00%"},
		{"base64", "0.00%"},
	})
	if report.Regressions() != 0 {
		t.Errorf("expected no regressions, got %d", report.Regressions())
	}
}

func TestRunRoundTripsDeltas(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeResultFile(t, fs, "pgo_data_20240101000000.xlsx", caseAverage{"a", 10}, caseAverage{"b", 200}, caseAverage{"c", 3})
	writeResultFile(t, fs, "pgo_data_20240102000000.xlsx", caseAverage{"a", 12}, caseAverage{"b", 150}, caseAverage{"c", 0})

	report, err := newTestOptions(fs, clocktesting.NewFakePassiveClock(renderTime), nil).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := [][]string{{"case", "percentage"}}
	for _, delta := range report.Deltas {
		expected = append(expected, []string{delta.Case, delta.Percentage})
	}
	testhelper.Diff(t, "latest spreadsheet", testhelper.ReadWorkbook(t, fs, report.Artifacts.Latest), expected)
	if report.Summary.Invalid != 1 || report.Summary.Regressions != 1 {
		t.Errorf("expected one invalid case and one regression, got %+v", report.Summary)
	}
}

func TestRunRejectsRowCountMismatch(t *testing.T) {
	fs := afero.NewMemMapFs()
	touch(t, fs, "/work/out/pgo_daily.xlsx")
	writeResultFile(t, fs, "pgo_data_20240101000000.xlsx", caseAverage{"a", 1}, caseAverage{"b", 1}, caseAverage{"c", 1}, caseAverage{"d", 1})
	writeResultFile(t, fs, "pgo_data_20240102000000.xlsx", caseAverage{"a", 1}, caseAverage{"b", 1}, caseAverage{"c", 1}, caseAverage{"d", 1}, caseAverage{"e", 1})

	report, err := newTestOptions(fs, clocktesting.NewFakePassiveClock(renderTime), nil).Run(context.Background())
	if err != nil {
		t.Fatalf("expected a mismatch to be an outcome, got error %v", err)
	}
	if report.Outcome != OutcomeRejected {
		t.Fatalf("expected a rejected report, got %s", report.Outcome)
	}
	if !results.HasReason(report.Rejection, results.ReasonRowCountMismatch) {
		t.Errorf("expected a row count mismatch, got %v", report.Rejection)
	}
	if report.Artifacts != nil || len(report.Deltas) != 0 {
		t.Errorf("expected no artifacts, got %+v", report.Artifacts)
	}
	for _, path := range []string{"/work/out/pgo_daily.xlsx", "/work/out/pgo_daily.txt", "/work/data/pgo_daily_20240103083000.xlsx"} {
		if exists, _ := afero.Exists(fs, path); exists {
			t.Errorf("expected %s not to exist", path)
		}
	}
}

func TestRunSkipsWithoutTwoResultFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	touch(t, fs, "/work/out/pgo_daily.xlsx")
	writeResultFile(t, fs, "pgo_data_20240101000000.xlsx", caseAverage{"a", 1})
	touch(t, fs, filepath.Join(dataDir, "pgo_data_broken.xlsx"))

	report, err := newTestOptions(fs, clocktesting.NewFakePassiveClock(renderTime), nil).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Outcome != OutcomeSkipped || report.Artifacts != nil {
		t.Errorf("expected a skipped report, got %+v", report)
	}
	if len(report.Skipped) != 1 {
		t.Errorf("expected the broken file to be skipped, got %v", report.Skipped)
	}
	if exists, _ := afero.Exists(fs, "/work/out/pgo_daily.xlsx"); exists {
		t.Error("expected the output directory to be cleared")
	}
}

func TestRunAppendsTextLog(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeResultFile(t, fs, "pgo_data_20240101000000.xlsx", caseAverage{"ai-astar", 100}, caseAverage{"base64", 10}, caseAverage{"crypto", 4})
	writeResultFile(t, fs, "pgo_data_20240102000000.xlsx", caseAverage{"ai-astar", 80}, caseAverage{"base64", 11}, caseAverage{"crypto", 4})

	clock := clocktesting.NewFakePassiveClock(renderTime)
	first, err := newTestOptions(fs, clock, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("first run: unexpected error: %v", err)
	}
	firstLatest, err := afero.ReadFile(fs, first.Artifacts.Latest)
	if err != nil {
		t.Fatal(err)
	}
	clock.SetTime(renderTime.Add(24 * time.Hour))
	second, err := newTestOptions(fs, clock, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("second run: unexpected error: %v", err)
	}

	testhelper.Diff(t, "deltas", second.Deltas, first.Deltas, testhelper.EquateErrorMessage)
	testhelper.Diff(t, "latest spreadsheet", testhelper.ReadWorkbook(t, fs, second.Artifacts.Latest), testhelper.ReadWorkbook(t, fs, first.Artifacts.Dated))
	secondLatest, err := afero.ReadFile(fs, second.Artifacts.Latest)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(firstLatest, secondLatest) {
		t.Error("expected the latest spreadsheet to be byte-identical across runs over the same result files")
	}
	for _, dated := range []string{first.Artifacts.Dated, second.Artifacts.Dated} {
		if exists, _ := afero.Exists(fs, dated); !exists {
			t.Errorf("expected dated spreadsheet %s to be kept", dated)
		}
	}

	textLog, err := afero.ReadFile(fs, second.Artifacts.TextLog)
	if err != nil {
		t.Fatal(err)
	}
	testhelper.CompareWithFixture(t, textLog)
}

func TestRunRejectsOutputOverInputs(t *testing.T) {
	var testCases = []struct {
		name   string
		mutate func(*api.WorkloadConfig)
	}{
		{
			name: "output is the results directory",
			mutate: func(config *api.WorkloadConfig) {
				config.Report.OutputDir = "."
			},
		},
		{
			name: "output is the history directory",
			mutate: func(config *api.WorkloadConfig) {
				config.Report.OutputDir = "/archive"
				config.Report.HistoryDir = "/archive"
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			writeResultFile(t, fs, "pgo_data_20240101000000.xlsx", caseAverage{"ai-astar", 100})
			writeResultFile(t, fs, "pgo_data_20240102000000.xlsx", caseAverage{"ai-astar", 80})
			touch(t, fs, "/archive/pgo_daily_20240102083000.xlsx")

			_, err := newTestOptions(fs, clocktesting.NewFakePassiveClock(renderTime), testCase.mutate).Run(context.Background())
			if !results.HasReason(err, results.ReasonLoadingConfig) {
				t.Fatalf("expected a configuration error, got %v", err)
			}
			for _, path := range []string{
				filepath.Join(dataDir, "pgo_data_20240101000000.xlsx"),
				filepath.Join(dataDir, "pgo_data_20240102000000.xlsx"),
				"/archive/pgo_daily_20240102083000.xlsx",
			} {
				if exists, _ := afero.Exists(fs, path); !exists {
					t.Errorf("expected %s to survive", path)
				}
			}
		})
	}
}

func TestRunAlignsByCase(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeResultFile(t, fs, "pgo_data_20240101000000.xlsx", caseAverage{"base64", 10}, caseAverage{"ai-astar", 100}, caseAverage{"retired", 1})
	writeResultFile(t, fs, "pgo_data_20240102000000.xlsx", caseAverage{"ai-astar", 80}, caseAverage{"base64", 10})

	report, err := newTestOptions(fs, clocktesting.NewFakePassiveClock(renderTime), func(config *api.WorkloadConfig) {
		config.Report.Alignment = api.AlignByCase
	}).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Outcome != OutcomeRendered {
		t.Fatalf("expected a rendered report, got %s", report.Outcome)
	}
	testhelper.Diff(t, "latest spreadsheet", testhelper.ReadWorkbook(t, fs, report.Artifacts.Latest), [][]string{
		{"case", "percentage"},
		{"ai-astar", "-25.00%"},
		{"base64", "0.00%"},
	})
	testhelper.Diff(t, "anomalies", report.Anomalies, []string{`case "retired" is missing from the newer result file`})
}

func TestRunPositionalAnomalies(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeResultFile(t, fs, "pgo_data_20240101000000.xlsx", caseAverage{"base64", 10}, caseAverage{"ai-astar", 100})
	writeResultFile(t, fs, "pgo_data_20240102000000.xlsx", caseAverage{"ai-astar", 80}, caseAverage{"base64", 10})

	report, err := newTestOptions(fs, clocktesting.NewFakePassiveClock(renderTime), nil).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Anomalies) != 2 {
		t.Errorf("expected both rows to be reported as misaligned, got %v", report.Anomalies)
	}
	if len(report.Deltas) != 2 || report.Deltas[0].Case != "ai-astar" {
		t.Errorf("expected rows to be paired by position, got %+v", report.Deltas)
	}
}

func TestRunWritesMetrics(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeResultFile(t, fs, "pgo_data_20240101000000.xlsx", caseAverage{"ai-astar", 100})
	writeResultFile(t, fs, "pgo_data_20240102000000.xlsx", caseAverage{"ai-astar", 80})

	metricsFile := filepath.Join(t.TempDir(), "report.prom")
	o := newTestOptions(fs, clocktesting.NewFakePassiveClock(renderTime), nil)
	o.metricsFile = metricsFile
	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, err := os.ReadFile(metricsFile)
	if err != nil {
		t.Fatalf("expected a metrics file: %v", err)
	}
	for _, expected := range []string{
		`workload_case_delta_percent{case="ai-astar"} -25`,
		`workload_report_regressions 1`,
		`workload_report_boundary_percent -10`,
	} {
		if !bytes.Contains(raw, []byte(expected)) {
			t.Errorf("expected metrics to contain %q, got:\n%s", expected, strings.TrimSpace(string(raw)))
		}
	}
}

func TestRunFailsOnUnreadableResults(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeResultFile(t, fs, "pgo_data_20240101000000.xlsx", caseAverage{"a", 1})
	touch(t, fs, filepath.Join(dataDir, "pgo_data_20240102000000.xlsx"))

	_, err := newTestOptions(fs, clocktesting.NewFakePassiveClock(renderTime), nil).Run(context.Background())
	if !results.HasReason(err, results.ReasonInputFormat) {
		t.Errorf("expected an input format error, got %v", err)
	}
}
