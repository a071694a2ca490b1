package dailyreport

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"

	clocktesting "k8s.io/utils/clock/testing"

	"github.com/arkcompiler/workload-tools/pkg/api"
	"github.com/arkcompiler/workload-tools/pkg/results"
	"github.com/arkcompiler/workload-tools/pkg/testhelper"
)

var renderTime = time.Date(2024, time.January, 3, 8, 30, 0, 0, time.UTC)

func newTestRenderer(t *testing.T, fs afero.Fs) *Renderer {
	t.Helper()
	r, err := NewRenderer(fs, clocktesting.NewFakePassiveClock(renderTime), api.DefaultWorkloadConfig().Report, "/work/data")
	if err != nil {
		t.Fatalf("failed to create renderer: %v", err)
	}
	return r
}

func TestNewRendererResolvesPaths(t *testing.T) {
	r := newTestRenderer(t, afero.NewMemMapFs())
	if r.outputDir != "/work/out" || r.textLog != "/work/out/pgo_daily.txt" || r.historyDir != "/work/data" {
		t.Errorf("unexpected paths: output=%s text log=%s history=%s", r.outputDir, r.textLog, r.historyDir)
	}

	config := api.DefaultWorkloadConfig().Report
	config.HistoryDir = "/archive"
	config.OutputDir = "report"
	r, err := NewRenderer(afero.NewMemMapFs(), clocktesting.NewFakePassiveClock(renderTime), config, "/work/data")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.outputDir != "/work/data/report" || r.historyDir != "/archive" {
		t.Errorf("unexpected paths: output=%s history=%s", r.outputDir, r.historyDir)
	}
}

func TestNewRendererRejectsClearedInputs(t *testing.T) {
	var testCases = []struct {
		name       string
		outputDir  string
		historyDir string
	}{
		{name: "output is the results directory", outputDir: "."},
		{name: "output resolves to the results directory", outputDir: "../data/"},
		{name: "absolute output is the results directory", outputDir: "/work/data"},
		{name: "output is the history directory", outputDir: "../out", historyDir: "../out"},
		{name: "output is the absolute history directory", outputDir: "/archive", historyDir: "/archive/"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			config := api.DefaultWorkloadConfig().Report
			config.OutputDir = testCase.outputDir
			config.HistoryDir = testCase.historyDir
			_, err := NewRenderer(afero.NewMemMapFs(), clocktesting.NewFakePassiveClock(renderTime), config, "/work/data")
			if !results.HasReason(err, results.ReasonLoadingConfig) {
				t.Errorf("expected a configuration error, got %v", err)
			}
		})
	}
}

func TestRendererClear(t *testing.T) {
	fs := afero.NewMemMapFs()
	touch(t, fs, "/work/out/pgo_daily.xlsx", "/work/out/stale.txt", "/work/out/keep/nested.txt", "/work/out/pgo_daily.txt")
	if err := newTestRenderer(t, fs).Clear(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for path, expected := range map[string]bool{
		"/work/out/pgo_daily.xlsx":  false,
		"/work/out/stale.txt":       false,
		"/work/out/keep/nested.txt": true,
		"/work/out/pgo_daily.txt":   true,
	} {
		exists, err := afero.Exists(fs, path)
		if err != nil {
			t.Fatal(err)
		}
		if exists != expected {
			t.Errorf("%s: expected exists=%v, got %v", path, expected, exists)
		}
	}
}

func TestRendererClearCreatesOutputDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := newTestRenderer(t, fs).Clear(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists, _ := afero.DirExists(fs, "/work/out"); !exists {
		t.Error("expected the output directory to be created")
	}
}

func TestRendererRender(t *testing.T) {
	fs := afero.NewMemMapFs()
	deltas := []DeltaRecord{
		{Case: "ai-astar", Percentage: "-25.00%", Value: -25, IsRegression: true},
		{Case: "crypto", Percentage: "3.10%", Value: 3.1},
		{Case: "empty", Percentage: "#DIV/0!", Err: ErrDivisionByZero},
	}
	artifacts, err := newTestRenderer(t, fs).Render(deltas)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testhelper.Diff(t, "artifacts", artifacts, &Artifacts{
		TextLog: "/work/out/pgo_daily.txt",
		Dated:   "/work/data/pgo_daily_20240103083000.xlsx",
		Latest:  "/work/out/pgo_daily.xlsx",
	})

	textLog, err := afero.ReadFile(fs, artifacts.TextLog)
	if err != nil {
		t.Fatal(err)
	}
	testhelper.Diff(t, "text log", string(textLog), "case:percentage\nai-astar-25.00%\ncrypto3.10%\nempty#DIV/0!\n")
	info, err := fs.Stat(artifacts.TextLog)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected the text log to be private, got %v", info.Mode())
	}

	testhelper.Diff(t, "latest spreadsheet", testhelper.ReadWorkbook(t, fs, artifacts.Latest), [][]string{
		{"case", "percentage"},
		{"ai-astar", "-25.00%"},
		{"crypto", "3.10%"},
		{"empty", "#DIV/0!"},
	})

	dated, err := afero.ReadFile(fs, artifacts.Dated)
	if err != nil {
		t.Fatal(err)
	}
	latest, err := afero.ReadFile(fs, artifacts.Latest)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dated, latest) {
		t.Error("expected the dated and latest spreadsheets to be identical")
	}

	book, err := excelize.OpenReader(bytes.NewReader(latest))
	if err != nil {
		t.Fatal(err)
	}
	defer book.Close()
	sheet := book.GetSheetName(book.GetActiveSheetIndex())
	for cell, highlighted := range map[string]bool{"B2": true, "B3": false, "B4": true, "A2": false} {
		styleID, err := book.GetCellStyle(sheet, cell)
		if err != nil {
			t.Fatalf("%s: %v", cell, err)
		}
		if !highlighted {
			if styleID != 0 {
				t.Errorf("%s: expected no style, got %d", cell, styleID)
			}
			continue
		}
		style, err := book.GetStyle(styleID)
		if err != nil {
			t.Fatalf("%s: %v", cell, err)
		}
		if style.Fill.Pattern != 1 || len(style.Fill.Color) != 1 || !strings.HasSuffix(strings.ToUpper(style.Fill.Color[0]), "FF0000") {
			t.Errorf("%s: expected a solid red fill, got %+v", cell, style.Fill)
		}
	}
}

func TestRendererRenderAppendsTextLog(t *testing.T) {
	fs := afero.NewMemMapFs()
	renderer := newTestRenderer(t, fs)
	deltas := []DeltaRecord{{Case: "ai-astar", Percentage: "1.00%", Value: 1}}
	for i := 0; i < 2; i++ {
		if _, err := renderer.Render(deltas); err != nil {
			t.Fatalf("render %d: unexpected error: %v", i, err)
		}
	}
	textLog, err := afero.ReadFile(fs, "/work/out/pgo_daily.txt")
	if err != nil {
		t.Fatal(err)
	}
	testhelper.Diff(t, "text log", string(textLog), strings.Repeat("case:percentage\nai-astar1.00%\n", 2))

	leftovers, err := afero.Glob(fs, filepath.Join("/work/out", ".*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(leftovers) != 0 {
		t.Errorf("expected no temporary files, got %v", leftovers)
	}
}

func TestRendererRenderFailureKeepsLatest(t *testing.T) {
	base := afero.NewMemMapFs()
	touch(t, base, "/work/out/pgo_daily.xlsx")
	renderer, err := NewRenderer(afero.NewReadOnlyFs(base), clocktesting.NewFakePassiveClock(renderTime), api.DefaultWorkloadConfig().Report, "/work/data")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := renderer.Render([]DeltaRecord{{Case: "a", Percentage: "0.00%"}}); err == nil {
		t.Fatal("expected an error rendering to a read-only filesystem")
	}
	if exists, _ := afero.Exists(base, "/work/out/pgo_daily.xlsx"); !exists {
		t.Error("expected the previous latest spreadsheet to survive a failed render")
	}
}

func TestRendererRenderFailureLeavesNoArtifacts(t *testing.T) {
	fs := afero.NewBasePathFs(afero.NewOsFs(), t.TempDir())
	// a directory in place of the latest spreadsheet makes moving it into place fail
	if err := fs.MkdirAll("/work/out/pgo_daily.xlsx", 0755); err != nil {
		t.Fatal(err)
	}
	if _, err := newTestRenderer(t, fs).Render([]DeltaRecord{{Case: "a", Percentage: "-25.00%", Value: -25, IsRegression: true}}); !results.HasReason(err, results.ReasonIOFailure) {
		t.Fatalf("expected an io failure, got %v", err)
	}
	for _, path := range []string{"/work/out/pgo_daily.txt", "/work/data/pgo_daily_20240103083000.xlsx"} {
		if exists, _ := afero.Exists(fs, path); exists {
			t.Errorf("expected %s not to exist after a failed render", path)
		}
	}
	for _, dir := range []string{"/work/out", "/work/data"} {
		leftovers, err := afero.Glob(fs, filepath.Join(dir, ".*"))
		if err != nil {
			t.Fatal(err)
		}
		if len(leftovers) != 0 {
			t.Errorf("expected no temporary files in %s, got %v", dir, leftovers)
		}
	}
}
