package api

import (
	"errors"
	"fmt"
	"path/filepath"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/apimachinery/pkg/util/sets"
)

// WorkloadConfig describes everything the workload tooling needs to
// know about the corpus, the external benchmark driver and the daily
// regression report. It is loaded once per invocation and never
// mutated afterwards.
type WorkloadConfig struct {
	// Corpus describes where the workload corpus comes from
	// and where it is checked out.
	Corpus CorpusConfig `json:"corpus"`
	// Toolchain holds the content of the toolchain pointer
	// file consumed by the driver.
	Toolchain ToolchainConfig `json:"toolchain"`
	// Driver describes the external benchmark driver invocation.
	Driver DriverConfig `json:"driver"`
	// Results describes the result files the driver produces.
	Results ResultsConfig `json:"results"`
	// Report configures the regression report.
	Report ReportConfig `json:"report"`
}

// CorpusConfig pins the workload corpus to a revision.
type CorpusConfig struct {
	// GitURL is the clone URL of the corpus repository.
	GitURL string `json:"git_url"`
	// Revision is the commit the corpus is checked out at.
	Revision string `json:"revision"`
	// Directory is where the corpus lives, relative to the code path.
	Directory string `json:"directory"`
	// ExecutablePatterns are globs, relative to the corpus directory,
	// of files that must be executable before the driver runs.
	ExecutablePatterns []string `json:"executable_patterns,omitempty"`
}

// ToolchainConfig is rendered into the toolchain pointer file.
type ToolchainConfig struct {
	// FileName is the pointer file name inside the corpus directory.
	FileName           string `json:"file_name"`
	CasePath           string `json:"case_path"`
	SwiftToolsPath     string `json:"swift_tools_path"`
	AndroidNDK         string `json:"android_ndk"`
	NinjaReleaseAssert string `json:"ninja_release_assert"`
}

// DriverConfig describes how the benchmark driver is invoked.
type DriverConfig struct {
	// Shell runs Script.
	Shell string `json:"shell"`
	// Script is the PGO driver script in the corpus directory.
	Script string `json:"script"`
	// AOTScript is the AOT driver script, which is not supported yet.
	AOTScript string `json:"aot_script"`
	// Flags are passed before the run count flag.
	Flags []string `json:"flags,omitempty"`
	// RunCountFlag precedes the run count value.
	RunCountFlag string `json:"run_count_flag"`
}

// ResultsConfig describes how result files are found and dated.
type ResultsConfig struct {
	// Pattern is a glob matched against file names in the results directory.
	Pattern string `json:"pattern"`
	// TimestampStart and TimestampEnd are negative offsets from the end
	// of the file name delimiting the embedded timestamp.
	TimestampStart int `json:"timestamp_start"`
	TimestampEnd   int `json:"timestamp_end"`
	// TimestampLayout is the time layout of the embedded timestamp.
	TimestampLayout string `json:"timestamp_layout"`
}

// Alignment selects how rows of the two result files are paired.
type Alignment string

const (
	// AlignByPosition pairs rows with the same index.
	AlignByPosition Alignment = "position"
	// AlignByCase pairs rows with the same case name.
	AlignByCase Alignment = "case"
)

// Alignments lists the supported alignment modes.
var Alignments = sets.New[string](string(AlignByPosition), string(AlignByCase))

// ReportConfig configures the regression report.
type ReportConfig struct {
	// Boundary is the percentage below which a case is a regression.
	Boundary float64 `json:"boundary"`
	// OutputDir is cleared before every report and receives the latest spreadsheet.
	OutputDir string `json:"output_dir"`
	// TextLog is the append-only text log.
	TextLog string `json:"text_log"`
	// HistoryDir receives the dated spreadsheets. Empty means the results directory.
	HistoryDir string `json:"history_dir,omitempty"`
	// LatestName is the file name of the spreadsheet that is overwritten every run.
	LatestName string `json:"latest_name"`
	// DatedPrefix prefixes the creation timestamp in dated spreadsheet names.
	DatedPrefix string `json:"dated_prefix"`
	// Alignment selects how rows are paired.
	Alignment Alignment `json:"alignment,omitempty"`
}

const (
	DefaultCorpusGitURL   = "https://gitee.com/xliu-huanwei/ark-workload.git"
	DefaultCorpusRevision = "90236fa3aa853db7af56d80cc6391432a51a1601"
	DefaultBoundary       = -10
	DefaultRunCount       = "10"
	DefaultToolsType      = "dev"
	ResultTimestampLayout = "20060102150405"
)

// DefaultWorkloadConfig returns the configuration the tooling uses
// when no configuration file is given.
func DefaultWorkloadConfig() WorkloadConfig {
	return WorkloadConfig{
		Corpus: CorpusConfig{
			GitURL:             DefaultCorpusGitURL,
			Revision:           DefaultCorpusRevision,
			Directory:          filepath.Join("arkcompiler", "ets_runtime", "test", "workloadtest", "data"),
			ExecutablePatterns: []string{"*.sh", "*.py"},
		},
		Toolchain: ToolchainConfig{
			FileName:           "toolspath.txt",
			CasePath:           "ts-swift-workload",
			SwiftToolsPath:     "~/tools/swift-5.7.3-RELEASE-ubuntu22.04/usr/bin",
			AndroidNDK:         "~/apple/android-ndk-r25c",
			NinjaReleaseAssert: "~/apple/build/Ninja-ReleaseAssert",
		},
		Driver: DriverConfig{
			Shell:        "sh",
			Script:       "run_pgo.sh",
			AOTScript:    "run_aot.sh",
			Flags:        []string{"--build", "--excel"},
			RunCountFlag: "--run-count",
		},
		Results: ResultsConfig{
			Pattern:         "pgo_data_*.xlsx",
			TimestampStart:  -19,
			TimestampEnd:    -5,
			TimestampLayout: ResultTimestampLayout,
		},
		Report: ReportConfig{
			Boundary:    DefaultBoundary,
			OutputDir:   filepath.Join("..", "out"),
			TextLog:     filepath.Join("..", "out", "pgo_daily.txt"),
			LatestName:  "pgo_daily.xlsx",
			DatedPrefix: "pgo_daily_",
			Alignment:   AlignByPosition,
		},
	}
}

// Validate ensures the configuration is usable.
func (c *WorkloadConfig) Validate() error {
	var errs []error
	if c.Corpus.GitURL == "" {
		errs = append(errs, errors.New("corpus.git_url must be set"))
	}
	if c.Corpus.Revision == "" {
		errs = append(errs, errors.New("corpus.revision must be set"))
	}
	if c.Driver.Script == "" {
		errs = append(errs, errors.New("driver.script must be set"))
	}
	if c.Toolchain.FileName == "" {
		errs = append(errs, errors.New("toolchain.file_name must be set"))
	}
	if err := c.Results.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Report.Validate(); err != nil {
		errs = append(errs, err)
	}
	return utilerrors.NewAggregate(errs)
}

// Validate ensures the timestamp window and pattern are usable.
func (c *ResultsConfig) Validate() error {
	var errs []error
	if c.Pattern == "" {
		errs = append(errs, errors.New("results.pattern must be set"))
	}
	if c.TimestampStart >= 0 || c.TimestampEnd > 0 || c.TimestampStart >= c.TimestampEnd {
		errs = append(errs, fmt.Errorf("results timestamp window [%d:%d] must be a non-empty range of negative offsets", c.TimestampStart, c.TimestampEnd))
	} else if c.TimestampLayout != "" && len(c.TimestampLayout) != c.TimestampEnd-c.TimestampStart {
		errs = append(errs, fmt.Errorf("results timestamp window [%d:%d] does not fit layout %q", c.TimestampStart, c.TimestampEnd, c.TimestampLayout))
	}
	if c.TimestampLayout == "" {
		errs = append(errs, errors.New("results.timestamp_layout must be set"))
	}
	return utilerrors.NewAggregate(errs)
}

// Validate ensures the report destinations are set and that clearing the
// output directory cannot remove result files or dated spreadsheets.
func (c *ReportConfig) Validate() error {
	var errs []error
	switch {
	case c.OutputDir == "":
		errs = append(errs, errors.New("report.output_dir must be set"))
	case filepath.Clean(c.OutputDir) == ".":
		errs = append(errs, errors.New("report.output_dir must not be the results directory"))
	case c.HistoryDir != "" && filepath.Clean(c.OutputDir) == filepath.Clean(c.HistoryDir):
		errs = append(errs, errors.New("report.output_dir must not be the history directory"))
	}
	if c.TextLog == "" {
		errs = append(errs, errors.New("report.text_log must be set"))
	}
	if c.LatestName == "" {
		errs = append(errs, errors.New("report.latest_name must be set"))
	}
	if c.Alignment != "" && !Alignments.Has(string(c.Alignment)) {
		errs = append(errs, fmt.Errorf("report.alignment must be one of %v, got %q", sets.List(Alignments), c.Alignment))
	}
	return utilerrors.NewAggregate(errs)
}
