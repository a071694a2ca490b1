package workloadlib

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/arkcompiler/workload-tools/pkg/api"
	"github.com/arkcompiler/workload-tools/pkg/config"
	"github.com/arkcompiler/workload-tools/pkg/results"
)

// WorkloadConfigFlags locate the workload configuration file.
type WorkloadConfigFlags struct {
	ConfigFile string
}

func NewWorkloadConfigFlags() *WorkloadConfigFlags {
	return &WorkloadConfigFlags{}
}

func (f *WorkloadConfigFlags) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.ConfigFile, "config", f.ConfigFile, "Workload configuration file. Defaults are used for everything it does not set.")
}

// Load reads the configuration file from fs, or returns the defaults when none was given.
func (f *WorkloadConfigFlags) Load(fs afero.Fs) (*api.WorkloadConfig, error) {
	loaded, err := config.LoadWorkloadConfig(fs, f.ConfigFile)
	if err != nil {
		return nil, results.ForReason(results.ReasonLoadingConfig).ForError(err)
	}
	return loaded, nil
}

// ReportFlags override the report section of the workload configuration.
type ReportFlags struct {
	Boundary    float64
	Alignment   string
	MetricsFile string
	OutputDir   string
	TextLog     string
	HistoryDir  string
}

func NewReportFlags() *ReportFlags {
	defaults := api.DefaultWorkloadConfig().Report
	return &ReportFlags{
		Boundary:  defaults.Boundary,
		Alignment: string(defaults.Alignment),
	}
}

func (f *ReportFlags) BindFlags(fs *pflag.FlagSet) {
	fs.Float64Var(&f.Boundary, "boundary-value", f.Boundary, "Inferior boundary value: a case whose change in percent is below it is a regression.")
	fs.StringVar(&f.Alignment, "align-by", f.Alignment, fmt.Sprintf("How rows of the two result files are paired, one of %v.", sets.List(api.Alignments)))
	fs.StringVar(&f.MetricsFile, "metrics-file", f.MetricsFile, "If set, write report gauges to this file in the Prometheus text format.")
	fs.StringVar(&f.OutputDir, "output-dir", f.OutputDir, "Directory cleared before every report that receives the latest spreadsheet. Relative to the results directory.")
	fs.StringVar(&f.TextLog, "text-log", f.TextLog, "Append-only text log. Relative to the results directory.")
	fs.StringVar(&f.HistoryDir, "history-dir", f.HistoryDir, "Directory receiving dated spreadsheets. Defaults to the results directory.")
}

func (f *ReportFlags) Validate() error {
	if !api.Alignments.Has(f.Alignment) {
		return fmt.Errorf("--align-by must be one of %v", sets.List(api.Alignments))
	}
	return nil
}

// ApplyTo overrides the report configuration with every flag that was set
// on fs. The boundary and alignment only override a configuration file when
// given explicitly.
func (f *ReportFlags) ApplyTo(config *api.WorkloadConfig, fs *pflag.FlagSet) {
	if fs.Changed("boundary-value") {
		config.Report.Boundary = f.Boundary
	}
	if fs.Changed("align-by") {
		config.Report.Alignment = api.Alignment(f.Alignment)
	}
	if f.OutputDir != "" {
		config.Report.OutputDir = f.OutputDir
	}
	if f.TextLog != "" {
		config.Report.TextLog = f.TextLog
	}
	if f.HistoryDir != "" {
		config.Report.HistoryDir = f.HistoryDir
	}
}
