package workloadrunner

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"k8s.io/utils/clock"

	"github.com/arkcompiler/workload-tools/pkg/api"
	"github.com/arkcompiler/workload-tools/pkg/git"
	"github.com/arkcompiler/workload-tools/pkg/results"
	"github.com/arkcompiler/workload-tools/pkg/workloadtest/workloadlib"
)

type WorkloadRunnerFlags struct {
	Config  *workloadlib.WorkloadConfigFlags
	Report  *workloadlib.ReportFlags
	Results results.Options

	CodePath  string
	RunAOT    bool
	RunReport bool
	ToolsType string
	RunCount  string
	Schedule  string
}

func NewWorkloadRunnerFlags() *WorkloadRunnerFlags {
	return &WorkloadRunnerFlags{
		Config:    workloadlib.NewWorkloadConfigFlags(),
		Report:    workloadlib.NewReportFlags(),
		ToolsType: api.DefaultToolsType,
		RunCount:  api.DefaultRunCount,
	}
}

func (f *WorkloadRunnerFlags) BindFlags(fs *pflag.FlagSet) {
	f.Config.BindFlags(fs)
	f.Report.BindFlags(fs)
	f.Results.Bind(fs)

	fs.StringVar(&f.CodePath, "code-path", f.CodePath, "Path of the runtime source tree the corpus is checked out into.")
	fs.BoolVar(&f.RunAOT, "run-aot", f.RunAOT, "Run the AOT driver instead of the PGO driver.")
	fs.BoolVar(&f.RunReport, "report", f.RunReport, "Compare the two newest result files after the run.")
	fs.StringVar(&f.ToolsType, "tools-type", f.ToolsType, "Tools type written to the toolchain pointer file.")
	fs.StringVar(&f.RunCount, "run-count", f.RunCount, "Number of runs of every case.")
	fs.StringVar(&f.Schedule, "schedule", f.Schedule, "Cron schedule, e.g. '0 2 * * *'. When set, runs repeat on the schedule until interrupted.")
}

func (f *WorkloadRunnerFlags) Validate() error {
	if count, err := strconv.Atoi(f.RunCount); err != nil || count < 1 {
		return fmt.Errorf("--run-count must be a positive number, got %q", f.RunCount)
	}
	if f.ToolsType == "" {
		return fmt.Errorf("--tools-type must not be empty")
	}
	if err := f.Report.Validate(); err != nil {
		return err
	}
	return f.Results.Validate()
}

func (f *WorkloadRunnerFlags) ToOptions(fs *pflag.FlagSet) (*WorkloadRunnerOptions, error) {
	filesystem := afero.NewOsFs()
	config, err := f.Config.Load(filesystem)
	if err != nil {
		return nil, err
	}
	f.Report.ApplyTo(config, fs)
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := git.NewClient(logrus.WithField("client", "git"))
	if err != nil {
		return nil, err
	}
	reporter, err := f.Results.Reporter("pgo", config.Corpus.Revision)
	if err != nil {
		return nil, err
	}

	return &WorkloadRunnerOptions{
		fs:          filesystem,
		clock:       clock.RealClock{},
		repos:       workloadlib.NewGitRepository(client),
		executor:    workloadlib.NewProcessExecutor(),
		reporter:    reporter,
		config:      *config,
		codePath:    f.CodePath,
		toolsType:   f.ToolsType,
		runCount:    f.RunCount,
		runAOT:      f.RunAOT,
		report:      f.RunReport,
		metricsFile: f.Report.MetricsFile,
	}, nil
}

func NewWorkloadRunnerCommand() *cobra.Command {
	f := NewWorkloadRunnerFlags()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the workload benchmark driver",
		Long: `Check out the workload corpus at its pinned revision, run the PGO
benchmark driver over it and, with --report, compare the two newest
result files.`,
		SilenceUsage: true,

		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := f.Validate(); err != nil {
				logrus.WithError(err).Fatal("Flags are invalid")
			}
			o, err := f.ToOptions(cmd.Flags())
			if err != nil {
				logrus.WithError(err).Fatal("Failed to build runtime options")
			}

			if f.Schedule != "" {
				if err := o.RunScheduled(ctx, f.Schedule); err != nil {
					logrus.WithError(err).Fatal("Command failed")
				}
				return nil
			}
			if err := o.Run(ctx); err != nil {
				logrus.WithError(err).Fatal("Command failed")
			}
			return nil
		},

		Args: workloadlib.NoArgs,
	}

	f.BindFlags(cmd.Flags())
	return cmd
}
