package dailyreport

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"k8s.io/utils/clock"

	"github.com/arkcompiler/workload-tools/pkg/workloadtest/workloadlib"
)

type DailyReportFlags struct {
	Config *workloadlib.WorkloadConfigFlags
	Report *workloadlib.ReportFlags

	Dir string
}

func NewDailyReportFlags() *DailyReportFlags {
	return &DailyReportFlags{
		Config: workloadlib.NewWorkloadConfigFlags(),
		Report: workloadlib.NewReportFlags(),
		Dir:    ".",
	}
}

func (f *DailyReportFlags) BindFlags(fs *pflag.FlagSet) {
	f.Config.BindFlags(fs)
	f.Report.BindFlags(fs)

	fs.StringVar(&f.Dir, "dir", f.Dir, "Directory holding the result files of the benchmark driver.")
}

func (f *DailyReportFlags) Validate() error {
	if f.Dir == "" {
		return fmt.Errorf("must provide --dir")
	}
	return f.Report.Validate()
}

// ToOptions loads the configuration and applies the flags explicitly set on fs.
func (f *DailyReportFlags) ToOptions(fs *pflag.FlagSet) (*DailyReportOptions, error) {
	filesystem := afero.NewOsFs()
	config, err := f.Config.Load(filesystem)
	if err != nil {
		return nil, err
	}
	f.Report.ApplyTo(config, fs)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return NewDailyReportOptions(filesystem, clock.RealClock{}, f.Dir, *config, f.Report.MetricsFile), nil
}

func NewDailyReportCommand() *cobra.Command {
	f := NewDailyReportFlags()

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Compare the two newest benchmark result files and report regressions",
		Long: `Compare the two newest benchmark result files of a directory.

Every case whose change in percent falls below the boundary value is a
regression. The comparison is appended to a text log and written to a
dated spreadsheet and to the latest spreadsheet, with regressions
highlighted.`,
		SilenceUsage: true,

		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if err := f.Validate(); err != nil {
				logrus.WithError(err).Fatal("Flags are invalid")
			}
			o, err := f.ToOptions(cmd.Flags())
			if err != nil {
				logrus.WithError(err).Fatal("Failed to build runtime options")
			}

			report, err := o.Run(ctx)
			if err != nil {
				logrus.WithError(err).Fatal("Command failed")
			}
			if report.Outcome == OutcomeRejected {
				fmt.Fprintln(cmd.OutOrStdout(), report.Rejection)
			}
			return nil
		},

		Args: workloadlib.NoArgs,
	}

	f.BindFlags(cmd.Flags())
	return cmd
}
