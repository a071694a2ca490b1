package workloadtest

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/arkcompiler/workload-tools/pkg/workloadtest/dailyreport"
	"github.com/arkcompiler/workload-tools/pkg/workloadtest/workloadrunner"
)

// Usage
// 1. `workload-test run --code-path <runtime tree>` checks out the corpus at its
//    pinned revision next to the runtime tests, writes toolspath.txt and runs
//    the PGO driver, which leaves a pgo_data_<timestamp>.xlsx behind.
// 2. `--report` (or `workload-test report --dir <data dir>`) compares the two
//    newest result files and writes the daily report to ../out.

func NewWorkloadTestCommand() *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:  "workload-test",
		Long: `Commands associated with the PGO workload benchmark`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid --log-level: %w", err)
			}
			logrus.SetLevel(level)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", logrus.InfoLevel.String(), "Level at which to log output.")

	cmd.AddCommand(workloadrunner.NewWorkloadRunnerCommand())
	cmd.AddCommand(dailyreport.NewDailyReportCommand())

	return cmd
}
