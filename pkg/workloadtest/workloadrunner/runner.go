package workloadrunner

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"k8s.io/utils/clock"

	"github.com/arkcompiler/workload-tools/pkg/api"
	"github.com/arkcompiler/workload-tools/pkg/results"
	"github.com/arkcompiler/workload-tools/pkg/workloadtest/dailyreport"
	"github.com/arkcompiler/workload-tools/pkg/workloadtest/workloadlib"
)

// WorkloadRunnerOptions runs the benchmark driver over the workload corpus
// and optionally reports regressions of its results.
type WorkloadRunnerOptions struct {
	fs       afero.Fs
	clock    clock.Clock
	repos    workloadlib.CorpusRepository
	executor workloadlib.Executor
	reporter results.Reporter

	config      api.WorkloadConfig
	codePath    string
	toolsType   string
	runCount    string
	runAOT      bool
	report      bool
	metricsFile string
}

// Run performs a single workload run. Driver failures are logged and
// reported but do not fail the run; failing to prepare the corpus or to
// produce the report does.
func (o *WorkloadRunnerOptions) Run(ctx context.Context) error {
	start := o.clock.Now()
	dataDir, err := workloadlib.PrepareCorpus(ctx, o.fs, o.repos, o.config.Corpus, o.codePath)
	if err != nil {
		o.reporter.Report(err, 0)
		return err
	}

	var driverErr error
	if o.runAOT {
		logrus.Infof("execute %s is currently not supported", o.config.Driver.AOTScript)
	} else {
		if _, err := workloadlib.WriteToolsPath(o.fs, dataDir, o.config.Toolchain, o.codePath, o.toolsType); err != nil {
			o.reporter.Report(err, 0)
			return err
		}
		if driverErr = workloadlib.RunDriver(ctx, o.executor, o.config.Driver, dataDir, o.runCount); driverErr != nil {
			logrus.WithError(driverErr).Error("Benchmark driver did not succeed.")
		}
	}
	logrus.Infof("used time is: %s", o.clock.Since(start))

	if !o.report {
		o.reporter.Report(driverErr, 0)
		return nil
	}
	report, err := dailyreport.NewDailyReportOptions(o.fs, o.clock, dataDir, o.config, o.metricsFile).Run(ctx)
	if err != nil {
		o.reporter.Report(err, 0)
		return fmt.Errorf("failed to generate the daily report: %w", err)
	}
	if report.Outcome == dailyreport.OutcomeRejected {
		logrus.WithError(report.Rejection).Warn("Daily report was not generated.")
	}
	o.reporter.Report(driverErr, report.Regressions())
	return nil
}

// RunScheduled performs a run on every activation of schedule until ctx is
// done. Activations that fire while a run is in progress wait for it.
func (o *WorkloadRunnerOptions) RunScheduled(ctx context.Context, schedule string) error {
	c := cron.New()
	var mu sync.Mutex
	if _, err := c.AddFunc(schedule, func() {
		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		if err := o.Run(ctx); err != nil {
			logrus.WithError(err).Error("Scheduled workload run failed.")
		}
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	logrus.WithField("schedule", schedule).Info("Waiting for scheduled workload runs.")
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	logrus.Info("Stopped scheduled workload runs.")
	return nil
}
