// The purpose of this tool is to run the PGO workload benchmark over a
// pinned revision of the workload corpus and to report regressions
// between the two newest benchmark results.
package main

import (
	goflag "flag"
	"os"

	"github.com/spf13/pflag"

	"github.com/arkcompiler/workload-tools/pkg/workloadtest"
)

func main() {
	cmd := workloadtest.NewWorkloadTestCommand()
	pflag.CommandLine.AddGoFlagSet(goflag.CommandLine)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
