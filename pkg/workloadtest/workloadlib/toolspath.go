package workloadlib

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/arkcompiler/workload-tools/pkg/api"
	"github.com/arkcompiler/workload-tools/pkg/results"
)

// RenderToolsPath renders the toolchain pointer file the driver reads.
func RenderToolsPath(config api.ToolchainConfig, toolsPath, toolsType string) string {
	lines := []string{
		"--case-path " + config.CasePath,
		"--ts-tools-path " + toolsPath,
		"--tools-type " + toolsType,
		"--swift-tools-path " + config.SwiftToolsPath,
		"--android-ndk " + config.AndroidNDK,
		"--Ninja-ReleaseAssert " + config.NinjaReleaseAssert,
		"end",
	}
	return strings.Join(lines, "\n")
}

// WriteToolsPath replaces the toolchain pointer file in dataDir and returns its path.
func WriteToolsPath(fs afero.Fs, dataDir string, config api.ToolchainConfig, toolsPath, toolsType string) (string, error) {
	path := filepath.Join(dataDir, config.FileName)
	f, err := fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return "", results.ForReason(results.ReasonToolchainConfig).WithError(err).Errorf("could not open %s", path)
	}
	if _, err := f.WriteString(RenderToolsPath(config, toolsPath, toolsType)); err != nil {
		_ = f.Close()
		return "", results.ForReason(results.ReasonToolchainConfig).WithError(err).Errorf("could not write %s", path)
	}
	if err := f.Close(); err != nil {
		return "", results.ForReason(results.ReasonToolchainConfig).WithError(err).Errorf("could not close %s", path)
	}
	return path, nil
}
