package config

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"

	"github.com/arkcompiler/workload-tools/pkg/api"
)

// LoadWorkloadConfig reads a workload configuration file, overlaying its
// content on the defaults. An empty path yields the defaults.
func LoadWorkloadConfig(fs afero.Fs, path string) (*api.WorkloadConfig, error) {
	config := api.DefaultWorkloadConfig()
	if path != "" {
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, fmt.Errorf("failed to read workload config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to load workload config %s: %w", path, err)
		}
		logrus.WithField("path", path).Debug("Loaded workload configuration.")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workload config: %w", err)
	}
	return &config, nil
}
