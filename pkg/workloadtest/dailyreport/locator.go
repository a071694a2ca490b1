package dailyreport

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/mattn/go-zglob"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/arkcompiler/workload-tools/pkg/api"
	"github.com/arkcompiler/workload-tools/pkg/results"
)

// ScanResult holds the usable result files of a directory, newest first.
type ScanResult struct {
	Files []ResultFile
	// Skipped holds an input format error for every matching file
	// whose name carries no parseable timestamp.
	Skipped []error
}

// LatestPair returns the two newest result files. ok is false when fewer
// than two usable files were found.
func (s *ScanResult) LatestPair() (newer, older ResultFile, ok bool) {
	if len(s.Files) < 2 {
		return ResultFile{}, ResultFile{}, false
	}
	return s.Files[0], s.Files[1], true
}

// ScanResultFiles lists the files in dir whose names match the configured
// pattern and orders them by their embedded timestamp, newest first.
// Files with equal timestamps keep their lexical order.
func ScanResultFiles(fs afero.Fs, dir string, config api.ResultsConfig) (*ScanResult, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, results.ForReason(results.ReasonIOFailure).WithError(err).Errorf("failed to list result directory %s", dir)
	}
	scan := &ScanResult{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		matched, err := zglob.Match(config.Pattern, entry.Name())
		if err != nil {
			return nil, results.ForReason(results.ReasonInputFormat).WithError(err).Errorf("invalid result file pattern %q", config.Pattern)
		}
		if !matched {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		timestamp, err := ParseResultTimestamp(entry.Name(), config)
		if err != nil {
			logrus.WithField("file", path).WithError(err).Debug("Skipping result file without a timestamp.")
			scan.Skipped = append(scan.Skipped, err)
			continue
		}
		scan.Files = append(scan.Files, ResultFile{Path: path, Timestamp: timestamp})
	}
	sort.SliceStable(scan.Files, func(i, j int) bool {
		return scan.Files[i].Timestamp.After(scan.Files[j].Timestamp)
	})
	return scan, nil
}

// ParseResultTimestamp extracts the timestamp embedded in a result file name.
func ParseResultTimestamp(name string, config api.ResultsConfig) (time.Time, error) {
	start, end := len(name)+config.TimestampStart, len(name)+config.TimestampEnd
	if start < 0 || end < start || end > len(name) {
		return time.Time{}, results.ForReason(results.ReasonInputFormat).Errorf("result file name %q is too short to hold a timestamp", name)
	}
	timestamp, err := time.Parse(config.TimestampLayout, name[start:end])
	if err != nil {
		return time.Time{}, results.ForReason(results.ReasonInputFormat).WithError(err).Errorf("result file name %q holds no timestamp", name)
	}
	return timestamp, nil
}

func (f ResultFile) String() string {
	return fmt.Sprintf("%s@%s", f.Path, f.Timestamp.Format(api.ResultTimestampLayout))
}
