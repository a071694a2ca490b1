package results

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// Options holds the configuration options for connecting to the remote aggregation server
type Options struct {
	address  string
	username string
	password string
}

// Bind adds flags for the options
func (o *Options) Bind(fs *pflag.FlagSet) {
	fs.StringVar(&o.address, "report-address", "", "Address of the aggregate reporting server. Reporting is disabled when unset.")
	fs.StringVar(&o.username, "report-username", "", "Username for the aggregate reporting server.")
	fs.StringVar(&o.password, "report-password-file", "", "File holding the password for the aggregate reporting server.")
}

// Validate ensures that options are set correctly
func (o *Options) Validate() error {
	numSet := 0
	for _, field := range []string{o.username, o.password} {
		if field != "" {
			numSet = numSet + 1
		}
	}

	if numSet != 0 && numSet != 2 {
		return errors.New("--report-{username|password-file} must be set together or not at all")
	}
	return nil
}

// Reporter returns a Reporter for the workload at the given revision, based on the options
func (o *Options) Reporter(workload, revision string) (Reporter, error) {
	if o.address == "" {
		return &noopReporter{}, nil
	}
	var password string
	if o.password != "" {
		raw, err := os.ReadFile(o.password)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %q: %w", o.password, err)
		}
		password = strings.TrimSpace(string(raw))
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 500 * time.Millisecond
	client.Logger = nil
	return &reporter{
		client:   client,
		address:  o.address,
		username: o.username,
		password: password,
		workload: workload,
		revision: revision,
	}, nil
}

// Request holds the data used to report a run outcome to an aggregation server
type Request struct {
	// Workload is the name of the workload corpus that was run
	Workload string `json:"workload"`
	// Revision is the corpus revision that was run
	Revision string `json:"revision"`
	// State is "succeeded" or "failed"
	State string `json:"state"`
	// Reason is a comma-delimited list of colon-delimited reason chains
	Reason string `json:"reason,omitempty"`
	// Regressions is the number of cases flagged by the regression report
	Regressions int `json:"regressions"`
}

const (
	StateSucceeded string = "succeeded"
	StateFailed    string = "failed"
)

type Reporter interface {
	// Report sends the outcome of a run to an aggregation server.
	// This action is best-effort and errors are logged but not exposed.
	// Err may be nil in which case a success is reported.
	Report(err error, regressions int)
}

type noopReporter struct{}

func (r *noopReporter) Report(error, int) {}

type reporter struct {
	client             *retryablehttp.Client
	username, password string
	address            string

	workload, revision string
}

func (r *reporter) Report(err error, regressions int) {
	state := StateSucceeded
	if err != nil {
		state = StateFailed
	}
	request := Request{
		Workload:    r.workload,
		Revision:    r.revision,
		State:       state,
		Reason:      FullReason(err),
		Regressions: regressions,
	}
	data, err := json.Marshal(request)
	if err != nil {
		logrus.WithError(err).Debug("could not marshal report request")
		return
	}
	logrus.Infof("Reporting workload state %q with reason %q", request.State, request.Reason)
	req, err := retryablehttp.NewRequest(http.MethodPost, fmt.Sprintf("%s/result", strings.TrimSuffix(r.address, "/")), bytes.NewReader(data))
	if err != nil {
		logrus.WithError(err).Debug("could not create report request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if r.username != "" {
		req.SetBasicAuth(r.username, r.password)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		logrus.WithError(err).Warn("could not send report request")
		return
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logrus.WithError(err).Debug("could not close report response")
		}
	}()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		logrus.WithField("status", resp.StatusCode).Warnf("response for report was not 200: %s", body)
	}
}
