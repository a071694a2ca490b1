/*
Copyright 2017 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package git provides a client that clones and updates the workload corpus.
// This has been forked from kubernetes/test-infra and reduced to the
// operations a pinned checkout needs.
package git

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Client can clone repos and open existing clones.
type Client struct {
	// logger will be used to log git operations and must be set.
	logger *logrus.Entry
	// git is the path to the git binary.
	git string
	// retryDelay is the initial delay between attempts of network operations.
	retryDelay time.Duration
}

// NewClient returns a client using the git binary found in $PATH.
func NewClient(logger *logrus.Entry) (*Client, error) {
	g, err := exec.LookPath("git")
	if err != nil {
		return nil, fmt.Errorf("could not find git binary: %w", err)
	}
	return &Client{logger: logger, git: g, retryDelay: time.Second}, nil
}

// Clone clones url into dir. The parent of dir is created when missing.
func (c *Client) Clone(ctx context.Context, url, dir string) (*Repo, error) {
	c.logger.WithFields(logrus.Fields{"url": url, "dir": dir}).Info("Cloning.")
	if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
		return nil, fmt.Errorf("could not create parent of %s: %w", dir, err)
	}
	if b, err := retryCmd(ctx, c.logger, c.retryDelay, "", c.git, "clone", url, dir); err != nil {
		return nil, fmt.Errorf("git clone of %s failed: %w. output: %s", url, err, string(b))
	}
	return c.Open(dir), nil
}

// Open returns the clone at dir.
func (c *Client) Open(dir string) *Repo {
	return &Repo{
		dir:        dir,
		git:        c.git,
		retryDelay: c.retryDelay,
		logger:     c.logger.WithField("dir", dir),
	}
}

// Repo is a clone of a git repository.
type Repo struct {
	// dir is the location of the git repo.
	dir string
	// git is the path to the git binary.
	git        string
	retryDelay time.Duration

	logger *logrus.Entry
}

// Directory exposes the location of the git repo
func (r *Repo) Directory() string {
	return r.dir
}

func (r *Repo) gitCommand(ctx context.Context, arg ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, r.git, arg...)
	cmd.Dir = r.dir
	r.logger.WithField("args", cmd.Args).Debug("Constructed git command")
	return cmd
}

// RevParse runs git rev-parse.
func (r *Repo) RevParse(ctx context.Context, commitlike string) (string, error) {
	b, err := r.gitCommand(ctx, "rev-parse", commitlike).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("error rev-parsing %s: %v. output: %s", commitlike, err, string(b))
	}
	return strings.TrimSpace(string(b)), nil
}

// Checkout runs git checkout.
func (r *Repo) Checkout(ctx context.Context, commitlike string) error {
	r.logger.WithField("commitlike", commitlike).Info("Checking out.")
	if b, err := r.gitCommand(ctx, "checkout", commitlike).CombinedOutput(); err != nil {
		return fmt.Errorf("error checking out %s: %v. output: %s", commitlike, err, string(b))
	}
	return nil
}

// Clean discards changes to tracked files.
func (r *Repo) Clean(ctx context.Context) error {
	r.logger.Info("Discarding local changes.")
	if b, err := r.gitCommand(ctx, "checkout", "--", ".").CombinedOutput(); err != nil {
		return fmt.Errorf("error discarding local changes: %v. output: %s", err, string(b))
	}
	return nil
}

// Pull runs git pull --rebase.
func (r *Repo) Pull(ctx context.Context) error {
	r.logger.Info("Pulling.")
	if b, err := retryCmd(ctx, r.logger, r.retryDelay, r.dir, r.git, "pull", "--rebase"); err != nil {
		return fmt.Errorf("git pull failed: %w. output: %s", err, string(b))
	}
	return nil
}

// retryCmd will retry the command a few times with backoff. Use this for any
// commands that will be talking to the remote, such as clones or pulls.
func retryCmd(ctx context.Context, l *logrus.Entry, delay time.Duration, dir, cmd string, arg ...string) ([]byte, error) {
	var b []byte
	var err error
	sleepyTime := delay
	for i := 0; i < 3; i++ {
		c := exec.CommandContext(ctx, cmd, arg...)
		c.Dir = dir
		b, err = c.CombinedOutput()
		if err == nil {
			break
		}
		err = fmt.Errorf("running %q %v returned error %w with output %q", cmd, arg, err, string(b))
		l.WithField("count", i+1).WithError(err).Debug("Retrying, if this is not the 3rd try then this will be retried.")
		select {
		case <-ctx.Done():
			return b, ctx.Err()
		case <-time.After(sleepyTime):
		}
		sleepyTime *= 2
	}
	return b, err
}
