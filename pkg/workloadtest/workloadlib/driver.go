package workloadlib

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/arkcompiler/workload-tools/pkg/api"
	"github.com/arkcompiler/workload-tools/pkg/results"
)

// Command is a process to start in Dir.
type Command struct {
	Dir  string
	Name string
	Args []string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// ExecResult describes a process that ran to completion.
type ExecResult struct {
	ExitCode int
	Stderr   string
}

// Executor starts processes. Every non-blank stdout line, trimmed, is passed
// to onLine in order. An error is returned only when the process could not
// be run at all; a non-zero exit is reported through ExecResult.
type Executor interface {
	Run(ctx context.Context, cmd Command, onLine func(string)) (*ExecResult, error)
}

type processExecutor struct{}

// NewProcessExecutor runs commands as local processes.
func NewProcessExecutor() Executor {
	return &processExecutor{}
}

func (e *processExecutor) Run(ctx context.Context, command Command, onLine func(string)) (*ExecResult, error) {
	cmd := exec.CommandContext(ctx, command.Name, command.Args...)
	cmd.Dir = command.Dir
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, classifyStartError(command, err)
	}

	var stderrBuf bytes.Buffer
	g := errgroup.Group{}
	g.Go(func() error {
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				onLine(line)
			}
		}
		if err := scanner.Err(); err != nil {
			// keep draining so the process never blocks on a full pipe
			_, _ = io.Copy(io.Discard, stdout)
			return err
		}
		return nil
	})
	g.Go(func() error {
		_, err := io.Copy(&stderrBuf, stderr)
		return err
	})
	drainErr := g.Wait()
	waitErr := cmd.Wait()

	result := &ExecResult{Stderr: strings.TrimSpace(stderrBuf.String())}
	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
	case errors.As(waitErr, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		return nil, waitErr
	}
	if drainErr != nil {
		logrus.WithError(drainErr).Warn("Could not read all driver output.")
	}
	return result, nil
}

func classifyStartError(command Command, err error) error {
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return results.ForReason(results.ReasonDriverNotFound).WithError(err).Errorf("no such file: %s", command.Name)
	case errors.Is(err, fs.ErrPermission):
		return results.ForReason(results.ReasonDriverPermissionDenied).WithError(err).Errorf("permission denied: %s", command.Name)
	default:
		return err
	}
}

// DriverCommand builds the PGO driver invocation for runCount runs.
func DriverCommand(config api.DriverConfig, dir, runCount string) Command {
	args := append([]string{config.Script}, config.Flags...)
	if config.RunCountFlag != "" {
		args = append(args, config.RunCountFlag, runCount)
	}
	return Command{Dir: dir, Name: config.Shell, Args: args}
}

// RunDriver runs the PGO driver in dir, logging its output as it arrives.
// A non-zero exit has its stderr logged and is returned with reason
// driver_failed.
func RunDriver(ctx context.Context, executor Executor, config api.DriverConfig, dir, runCount string) error {
	command := DriverCommand(config, dir, runCount)
	logger := logrus.WithFields(logrus.Fields{"command": command.String(), "dir": dir})
	logger.Info("Running driver.")
	result, err := executor.Run(ctx, command, func(line string) {
		logger.WithField("source", "driver").Info(line)
	})
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		if result.Stderr != "" {
			logger.WithField("source", "driver").Error(result.Stderr)
		}
		return results.ForReason(results.ReasonDriverFailed).Errorf("%s exited with code %d", command, result.ExitCode)
	}
	return nil
}
