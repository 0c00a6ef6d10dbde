// Package remote executes single shell commands on remote instances.
package remote

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/vietdv277/nimbus/internal/metrics"
	"github.com/vietdv277/nimbus/pkg/provider"
)

// Executor runs one command per call on a remote instance. It performs no
// retries and no validation of the command string.
type Executor struct {
	runner  provider.CommandRunner
	logger  log.Logger
	metrics *metrics.Metrics
}

// Option allows customizing the Executor
type Option func(*Executor)

// WithLogger sets the logger used to trace commands
func WithLogger(logger log.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

// NewExecutor creates an Executor backed by runner
func NewExecutor(runner provider.CommandRunner, opts ...Option) *Executor {
	e := &Executor{
		runner: runner,
		logger: log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = log.With(e.logger, "component", "remote")
	return e
}

// Execute runs command on the instance and returns its output. Failures are
// returned as *CommandError.
func (e *Executor) Execute(ctx context.Context, instanceID, command string) (string, error) {
	level.Debug(e.logger).Log("msg", "running command", "instance", instanceID, "command", command)

	output, err := e.runner.RunCommand(ctx, instanceID, command)
	e.metrics.ObserveRemoteCommand(err)
	if err != nil {
		cmdErr := &CommandError{
			InstanceID: instanceID,
			Command:    command,
			Output:     output,
			Err:        err,
		}
		level.Error(e.logger).Log("msg", "command failed", "instance", instanceID, "command", command,
			"exit_code", cmdErr.ExitCode(), "err", err)
		return output, cmdErr
	}

	return output, nil
}
