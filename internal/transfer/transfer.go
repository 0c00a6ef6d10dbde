// Package transfer copies build artifacts to remote instances and promotes
// them into the live application directory.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/vietdv277/nimbus/internal/metrics"
	"github.com/vietdv277/nimbus/internal/retry"
	"github.com/vietdv277/nimbus/pkg/provider"
)

const (
	// LiveAppPath is the directory the application is served from
	LiveAppPath = "/opt/app"

	// StagingRoot is the parent directory for staged builds
	StagingRoot = "/opt"

	DefaultMaxAttempts = 5
	DefaultRetryDelay  = 30 * time.Second
)

// Executor runs a single command on a remote instance
type Executor interface {
	Execute(ctx context.Context, instanceID, command string) (string, error)
}

// ErrInvalidBuildPath is returned for build paths with no usable base name,
// such as the filesystem root
var ErrInvalidBuildPath = errors.New("build path has no directory name to stage under")

// StagingPath returns the remote directory a local build is copied to
// before promotion. The staging path is always a child of StagingRoot.
func StagingPath(localPath string) (string, error) {
	base := filepath.Base(filepath.Clean(localPath))
	switch base {
	case "", ".", "..", "/":
		return "", fmt.Errorf("%w: %q", ErrInvalidBuildPath, localPath)
	}
	if base == string(filepath.Separator) {
		return "", fmt.Errorf("%w: %q", ErrInvalidBuildPath, localPath)
	}
	if base == path.Base(LiveAppPath) {
		base += ".next"
	}
	return path.Join(StagingRoot, base), nil
}

// PromoteCommand returns the shell command that replaces the live directory
// with the staged build
func PromoteCommand(stagingPath string) string {
	return fmt.Sprintf("rm -rf %s && mv %s %s", LiveAppPath, stagingPath, LiveAppPath)
}

// Transfer moves build directories onto instances
type Transfer struct {
	copier   provider.FolderCopier
	executor Executor
	policy   *retry.Policy
	logger   log.Logger
	metrics  *metrics.Metrics
}

// Option allows customizing the Transfer
type Option func(*Transfer)

// WithPolicy sets the retry policy used for the copy step
func WithPolicy(p *retry.Policy) Option {
	return func(t *Transfer) {
		t.policy = p
	}
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return func(t *Transfer) {
		t.logger = logger
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Transfer) {
		t.metrics = m
	}
}

// New creates a Transfer. Without WithPolicy the copy is attempted
// DefaultMaxAttempts times, DefaultRetryDelay apart.
func New(copier provider.FolderCopier, executor Executor, opts ...Option) *Transfer {
	t := &Transfer{
		copier:   copier,
		executor: executor,
		logger:   log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.policy == nil {
		t.policy = retry.New(DefaultMaxAttempts, DefaultRetryDelay)
	}
	t.logger = log.With(t.logger, "component", "transfer")
	return t
}

// Transfer copies localPath to the staging path on the instance, retrying
// copy failures, then promotes it to LiveAppPath with a single command.
//
// A copy that never succeeds returns a *retry.Error listing every attempt.
// A failed promotion returns the single *remote.CommandError as is.
func (t *Transfer) Transfer(ctx context.Context, instanceID, localPath string) error {
	staging, err := StagingPath(localPath)
	if err != nil {
		return err
	}

	err = t.policy.Run(ctx, func(ctx context.Context, attempt int) error {
		level.Info(t.logger).Log("msg", "copying build", "instance", instanceID,
			"src", localPath, "dst", staging, "attempt", attempt)
		err := t.copier.CopyFolder(ctx, instanceID, localPath, staging)
		t.metrics.ObserveTransferAttempt(err)
		if err != nil {
			level.Warn(t.logger).Log("msg", "copy attempt failed", "instance", instanceID,
				"attempt", attempt, "err", err)
		}
		return err
	})
	if err != nil {
		return err
	}

	if _, err := t.executor.Execute(ctx, instanceID, PromoteCommand(staging)); err != nil {
		return err
	}

	level.Info(t.logger).Log("msg", "build promoted", "instance", instanceID, "path", LiveAppPath)
	return nil
}
