// Package listener receives build completion events over NATS and hands
// them to a deployer one at a time.
package listener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/nats-io/nats.go"

	"github.com/vietdv277/nimbus/pkg/types"
)

// DefaultSubject is the subject build events are published on
const DefaultSubject = "nimbus.builds"

// ErrInvalidEvent is returned for events that cannot be deployed
var ErrInvalidEvent = errors.New("invalid build event")

var ack = []byte(`{"status":"received"}`)

// Deployer deploys the build described by an event
type Deployer interface {
	Deploy(ctx context.Context, event *types.BuildEvent) error
}

// DeployerFunc adapts a function to Deployer
type DeployerFunc func(ctx context.Context, event *types.BuildEvent) error

// Deploy implements Deployer
func (f DeployerFunc) Deploy(ctx context.Context, event *types.BuildEvent) error {
	return f(ctx, event)
}

// Connect opens a NATS connection that reconnects indefinitely
func Connect(url string, logger log.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("nimbus-listener"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			level.Warn(logger).Log("msg", "nats disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			level.Info(logger).Log("msg", "nats reconnected", "url", nc.ConnectedUrl())
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", url, err)
	}
	return nc, nil
}

// Listener subscribes to build events
type Listener struct {
	deployer Deployer
	logger   log.Logger
}

// New creates a Listener
func New(deployer Deployer, logger log.Logger) *Listener {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Listener{
		deployer: deployer,
		logger:   log.With(logger, "component", "listener"),
	}
}

// Listen handles events on subject until ctx is done. The subscription
// callback runs on a single goroutine, so deployments never overlap.
func (l *Listener) Listen(ctx context.Context, nc *nats.Conn, subject string) error {
	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		if msg.Reply != "" {
			if err := msg.Respond(ack); err != nil {
				level.Warn(l.logger).Log("msg", "failed to acknowledge event", "err", err)
			}
		}
		if err := l.HandleEvent(ctx, msg.Data); err != nil {
			level.Error(l.logger).Log("msg", "build event not deployed", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	level.Info(l.logger).Log("msg", "listening for build events", "subject", subject)
	<-ctx.Done()

	if err := sub.Drain(); err != nil {
		level.Warn(l.logger).Log("msg", "failed to drain subscription", "err", err)
	}
	return nil
}

// HandleEvent parses data and deploys it. Invalid events are logged and
// reported as ErrInvalidEvent without reaching the deployer.
func (l *Listener) HandleEvent(ctx context.Context, data []byte) error {
	event, err := ParseBuildEvent(data)
	if err != nil {
		level.Warn(l.logger).Log("msg", "ignoring build event", "err", err)
		return err
	}

	level.Info(l.logger).Log("msg", "deploying build", "subdomain", event.Subdomain, "path", event.BuildPath)
	if err := l.deployer.Deploy(ctx, event); err != nil {
		return fmt.Errorf("deployment of %s failed: %w", event.Subdomain, err)
	}
	return nil
}

// ParseBuildEvent decodes and checks a build event. A project path that names
// a package.json file is resolved to its directory.
func ParseBuildEvent(data []byte) (*types.BuildEvent, error) {
	var event types.BuildEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if event.Subdomain == "" {
		return nil, fmt.Errorf("%w: missing subdomain", ErrInvalidEvent)
	}
	if event.BuildPath == "" {
		return nil, fmt.Errorf("%w: missing project_path", ErrInvalidEvent)
	}

	if filepath.Base(event.BuildPath) == "package.json" {
		event.BuildPath = filepath.Dir(event.BuildPath)
	}

	info, err := os.Stat(event.BuildPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidEvent, event.BuildPath)
	}

	return &event, nil
}
