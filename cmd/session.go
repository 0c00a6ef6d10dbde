package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/vietdv277/nimbus/internal/aws"
	"github.com/vietdv277/nimbus/internal/config"
	"github.com/vietdv277/nimbus/internal/deploy"
	"github.com/vietdv277/nimbus/internal/dns"
	"github.com/vietdv277/nimbus/internal/gcp"
	"github.com/vietdv277/nimbus/internal/instance"
	"github.com/vietdv277/nimbus/internal/metrics"
	"github.com/vietdv277/nimbus/internal/remote"
	"github.com/vietdv277/nimbus/internal/retry"
	"github.com/vietdv277/nimbus/internal/ssh"
	"github.com/vietdv277/nimbus/internal/transfer"
	"github.com/vietdv277/nimbus/pkg/provider"
	"github.com/vietdv277/nimbus/pkg/types"
)

// errInstanceNotFound is returned by commands that require an existing instance
var errInstanceNotFound = errors.New("unable to retrieve instance by name")

type cloud interface {
	provider.CloudProvider
	Lister() provider.InstanceLister
}

// session wires the deployment components for one context
type session struct {
	cfg       *config.Context
	name      string
	cloud     cloud
	directory *instance.Directory
	executor  *remote.Executor
	logger    log.Logger
	metrics   *metrics.Metrics
	close     func() error
}

func openSession(ctx context.Context, m *metrics.Metrics) (*session, error) {
	cfg, name, err := currentContext()
	if err != nil {
		return nil, err
	}
	logger := log.With(newLogger(), "context", name)

	s := &session{cfg: cfg, name: name, logger: logger, metrics: m, close: func() error { return nil }}

	sshCfg := ssh.Config{
		User:           cfg.SSH.User,
		IdentityFile:   cfg.SSH.IdentityFile,
		KnownHostsFile: cfg.SSH.KnownHosts,
		Port:           cfg.SSH.Port,
	}

	switch cfg.Provider {
	case config.ProviderAWS:
		client, err := aws.NewClient(ctx, aws.WithProfile(cfg.Profile), aws.WithRegion(cfg.Region))
		if err != nil {
			return nil, err
		}
		s.cloud = aws.NewProvider(client, aws.ProviderConfig{
			Compute: aws.ComputeOptions{
				KeyName:          cfg.Instance.KeyName,
				SubnetID:         cfg.Instance.SubnetID,
				SecurityGroupIDs: cfg.Instance.SecurityGroupIDs,
			},
			Transport: cfg.Transport,
			SSH:       sshCfg,
		})

	case config.ProviderGCP:
		client, err := gcp.NewClient(ctx, gcp.WithProject(cfg.Project), gcp.WithZone(cfg.Region))
		if err != nil {
			return nil, err
		}
		p, err := gcp.NewProvider(ctx, client, gcp.ProviderConfig{
			Network:   cfg.Instance.Network,
			Transport: cfg.Transport,
			IAP:       cfg.Instance.IAP,
			SSH:       sshCfg,
		})
		if err != nil {
			return nil, err
		}
		s.cloud = p
		s.close = p.Close

	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: aws, gcp)", cfg.Provider)
	}

	s.directory = instance.NewDirectory(s.cloud.Compute(), logger)
	s.executor = remote.NewExecutor(s.cloud.Commands(), remote.WithLogger(logger), remote.WithMetrics(m))

	level.Debug(logger).Log("msg", "session opened", "provider", s.cloud.Name(), "transport", cfg.Transport)
	return s, nil
}

func (s *session) Close() error {
	return s.close()
}

// pipeline assembles the deployment pipeline for the session's context
func (s *session) pipeline() *deploy.Pipeline {
	domains := dns.NewReconciler(
		dns.Config{ZoneID: s.cfg.DNS.ZoneID, TTL: s.cfg.DNS.TTL},
		s.directory,
		s.cloud.DNS(),
		dns.WithLogger(s.logger),
	)

	policy := retry.New(s.cfg.Transfer.MaxAttempts, s.cfg.Transfer.RetryDelay,
		retry.WithNotify(func(attempt int, err error) {
			level.Warn(s.logger).Log("msg", "build copy attempt failed", "attempt", attempt, "max_attempts", s.cfg.Transfer.MaxAttempts, "err", err)
		}),
	)
	tr := transfer.New(s.cloud.Files(), s.executor,
		transfer.WithPolicy(policy),
		transfer.WithLogger(s.logger),
		transfer.WithMetrics(s.metrics),
	)

	return deploy.New(s.directory, domains, tr, s.executor,
		deploy.WithKnownHosts(s.cloud.KnownHosts(), s.cfg.SSH.KnownHosts),
		deploy.WithLogger(s.logger),
		deploy.WithMetrics(s.metrics),
	)
}

// deploy runs the pipeline for one build directory
func (s *session) deploy(ctx context.Context, subdomain, buildPath string, lifecycleScripts []string) (*deploy.Report, error) {
	req, err := s.cfg.DeploymentRequest(subdomain, buildPath, lifecycleScripts)
	if err != nil {
		return nil, err
	}
	return s.pipeline().Run(ctx, req)
}

// findInstance resolves the instance serving subdomain
func (s *session) findInstance(ctx context.Context, subdomain string) (*types.Instance, error) {
	name := s.cfg.InstanceName(subdomain)
	inst, err := s.directory.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, fmt.Errorf("%w: %s", errInstanceNotFound, name)
	}
	return inst, nil
}
