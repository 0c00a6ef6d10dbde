package aws

import (
	"time"

	"github.com/vietdv277/nimbus/internal/ssh"
	"github.com/vietdv277/nimbus/pkg/provider"
)

// Command transports
const (
	TransportSSM = "ssm"
	TransportSSH = "ssh"
)

// ProviderConfig selects how the provider reaches instances
type ProviderConfig struct {
	Compute        ComputeOptions
	Transport      string
	CommandTimeout time.Duration
	SSH            ssh.Config
}

// Provider bundles the AWS implementations used by a deployment
type Provider struct {
	compute    *ComputeProvider
	commands   provider.CommandRunner
	files      provider.FolderCopier
	dns        *DNSProvider
	knownHosts provider.KnownHostsPurger
}

// NewProvider creates the AWS provider. Commands go through SSM unless the
// SSH transport is selected; files are always copied with rsync over SSH.
func NewProvider(client *Client, cfg ProviderConfig) *Provider {
	compute := NewComputeProvider(client.EC2, cfg.Compute)

	var commands provider.CommandRunner
	if cfg.Transport == TransportSSH {
		commands = ssh.NewRunner(cfg.SSH, compute)
	} else {
		commands = NewCommandRunner(client.SSM, cfg.CommandTimeout)
	}

	return &Provider{
		compute:    compute,
		commands:   commands,
		files:      ssh.NewRsyncCopier(cfg.SSH, compute, nil),
		dns:        NewDNSProvider(client.Route53),
		knownHosts: ssh.NewPurger(nil),
	}
}

// Name returns "aws"
func (p *Provider) Name() string { return "aws" }

// Compute returns the EC2 compute provider
func (p *Provider) Compute() provider.ComputeProvider { return p.compute }

// Commands returns the remote command runner
func (p *Provider) Commands() provider.CommandRunner { return p.commands }

// Files returns the rsync folder copier
func (p *Provider) Files() provider.FolderCopier { return p.files }

// DNS returns the Route 53 provider
func (p *Provider) DNS() provider.DNSProvider { return p.dns }

// KnownHosts returns the known_hosts purger
func (p *Provider) KnownHosts() provider.KnownHostsPurger { return p.knownHosts }

// Lister returns the compute provider as an instance lister
func (p *Provider) Lister() provider.InstanceLister { return p.compute }
