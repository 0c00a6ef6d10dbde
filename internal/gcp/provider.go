package gcp

import (
	"context"

	"github.com/vietdv277/nimbus/internal/ssh"
	"github.com/vietdv277/nimbus/pkg/provider"
)

// Command transports
const (
	TransportGcloud = "gcloud"
	TransportSSH    = "ssh"
)

// ProviderConfig selects the network and how instances are reached
type ProviderConfig struct {
	Network   string
	Transport string
	IAP       bool
	SSH       ssh.Config
}

// Provider bundles the GCP implementations used by a deployment
type Provider struct {
	compute    *ComputeProvider
	commands   provider.CommandRunner
	files      provider.FolderCopier
	dns        *DNSProvider
	knownHosts provider.KnownHostsPurger
}

// NewProvider creates the GCP provider. Commands go through gcloud compute
// ssh unless the SSH transport is selected.
func NewProvider(ctx context.Context, client *Client, cfg ProviderConfig) (*Provider, error) {
	compute, err := NewComputeProvider(ctx, client, cfg.Network)
	if err != nil {
		return nil, err
	}
	dnsProvider, err := NewDNSProvider(ctx, client)
	if err != nil {
		_ = compute.Close()
		return nil, err
	}

	var commands provider.CommandRunner
	if cfg.Transport == TransportSSH {
		commands = ssh.NewRunner(cfg.SSH, compute)
	} else {
		commands = NewGcloudRunner(client.Project(), client.Zone(), cfg.IAP, nil)
	}

	return &Provider{
		compute:    compute,
		commands:   commands,
		files:      ssh.NewRsyncCopier(cfg.SSH, compute, nil),
		dns:        dnsProvider,
		knownHosts: ssh.NewPurger(nil),
	}, nil
}

// Name returns "gcp"
func (p *Provider) Name() string { return "gcp" }

// Compute returns the GCE compute provider
func (p *Provider) Compute() provider.ComputeProvider { return p.compute }

// Commands returns the remote command runner
func (p *Provider) Commands() provider.CommandRunner { return p.commands }

// Files returns the rsync folder copier
func (p *Provider) Files() provider.FolderCopier { return p.files }

// DNS returns the Cloud DNS provider
func (p *Provider) DNS() provider.DNSProvider { return p.dns }

// KnownHosts returns the known_hosts purger
func (p *Provider) KnownHosts() provider.KnownHostsPurger { return p.knownHosts }

// Lister returns the compute provider as an instance lister
func (p *Provider) Lister() provider.InstanceLister { return p.compute }

// Close releases API clients
func (p *Provider) Close() error { return p.compute.Close() }
