package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vietdv277/nimbus/internal/instance"
	"github.com/vietdv277/nimbus/internal/listener"
	"github.com/vietdv277/nimbus/internal/transfer"
	"github.com/vietdv277/nimbus/pkg/types"
)

// Supported providers
const (
	ProviderAWS = "aws"
	ProviderGCP = "gcp"
)

// Context is one deployment target: a cloud account, a base hostname and
// its DNS zone, and how instances are created and reached
type Context struct {
	Provider string `yaml:"provider" validate:"required,oneof=aws gcp"`
	Profile  string `yaml:"profile,omitempty"` // AWS profile name
	Project  string `yaml:"project,omitempty"` // GCP project ID
	Region   string `yaml:"region,omitempty"`  // AWS region or GCP zone

	Hostname  string `yaml:"hostname" validate:"required,fqdn"`
	Transport string `yaml:"transport,omitempty" validate:"omitempty,oneof=ssm ssh gcloud"`

	DNS      DNSConfig      `yaml:"dns"`
	Instance InstanceConfig `yaml:"instance"`
	SSH      SSHConfig      `yaml:"ssh"`
	Transfer TransferConfig `yaml:"transfer"`
	Listener ListenerConfig `yaml:"listener,omitempty"`
}

// DNSConfig names the zone subdomains are registered in
type DNSConfig struct {
	ZoneID string `yaml:"zone_id" validate:"required"`
	TTL    int64  `yaml:"ttl,omitempty" validate:"omitempty,min=1"`
}

// InstanceConfig holds the parameters for newly provisioned instances
type InstanceConfig struct {
	Image             string   `yaml:"image" validate:"required"`
	Size              string   `yaml:"size" validate:"required"`
	ScriptsPath       string   `yaml:"scripts_path,omitempty"`
	PrivateNetworking bool     `yaml:"private_networking,omitempty"`
	KeyName           string   `yaml:"key_name,omitempty"`
	SubnetID          string   `yaml:"subnet_id,omitempty"`
	SecurityGroupIDs  []string `yaml:"security_group_ids,omitempty"`
	Network           string   `yaml:"network,omitempty"`
	IAP               bool     `yaml:"iap,omitempty"`
}

// SSHConfig configures SSH access to instances
type SSHConfig struct {
	User         string `yaml:"user,omitempty"`
	IdentityFile string `yaml:"identity_file,omitempty"`
	KnownHosts   string `yaml:"known_hosts,omitempty"`
	Port         int    `yaml:"port,omitempty" validate:"omitempty,min=1,max=65535"`
}

// TransferConfig bounds the build copy retries
type TransferConfig struct {
	MaxAttempts int           `yaml:"max_attempts,omitempty" validate:"omitempty,min=1,max=20"`
	RetryDelay  time.Duration `yaml:"retry_delay,omitempty" validate:"omitempty,min=0"`
}

// ListenerConfig configures the build event subscription
type ListenerConfig struct {
	URL     string `yaml:"url,omitempty" validate:"omitempty,url"`
	Subject string `yaml:"subject,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and provider-specific requirements
func (c *Context) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid context: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid context: %w", err)
	}

	switch c.Provider {
	case ProviderAWS:
		if c.Transport == "gcloud" {
			return fmt.Errorf("invalid context: transport gcloud requires provider gcp")
		}
	case ProviderGCP:
		if c.Project == "" {
			return fmt.Errorf("invalid context: gcp contexts require a project")
		}
		if c.Region == "" {
			return fmt.Errorf("invalid context: gcp contexts require a zone in region")
		}
		if c.Transport == "ssm" {
			return fmt.Errorf("invalid context: transport ssm requires provider aws")
		}
	}
	return nil
}

// ApplyDefaults fills unset optional fields
func (c *Context) ApplyDefaults() {
	if c.Transport == "" {
		if c.Provider == ProviderGCP {
			c.Transport = "gcloud"
		} else {
			c.Transport = "ssm"
		}
	}
	if c.SSH.KnownHosts == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.SSH.KnownHosts = filepath.Join(home, ".ssh", "known_hosts")
		}
	}
	if c.Transfer.MaxAttempts == 0 {
		c.Transfer.MaxAttempts = transfer.DefaultMaxAttempts
	}
	if c.Transfer.RetryDelay == 0 {
		c.Transfer.RetryDelay = transfer.DefaultRetryDelay
	}
	if c.Listener.Subject == "" {
		c.Listener.Subject = listener.DefaultSubject
	}
}

// InstanceName returns the logical instance name for subdomain
func (c *Context) InstanceName(subdomain string) string {
	return instance.Name(subdomain, c.Hostname)
}

// DeploymentRequest builds the request for deploying buildPath to subdomain.
// Bootstrap scripts are the context's scripts directory followed by the
// project's own provision.sh and build.sh. An empty buildPath yields a
// request for provisioning only, bootstrapped from the scripts directory.
func (c *Context) DeploymentRequest(subdomain, buildPath string, lifecycleScripts []string) (*types.DeploymentRequest, error) {
	var abs string
	if buildPath != "" {
		var err error
		if abs, err = filepath.Abs(buildPath); err != nil {
			return nil, fmt.Errorf("failed to resolve build path: %w", err)
		}
	}

	scripts, err := instance.BootstrapScripts(c.Instance.ScriptsPath, abs)
	if err != nil {
		return nil, err
	}

	return &types.DeploymentRequest{
		Subdomain:         subdomain,
		Hostname:          c.Hostname,
		BuildPath:         abs,
		ZoneID:            c.DNS.ZoneID,
		Image:             c.Instance.Image,
		Size:              c.Instance.Size,
		Region:            c.Region,
		PrivateNetworking: c.Instance.PrivateNetworking,
		Scripts:           scripts,
		LifecycleScripts:  lifecycleScripts,
	}, nil
}
