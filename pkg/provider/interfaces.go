package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/vietdv277/nimbus/pkg/types"
)

// Common errors
var (
	ErrNotSupported  = errors.New("feature not supported by this provider")
	ErrNotFound      = errors.New("resource not found")
	ErrNotConfigured = errors.New("provider not configured")
	ErrNoAddress     = errors.New("instance has no IP address")
)

// ExitError is returned by a CommandRunner when the remote command ran but
// exited with a non-zero status
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("exit status %d: %s", e.Code, e.Stderr)
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// InstanceGetter fetches a single instance by ID
type InstanceGetter interface {
	// Get returns the instance with the given provider ID
	Get(ctx context.Context, id string) (*types.Instance, error)
}

// ComputeProvider defines the compute operations a deployment needs
type ComputeProvider interface {
	InstanceGetter

	// FindByName returns the instance with the given logical name, or nil
	// (and no error) when none exists
	FindByName(ctx context.Context, name string) (*types.Instance, error)

	// Provision creates a new instance. It is not idempotent.
	Provision(ctx context.Context, spec *types.ProvisionSpec) (*types.Instance, error)
}

// InstanceLister is implemented by compute providers that can enumerate
// the instances they manage
type InstanceLister interface {
	List(ctx context.Context) ([]types.Instance, error)
}

// CommandRunner executes a shell command on a remote instance
type CommandRunner interface {
	// RunCommand runs command on the instance and returns its standard output
	RunCommand(ctx context.Context, instanceID, command string) (string, error)
}

// FolderCopier copies a local directory to a remote instance
type FolderCopier interface {
	// CopyFolder makes remotePath on the instance mirror the contents of localPath
	CopyFolder(ctx context.Context, instanceID, localPath, remotePath string) error
}

// RecordOptions contains optional attributes for a new DNS record
type RecordOptions struct {
	Name string // Record label relative to the zone
	TTL  int64
}

// DNSProvider defines the DNS record operations used by domain reconciliation
type DNSProvider interface {
	// ListRecords returns all records in the zone
	ListRecords(ctx context.Context, zoneID string) ([]types.DomainRecord, error)

	// CreateRecord creates a record of the given type pointing at address
	CreateRecord(ctx context.Context, zoneID, recordType, address string, opts *RecordOptions) (*types.DomainRecord, error)

	// DestroyRecord removes the record with the given ID
	DestroyRecord(ctx context.Context, zoneID, recordID string) error
}

// KnownHostsPurger removes stale SSH host keys for an address
type KnownHostsPurger interface {
	PurgeKnownHost(ctx context.Context, address, knownHostsPath string) error
}

// CloudProvider bundles everything a deployment needs from one cloud
type CloudProvider interface {
	// Name returns the provider identifier (e.g., "aws", "gcp")
	Name() string

	// Compute returns the compute provider
	Compute() ComputeProvider

	// Commands returns the remote command runner
	Commands() CommandRunner

	// Files returns the folder copier
	Files() FolderCopier

	// DNS returns the DNS provider
	DNS() DNSProvider

	// KnownHosts returns the known_hosts purger
	KnownHosts() KnownHostsPurger
}
