package types

import "time"

// InstanceState represents the lifecycle state of a compute instance
type InstanceState string

const (
	InstanceStateRunning  InstanceState = "running"
	InstanceStateStopped  InstanceState = "stopped"
	InstanceStatePending  InstanceState = "pending"
	InstanceStateStopping InstanceState = "stopping"
	InstanceStateUnknown  InstanceState = "unknown"
)

// Instance represents one provisioned compute node hosting a deployed app
type Instance struct {
	ID         string        `json:"id"`         // Provider-specific ID
	Name       string        `json:"name"`       // Logical name, {subdomain}.{hostname}
	State      InstanceState `json:"state"`      // running, stopped, pending
	PublicIP   string        `json:"public_ip"`  // Public IP address
	PrivateIP  string        `json:"private_ip"` // Private IP address (optional)
	Type       string        `json:"type"`       // Machine size (t3.small, e2-small)
	Zone       string        `json:"zone"`       // Availability zone
	LaunchedAt time.Time     `json:"launched_at"`
	Provider   string        `json:"provider"` // aws, gcp

	// Raw holds the original API response for provider-specific access
	Raw interface{} `json:"-"`
}

// IsRunning returns true if the instance is running
func (i *Instance) IsRunning() bool {
	return i.State == InstanceStateRunning
}

// Address returns the address used to reach the instance: the public IP
// when assigned, the private IP otherwise.
func (i *Instance) Address() string {
	if i.PublicIP != "" {
		return i.PublicIP
	}
	return i.PrivateIP
}
