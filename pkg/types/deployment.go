package types

// DefaultLifecycleScripts are the scripts every deployed app carries at its
// live path. Missing ones are created empty before transfer.
var DefaultLifecycleScripts = []string{"start.sh", "stop.sh", "update.sh", "provision.sh"}

// DeploymentRequest is the unit of work driving one pipeline run.
// It is immutable once the pipeline begins.
type DeploymentRequest struct {
	Subdomain string `json:"subdomain" validate:"required,hostname_rfc1123"`
	Hostname  string `json:"hostname" validate:"required,fqdn"`
	BuildPath string `json:"build_path" validate:"required,dir"`
	ZoneID    string `json:"zone_id" validate:"required"`

	// Provisioning parameters, used only when no instance exists yet
	Image             string   `json:"image" validate:"required"`
	Size              string   `json:"size" validate:"required"`
	Region            string   `json:"region,omitempty"`
	PrivateNetworking bool     `json:"private_networking"`
	Scripts           []string `json:"scripts,omitempty" validate:"dive,file"`

	// LifecycleScripts lists the script names ensured in the build directory
	LifecycleScripts []string `json:"lifecycle_scripts,omitempty"`
}

// InstanceName returns the logical instance name, {subdomain}.{hostname}
func (r *DeploymentRequest) InstanceName() string {
	return r.Subdomain + "." + r.Hostname
}

// ProvisionSpec returns the provisioning parameters for a new instance
func (r *DeploymentRequest) ProvisionSpec() *ProvisionSpec {
	scripts := make([]string, len(r.Scripts))
	copy(scripts, r.Scripts)
	return &ProvisionSpec{
		Name:              r.InstanceName(),
		Size:              r.Size,
		Image:             r.Image,
		Region:            r.Region,
		PrivateNetworking: r.PrivateNetworking,
		Scripts:           scripts,
	}
}

// ProvisionSpec describes a compute instance to create
type ProvisionSpec struct {
	Name              string
	Size              string
	Image             string
	Region            string
	PrivateNetworking bool
	Scripts           []string // Bootstrap script paths, base scripts first
}

// BuildEvent is delivered by the build listener when a CI build finishes
type BuildEvent struct {
	Subdomain        string   `json:"subdomain"`
	BuildPath        string   `json:"project_path"`
	LifecycleScripts []string `json:"lifecycle_scripts,omitempty"`
}
