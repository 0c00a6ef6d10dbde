package gcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	compute "cloud.google.com/go/compute/apiv1"
	"cloud.google.com/go/compute/apiv1/computepb"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/protobuf/proto"

	"github.com/vietdv277/nimbus/internal/bootstrap"
	"github.com/vietdv277/nimbus/pkg/provider"
	"github.com/vietdv277/nimbus/pkg/types"
)

const (
	// NameKey is the metadata key holding the logical instance name
	NameKey = "nimbus-name"

	// ManagedLabel marks instances created by nimbus
	ManagedLabel = "nimbus-managed"

	startupScriptKey = "startup-script"
	defaultNetwork   = "global/networks/default"
	maxNameLength    = 63
	suffixLength     = 8
)

// ErrNameConflict is returned when the GCE instance for a logical name
// carries a different logical name in its metadata
var ErrNameConflict = errors.New("instance belongs to another logical name")

// instancesAPI is the subset of the GCE Instances service used here. Insert
// blocks until the operation completes.
type instancesAPI interface {
	Get(ctx context.Context, zone, name string) (*computepb.Instance, error)
	Insert(ctx context.Context, zone string, inst *computepb.Instance) error
	List(ctx context.Context, zone, filter string) ([]*computepb.Instance, error)
}

// ComputeProvider implements provider.ComputeProvider for GCE. Instance IDs
// are GCE instance names within the configured zone.
type ComputeProvider struct {
	api     instancesAPI
	zone    string
	network string
}

// NewComputeProvider creates a GCE compute provider backed by the REST API.
// An empty network selects the project's default network.
func NewComputeProvider(ctx context.Context, client *Client, network string) (*ComputeProvider, error) {
	if client.Zone() == "" {
		return nil, fmt.Errorf("gcp zone: %w", provider.ErrNotConfigured)
	}
	ic, err := compute.NewInstancesRESTClient(ctx, client.ClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("create instances client: %w", err)
	}
	return newComputeProvider(&restInstances{client: ic, project: client.Project()}, client.Zone(), network), nil
}

func newComputeProvider(api instancesAPI, zone, network string) *ComputeProvider {
	if network == "" {
		network = defaultNetwork
	}
	return &ComputeProvider{api: api, zone: zone, network: network}
}

// InstanceName converts a logical name into a valid GCE instance name:
// lowercase, with every character outside [a-z0-9] replaced by '-', followed
// by a short hash of the logical name so that names differing only in
// punctuation or past the length limit map to different instances
func InstanceName(logical string) string {
	logical = strings.ToLower(logical)

	var b strings.Builder
	for _, r := range logical {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	suffix := uuid.NewSHA1(uuid.NameSpaceDNS, []byte(logical)).String()[:suffixLength]

	name := strings.Trim(b.String(), "-")
	if name == "" || name[0] < 'a' || name[0] > 'z' {
		name = "n-" + name
	}
	if limit := maxNameLength - suffixLength - 1; len(name) > limit {
		name = name[:limit]
	}
	return strings.TrimRight(name, "-") + "-" + suffix
}

// Get returns the instance with the given GCE name
func (p *ComputeProvider) Get(ctx context.Context, id string) (*types.Instance, error) {
	inst, err := p.api.Get(ctx, p.zone, id)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("instance %s: %w", id, provider.ErrNotFound)
		}
		return nil, fmt.Errorf("get instance %s: %w", id, err)
	}
	instance := gceToInstance(inst)
	return &instance, nil
}

// FindByName returns the instance for a logical name, or nil when none exists
func (p *ComputeProvider) FindByName(ctx context.Context, name string) (*types.Instance, error) {
	inst, err := p.api.Get(ctx, p.zone, InstanceName(name))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find instance %s: %w", name, err)
	}
	if owner := metadataValue(inst, NameKey); !strings.EqualFold(owner, name) {
		return nil, fmt.Errorf("instance %s is registered as %q, not %q: %w", inst.GetName(), owner, name, ErrNameConflict)
	}
	instance := gceToInstance(inst)
	return &instance, nil
}

// List returns instances labelled as managed by nimbus
func (p *ComputeProvider) List(ctx context.Context) ([]types.Instance, error) {
	insts, err := p.api.List(ctx, p.zone, fmt.Sprintf("labels.%s=true", ManagedLabel))
	if err != nil {
		return nil, err
	}
	out := make([]types.Instance, 0, len(insts))
	for _, inst := range insts {
		out = append(out, gceToInstance(inst))
	}
	return out, nil
}

// Provision inserts an instance, waits for the operation and returns the
// refreshed instance. The bootstrap scripts become its startup-script.
func (p *ComputeProvider) Provision(ctx context.Context, spec *types.ProvisionSpec) (*types.Instance, error) {
	inst, err := p.instanceResource(spec)
	if err != nil {
		return nil, err
	}
	if err := p.api.Insert(ctx, p.zone, inst); err != nil {
		return nil, fmt.Errorf("insert instance %s: %w", inst.GetName(), err)
	}
	return p.Get(ctx, inst.GetName())
}

func (p *ComputeProvider) instanceResource(spec *types.ProvisionSpec) (*computepb.Instance, error) {
	script, err := bootstrap.Render(spec.Scripts)
	if err != nil {
		return nil, err
	}

	nic := &computepb.NetworkInterface{Network: proto.String(p.network)}
	if !spec.PrivateNetworking {
		nic.AccessConfigs = []*computepb.AccessConfig{{
			Name: proto.String("External NAT"),
			Type: proto.String("ONE_TO_ONE_NAT"),
		}}
	}

	return &computepb.Instance{
		Name:        proto.String(InstanceName(spec.Name)),
		MachineType: proto.String(fmt.Sprintf("zones/%s/machineTypes/%s", p.zone, spec.Size)),
		Labels:      map[string]string{ManagedLabel: "true"},
		Metadata: &computepb.Metadata{Items: []*computepb.Items{
			{Key: proto.String(NameKey), Value: proto.String(spec.Name)},
			{Key: proto.String(startupScriptKey), Value: proto.String(script)},
		}},
		Disks: []*computepb.AttachedDisk{{
			Boot:       proto.Bool(true),
			AutoDelete: proto.Bool(true),
			InitializeParams: &computepb.AttachedDiskInitializeParams{
				SourceImage: proto.String(spec.Image),
			},
		}},
		NetworkInterfaces: []*computepb.NetworkInterface{nic},
	}, nil
}

// gceToInstance converts a GCE Instance proto to the unified Instance type.
func gceToInstance(inst *computepb.Instance) types.Instance {
	out := types.Instance{
		ID:       inst.GetName(),
		Name:     metadataValue(inst, NameKey),
		State:    gceStatusToInstanceState(inst.GetStatus()),
		Type:     path.Base(inst.GetMachineType()),
		Zone:     path.Base(inst.GetZone()),
		Provider: "gcp",
		Raw:      inst,
	}
	if out.Name == "" {
		out.Name = inst.GetName()
	}

	if nics := inst.GetNetworkInterfaces(); len(nics) > 0 {
		out.PrivateIP = nics[0].GetNetworkIP()
		if acs := nics[0].GetAccessConfigs(); len(acs) > 0 {
			out.PublicIP = acs[0].GetNatIP()
		}
	}

	if ts := inst.GetCreationTimestamp(); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			out.LaunchedAt = t
		}
	}

	return out
}

// gceStatusToInstanceState maps a GCE instance status to InstanceState.
func gceStatusToInstanceState(status string) types.InstanceState {
	switch status {
	case "RUNNING":
		return types.InstanceStateRunning
	case "TERMINATED", "SUSPENDED":
		return types.InstanceStateStopped
	case "PROVISIONING", "STAGING":
		return types.InstanceStatePending
	case "STOPPING", "SUSPENDING":
		return types.InstanceStateStopping
	default:
		return types.InstanceStateUnknown
	}
}

func metadataValue(inst *computepb.Instance, key string) string {
	for _, item := range inst.GetMetadata().GetItems() {
		if item.GetKey() == key {
			return item.GetValue()
		}
	}
	return ""
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

// restInstances adapts the generated REST client to instancesAPI
type restInstances struct {
	client  *compute.InstancesClient
	project string
}

func (r *restInstances) Get(ctx context.Context, zone, name string) (*computepb.Instance, error) {
	return r.client.Get(ctx, &computepb.GetInstanceRequest{
		Project:  r.project,
		Zone:     zone,
		Instance: name,
	})
}

func (r *restInstances) Insert(ctx context.Context, zone string, inst *computepb.Instance) error {
	op, err := r.client.Insert(ctx, &computepb.InsertInstanceRequest{
		Project:          r.project,
		Zone:             zone,
		InstanceResource: inst,
	})
	if err != nil {
		return err
	}
	return op.Wait(ctx)
}

func (r *restInstances) List(ctx context.Context, zone, filter string) ([]*computepb.Instance, error) {
	req := &computepb.ListInstancesRequest{
		Project: r.project,
		Zone:    zone,
	}
	if filter != "" {
		req.Filter = proto.String(filter)
	}

	var out []*computepb.Instance
	it := r.client.List(ctx, req)
	for {
		inst, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list instances: %w", err)
		}
		out = append(out, inst)
	}
	return out, nil
}

// Close releases the underlying REST client
func (p *ComputeProvider) Close() error {
	if r, ok := p.api.(*restInstances); ok {
		return r.client.Close()
	}
	return nil
}
