package aws

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/vietdv277/nimbus/internal/bootstrap"
	"github.com/vietdv277/nimbus/pkg/provider"
	"github.com/vietdv277/nimbus/pkg/types"
)

const (
	// ManagedTag marks instances created by nimbus
	ManagedTag = "nimbus:managed"

	// MaxUserDataSize is the EC2 limit on raw user data
	MaxUserDataSize = 16 * 1024

	DefaultRunningTimeout = 10 * time.Minute
)

// liveStates are the states an instance can be reused from
var liveStates = []string{"pending", "running", "stopping", "stopped"}

// EC2API is the subset of the EC2 client used by ComputeProvider
type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	RunInstances(ctx context.Context, params *ec2.RunInstancesInput, optFns ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error)
}

// ComputeOptions are the account-specific launch settings
type ComputeOptions struct {
	KeyName          string
	SubnetID         string
	SecurityGroupIDs []string
	RunningTimeout   time.Duration
}

// ComputeProvider implements provider.ComputeProvider for EC2
type ComputeProvider struct {
	api  EC2API
	opts ComputeOptions
}

// NewComputeProvider creates an EC2 compute provider
func NewComputeProvider(api EC2API, opts ComputeOptions) *ComputeProvider {
	if opts.RunningTimeout == 0 {
		opts.RunningTimeout = DefaultRunningTimeout
	}
	return &ComputeProvider{api: api, opts: opts}
}

// Get returns the instance with the given ID
func (p *ComputeProvider) Get(ctx context.Context, id string) (*types.Instance, error) {
	output, err := p.api.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{id},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe instance %s: %w", id, err)
	}

	for _, reservation := range output.Reservations {
		for _, inst := range reservation.Instances {
			instance := ec2ToInstance(inst)
			return &instance, nil
		}
	}
	return nil, fmt.Errorf("instance %s: %w", id, provider.ErrNotFound)
}

// FindByName returns the most recently launched live instance whose Name tag
// equals name, or nil when there is none
func (p *ComputeProvider) FindByName(ctx context.Context, name string) (*types.Instance, error) {
	output, err := p.api.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{
				Name:   aws.String("tag:Name"),
				Values: []string{name},
			},
			{
				Name:   aws.String("instance-state-name"),
				Values: liveStates,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find instance: %w", err)
	}

	var found []types.Instance
	for _, reservation := range output.Reservations {
		for _, inst := range reservation.Instances {
			found = append(found, ec2ToInstance(inst))
		}
	}
	if len(found) == 0 {
		return nil, nil
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].LaunchedAt.After(found[j].LaunchedAt)
	})
	return &found[0], nil
}

// List returns every live instance tagged as managed by nimbus
func (p *ComputeProvider) List(ctx context.Context) ([]types.Instance, error) {
	input := &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{
				Name:   aws.String("tag-key"),
				Values: []string{ManagedTag},
			},
			{
				Name:   aws.String("instance-state-name"),
				Values: liveStates,
			},
		},
	}

	var instances []types.Instance
	paginator := ec2.NewDescribeInstancesPaginator(p.api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe instances: %w", err)
		}
		for _, reservation := range page.Reservations {
			for _, inst := range reservation.Instances {
				instances = append(instances, ec2ToInstance(inst))
			}
		}
	}

	return instances, nil
}

// Provision launches one instance and waits for it to be running. The
// bootstrap scripts become its user data. spec.Region, when set, is used as
// the availability zone since the client is already bound to a region.
func (p *ComputeProvider) Provision(ctx context.Context, spec *types.ProvisionSpec) (*types.Instance, error) {
	input, err := p.runInput(spec)
	if err != nil {
		return nil, err
	}

	output, err := p.api.RunInstances(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to run instance: %w", err)
	}
	if len(output.Instances) == 0 {
		return nil, fmt.Errorf("run instances returned no instance for %s", spec.Name)
	}
	id := deref(output.Instances[0].InstanceId)

	waiter := ec2.NewInstanceRunningWaiter(p.api)
	if err := waiter.Wait(ctx, &ec2.DescribeInstancesInput{InstanceIds: []string{id}}, p.opts.RunningTimeout); err != nil {
		return nil, fmt.Errorf("instance %s did not reach running: %w", id, err)
	}

	return p.Get(ctx, id)
}

func (p *ComputeProvider) runInput(spec *types.ProvisionSpec) (*ec2.RunInstancesInput, error) {
	userData, err := bootstrap.Render(spec.Scripts)
	if err != nil {
		return nil, err
	}
	if len(userData) > MaxUserDataSize {
		return nil, fmt.Errorf("user data for %s is %d bytes, limit is %d", spec.Name, len(userData), MaxUserDataSize)
	}

	input := &ec2.RunInstancesInput{
		ImageId:      aws.String(spec.Image),
		InstanceType: ec2types.InstanceType(spec.Size),
		MinCount:     aws.Int32(1),
		MaxCount:     aws.Int32(1),
		UserData:     aws.String(base64.StdEncoding.EncodeToString([]byte(userData))),
		TagSpecifications: []ec2types.TagSpecification{
			{
				ResourceType: ec2types.ResourceTypeInstance,
				Tags: []ec2types.Tag{
					{Key: aws.String("Name"), Value: aws.String(spec.Name)},
					{Key: aws.String(ManagedTag), Value: aws.String("true")},
				},
			},
		},
	}

	if spec.Region != "" {
		input.Placement = &ec2types.Placement{AvailabilityZone: aws.String(spec.Region)}
	}
	if p.opts.KeyName != "" {
		input.KeyName = aws.String(p.opts.KeyName)
	}

	if p.opts.SubnetID != "" {
		input.NetworkInterfaces = []ec2types.InstanceNetworkInterfaceSpecification{
			{
				DeviceIndex:              aws.Int32(0),
				SubnetId:                 aws.String(p.opts.SubnetID),
				Groups:                   p.opts.SecurityGroupIDs,
				AssociatePublicIpAddress: aws.Bool(!spec.PrivateNetworking),
			},
		}
	} else if len(p.opts.SecurityGroupIDs) > 0 {
		input.SecurityGroupIds = p.opts.SecurityGroupIDs
	}

	return input, nil
}

// ec2ToInstance converts an EC2 instance to the unified Instance type
func ec2ToInstance(i ec2types.Instance) types.Instance {
	inst := types.Instance{
		ID:       deref(i.InstanceId),
		Type:     string(i.InstanceType),
		Provider: "aws",
		Raw:      i,
	}

	if i.State != nil {
		inst.State = ec2StateToInstanceState(i.State.Name)
	} else {
		inst.State = types.InstanceStateUnknown
	}

	inst.PrivateIP = deref(i.PrivateIpAddress)
	inst.PublicIP = deref(i.PublicIpAddress)

	if i.Placement != nil {
		inst.Zone = deref(i.Placement.AvailabilityZone)
	}

	if i.LaunchTime != nil {
		inst.LaunchedAt = *i.LaunchTime
	}

	for _, tag := range i.Tags {
		if deref(tag.Key) == "Name" {
			inst.Name = deref(tag.Value)
		}
	}

	return inst
}

// ec2StateToInstanceState converts EC2 state to the unified InstanceState
func ec2StateToInstanceState(state ec2types.InstanceStateName) types.InstanceState {
	switch state {
	case ec2types.InstanceStateNameRunning:
		return types.InstanceStateRunning
	case ec2types.InstanceStateNameStopped:
		return types.InstanceStateStopped
	case ec2types.InstanceStateNamePending:
		return types.InstanceStatePending
	case ec2types.InstanceStateNameStopping, ec2types.InstanceStateNameShuttingDown:
		return types.InstanceStateStopping
	default:
		return types.InstanceStateUnknown
	}
}
