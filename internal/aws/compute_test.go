package aws

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietdv277/nimbus/pkg/provider"
	"github.com/vietdv277/nimbus/pkg/types"
)

type fakeEC2 struct {
	describeInputs []*ec2.DescribeInstancesInput
	reservations   []ec2types.Reservation
	runInput       *ec2.RunInstancesInput
	runErr         error
}

func (f *fakeEC2) DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	f.describeInputs = append(f.describeInputs, params)
	return &ec2.DescribeInstancesOutput{Reservations: f.reservations}, nil
}

func (f *fakeEC2) RunInstances(ctx context.Context, params *ec2.RunInstancesInput, optFns ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error) {
	f.runInput = params
	if f.runErr != nil {
		return nil, f.runErr
	}
	return &ec2.RunInstancesOutput{Instances: []ec2types.Instance{{InstanceId: aws.String("i-0abc")}}}, nil
}

func ec2Instance(id, name, ip string, launched time.Time) ec2types.Instance {
	return ec2types.Instance{
		InstanceId:       aws.String(id),
		InstanceType:     ec2types.InstanceTypeT3Micro,
		State:            &ec2types.InstanceState{Name: ec2types.InstanceStateNameRunning},
		PublicIpAddress:  aws.String(ip),
		PrivateIpAddress: aws.String("172.31.0.10"),
		Placement:        &ec2types.Placement{AvailabilityZone: aws.String("us-east-1a")},
		LaunchTime:       aws.Time(launched),
		Tags:             []ec2types.Tag{{Key: aws.String("Name"), Value: aws.String(name)}},
	}
}

func TestEC2ToInstance(t *testing.T) {
	launched := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	inst := ec2ToInstance(ec2Instance("i-1", "app.example.com", "54.1.2.3", launched))

	assert.Equal(t, "i-1", inst.ID)
	assert.Equal(t, "app.example.com", inst.Name)
	assert.Equal(t, types.InstanceStateRunning, inst.State)
	assert.Equal(t, "54.1.2.3", inst.PublicIP)
	assert.Equal(t, "172.31.0.10", inst.PrivateIP)
	assert.Equal(t, "us-east-1a", inst.Zone)
	assert.Equal(t, "t3.micro", inst.Type)
	assert.Equal(t, launched, inst.LaunchedAt)
	assert.Equal(t, "aws", inst.Provider)
}

func TestEC2StateToInstanceState(t *testing.T) {
	assert.Equal(t, types.InstanceStateStopping, ec2StateToInstanceState(ec2types.InstanceStateNameShuttingDown))
	assert.Equal(t, types.InstanceStatePending, ec2StateToInstanceState(ec2types.InstanceStateNamePending))
	assert.Equal(t, types.InstanceStateUnknown, ec2StateToInstanceState(ec2types.InstanceStateNameTerminated))
}

func TestFindByName(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		api := &fakeEC2{}
		inst, err := NewComputeProvider(api, ComputeOptions{}).FindByName(context.Background(), "app.example.com")
		require.NoError(t, err)
		assert.Nil(t, inst)

		filters := api.describeInputs[0].Filters
		require.Len(t, filters, 2)
		assert.Equal(t, "tag:Name", aws.ToString(filters[0].Name))
		assert.Equal(t, []string{"app.example.com"}, filters[0].Values)
		assert.Equal(t, liveStates, filters[1].Values)
	})

	t.Run("newest wins", func(t *testing.T) {
		now := time.Now()
		api := &fakeEC2{reservations: []ec2types.Reservation{
			{Instances: []ec2types.Instance{ec2Instance("i-old", "app.example.com", "1.1.1.1", now.Add(-time.Hour))}},
			{Instances: []ec2types.Instance{ec2Instance("i-new", "app.example.com", "2.2.2.2", now)}},
		}}
		inst, err := NewComputeProvider(api, ComputeOptions{}).FindByName(context.Background(), "app.example.com")
		require.NoError(t, err)
		assert.Equal(t, "i-new", inst.ID)
	})
}

func TestGet_NotFound(t *testing.T) {
	_, err := NewComputeProvider(&fakeEC2{}, ComputeOptions{}).Get(context.Background(), "i-missing")
	assert.ErrorIs(t, err, provider.ErrNotFound)
}

func TestProvision(t *testing.T) {
	script := filepath.Join(t.TempDir(), "base.sh")
	require.NoError(t, os.WriteFile(script, []byte("apt-get install -y nginx\n"), 0o644))

	api := &fakeEC2{reservations: []ec2types.Reservation{
		{Instances: []ec2types.Instance{ec2Instance("i-0abc", "app.example.com", "54.1.2.3", time.Now())}},
	}}
	p := NewComputeProvider(api, ComputeOptions{KeyName: "ci", SubnetID: "subnet-1", SecurityGroupIDs: []string{"sg-1"}})

	inst, err := p.Provision(context.Background(), &types.ProvisionSpec{
		Name:              "app.example.com",
		Size:              "t3.micro",
		Image:             "ami-123",
		Region:            "us-east-1b",
		PrivateNetworking: true,
		Scripts:           []string{script},
	})

	require.NoError(t, err)
	assert.Equal(t, "i-0abc", inst.ID)
	assert.Equal(t, "54.1.2.3", inst.PublicIP)

	in := api.runInput
	assert.Equal(t, "ami-123", aws.ToString(in.ImageId))
	assert.Equal(t, ec2types.InstanceType("t3.micro"), in.InstanceType)
	assert.Equal(t, "ci", aws.ToString(in.KeyName))
	assert.Equal(t, "us-east-1b", aws.ToString(in.Placement.AvailabilityZone))
	require.Len(t, in.NetworkInterfaces, 1)
	assert.False(t, aws.ToBool(in.NetworkInterfaces[0].AssociatePublicIpAddress))
	assert.Equal(t, []string{"sg-1"}, in.NetworkInterfaces[0].Groups)
	assert.Empty(t, in.SecurityGroupIds)

	userData, err := base64.StdEncoding.DecodeString(aws.ToString(in.UserData))
	require.NoError(t, err)
	assert.Contains(t, string(userData), "apt-get install -y nginx")

	tags := in.TagSpecifications[0].Tags
	assert.Equal(t, "app.example.com", aws.ToString(tags[0].Value))
	assert.Equal(t, ManagedTag, aws.ToString(tags[1].Key))
}

func TestProvision_Failure(t *testing.T) {
	cause := errors.New("InsufficientInstanceCapacity")
	api := &fakeEC2{runErr: cause}

	_, err := NewComputeProvider(api, ComputeOptions{}).Provision(context.Background(), &types.ProvisionSpec{Name: "x", Image: "ami-1", Size: "t3.micro"})

	assert.ErrorIs(t, err, cause)
	assert.Empty(t, api.describeInputs, "a failed launch is not polled")
}
