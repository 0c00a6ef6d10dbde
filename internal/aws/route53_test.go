package aws

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietdv277/nimbus/pkg/provider"
)

type fakeRoute53 struct {
	pages   []*route53.ListResourceRecordSetsOutput
	listed  []*route53.ListResourceRecordSetsInput
	changes []r53types.Change
}

func (f *fakeRoute53) GetHostedZone(ctx context.Context, params *route53.GetHostedZoneInput, optFns ...func(*route53.Options)) (*route53.GetHostedZoneOutput, error) {
	return &route53.GetHostedZoneOutput{HostedZone: &r53types.HostedZone{Id: params.Id, Name: aws.String("example.com.")}}, nil
}

func (f *fakeRoute53) ListResourceRecordSets(ctx context.Context, params *route53.ListResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ListResourceRecordSetsOutput, error) {
	f.listed = append(f.listed, params)
	page := f.pages[0]
	if len(f.pages) > 1 {
		f.pages = f.pages[1:]
	}
	return page, nil
}

func (f *fakeRoute53) ChangeResourceRecordSets(ctx context.Context, params *route53.ChangeResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error) {
	f.changes = append(f.changes, params.ChangeBatch.Changes...)
	return &route53.ChangeResourceRecordSetsOutput{}, nil
}

func aSet(name string, values ...string) r53types.ResourceRecordSet {
	set := r53types.ResourceRecordSet{Name: aws.String(name), Type: r53types.RRTypeA, TTL: aws.Int64(300)}
	for _, v := range values {
		set.ResourceRecords = append(set.ResourceRecords, r53types.ResourceRecord{Value: aws.String(v)})
	}
	return set
}

func TestListRecords_Paginates(t *testing.T) {
	api := &fakeRoute53{pages: []*route53.ListResourceRecordSetsOutput{
		{
			ResourceRecordSets: []r53types.ResourceRecordSet{aSet("app.example.com.", "10.0.0.5", "10.0.0.6")},
			IsTruncated:        true,
			NextRecordName:     aws.String("web.example.com."),
			NextRecordType:     r53types.RRTypeA,
		},
		{ResourceRecordSets: []r53types.ResourceRecordSet{aSet("web.example.com.", "10.0.0.7")}},
	}}

	records, err := NewDNSProvider(api).ListRecords(context.Background(), "Z1")

	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "app.example.com.|A|10.0.0.5", records[0].ID)
	assert.Equal(t, "app.example.com", records[0].Name)
	assert.Equal(t, "10.0.0.7", records[2].Data)
	assert.Equal(t, int64(300), records[2].TTL)
	assert.Equal(t, "web.example.com.", aws.ToString(api.listed[1].StartRecordName))
}

func TestCreateRecord_Upserts(t *testing.T) {
	api := &fakeRoute53{}

	rec, err := NewDNSProvider(api).CreateRecord(context.Background(), "Z1", "A", "10.0.0.5", &provider.RecordOptions{Name: "app", TTL: 60})

	require.NoError(t, err)
	require.Len(t, api.changes, 1)
	assert.Equal(t, r53types.ChangeActionUpsert, api.changes[0].Action)
	assert.Equal(t, "app.example.com.", aws.ToString(api.changes[0].ResourceRecordSet.Name))
	assert.Equal(t, int64(60), aws.ToInt64(api.changes[0].ResourceRecordSet.TTL))
	assert.Equal(t, "app.example.com.|A|10.0.0.5", rec.ID)
}

func TestDestroyRecord(t *testing.T) {
	t.Run("single value deletes the set", func(t *testing.T) {
		api := &fakeRoute53{pages: []*route53.ListResourceRecordSetsOutput{
			{ResourceRecordSets: []r53types.ResourceRecordSet{aSet("app.example.com.", "10.0.0.5")}},
		}}
		require.NoError(t, NewDNSProvider(api).DestroyRecord(context.Background(), "Z1", "app.example.com.|A|10.0.0.5"))
		require.Len(t, api.changes, 1)
		assert.Equal(t, r53types.ChangeActionDelete, api.changes[0].Action)
	})

	t.Run("multi value keeps the rest", func(t *testing.T) {
		api := &fakeRoute53{pages: []*route53.ListResourceRecordSetsOutput{
			{ResourceRecordSets: []r53types.ResourceRecordSet{aSet("app.example.com.", "10.0.0.5", "10.0.0.6")}},
		}}
		require.NoError(t, NewDNSProvider(api).DestroyRecord(context.Background(), "Z1", "app.example.com.|A|10.0.0.5"))
		require.Len(t, api.changes, 1)
		assert.Equal(t, r53types.ChangeActionUpsert, api.changes[0].Action)
		rrs := api.changes[0].ResourceRecordSet.ResourceRecords
		require.Len(t, rrs, 1)
		assert.Equal(t, "10.0.0.6", aws.ToString(rrs[0].Value))
	})

	t.Run("missing", func(t *testing.T) {
		api := &fakeRoute53{pages: []*route53.ListResourceRecordSetsOutput{
			{ResourceRecordSets: []r53types.ResourceRecordSet{aSet("web.example.com.", "10.0.0.5")}},
		}}
		err := NewDNSProvider(api).DestroyRecord(context.Background(), "Z1", "app.example.com.|A|10.0.0.5")
		assert.ErrorIs(t, err, provider.ErrNotFound)
		assert.Empty(t, api.changes)
	})

	t.Run("malformed id", func(t *testing.T) {
		assert.Error(t, NewDNSProvider(&fakeRoute53{}).DestroyRecord(context.Background(), "Z1", "55"))
	})
}
