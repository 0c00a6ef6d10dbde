package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"

	"github.com/vietdv277/nimbus/pkg/provider"
	"github.com/vietdv277/nimbus/pkg/types"
)

// Route53API is the subset of the Route 53 client used by DNSProvider
type Route53API interface {
	GetHostedZone(ctx context.Context, params *route53.GetHostedZoneInput, optFns ...func(*route53.Options)) (*route53.GetHostedZoneOutput, error)
	ListResourceRecordSets(ctx context.Context, params *route53.ListResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ListResourceRecordSetsOutput, error)
	ChangeResourceRecordSets(ctx context.Context, params *route53.ChangeResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
}

// DNSProvider implements provider.DNSProvider for a Route 53 hosted zone.
// Each value of a record set is exposed as its own record, with an ID of
// the form name|type|value.
type DNSProvider struct {
	api Route53API
}

// NewDNSProvider creates a Route 53 DNS provider
func NewDNSProvider(api Route53API) *DNSProvider {
	return &DNSProvider{api: api}
}

// ListRecords returns every record value in the zone
func (p *DNSProvider) ListRecords(ctx context.Context, zoneID string) ([]types.DomainRecord, error) {
	var records []types.DomainRecord

	input := &route53.ListResourceRecordSetsInput{HostedZoneId: aws.String(zoneID)}
	for {
		output, err := p.api.ListResourceRecordSets(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to list record sets: %w", err)
		}

		for _, set := range output.ResourceRecordSets {
			records = append(records, recordSetToRecords(set)...)
		}

		if !output.IsTruncated {
			break
		}
		input.StartRecordName = output.NextRecordName
		input.StartRecordType = output.NextRecordType
		input.StartRecordIdentifier = output.NextRecordIdentifier
	}

	return records, nil
}

// CreateRecord upserts a single-value record set for opts.Name in the zone
func (p *DNSProvider) CreateRecord(ctx context.Context, zoneID, recordType, address string, opts *provider.RecordOptions) (*types.DomainRecord, error) {
	if opts == nil || opts.Name == "" {
		return nil, fmt.Errorf("record name is required")
	}

	zone, err := p.api.GetHostedZone(ctx, &route53.GetHostedZoneInput{Id: aws.String(zoneID)})
	if err != nil {
		return nil, fmt.Errorf("failed to get hosted zone %s: %w", zoneID, err)
	}
	if zone.HostedZone == nil {
		return nil, fmt.Errorf("hosted zone %s: %w", zoneID, provider.ErrNotFound)
	}

	name := types.QualifyName(opts.Name, deref(zone.HostedZone.Name))
	set := &r53types.ResourceRecordSet{
		Name:            aws.String(name),
		Type:            r53types.RRType(recordType),
		TTL:             aws.Int64(opts.TTL),
		ResourceRecords: []r53types.ResourceRecord{{Value: aws.String(address)}},
	}

	if err := p.change(ctx, zoneID, r53types.ChangeActionUpsert, set); err != nil {
		return nil, err
	}

	return &types.DomainRecord{
		ID:   types.RecordID(name, recordType, address),
		Type: recordType,
		Name: strings.TrimSuffix(name, "."),
		Data: address,
		TTL:  opts.TTL,
	}, nil
}

// DestroyRecord removes one value from its record set, deleting the set when
// it was the only value
func (p *DNSProvider) DestroyRecord(ctx context.Context, zoneID, id string) error {
	name, recordType, value, err := types.ParseRecordID(id)
	if err != nil {
		return err
	}

	output, err := p.api.ListResourceRecordSets(ctx, &route53.ListResourceRecordSetsInput{
		HostedZoneId:    aws.String(zoneID),
		StartRecordName: aws.String(name),
		StartRecordType: r53types.RRType(recordType),
		MaxItems:        aws.Int32(1),
	})
	if err != nil {
		return fmt.Errorf("failed to look up record set %s: %w", name, err)
	}

	for _, set := range output.ResourceRecordSets {
		if !strings.EqualFold(deref(set.Name), name) || string(set.Type) != recordType {
			continue
		}

		var rest []r53types.ResourceRecord
		for _, rr := range set.ResourceRecords {
			if deref(rr.Value) != value {
				rest = append(rest, rr)
			}
		}
		if len(rest) == len(set.ResourceRecords) {
			break
		}

		if len(rest) == 0 {
			return p.change(ctx, zoneID, r53types.ChangeActionDelete, &set)
		}
		set.ResourceRecords = rest
		return p.change(ctx, zoneID, r53types.ChangeActionUpsert, &set)
	}

	return fmt.Errorf("record %s: %w", id, provider.ErrNotFound)
}

func (p *DNSProvider) change(ctx context.Context, zoneID string, action r53types.ChangeAction, set *r53types.ResourceRecordSet) error {
	_, err := p.api.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		ChangeBatch: &r53types.ChangeBatch{
			Comment: aws.String("nimbus"),
			Changes: []r53types.Change{{Action: action, ResourceRecordSet: set}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to %s record set %s: %w", strings.ToLower(string(action)), deref(set.Name), err)
	}
	return nil
}

func recordSetToRecords(set r53types.ResourceRecordSet) []types.DomainRecord {
	name := deref(set.Name)
	var ttl int64
	if set.TTL != nil {
		ttl = *set.TTL
	}

	records := make([]types.DomainRecord, 0, len(set.ResourceRecords))
	for _, rr := range set.ResourceRecords {
		value := deref(rr.Value)
		records = append(records, types.DomainRecord{
			ID:   types.RecordID(name, string(set.Type), value),
			Type: string(set.Type),
			Name: strings.TrimSuffix(name, "."),
			Data: value,
			TTL:  ttl,
		})
	}
	return records
}
