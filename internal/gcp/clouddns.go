package gcp

import (
	"context"
	"fmt"
	"strings"

	dns "google.golang.org/api/dns/v1"

	"github.com/vietdv277/nimbus/pkg/provider"
	"github.com/vietdv277/nimbus/pkg/types"
)

// dnsAPI is the subset of the Cloud DNS service used here
type dnsAPI interface {
	ZoneDNSName(ctx context.Context, zone string) (string, error)
	ListRecordSets(ctx context.Context, zone string) ([]*dns.ResourceRecordSet, error)
	Change(ctx context.Context, zone string, change *dns.Change) error
}

// DNSProvider implements provider.DNSProvider for a Cloud DNS managed zone.
// Zone IDs are managed zone names; record IDs have the form name|type|value.
type DNSProvider struct {
	api dnsAPI
}

// NewDNSProvider creates a Cloud DNS provider for the client's project
func NewDNSProvider(ctx context.Context, client *Client) (*DNSProvider, error) {
	svc, err := dns.NewService(ctx, client.ClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("create cloud dns service: %w", err)
	}
	return &DNSProvider{api: &restDNS{svc: svc, project: client.Project()}}, nil
}

// ListRecords returns every record value in the zone
func (p *DNSProvider) ListRecords(ctx context.Context, zoneID string) ([]types.DomainRecord, error) {
	sets, err := p.api.ListRecordSets(ctx, zoneID)
	if err != nil {
		return nil, fmt.Errorf("list record sets in %s: %w", zoneID, err)
	}

	var records []types.DomainRecord
	for _, set := range sets {
		for _, value := range set.Rrdatas {
			records = append(records, types.DomainRecord{
				ID:   types.RecordID(set.Name, set.Type, value),
				Type: set.Type,
				Name: strings.TrimSuffix(set.Name, "."),
				Data: value,
				TTL:  set.Ttl,
			})
		}
	}
	return records, nil
}

// CreateRecord replaces any record set for the name and type with a single
// value set pointing at address
func (p *DNSProvider) CreateRecord(ctx context.Context, zoneID, recordType, address string, opts *provider.RecordOptions) (*types.DomainRecord, error) {
	if opts == nil || opts.Name == "" {
		return nil, fmt.Errorf("record name is required")
	}

	zoneName, err := p.api.ZoneDNSName(ctx, zoneID)
	if err != nil {
		return nil, fmt.Errorf("get managed zone %s: %w", zoneID, err)
	}
	name := types.QualifyName(opts.Name, zoneName)

	change := &dns.Change{
		Additions: []*dns.ResourceRecordSet{{
			Name:    name,
			Type:    recordType,
			Ttl:     opts.TTL,
			Rrdatas: []string{address},
		}},
	}
	existing, err := p.findSet(ctx, zoneID, name, recordType)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		change.Deletions = []*dns.ResourceRecordSet{existing}
	}

	if err := p.api.Change(ctx, zoneID, change); err != nil {
		return nil, fmt.Errorf("create record %s: %w", name, err)
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

	set, err := p.findSet(ctx, zoneID, name, recordType)
	if err != nil {
		return err
	}
	if set == nil {
		return fmt.Errorf("record %s: %w", id, provider.ErrNotFound)
	}

	var rest []string
	for _, v := range set.Rrdatas {
		if v != value {
			rest = append(rest, v)
		}
	}
	if len(rest) == len(set.Rrdatas) {
		return fmt.Errorf("record %s: %w", id, provider.ErrNotFound)
	}

	change := &dns.Change{Deletions: []*dns.ResourceRecordSet{set}}
	if len(rest) > 0 {
		change.Additions = []*dns.ResourceRecordSet{{
			Name:    set.Name,
			Type:    set.Type,
			Ttl:     set.Ttl,
			Rrdatas: rest,
		}}
	}
	if err := p.api.Change(ctx, zoneID, change); err != nil {
		return fmt.Errorf("destroy record %s: %w", id, err)
	}
	return nil
}

func (p *DNSProvider) findSet(ctx context.Context, zoneID, name, recordType string) (*dns.ResourceRecordSet, error) {
	sets, err := p.api.ListRecordSets(ctx, zoneID)
	if err != nil {
		return nil, fmt.Errorf("list record sets in %s: %w", zoneID, err)
	}
	for _, set := range sets {
		if strings.EqualFold(set.Name, name) && set.Type == recordType {
			return set, nil
		}
	}
	return nil, nil
}

// restDNS adapts the generated Cloud DNS service to dnsAPI
type restDNS struct {
	svc     *dns.Service
	project string
}

func (r *restDNS) ZoneDNSName(ctx context.Context, zone string) (string, error) {
	mz, err := r.svc.ManagedZones.Get(r.project, zone).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return mz.DnsName, nil
}

func (r *restDNS) ListRecordSets(ctx context.Context, zone string) ([]*dns.ResourceRecordSet, error) {
	var sets []*dns.ResourceRecordSet
	err := r.svc.ResourceRecordSets.List(r.project, zone).Pages(ctx, func(page *dns.ResourceRecordSetsListResponse) error {
		sets = append(sets, page.Rrsets...)
		return nil
	})
	return sets, err
}

func (r *restDNS) Change(ctx context.Context, zone string, change *dns.Change) error {
	_, err := r.svc.Changes.Create(r.project, zone, change).Context(ctx).Do()
	return err
}
