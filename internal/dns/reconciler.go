// Package dns keeps the A record for a deployment pointed at its instance.
package dns

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/vietdv277/nimbus/pkg/provider"
	"github.com/vietdv277/nimbus/pkg/types"
)

// DefaultTTL is used for new records when Config.TTL is zero
const DefaultTTL int64 = 300

// ErrMissingZone is returned before any remote call when no zone is configured
var ErrMissingZone = errors.New("dns zone id is not configured")

// Config holds the zone the reconciler manages
type Config struct {
	ZoneID string
	TTL    int64
}

// Reconciler replaces the A record matching an instance's address
type Reconciler struct {
	cfg       Config
	instances provider.InstanceGetter
	dns       provider.DNSProvider
	logger    log.Logger
}

// Option allows customizing the Reconciler
type Option func(*Reconciler)

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// NewReconciler creates a Reconciler for cfg.ZoneID
func NewReconciler(cfg Config, instances provider.InstanceGetter, dns provider.DNSProvider, opts ...Option) *Reconciler {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	r := &Reconciler{
		cfg:       cfg,
		instances: instances,
		dns:       dns,
		logger:    log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = log.With(r.logger, "component", "dns", "zone", cfg.ZoneID)
	return r
}

// Reconcile points subdomain at the instance's address. A record already
// holding that address is destroyed first; a destroy failure aborts before
// the new record is created. Re-running after a failure is safe.
func (r *Reconciler) Reconcile(ctx context.Context, instanceID, subdomain string) (*types.DomainRecord, error) {
	if r.cfg.ZoneID == "" {
		return nil, ErrMissingZone
	}

	inst, err := r.instances.Get(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve instance %s: %w", instanceID, err)
	}
	ip := inst.Address()
	if ip == "" {
		return nil, fmt.Errorf("instance %s: %w", instanceID, provider.ErrNoAddress)
	}

	records, err := r.dns.ListRecords(ctx, r.cfg.ZoneID)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	if stale := matchAddress(records, ip); stale != nil {
		level.Info(r.logger).Log("msg", "removing stale record", "record", stale.ID, "name", stale.Name, "ip", ip)
		if err := r.dns.DestroyRecord(ctx, r.cfg.ZoneID, stale.ID); err != nil {
			return nil, fmt.Errorf("failed to destroy record %s: %w", stale.ID, err)
		}
	}

	rec, err := r.dns.CreateRecord(ctx, r.cfg.ZoneID, types.RecordTypeA, ip, &provider.RecordOptions{
		Name: subdomain,
		TTL:  r.cfg.TTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create record for %s: %w", subdomain, err)
	}

	level.Info(r.logger).Log("msg", "record created", "name", subdomain, "ip", ip)
	return rec, nil
}

// matchAddress returns the first record whose data is exactly ip
func matchAddress(records []types.DomainRecord, ip string) *types.DomainRecord {
	for i := range records {
		if records[i].Data == ip {
			return &records[i]
		}
	}
	return nil
}
