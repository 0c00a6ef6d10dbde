// Package deploy drives a build from lookup to a running, addressable
// service on its instance.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vietdv277/nimbus/internal/metrics"
	"github.com/vietdv277/nimbus/internal/transfer"
	"github.com/vietdv277/nimbus/pkg/provider"
	"github.com/vietdv277/nimbus/pkg/types"
)

// ErrInvalidRequest is returned when a request fails validation. No remote
// call has been made when it is returned.
var ErrInvalidRequest = errors.New("invalid deployment request")

// Instances finds or creates the instance for a request
type Instances interface {
	FindByName(ctx context.Context, name string) (*types.Instance, error)
	Provision(ctx context.Context, spec *types.ProvisionSpec) (*types.Instance, error)
}

// Domains points a subdomain at an instance
type Domains interface {
	Reconcile(ctx context.Context, instanceID, subdomain string) (*types.DomainRecord, error)
}

// Transferer copies a build onto an instance and promotes it
type Transferer interface {
	Transfer(ctx context.Context, instanceID, localPath string) error
}

// Step records how one pipeline state resolved
type Step struct {
	State    State
	Event    Event
	Duration time.Duration
	Err      error
}

// Report describes a finished pipeline run
type Report struct {
	RunID    string
	Branch   Branch
	Instance *types.Instance
	Record   *types.DomainRecord
	Created  []string // lifecycle scripts created empty before transfer
	Steps    []Step
	Final    State
}

// Pipeline composes instance lookup, DNS, transfer and lifecycle commands
// into one linear run per request
type Pipeline struct {
	instances      Instances
	knownHosts     provider.KnownHostsPurger
	knownHostsPath string
	domains        Domains
	transfer       Transferer
	exec           Executor

	validate *validator.Validate
	logger   log.Logger
	metrics  *metrics.Metrics
	newID    func() string
}

// Option allows customizing the Pipeline
type Option func(*Pipeline)

// WithKnownHosts sets the purger run once for a new instance and the
// known_hosts file it cleans. Without it the purge step is a no-op.
func WithKnownHosts(purger provider.KnownHostsPurger, path string) Option {
	return func(p *Pipeline) {
		p.knownHosts = purger
		p.knownHostsPath = path
	}
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithRunID replaces the run ID generator
func WithRunID(fn func() string) Option {
	return func(p *Pipeline) {
		p.newID = fn
	}
}

// New creates a Pipeline
func New(instances Instances, domains Domains, tr Transferer, exec Executor, opts ...Option) *Pipeline {
	p := &Pipeline{
		instances: instances,
		domains:   domains,
		transfer:  tr,
		exec:      exec,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    log.NewNopLogger(),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// run carries values between states of one pipeline invocation
type run struct {
	req      *types.DeploymentRequest
	logger   log.Logger
	report   *Report
	instance *types.Instance

	// stopAt ends the run successfully when the machine would enter it
	stopAt State
}

// Run executes the pipeline for req. It returns the report together with
// the first error encountered; the pipeline never retries a failed step.
func (p *Pipeline) Run(ctx context.Context, req *types.DeploymentRequest) (*Report, error) {
	return p.run(ctx, req, StateDone)
}

// Provision runs the pipeline up to, but not including, the build transfer:
// an existing instance is only looked up, a missing one is provisioned, its
// known host purged and its domain registered. req.BuildPath is ignored.
func (p *Pipeline) Provision(ctx context.Context, req *types.DeploymentRequest) (*Report, error) {
	return p.run(ctx, req, StateTransferring, "BuildPath")
}

func (p *Pipeline) run(ctx context.Context, req *types.DeploymentRequest, stopAt State, skipFields ...string) (*Report, error) {
	report := &Report{RunID: p.newID(), Final: StateFailed}
	logger := log.With(p.logger, "component", "deploy", "run_id", report.RunID)

	var err error
	if len(skipFields) > 0 {
		err = p.validate.StructExcept(req, skipFields...)
	} else {
		err = p.validate.Struct(req)
	}
	if err == nil && stopAt != StateTransferring {
		_, err = transfer.StagingPath(req.BuildPath)
	}
	if err != nil {
		level.Error(logger).Log("msg", "rejected deployment request", "err", err)
		return report, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	logger = log.With(logger, "subdomain", req.Subdomain)
	r := &run{req: req, logger: logger, report: report, stopAt: stopAt}
	start := time.Now()

	state := StateLookingUp
	var runErr error
	for !state.Terminal() {
		stepStart := time.Now()
		event, err := p.step(ctx, state, r)
		report.Steps = append(report.Steps, Step{State: state, Event: event, Duration: time.Since(stepStart), Err: err})

		next, terr := transition(state, event)
		if terr != nil {
			runErr = terr
			state = StateFailed
			break
		}
		if err != nil {
			level.Error(logger).Log("msg", "deployment step failed", "state", state, "err", err)
			runErr = err
		} else {
			level.Debug(logger).Log("msg", "step complete", "state", state, "event", event, "next", next)
		}
		if next == r.stopAt {
			next = StateDone
		}
		state = next
	}

	report.Final = state
	p.metrics.ObserveDeployment(string(report.Branch), runErr, time.Since(start))
	if runErr != nil {
		return report, runErr
	}

	level.Info(logger).Log("msg", "deployment complete", "branch", report.Branch,
		"instance", r.instance.ID, "elapsed", time.Since(start).Round(time.Millisecond))
	return report, nil
}

func (p *Pipeline) step(ctx context.Context, state State, r *run) (Event, error) {
	switch state {
	case StateLookingUp:
		return p.lookUp(ctx, r)
	case StateProvisioning:
		return p.provision(ctx, r)
	case StatePurgingKnownHost:
		return p.purgeKnownHost(ctx, r)
	case StateReconcilingDomain:
		return p.reconcileDomain(ctx, r)
	case StateTransferring:
		return p.transferBuild(ctx, r)
	case StateRunningLifecycle:
		return p.runLifecycle(ctx, r)
	}
	return EventFailed, fmt.Errorf("%w: no step for %s", ErrInvalidTransition, state)
}

func (p *Pipeline) lookUp(ctx context.Context, r *run) (Event, error) {
	name := r.req.InstanceName()
	inst, err := p.instances.FindByName(ctx, name)
	if err != nil {
		return EventFailed, fmt.Errorf("failed to look up instance %s: %w", name, err)
	}
	if inst == nil {
		r.report.Branch = BranchCreate
		level.Info(r.logger).Log("msg", "no existing instance, creating", "name", name)
		return EventNotFound, nil
	}

	r.instance = inst
	r.report.Instance = inst
	r.report.Branch = BranchUpdate
	level.Info(r.logger).Log("msg", "updating existing instance", "name", name, "id", inst.ID)
	return EventFound, nil
}

func (p *Pipeline) provision(ctx context.Context, r *run) (Event, error) {
	inst, err := p.instances.Provision(ctx, r.req.ProvisionSpec())
	if err != nil {
		return EventFailed, err
	}
	r.instance = inst
	r.report.Instance = inst
	return EventSucceeded, nil
}

// purgeKnownHost is best-effort: a failure is logged and the run continues
func (p *Pipeline) purgeKnownHost(ctx context.Context, r *run) (Event, error) {
	if p.knownHosts == nil {
		return EventSucceeded, nil
	}
	addr := r.instance.Address()
	if addr == "" {
		return EventSucceeded, nil
	}
	if err := p.knownHosts.PurgeKnownHost(ctx, addr, p.knownHostsPath); err != nil {
		level.Warn(r.logger).Log("msg", "failed to purge known host", "address", addr, "err", err)
	}
	return EventSucceeded, nil
}

func (p *Pipeline) reconcileDomain(ctx context.Context, r *run) (Event, error) {
	rec, err := p.domains.Reconcile(ctx, r.instance.ID, r.req.Subdomain)
	if err != nil {
		return EventFailed, err
	}
	r.report.Record = rec
	return EventSucceeded, nil
}

func (p *Pipeline) transferBuild(ctx context.Context, r *run) (Event, error) {
	created, err := EnsureLifecycleScripts(r.req.BuildPath, LifecycleScripts(r.req.LifecycleScripts))
	if err != nil {
		return EventFailed, err
	}
	r.report.Created = created

	if err := p.transfer.Transfer(ctx, r.instance.ID, r.req.BuildPath); err != nil {
		return EventFailed, err
	}
	return EventSucceeded, nil
}

func (p *Pipeline) runLifecycle(ctx context.Context, r *run) (Event, error) {
	commands := RestartCommands()
	if r.report.Branch == BranchCreate {
		commands = StartCommands()
	}
	if err := RunSequence(ctx, p.exec, r.instance.ID, commands); err != nil {
		return EventFailed, err
	}
	return EventSucceeded, nil
}
