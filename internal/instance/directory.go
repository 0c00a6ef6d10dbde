// Package instance locates and provisions the compute instance that hosts
// a deployment.
package instance

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/vietdv277/nimbus/pkg/provider"
	"github.com/vietdv277/nimbus/pkg/types"
)

// ProjectScripts are looked up in the build directory and appended to the
// bootstrap script list when present
var ProjectScripts = []string{"provision.sh", "build.sh"}

// Name returns the logical instance name for subdomain under hostname
func Name(subdomain, hostname string) string {
	return subdomain + "." + hostname
}

// Directory finds instances by logical name and creates new ones
type Directory struct {
	compute provider.ComputeProvider
	logger  log.Logger
}

// NewDirectory creates a Directory over compute
func NewDirectory(compute provider.ComputeProvider, logger log.Logger) *Directory {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Directory{
		compute: compute,
		logger:  log.With(logger, "component", "instance"),
	}
}

// FindByName returns the instance named name. A nil instance with a nil
// error means no such instance exists.
func (d *Directory) FindByName(ctx context.Context, name string) (*types.Instance, error) {
	inst, err := d.compute.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to look up instance %s: %w", name, err)
	}
	if inst == nil {
		level.Info(d.logger).Log("msg", "no instance found", "name", name)
		return nil, nil
	}
	level.Info(d.logger).Log("msg", "found instance", "name", name, "id", inst.ID, "state", inst.State)
	return inst, nil
}

// Get returns the instance with the given provider ID
func (d *Directory) Get(ctx context.Context, id string) (*types.Instance, error) {
	inst, err := d.compute.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get instance %s: %w", id, err)
	}
	return inst, nil
}

// Provision creates a new instance. The call is made once; a failure is
// returned to the caller since a repeat could create a duplicate.
func (d *Directory) Provision(ctx context.Context, spec *types.ProvisionSpec) (*types.Instance, error) {
	level.Info(d.logger).Log("msg", "provisioning instance", "name", spec.Name,
		"size", spec.Size, "image", spec.Image, "scripts", len(spec.Scripts))

	inst, err := d.compute.Provision(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to provision instance %s: %w", spec.Name, err)
	}

	level.Info(d.logger).Log("msg", "instance provisioned", "name", spec.Name, "id", inst.ID,
		"public_ip", inst.PublicIP, "private_ip", inst.PrivateIP)
	return inst, nil
}

// BootstrapScripts returns the scripts to run on a new instance: every file
// in scriptsPath in lexical order, then any ProjectScripts present in
// buildPath. An empty scriptsPath or buildPath contributes nothing.
func BootstrapScripts(scriptsPath, buildPath string) ([]string, error) {
	var scripts []string

	if scriptsPath != "" {
		matches, err := filepath.Glob(filepath.Join(scriptsPath, "*"))
		if err != nil {
			return nil, fmt.Errorf("failed to list scripts in %s: %w", scriptsPath, err)
		}
		sort.Strings(matches)
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				return nil, fmt.Errorf("failed to stat script %s: %w", m, err)
			}
			if info.Mode().IsRegular() {
				scripts = append(scripts, m)
			}
		}
	}

	if buildPath == "" {
		return scripts, nil
	}
	for _, name := range ProjectScripts {
		p := filepath.Join(buildPath, name)
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			scripts = append(scripts, p)
		}
	}

	return scripts, nil
}
