package ssh

import (
	"context"
	"fmt"
	"strings"

	"github.com/vietdv277/nimbus/pkg/provider"
	"github.com/vietdv277/nimbus/pkg/types"
)

// RsyncCopier mirrors local directories to instances with rsync over ssh
type RsyncCopier struct {
	cfg       Config
	instances provider.InstanceGetter
	proc      Process
}

// NewRsyncCopier creates a copier that resolves instance IDs through instances.
// A nil proc runs the real rsync binary.
func NewRsyncCopier(cfg Config, instances provider.InstanceGetter, proc Process) *RsyncCopier {
	if proc == nil {
		proc = ExecProcess{}
	}
	return &RsyncCopier{cfg: cfg, instances: instances, proc: proc}
}

// CopyFolder makes remotePath mirror localPath. Files present remotely but
// not locally are deleted, so a repeated copy converges on the same tree.
func (c *RsyncCopier) CopyFolder(ctx context.Context, instanceID, localPath, remotePath string) error {
	addr, err := resolveAddress(ctx, c.instances, instanceID)
	if err != nil {
		return err
	}

	args := c.args(addr, localPath, remotePath)
	if _, err := c.proc.Run(ctx, "rsync", args...); err != nil {
		return fmt.Errorf("failed to copy %s to %s:%s: %w", localPath, instanceID, remotePath, err)
	}
	return nil
}

func (c *RsyncCopier) args(addr, localPath, remotePath string) []string {
	return []string{
		"-az", "--delete",
		"-e", c.sshCommand(),
		"--rsync-path=mkdir -p " + remotePath + " && rsync",
		strings.TrimSuffix(localPath, "/") + "/",
		fmt.Sprintf("%s@%s:%s/", c.cfg.user(), addr, strings.TrimSuffix(remotePath, "/")),
	}
}

func (c *RsyncCopier) sshCommand() string {
	parts := []string{"ssh", "-p", fmt.Sprint(c.cfg.port()), "-o", "StrictHostKeyChecking=accept-new", "-o", "BatchMode=yes"}
	if c.cfg.IdentityFile != "" {
		parts = append(parts, "-i", c.cfg.IdentityFile)
	}
	if c.cfg.KnownHostsFile != "" {
		parts = append(parts, "-o", "UserKnownHostsFile="+c.cfg.KnownHostsFile)
	}
	return strings.Join(parts, " ")
}

func resolveAddress(ctx context.Context, instances provider.InstanceGetter, instanceID string) (string, error) {
	inst, err := instances.Get(ctx, instanceID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve instance %s: %w", instanceID, err)
	}
	return address(inst)
}

func address(inst *types.Instance) (string, error) {
	addr := inst.Address()
	if addr == "" {
		return "", fmt.Errorf("instance %s: %w", inst.ID, provider.ErrNoAddress)
	}
	return addr, nil
}
