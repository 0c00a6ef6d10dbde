package ssh

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Purger removes host keys from a known_hosts file with ssh-keygen -R
type Purger struct {
	proc Process
}

// NewPurger creates a Purger. A nil proc runs the real ssh-keygen binary.
func NewPurger(proc Process) *Purger {
	if proc == nil {
		proc = ExecProcess{}
	}
	return &Purger{proc: proc}
}

// PurgeKnownHost removes every key recorded for address. A missing
// known_hosts file has nothing to purge.
func (p *Purger) PurgeKnownHost(ctx context.Context, address, knownHostsPath string) error {
	if address == "" {
		return errors.New("address is required")
	}
	if _, err := os.Stat(knownHostsPath); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if _, err := p.proc.Run(ctx, "ssh-keygen", "-R", address, "-f", knownHostsPath); err != nil {
		return fmt.Errorf("failed to purge %s from %s: %w", address, knownHostsPath, err)
	}
	return nil
}
