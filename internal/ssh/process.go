// Package ssh reaches instances over SSH: running commands, mirroring
// directories with rsync and cleaning known_hosts entries.
package ssh

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Process runs a local executable
type Process interface {
	// Run executes name with args and returns its combined output
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecProcess runs executables with os/exec
type ExecProcess struct{}

// Run implements Process
func (ExecProcess) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return out, fmt.Errorf("%s: %w", name, err)
		}
		return out, fmt.Errorf("%s: %w: %s", name, err, msg)
	}
	return out, nil
}

// Config holds the SSH settings shared by the runner and the copier
type Config struct {
	User           string
	IdentityFile   string
	KnownHostsFile string
	Port           int
}

// DefaultPort is used when Config.Port is zero
const DefaultPort = 22

func (c Config) port() int {
	if c.Port == 0 {
		return DefaultPort
	}
	return c.Port
}

func (c Config) user() string {
	if c.User == "" {
		return "root"
	}
	return c.User
}
