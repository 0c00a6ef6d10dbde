package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/vietdv277/nimbus/pkg/provider"
)

// DefaultDialTimeout bounds the TCP connect to an instance
const DefaultDialTimeout = 15 * time.Second

// Runner executes commands on instances over an SSH session
type Runner struct {
	cfg       Config
	instances provider.InstanceGetter
	dialer    net.Dialer
}

// NewRunner creates a Runner that resolves instance IDs through instances
func NewRunner(cfg Config, instances provider.InstanceGetter) *Runner {
	return &Runner{
		cfg:       cfg,
		instances: instances,
		dialer:    net.Dialer{Timeout: DefaultDialTimeout},
	}
}

// RunCommand runs command in a new session and returns its stdout. A non-zero
// exit status is returned as *provider.ExitError.
func (r *Runner) RunCommand(ctx context.Context, instanceID, command string) (string, error) {
	addr, err := resolveAddress(ctx, r.instances, instanceID)
	if err != nil {
		return "", err
	}

	clientCfg, err := r.clientConfig()
	if err != nil {
		return "", err
	}

	hostport := net.JoinHostPort(addr, strconv.Itoa(r.cfg.port()))
	conn, err := r.dialer.DialContext(ctx, "tcp", hostport)
	if err != nil {
		return "", fmt.Errorf("failed to connect to %s: %w", hostport, err)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, hostport, clientCfg)
	if err != nil {
		conn.Close()
		return "", fmt.Errorf("ssh handshake with %s failed: %w", hostport, err)
	}
	client := ssh.NewClient(c, chans, reqs)
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to open session on %s: %w", hostport, err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		client.Close()
		return stdout.String(), ctx.Err()
	case err = <-done:
	}

	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), &provider.ExitError{
				Code:   exitErr.ExitStatus(),
				Stderr: strings.TrimSpace(stderr.String()),
			}
		}
		return stdout.String(), fmt.Errorf("command on %s failed: %w", hostport, err)
	}

	return stdout.String(), nil
}

func (r *Runner) clientConfig() (*ssh.ClientConfig, error) {
	if r.cfg.IdentityFile == "" {
		return nil, fmt.Errorf("ssh identity file: %w", provider.ErrNotConfigured)
	}
	keyData, err := os.ReadFile(r.cfg.IdentityFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read identity file: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse identity file: %w", err)
	}

	hostKeys, err := AcceptNewHostKey(r.cfg.KnownHostsFile)
	if err != nil {
		return nil, err
	}

	return &ssh.ClientConfig{
		User:            r.cfg.user(),
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeys,
		Timeout:         DefaultDialTimeout,
	}, nil
}

// AcceptNewHostKey returns a callback that trusts and records keys for hosts
// absent from path, and rejects keys that differ from a recorded one
func AcceptNewHostKey(path string) (ssh.HostKeyCallback, error) {
	if path == "" {
		return nil, fmt.Errorf("known_hosts file: %w", provider.ErrNotConfigured)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open known_hosts: %w", err)
	}
	f.Close()

	check, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load known_hosts: %w", err)
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := check(hostname, remote, key)
		var keyErr *knownhosts.KeyError
		if !errors.As(err, &keyErr) || len(keyErr.Want) > 0 {
			return err
		}

		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("failed to record host key: %w", err)
		}
		defer f.Close()
		_, err = fmt.Fprintln(f, knownhosts.Line([]string{knownhosts.Normalize(hostname)}, key))
		return err
	}, nil
}
