package ssh

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/vietdv277/nimbus/pkg/provider"
	"github.com/vietdv277/nimbus/pkg/types"
)

type call struct {
	name string
	args []string
}

type fakeProcess struct {
	calls []call
	err   error
}

func (f *fakeProcess) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	return nil, f.err
}

type staticInstances map[string]*types.Instance

func (s staticInstances) Get(ctx context.Context, id string) (*types.Instance, error) {
	inst, ok := s[id]
	if !ok {
		return nil, provider.ErrNotFound
	}
	return inst, nil
}

func TestRsyncCopier_Args(t *testing.T) {
	proc := &fakeProcess{}
	instances := staticInstances{"7": {ID: "7", PublicIP: "10.0.0.5"}}
	cfg := Config{User: "deploy", IdentityFile: "/keys/id_ed25519", KnownHostsFile: "/tmp/kh", Port: 2222}
	c := NewRsyncCopier(cfg, instances, proc)

	err := c.CopyFolder(context.Background(), "7", "/ci/build/", "/opt/build")

	require.NoError(t, err)
	require.Len(t, proc.calls, 1)
	assert.Equal(t, "rsync", proc.calls[0].name)
	assert.Equal(t, []string{
		"-az", "--delete",
		"-e", "ssh -p 2222 -o StrictHostKeyChecking=accept-new -o BatchMode=yes -i /keys/id_ed25519 -o UserKnownHostsFile=/tmp/kh",
		"--rsync-path=mkdir -p /opt/build && rsync",
		"/ci/build/",
		"deploy@10.0.0.5:/opt/build/",
	}, proc.calls[0].args)
}

func TestRsyncCopier_Errors(t *testing.T) {
	proc := &fakeProcess{err: errors.New("exit status 12")}
	instances := staticInstances{"7": {ID: "7", PrivateIP: "172.16.0.2"}, "8": {ID: "8"}}
	c := NewRsyncCopier(Config{}, instances, proc)

	err := c.CopyFolder(context.Background(), "7", "/ci/build", "/opt/build")
	assert.ErrorContains(t, err, "exit status 12")
	assert.Equal(t, "root@172.16.0.2:/opt/build/", proc.calls[0].args[len(proc.calls[0].args)-1])

	err = c.CopyFolder(context.Background(), "8", "/ci/build", "/opt/build")
	assert.ErrorIs(t, err, provider.ErrNoAddress)

	err = c.CopyFolder(context.Background(), "9", "/ci/build", "/opt/build")
	assert.ErrorIs(t, err, provider.ErrNotFound)
}

func TestPurger(t *testing.T) {
	kh := filepath.Join(t.TempDir(), "known_hosts")

	proc := &fakeProcess{}
	p := NewPurger(proc)
	require.NoError(t, p.PurgeKnownHost(context.Background(), "10.0.0.5", kh))
	assert.Empty(t, proc.calls, "missing file needs no purge")

	require.NoError(t, os.WriteFile(kh, []byte("10.0.0.5 ssh-ed25519 AAAA\n"), 0o600))
	require.NoError(t, p.PurgeKnownHost(context.Background(), "10.0.0.5", kh))
	require.Len(t, proc.calls, 1)
	assert.Equal(t, call{name: "ssh-keygen", args: []string{"-R", "10.0.0.5", "-f", kh}}, proc.calls[0])

	assert.Error(t, p.PurgeKnownHost(context.Background(), "", kh))
}

func newHostKey(t *testing.T) ssh.PublicKey {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	key, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	return key
}

func TestAcceptNewHostKey(t *testing.T) {
	kh := filepath.Join(t.TempDir(), "ssh", "known_hosts")
	remote := &net.TCPAddr{IP: net.ParseIP("10.0.0.5"), Port: 22}
	key := newHostKey(t)

	cb, err := AcceptNewHostKey(kh)
	require.NoError(t, err)
	require.NoError(t, cb("10.0.0.5:22", remote, key))

	data, err := os.ReadFile(kh)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "10.0.0.5 ssh-ed25519 "))

	cb, err = AcceptNewHostKey(kh)
	require.NoError(t, err)
	assert.NoError(t, cb("10.0.0.5:22", remote, key), "recorded key is accepted")

	err = cb("10.0.0.5:22", remote, newHostKey(t))
	var keyErr *knownhosts.KeyError
	require.ErrorAs(t, err, &keyErr, "changed key is rejected")
	assert.NotEmpty(t, keyErr.Want)
}

func TestRunner_RequiresIdentity(t *testing.T) {
	r := NewRunner(Config{}, staticInstances{"7": {ID: "7", PublicIP: "10.0.0.5"}})
	_, err := r.RunCommand(context.Background(), "7", "true")
	assert.ErrorIs(t, err, provider.ErrNotConfigured)
}
