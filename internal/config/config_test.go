package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func awsContext() *Context {
	return &Context{
		Provider: ProviderAWS,
		Profile:  "ci",
		Region:   "us-east-1",
		Hostname: "example.com",
		DNS:      DNSConfig{ZoneID: "Z123"},
		Instance: InstanceConfig{Image: "ami-123", Size: "t3.small"},
	}
}

func TestStore_RoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nimbus", "config.yaml"))

	ctx := awsContext()
	ctx.Transfer.RetryDelay = 10 * time.Second
	require.NoError(t, store.Add("aws:prod", ctx))
	require.NoError(t, store.Add("aws:dev", awsContext()))

	names, current, err := store.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"aws:dev", "aws:prod"}, names)
	assert.Equal(t, "aws:prod", current, "first context becomes current")

	got, name, err := store.Current("")
	require.NoError(t, err)
	assert.Equal(t, "aws:prod", name)
	assert.Equal(t, 10*time.Second, got.Transfer.RetryDelay)
	assert.Equal(t, 5, got.Transfer.MaxAttempts)
	assert.Equal(t, "ssm", got.Transport)

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "retry_delay: 10s")

	require.NoError(t, store.Use("aws:dev"))
	_, name, err = store.Current("")
	require.NoError(t, err)
	assert.Equal(t, "aws:dev", name)

	require.NoError(t, store.Delete("aws:dev"))
	_, _, err = store.Current("")
	assert.Error(t, err)
	assert.Error(t, store.Use("aws:dev"))
}

func TestStore_Aliases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
current_context: prod
aliases:
  prod: aws:prod
contexts:
  aws:prod:
    provider: aws
    region: eu-west-1
    hostname: example.com
    dns:
      zone_id: Z1
    instance:
      image: ami-1
      size: t3.micro
    transfer:
      retry_delay: 1m
`), 0o600))

	ctx, name, err := NewStore(path).Current("")

	require.NoError(t, err)
	assert.Equal(t, "aws:prod", name)
	assert.Equal(t, time.Minute, ctx.Transfer.RetryDelay)
	assert.Equal(t, "nimbus.builds", ctx.Listener.Subject)
}

func TestStore_MissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "none.yaml"))
	names, _, err := store.Names()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestContext_Validate(t *testing.T) {
	require.NoError(t, awsContext().Validate())

	tests := map[string]func(c *Context){
		"unknown provider": func(c *Context) { c.Provider = "azure" },
		"missing zone":     func(c *Context) { c.DNS.ZoneID = "" },
		"bad hostname":     func(c *Context) { c.Hostname = "not a host" },
		"missing image":    func(c *Context) { c.Instance.Image = "" },
		"bad port":         func(c *Context) { c.SSH.Port = 70000 },
		"bad attempts":     func(c *Context) { c.Transfer.MaxAttempts = 50 },
		"gcloud on aws":    func(c *Context) { c.Transport = "gcloud" },
		"gcp without project": func(c *Context) {
			c.Provider = ProviderGCP
			c.Region = "us-central1-a"
		},
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := awsContext()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestContext_DeploymentRequest(t *testing.T) {
	scripts := t.TempDir()
	build := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(scripts, "base.sh"), nil, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(build, "provision.sh"), nil, 0o755))

	c := awsContext()
	c.Instance.ScriptsPath = scripts

	req, err := c.DeploymentRequest("app", build, nil)

	require.NoError(t, err)
	assert.Equal(t, "app.example.com", req.InstanceName())
	assert.Equal(t, "Z123", req.ZoneID)
	assert.Equal(t, []string{filepath.Join(scripts, "base.sh"), filepath.Join(build, "provision.sh")}, req.Scripts)
}

func TestContext_ProvisionRequest(t *testing.T) {
	scripts := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(scripts, "base.sh"), nil, 0o755))

	c := awsContext()
	c.Instance.ScriptsPath = scripts

	req, err := c.DeploymentRequest("app", "", nil)

	require.NoError(t, err)
	assert.Empty(t, req.BuildPath)
	assert.Equal(t, []string{filepath.Join(scripts, "base.sh")}, req.Scripts)
}

func TestParseContextName(t *testing.T) {
	p, n := ParseContextName("aws:prod")
	assert.Equal(t, "aws", p)
	assert.Equal(t, "prod", n)

	p, n = ParseContextName("dev")
	assert.Empty(t, p)
	assert.Equal(t, "dev", n)
}
