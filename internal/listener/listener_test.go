package listener

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietdv277/nimbus/pkg/types"
)

func TestParseBuildEvent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte("{}"), 0o644))

	t.Run("directory", func(t *testing.T) {
		ev, err := ParseBuildEvent([]byte(fmt.Sprintf(`{"subdomain":"app","project_path":%q,"lifecycle_scripts":["start.sh"]}`, dir)))
		require.NoError(t, err)
		assert.Equal(t, "app", ev.Subdomain)
		assert.Equal(t, dir, ev.BuildPath)
		assert.Equal(t, []string{"start.sh"}, ev.LifecycleScripts)
	})

	t.Run("package.json resolves to its directory", func(t *testing.T) {
		ev, err := ParseBuildEvent([]byte(fmt.Sprintf(`{"subdomain":"app","project_path":%q}`, filepath.Join(dir, "package.json"))))
		require.NoError(t, err)
		assert.Equal(t, dir, ev.BuildPath)
	})

	invalid := map[string]string{
		"malformed":         `{"subdomain":`,
		"missing subdomain": fmt.Sprintf(`{"project_path":%q}`, dir),
		"missing path":      `{"subdomain":"app"}`,
		"nonexistent path":  `{"subdomain":"app","project_path":"/does/not/exist"}`,
		"file path":         fmt.Sprintf(`{"subdomain":"app","project_path":%q}`, filepath.Join(dir, "package.json", "x")),
	}
	for name, payload := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := ParseBuildEvent([]byte(payload))
			assert.ErrorIs(t, err, ErrInvalidEvent)
		})
	}
}

func TestHandleEvent(t *testing.T) {
	dir := t.TempDir()
	var got []*types.BuildEvent
	deployErr := error(nil)
	l := New(DeployerFunc(func(ctx context.Context, ev *types.BuildEvent) error {
		got = append(got, ev)
		return deployErr
	}), nil)

	err := l.HandleEvent(context.Background(), []byte(`{"subdomain":"web"}`))
	assert.ErrorIs(t, err, ErrInvalidEvent)
	assert.Empty(t, got, "invalid events never reach the deployer")

	payload := []byte(fmt.Sprintf(`{"subdomain":"web","project_path":%q}`, dir))
	require.NoError(t, l.HandleEvent(context.Background(), payload))
	require.Len(t, got, 1)
	assert.Equal(t, "web", got[0].Subdomain)

	deployErr = errors.New("transfer exhausted")
	err = l.HandleEvent(context.Background(), payload)
	assert.ErrorIs(t, err, deployErr)
	assert.Contains(t, err.Error(), "web")
}
