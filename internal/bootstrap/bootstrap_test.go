package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "00-base.sh")
	prov := filepath.Join(dir, "provision.sh")
	require.NoError(t, os.WriteFile(base, []byte("#!/bin/sh\napt-get update\n"), 0o644))
	require.NoError(t, os.WriteFile(prov, []byte("npm ci"), 0o644))

	out, err := Render([]string{base, prov})

	require.NoError(t, err)
	assert.Equal(t, "#!/bin/bash\nset -e\n\n# --- 00-base.sh ---\napt-get update\n\n# --- provision.sh ---\nnpm ci\n", out)
}

func TestRender_Empty(t *testing.T) {
	out, err := Render(nil)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/bash\nset -e\n", out)
}

func TestRender_MissingFile(t *testing.T) {
	_, err := Render([]string{filepath.Join(t.TempDir(), "nope.sh")})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
