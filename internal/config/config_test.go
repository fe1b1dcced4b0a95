package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Default()

	assert.True(t, c.Pipeline.EnableLocalOpt)
	assert.True(t, c.Pipeline.EnableDCE)
	assert.False(t, c.Debug.Enabled)
	assert.Equal(t, 0, c.Pipeline.MaxIterations)
	assert.Equal(t, 4, c.Driver.Workers)
	assert.True(t, c.Driver.RetainArtifacts)
	assert.NoError(t, c.Validate())
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[pipeline]
local-opt = false
max-iterations = 64

[debug]
enabled = true
annotate-liveness = true

[driver]
workers = 2
timeout = "1m30s"
abort-on-first-error = true

[log]
level = 3
`
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(tomlContent), 0644))

	c, err := Load(path)
	require.NoError(t, err)

	assert.False(t, c.Pipeline.EnableLocalOpt)
	assert.True(t, c.Pipeline.EnableDCE, "unset keys keep their defaults")
	assert.Equal(t, 64, c.Pipeline.MaxIterations)
	assert.True(t, c.Debug.Enabled)
	assert.True(t, c.Debug.AnnotateLiveness)
	assert.Equal(t, 2, c.Driver.Workers)
	assert.Equal(t, 90*time.Second, c.Driver.Timeout)
	assert.True(t, c.Driver.AbortOnFirstError)
	assert.True(t, c.Driver.RetainArtifacts)
	assert.Equal(t, 3, c.Log.Level)
	assert.Equal(t, path, c.Path)
}

func TestLoadRejectsNegativeBudget(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte("[pipeline]\nmax-iterations = -1\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max-iterations")
}

func TestLoadSyntaxError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte("[pipeline\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parse error")
}

func TestFindAndLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte("[pipeline]\ndce = false\n"), 0644))

	c, err := FindAndLoad(nested)
	require.NoError(t, err)
	assert.False(t, c.Pipeline.EnableDCE)
	assert.Equal(t, filepath.Join(root, FileName), c.Path)
}

func TestFindAndLoadFallsBackToDefaults(t *testing.T) {
	c, err := FindAndLoad(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, c.Path)
	assert.True(t, c.Pipeline.EnableDCE)
}
