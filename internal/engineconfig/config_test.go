package engineconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileOverlaysOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_messages: 250\npromotion:\n  batch_size: 25\n"), 0o600))

	opts, err := Load(LoaderOptions{Type: SourceFile, Path: path})
	require.NoError(t, err)

	assert.Equal(t, 250, opts.MaxMessages)
	assert.Equal(t, 25, opts.Promotion.BatchSize)
	// Untouched keys keep their defaults.
	assert.Equal(t, Defaults().MaxPending, opts.MaxPending)
	assert.Equal(t, Defaults().Promotion.MinImportance, opts.Promotion.MinImportance)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(LoaderOptions{Type: SourceFile, Path: "/nonexistent/engine.yaml"})
	require.Error(t, err)
}

func TestParseSourceType(t *testing.T) {
	st, err := ParseSourceType("Consul")
	require.NoError(t, err)
	assert.Equal(t, SourceConsul, st)

	_, err = ParseSourceType("bogus")
	require.Error(t, err)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("MEMENGINE_TEST_MAX_MESSAGES", "333")

	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_messages: $MEMENGINE_TEST_MAX_MESSAGES\n"), 0o600))

	opts, err := Load(LoaderOptions{Type: SourceFile, Path: path})
	require.NoError(t, err)
	assert.Equal(t, 333, opts.MaxMessages)
}

func TestDefaultsConvertToSTMConfigAndCriteria(t *testing.T) {
	d := Defaults()
	stmCfg := d.STMConfig()
	assert.Equal(t, d.MaxMessages, stmCfg.MaxMessages)

	crit := d.Criteria()
	assert.Equal(t, d.Promotion.BatchSize, crit.BatchSize)

	graphs := d.Graphs()
	assert.Len(t, graphs, len(d.StandardGraphs))
}
