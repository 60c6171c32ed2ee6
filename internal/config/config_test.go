package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, SyncFull, cfg.SyncMode)
	assert.Equal(t, CompressionSnappy, cfg.Compression)
	assert.Equal(t, 10, cfg.CheckpointEvery)
	assert.Equal(t, 1<<20, cfg.JoinOutputLimit)
	assert.False(t, cfg.JoinStrictTypes)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagedb.ini")
	content := `
[storage]
sync = off
compression = lz4
checkpoint_every = 3

[engine]
join_output_limit = 0
join_strict_types = true
rebuild_batch = 16

[logs]
level = debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, SyncOff, cfg.SyncMode)
	assert.Equal(t, CompressionLZ4, cfg.Compression)
	assert.Equal(t, 3, cfg.CheckpointEvery)
	assert.Equal(t, 0, cfg.JoinOutputLimit)
	assert.True(t, cfg.JoinStrictTypes)
	assert.Equal(t, 16, cfg.RebuildBatch)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	cfg, err := LoadBytes([]byte("[storage]\ncompression = none\n"))
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, cfg.Compression)
	assert.Equal(t, SyncFull, cfg.SyncMode)
	assert.Equal(t, 256, cfg.RebuildBatch)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"storage.sync":             "[storage]\nsync = sometimes\n",
		"storage.compression":      "[storage]\ncompression = zstd\n",
		"storage.checkpoint_every": "[storage]\ncheckpoint_every = -1\n",
		"engine.join_output_limit": "[engine]\njoin_output_limit = lots\n",
		"engine.join_strict_types": "[engine]\njoin_strict_types = maybe\n",
		"engine.rebuild_batch":     "[engine]\nrebuild_batch = 0\n",
	}
	for key, content := range cases {
		t.Run(key, func(t *testing.T) {
			_, err := LoadBytes([]byte(content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.ini")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config "+path)
}
