package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"www.velocidex.com/golang/ntfsmon/parser"
)

func writeConfig(t *testing.T, content string) string {
	filename := filepath.Join(t.TempDir(), "ntfsmon.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(content), 0600))
	return filename
}

func TestDefaultConfig(t *testing.T) {
	assert := assert.New(t)

	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.NoError(Validate(config))

	assert.Equal(100*time.Millisecond, config.USN.PollInterval)
	assert.Equal(parser.GetDefaultOptions(), config.USN.ParserOptions())

	mask, err := config.USN.ReasonMaskValue()
	require.NoError(t, err)
	assert.Equal(uint32(parser.DEFAULT_REASON_MASK), mask)
}

func TestLoadConfig(t *testing.T) {
	assert := assert.New(t)

	config, err := LoadConfig(writeConfig(t, `
logging:
  level: debug
  format: json
usn:
  volume: '\\.\D:'
  historical: true
  enumerate_paths: true
  reason_mask: file_create|file_delete
  path_cache_size: 1000
  max_directory_depth: 64
  poll_interval: 250ms
  checkpoint_path: /var/lib/ntfsmon
mft:
  pretty: true
metrics:
  bind_address: 127.0.0.1:9100
`))
	require.NoError(t, err)

	assert.Equal("debug", config.Logging.Level)
	assert.Equal(`\\.\D:`, config.USN.Volume)
	assert.True(config.USN.Historical)
	assert.Equal(250*time.Millisecond, config.USN.PollInterval)
	assert.Equal(1000, config.USN.ParserOptions().PathCacheSize)
	assert.Equal(64, config.USN.MaxDirectoryDepth)
	assert.True(config.USN.EnumeratePaths)
	assert.Equal("/var/lib/ntfsmon", config.USN.CheckpointPath)
	assert.True(config.MFT.Pretty)
	assert.Equal("127.0.0.1:9100", config.Metrics.BindAddress)

	// Unset values keep their defaults.
	assert.Equal(100, config.USN.OutputBuffer)

	mask, err := config.USN.ReasonMaskValue()
	require.NoError(t, err)
	assert.Equal(uint32(0x300), mask)
}

func TestInvalidConfig(t *testing.T) {
	for _, content := range []string{
		"logging:\n  level: loud\n",
		"usn:\n  poll_interval: 0s\n",
		"usn:\n  reason_mask: not_a_reason\n",
		"metrics:\n  bind_address: nowhere\n",
		"unknown_section: 1\n",
	} {
		_, err := LoadConfig(writeConfig(t, content))
		assert.Error(t, err, content)
	}
}
