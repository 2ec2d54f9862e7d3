package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gregLibert/felica-pcsc/pkg/felica"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
reader:
  name: "SONY FeliCa RC-S300/P (0262313)"
  escape_control_code: 0x42000DAC
  exchange_via_escape: true
polling:
  interval: 500ms
  system_code: 0x12FC
  request_code: system_code
  time_slots: 4
read:
  block1: 5
  block2: 0x91
  legacy_layout: true
  count: 3
  interval: 2s
write:
  block: 5
  data: "00112233 44556677 8899AABB CCDDEEFF"
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "SONY FeliCa RC-S300/P (0262313)", cfg.Reader.Name)
	assert.Equal(t, uint32(0x42000DAC), cfg.Reader.EscapeControlCode)
	assert.True(t, cfg.Reader.ExchangeViaEscape)
	assert.Equal(t, 500*time.Millisecond, cfg.Polling.Interval)

	assert.Equal(t, felica.PollingCommand{
		SystemCode:  felica.SystemNDEF,
		RequestCode: felica.RequestSystemCode,
		TimeSlot:    felica.Slot4,
	}, cfg.PollingCommand())

	b1, b2 := cfg.Read.Blocks()
	assert.Equal(t, byte(0x05), b1)
	assert.Equal(t, byte(0x91), b2)
	assert.Equal(t, felica.LayoutLegacy, cfg.ReadLayout())
	assert.Equal(t, 3, *cfg.Read.Count)
	assert.Equal(t, 2*time.Second, cfg.Read.Interval)

	require.NotNil(t, cfg.Write)
	data, err := cfg.Write.BlockData()
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF), data[15])

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
reader:
  name: "SONY FeliCa RC-S300/P (0262313)"
`))
	require.NoError(t, err)

	assert.Equal(t, DefaultInterval, cfg.Polling.Interval)
	assert.Equal(t, felica.DefaultPolling(), cfg.PollingCommand())
	assert.Equal(t, felica.LayoutCanonical, cfg.ReadLayout())
	assert.Equal(t, DefaultReadCount, *cfg.Read.Count)
	assert.Nil(t, cfg.Write)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"Missing reader name", "polling:\n  time_slots: 1\n", "config.reader.name is required"},
		{"Unknown field", "reader:\n  name: r\n  index: 0\n", "field index not found"},
		{"Bad time slots", "reader:\n  name: r\npolling:\n  time_slots: 3\n", "config.polling.time_slots"},
		{"Bad request code", "reader:\n  name: r\npolling:\n  request_code: all\n", "config.polling.request_code"},
		{"System code too large", "reader:\n  name: r\npolling:\n  system_code: 0x10000\n", "config.polling.system_code"},
		{"Block out of range", "reader:\n  name: r\nread:\n  block1: 256\n", "config.read.block1 must be 0..255"},
		{"Negative count", "reader:\n  name: r\nread:\n  count: -1\n", "config.read.count"},
		{"Short write data", "reader:\n  name: r\nwrite:\n  block: 1\n  data: \"0011\"\n", "must be 16 bytes, got 2"},
		{"Write without block", "reader:\n  name: r\nwrite:\n  data: \"00112233445566778899AABBCCDDEEFF\"\n", "config.write.block is required"},
		{"Bad log level", "reader:\n  name: r\nlog:\n  level: loud\n", "config.log.level"},
		{"Bad log format", "reader:\n  name: r\nlog:\n  format: xml\n", "config.log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}
