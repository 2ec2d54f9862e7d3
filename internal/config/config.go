package config

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gregLibert/felica-pcsc/pkg/felica"
	"gopkg.in/yaml.v3"
)

const (
	DefaultInterval  = time.Second
	DefaultReadCount = 20
)

type Config struct {
	Reader  ReaderConfig  `yaml:"reader"`
	Polling PollingConfig `yaml:"polling"`
	Read    ReadConfig    `yaml:"read"`
	Write   *WriteConfig  `yaml:"write"`
	Log     LogConfig     `yaml:"log"`
}

type ReaderConfig struct {
	// Name is matched without the numeric suffix PC/SC appends,
	// e.g. "SONY FeliCa RC-S300/P (0262313)".
	Name              string `yaml:"name"`
	EscapeControlCode uint32 `yaml:"escape_control_code"`
	ExchangeViaEscape bool   `yaml:"exchange_via_escape"`
}

type PollingConfig struct {
	Interval    time.Duration `yaml:"interval"`
	SystemCode  *int          `yaml:"system_code"`
	RequestCode string        `yaml:"request_code"`
	TimeSlots   *int          `yaml:"time_slots"`
}

type ReadConfig struct {
	Block1       *int          `yaml:"block1"`
	Block2       *int          `yaml:"block2"`
	LegacyLayout bool          `yaml:"legacy_layout"`
	Count        *int          `yaml:"count"`
	Interval     time.Duration `yaml:"interval"`
}

type WriteConfig struct {
	Block *int   `yaml:"block"`
	Data  string `yaml:"data"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(content)
}

// Parse decodes a YAML document, fills in defaults and validates the result.
// Unknown keys are rejected.
func Parse(content []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func intPtr(v int) *int {
	return &v
}

func (c *Config) applyDefaults() {
	if c.Polling.Interval == 0 {
		c.Polling.Interval = DefaultInterval
	}
	if c.Polling.SystemCode == nil {
		c.Polling.SystemCode = intPtr(int(felica.SystemAll))
	}
	if c.Polling.TimeSlots == nil {
		c.Polling.TimeSlots = intPtr(1)
	}
	if c.Read.Block1 == nil {
		c.Read.Block1 = intPtr(0)
	}
	if c.Read.Block2 == nil {
		c.Read.Block2 = intPtr(1)
	}
	if c.Read.Count == nil {
		c.Read.Count = intPtr(DefaultReadCount)
	}
	if c.Read.Interval == 0 {
		c.Read.Interval = DefaultInterval
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Reader.Name) == "" {
		return fmt.Errorf("config.reader.name is required")
	}

	if c.Polling.Interval < 0 {
		return fmt.Errorf("config.polling.interval must be positive")
	}
	if sc := c.Polling.SystemCode; sc == nil || *sc < 0 || *sc > 0xFFFF {
		return fmt.Errorf("config.polling.system_code must be 0x0000..0xFFFF")
	}
	if _, err := felica.ParseRequestCode(c.Polling.RequestCode); err != nil {
		return fmt.Errorf("config.polling.request_code: %w", err)
	}
	if c.Polling.TimeSlots == nil {
		return fmt.Errorf("config.polling.time_slots is required")
	}
	if _, err := felica.TimeSlotFor(*c.Polling.TimeSlots); err != nil {
		return fmt.Errorf("config.polling.time_slots: %w", err)
	}

	if err := validateBlock(c.Read.Block1, "config.read.block1"); err != nil {
		return err
	}
	if err := validateBlock(c.Read.Block2, "config.read.block2"); err != nil {
		return err
	}
	if c.Read.Count == nil || *c.Read.Count < 0 {
		return fmt.Errorf("config.read.count must be >= 0")
	}
	if c.Read.Interval < 0 {
		return fmt.Errorf("config.read.interval must be positive")
	}

	if c.Write != nil {
		if err := validateBlock(c.Write.Block, "config.write.block"); err != nil {
			return err
		}
		if _, err := c.Write.BlockData(); err != nil {
			return err
		}
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config.log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func validateBlock(v *int, field string) error {
	if v == nil {
		return fmt.Errorf("%s is required", field)
	}
	if *v < 0 || *v > 0xFF {
		return fmt.Errorf("%s must be 0..255", field)
	}
	return nil
}

// PollingCommand converts the polling section. Call it on a validated config.
func (c *Config) PollingCommand() felica.PollingCommand {
	rc, _ := felica.ParseRequestCode(c.Polling.RequestCode)
	ts, _ := felica.TimeSlotFor(*c.Polling.TimeSlots)
	return felica.PollingCommand{
		SystemCode:  uint16(*c.Polling.SystemCode),
		RequestCode: rc,
		TimeSlot:    ts,
	}
}

// ReadLayout returns the Read Without Encryption layout to use.
func (c *Config) ReadLayout() felica.ReadLayout {
	if c.Read.LegacyLayout {
		return felica.LayoutLegacy
	}
	return felica.LayoutCanonical
}

// Blocks returns the two block numbers to read.
func (r ReadConfig) Blocks() (byte, byte) {
	return byte(*r.Block1), byte(*r.Block2)
}

// BlockData decodes the 16-byte hex payload. Whitespace is ignored.
func (w *WriteConfig) BlockData() ([felica.BlockSize]byte, error) {
	var out [felica.BlockSize]byte
	raw, err := hex.DecodeString(strings.Join(strings.Fields(w.Data), ""))
	if err != nil {
		return out, fmt.Errorf("config.write.data is not hex: %w", err)
	}
	if len(raw) != felica.BlockSize {
		return out, fmt.Errorf("config.write.data must be %d bytes, got %d", felica.BlockSize, len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return level, fmt.Errorf("config.log.level: %w", err)
	}
	return level, nil
}
