package config

import (
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

/*
[storage]
sync             = full
compression      = snappy
checkpoint_every = 10

[engine]
join_output_limit = 1048576
join_strict_types = false
rebuild_batch     = 256

[logs]
level     = info
info_log  =
error_log =
*/

// Sync modes
const (
	SyncFull = "full"
	SyncOff  = "off"
)

// Compression codecs for log frames
const (
	CompressionNone   = "none"
	CompressionSnappy = "snappy"
	CompressionLZ4    = "lz4"
)

// Config holds the engine settings.
type Config struct {
	// storage
	SyncMode        string
	Compression     string
	CheckpointEvery int

	// engine
	JoinOutputLimit int
	JoinStrictTypes bool
	RebuildBatch    int

	// logs
	LogLevel     string
	InfoLogPath  string
	ErrorLogPath string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		SyncMode:        SyncFull,
		Compression:     CompressionSnappy,
		CheckpointEvery: 10,
		JoinOutputLimit: 1 << 20,
		JoinStrictTypes: false,
		RebuildBatch:    256,
		LogLevel:        "info",
	}
}

// Load reads an ini file on top of the defaults.
func Load(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load config %s", path)
	}
	return Parse(file)
}

// LoadBytes parses ini content on top of the defaults.
func LoadBytes(data []byte) (*Config, error) {
	file, err := ini.Load(data)
	if err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	return Parse(file)
}

// Parse applies an already loaded ini file on top of the defaults.
func Parse(file *ini.File) (*Config, error) {
	cfg := Default()

	if err := cfg.parseStorage(file.Section("storage")); err != nil {
		return nil, err
	}
	if err := cfg.parseEngine(file.Section("engine")); err != nil {
		return nil, err
	}
	cfg.parseLogs(file.Section("logs"))
	return cfg, nil
}

func (cfg *Config) parseStorage(section *ini.Section) error {
	if section.HasKey("sync") {
		mode := strings.ToLower(section.Key("sync").String())
		if mode != SyncFull && mode != SyncOff {
			return errors.Errorf("storage.sync: unknown mode %q", mode)
		}
		cfg.SyncMode = mode
	}

	if section.HasKey("compression") {
		codec := strings.ToLower(section.Key("compression").String())
		switch codec {
		case CompressionNone, CompressionSnappy, CompressionLZ4:
			cfg.Compression = codec
		default:
			return errors.Errorf("storage.compression: unknown codec %q", codec)
		}
	}

	if section.HasKey("checkpoint_every") {
		n, err := section.Key("checkpoint_every").Int()
		if err != nil || n < 0 {
			return errors.Errorf("storage.checkpoint_every: invalid value %q", section.Key("checkpoint_every").String())
		}
		cfg.CheckpointEvery = n
	}
	return nil
}

func (cfg *Config) parseEngine(section *ini.Section) error {
	if section.HasKey("join_output_limit") {
		n, err := section.Key("join_output_limit").Int()
		if err != nil || n < 0 {
			return errors.Errorf("engine.join_output_limit: invalid value %q", section.Key("join_output_limit").String())
		}
		cfg.JoinOutputLimit = n
	}

	if section.HasKey("join_strict_types") {
		strict, err := section.Key("join_strict_types").Bool()
		if err != nil {
			return errors.Wrap(err, "engine.join_strict_types")
		}
		cfg.JoinStrictTypes = strict
	}

	if section.HasKey("rebuild_batch") {
		n, err := section.Key("rebuild_batch").Int()
		if err != nil || n <= 0 {
			return errors.Errorf("engine.rebuild_batch: invalid value %q", section.Key("rebuild_batch").String())
		}
		cfg.RebuildBatch = n
	}
	return nil
}

func (cfg *Config) parseLogs(section *ini.Section) {
	cfg.LogLevel = section.Key("level").MustString(cfg.LogLevel)
	cfg.InfoLogPath = section.Key("info_log").String()
	cfg.ErrorLogPath = section.Key("error_log").String()
}
