package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent tutor configuration stored as config.toml
// in the .tutor/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	Generation  GenerationConfig  `toml:"generation"`
	Compaction  CompactionConfig  `toml:"compaction"`
	Recurrence  RecurrenceConfig  `toml:"recurrence"`
	Context     ContextConfig     `toml:"context"`
	API         APIConfig         `toml:"api"`
	EventStream EventStreamConfig `toml:"eventstream"`
	Client      ClientConfig      `toml:"client"`
}

// StorageConfig selects and locates the storage backend.
type StorageConfig struct {
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// GenerationConfig configures the model that produces corrections and
// summaries.
type GenerationConfig struct {
	Provider       string `toml:"provider,omitempty"`
	Model          string `toml:"model,omitempty"`
	BaseURL        string `toml:"base_url,omitempty"`
	TimeoutSeconds uint   `toml:"timeout_seconds,omitempty"`
}

// CompactionConfig holds conversation compaction settings.
type CompactionConfig struct {
	Threshold      uint `toml:"threshold,omitempty"`
	KeepTail       uint `toml:"keep_tail,omitempty"`
	TimeoutSeconds uint `toml:"timeout_seconds,omitempty"`
}

// RecurrenceConfig holds mistake recurrence detection settings.
type RecurrenceConfig struct {
	Policy       string `toml:"policy,omitempty"`
	WindowDays   uint   `toml:"window_days,omitempty"`
	MinFrequency uint   `toml:"min_frequency,omitempty"`
}

// ContextConfig holds adaptive context settings.
type ContextConfig struct {
	TopK       uint `toml:"top_k,omitempty"`
	WindowDays uint `toml:"window_days,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// EventStreamConfig configures turn event publishing. An empty broker list
// disables publishing.
type EventStreamConfig struct {
	KafkaBrokers string `toml:"kafka_brokers,omitempty"`
	KafkaTopic   string `toml:"kafka_topic,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// API server. Values are full URLs (scheme + host + port).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.driver":       stringKey(func(c *Config) *string { return &c.Storage.Driver }),
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),

	"generation.provider": stringKey(func(c *Config) *string { return &c.Generation.Provider }),
	"generation.model":    stringKey(func(c *Config) *string { return &c.Generation.Model }),
	"generation.base_url": stringKey(func(c *Config) *string { return &c.Generation.BaseURL }),
	"generation.timeout_seconds": uintKey("generation.timeout_seconds",
		func(c *Config) *uint { return &c.Generation.TimeoutSeconds }),

	"compaction.threshold": uintKey("compaction.threshold",
		func(c *Config) *uint { return &c.Compaction.Threshold }),
	"compaction.keep_tail": uintKey("compaction.keep_tail",
		func(c *Config) *uint { return &c.Compaction.KeepTail }),
	"compaction.timeout_seconds": uintKey("compaction.timeout_seconds",
		func(c *Config) *uint { return &c.Compaction.TimeoutSeconds }),

	"recurrence.policy": stringKey(func(c *Config) *string { return &c.Recurrence.Policy }),
	"recurrence.window_days": uintKey("recurrence.window_days",
		func(c *Config) *uint { return &c.Recurrence.WindowDays }),
	"recurrence.min_frequency": uintKey("recurrence.min_frequency",
		func(c *Config) *uint { return &c.Recurrence.MinFrequency }),

	"context.top_k": uintKey("context.top_k",
		func(c *Config) *uint { return &c.Context.TopK }),
	"context.window_days": uintKey("context.window_days",
		func(c *Config) *uint { return &c.Context.WindowDays }),

	"api.listen": stringKey(func(c *Config) *string { return &c.API.Listen }),

	"eventstream.kafka_brokers": stringKey(func(c *Config) *string { return &c.EventStream.KafkaBrokers }),
	"eventstream.kafka_topic":   stringKey(func(c *Config) *string { return &c.EventStream.KafkaTopic }),

	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),
}

// orderedKeys lists configKeys in TOML section order.
var orderedKeys = []string{
	"storage.driver",
	"storage.sqlite_path",
	"storage.postgres_dsn",
	"generation.provider",
	"generation.model",
	"generation.base_url",
	"generation.timeout_seconds",
	"compaction.threshold",
	"compaction.keep_tail",
	"compaction.timeout_seconds",
	"recurrence.policy",
	"recurrence.window_days",
	"recurrence.min_frequency",
	"context.top_k",
	"context.window_days",
	"api.listen",
	"eventstream.kafka_brokers",
	"eventstream.kafka_topic",
	"client.api_target",
}
