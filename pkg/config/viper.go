package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/tutor/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the TUTOR_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (TUTOR_API_LISTEN, TUTOR_STORAGE_DRIVER, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("TUTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	v.SetDefault("generation.provider", d.Generation.Provider)
	v.SetDefault("generation.model", d.Generation.Model)
	v.SetDefault("generation.base_url", d.Generation.BaseURL)
	v.SetDefault("generation.timeout_seconds", d.Generation.TimeoutSeconds)

	v.SetDefault("compaction.threshold", d.Compaction.Threshold)
	v.SetDefault("compaction.keep_tail", d.Compaction.KeepTail)
	v.SetDefault("compaction.timeout_seconds", d.Compaction.TimeoutSeconds)

	v.SetDefault("recurrence.policy", d.Recurrence.Policy)
	v.SetDefault("recurrence.window_days", d.Recurrence.WindowDays)
	v.SetDefault("recurrence.min_frequency", d.Recurrence.MinFrequency)

	v.SetDefault("context.top_k", d.Context.TopK)
	v.SetDefault("context.window_days", d.Context.WindowDays)

	v.SetDefault("api.listen", d.API.Listen)

	v.SetDefault("eventstream.kafka_brokers", d.EventStream.KafkaBrokers)
	v.SetDefault("eventstream.kafka_topic", d.EventStream.KafkaTopic)

	v.SetDefault("client.api_target", d.Client.APITarget)
}

// FromViper materializes the effective configuration after flags,
// environment and file have been merged.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Storage: StorageConfig{
			Driver:      v.GetString("storage.driver"),
			SQLitePath:  v.GetString("storage.sqlite_path"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
		},
		Generation: GenerationConfig{
			Provider:       v.GetString("generation.provider"),
			Model:          v.GetString("generation.model"),
			BaseURL:        v.GetString("generation.base_url"),
			TimeoutSeconds: v.GetUint("generation.timeout_seconds"),
		},
		Compaction: CompactionConfig{
			Threshold:      v.GetUint("compaction.threshold"),
			KeepTail:       v.GetUint("compaction.keep_tail"),
			TimeoutSeconds: v.GetUint("compaction.timeout_seconds"),
		},
		Recurrence: RecurrenceConfig{
			Policy:       v.GetString("recurrence.policy"),
			WindowDays:   v.GetUint("recurrence.window_days"),
			MinFrequency: v.GetUint("recurrence.min_frequency"),
		},
		Context: ContextConfig{
			TopK:       v.GetUint("context.top_k"),
			WindowDays: v.GetUint("context.window_days"),
		},
		API: APIConfig{
			Listen: v.GetString("api.listen"),
		},
		EventStream: EventStreamConfig{
			KafkaBrokers: v.GetString("eventstream.kafka_brokers"),
			KafkaTopic:   v.GetString("eventstream.kafka_topic"),
		},
		Client: ClientConfig{
			APITarget: v.GetString("client.api_target"),
		},
	}
}
