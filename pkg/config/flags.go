package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --sqlite
// on both "tutor serve" and "tutor chat").
type Flag struct {
	// Name is the long flag name (e.g. "sqlite").
	Name string

	// Shorthand is the one-letter short flag (e.g. "s"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "storage.sqlite_path").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagAPIListen     = "api-listen"
	FlagStorageDriver = "storage-driver"
	FlagSQLite        = "sqlite"
	FlagPostgres      = "postgres"
	FlagProvider      = "provider"
	FlagModel         = "model"
	FlagBaseURL       = "base-url"
	FlagPolicy        = "recurrence-policy"
	FlagKafkaBrokers  = "kafka-brokers"
	FlagKafkaTopic    = "kafka-topic"
	FlagAPITarget     = "api-target"
	FlagThreshold     = "compaction-threshold"
	FlagKeepTail      = "keep-tail"
)

// StorageFlags are shared by every command that opens the store directly.
var StorageFlags = FlagSet{
	FlagStorageDriver: {Name: "storage-driver", ViperKey: "storage.driver", Description: "Storage driver (sqlite, postgres, memory)"},
	FlagSQLite:        {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to SQLite database"},
	FlagPostgres:      {Name: "postgres", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string"},
}

// GenerationFlags select the model that corrects turns.
var GenerationFlags = FlagSet{
	FlagProvider: {Name: "provider", Shorthand: "p", ViperKey: "generation.provider", Description: "Generation provider (anthropic, openai, gemini, ollama)"},
	FlagModel:    {Name: "model", Shorthand: "m", ViperKey: "generation.model", Description: "Model name (default depends on provider)"},
	FlagBaseURL:  {Name: "base-url", ViperKey: "generation.base_url", Description: "Provider base URL override"},
}

// RecurrenceFlags configure how repeated mistakes are detected.
var RecurrenceFlags = FlagSet{
	FlagPolicy: {Name: "recurrence-policy", ViperKey: "recurrence.policy", Description: "Recurrence policy (last_seen, sliding_window)"},
}

// CompactionFlags configure conversation summarization.
var CompactionFlags = FlagSet{
	FlagThreshold: {Name: "compaction-threshold", ViperKey: "compaction.threshold", Description: "Messages kept before compaction"},
	FlagKeepTail:  {Name: "keep-tail", ViperKey: "compaction.keep_tail", Description: "Messages retained verbatim after compaction"},
}

// EventStreamFlags configure publishing of turn events.
var EventStreamFlags = FlagSet{
	FlagKafkaBrokers: {Name: "kafka-brokers", ViperKey: "eventstream.kafka_brokers", Description: "Comma separated Kafka brokers for turn events"},
	FlagKafkaTopic:   {Name: "kafka-topic", ViperKey: "eventstream.kafka_topic", Description: "Kafka topic for turn events"},
}

// ServeFlags are registered by "tutor serve".
var ServeFlags = FlagSet{
	FlagAPIListen: {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for API server to listen on"},
}

// ClientFlags are registered by commands that can talk to a running server.
var ClientFlags = FlagSet{
	FlagAPITarget: {Name: "api-target", ViperKey: "client.api_target", Description: "Tutor API server URL"},
}

// Keys returns the registry keys of fs.
func (fs FlagSet) Keys() []string {
	keys := make([]string, 0, len(fs))
	for k := range fs {
		keys = append(keys, k)
	}
	return keys
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddPersistentStringFlag is AddStringFlag for flags inherited by
// subcommands.
func AddPersistentStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}
	cmd.PersistentFlags().StringVarP(target, def.Name, def.Shorthand, defaultString(def.ViperKey), def.Description)
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}

// Resolve builds the effective configuration for cmd: defaults, then the
// config file from --config-dir, then TUTOR_ environment variables, then
// any flags registered from sets.
func Resolve(cmd *cobra.Command, sets ...FlagSet) (*Config, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := InitViper(configDir)
	if err != nil {
		return nil, err
	}

	for _, fs := range sets {
		BindRegisteredFlags(v, cmd, fs, fs.Keys())
	}

	return FromViper(v), nil
}
