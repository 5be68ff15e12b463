package config

const (
	defaultStorageDriver = "sqlite"
	defaultSQLitePath    = "tutor.sqlite"

	defaultProvider          = "ollama"
	defaultGenerationTimeout = 60

	defaultCompactionThreshold = 5
	defaultCompactionKeepTail  = 3
	defaultCompactionTimeout   = 30

	defaultRecurrencePolicy       = "last_seen"
	defaultRecurrenceWindowDays   = 7
	defaultRecurrenceMinFrequency = 3

	defaultContextTopK       = 3
	defaultContextWindowDays = 7

	defaultAPIListen       = ":8081"
	defaultClientAPITarget = "http://localhost:8081"

	defaultKafkaTopic = "tutor.turns"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Driver:     defaultStorageDriver,
			SQLitePath: defaultSQLitePath,
		},
		Generation: GenerationConfig{
			Provider:       defaultProvider,
			TimeoutSeconds: defaultGenerationTimeout,
		},
		Compaction: CompactionConfig{
			Threshold:      defaultCompactionThreshold,
			KeepTail:       defaultCompactionKeepTail,
			TimeoutSeconds: defaultCompactionTimeout,
		},
		Recurrence: RecurrenceConfig{
			Policy:       defaultRecurrencePolicy,
			WindowDays:   defaultRecurrenceWindowDays,
			MinFrequency: defaultRecurrenceMinFrequency,
		},
		Context: ContextConfig{
			TopK:       defaultContextTopK,
			WindowDays: defaultContextWindowDays,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		EventStream: EventStreamConfig{
			KafkaTopic: defaultKafkaTopic,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
	}
}
