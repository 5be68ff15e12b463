package sqldriver

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	checkpointsTable = "checkpoints"
	mistakesTable    = "mistakes"
	occurrencesTable = "mistake_occurrences"
	profilesTable    = "profiles"
	messagesTable    = "messages"
	statsTable       = "daily_stats"
)

var (
	// CheckpointsColumns holds the columns for the "checkpoints" table.
	CheckpointsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "thread_id", Type: field.TypeString},
		{Name: "seq", Type: field.TypeInt64},
		{Name: "user_id", Type: field.TypeString},
		{Name: "state", Type: field.TypeJSON},
		{Name: "metadata", Type: field.TypeJSON, Nullable: true},
		{Name: "message_count", Type: field.TypeInt},
		{Name: "created_at", Type: field.TypeTime},
	}
	// CheckpointsTable holds the schema information for the "checkpoints" table.
	CheckpointsTable = &schema.Table{
		Name:       checkpointsTable,
		Columns:    CheckpointsColumns,
		PrimaryKey: []*schema.Column{CheckpointsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "checkpoint_thread_id_seq",
				Unique:  true,
				Columns: []*schema.Column{CheckpointsColumns[1], CheckpointsColumns[2]},
			},
		},
	}

	// MistakesColumns holds the columns for the "mistakes" table.
	MistakesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "user_id", Type: field.TypeString},
		{Name: "pattern", Type: field.TypeString},
		{Name: "category", Type: field.TypeString},
		{Name: "examples", Type: field.TypeJSON},
		{Name: "count", Type: field.TypeInt},
		{Name: "last_seen", Type: field.TypeTime},
		{Name: "created_at", Type: field.TypeTime},
	}
	// MistakesTable holds the schema information for the "mistakes" table.
	MistakesTable = &schema.Table{
		Name:       mistakesTable,
		Columns:    MistakesColumns,
		PrimaryKey: []*schema.Column{MistakesColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "mistake_user_id_pattern",
				Unique:  true,
				Columns: []*schema.Column{MistakesColumns[1], MistakesColumns[2]},
			},
			{
				Name:    "mistake_user_id_category",
				Unique:  false,
				Columns: []*schema.Column{MistakesColumns[1], MistakesColumns[3]},
			},
		},
	}

	// OccurrencesColumns holds the columns for the "mistake_occurrences" table.
	OccurrencesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "user_id", Type: field.TypeString},
		{Name: "pattern", Type: field.TypeString},
		{Name: "seen_at", Type: field.TypeTime},
	}
	// OccurrencesTable holds the schema information for the "mistake_occurrences" table.
	OccurrencesTable = &schema.Table{
		Name:       occurrencesTable,
		Columns:    OccurrencesColumns,
		PrimaryKey: []*schema.Column{OccurrencesColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "occurrence_user_id_pattern_seen_at",
				Unique:  false,
				Columns: []*schema.Column{OccurrencesColumns[1], OccurrencesColumns[2], OccurrencesColumns[3]},
			},
		},
	}

	// ProfilesColumns holds the columns for the "profiles" table.
	ProfilesColumns = []*schema.Column{
		{Name: "user_id", Type: field.TypeString, Unique: true},
		{Name: "level", Type: field.TypeString},
		{Name: "learning_goal", Type: field.TypeString, Size: 2147483647, Nullable: true},
		{Name: "recurring_mistakes", Type: field.TypeJSON, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// ProfilesTable holds the schema information for the "profiles" table.
	ProfilesTable = &schema.Table{
		Name:       profilesTable,
		Columns:    ProfilesColumns,
		PrimaryKey: []*schema.Column{ProfilesColumns[0]},
	}

	// MessagesColumns holds the columns for the "messages" table.
	MessagesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64, Increment: true},
		{Name: "thread_id", Type: field.TypeString},
		{Name: "user_id", Type: field.TypeString},
		{Name: "role", Type: field.TypeString},
		{Name: "content", Type: field.TypeString, Size: 2147483647},
		{Name: "created_at", Type: field.TypeTime},
	}
	// MessagesTable holds the schema information for the "messages" table.
	MessagesTable = &schema.Table{
		Name:       messagesTable,
		Columns:    MessagesColumns,
		PrimaryKey: []*schema.Column{MessagesColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "message_thread_id",
				Unique:  false,
				Columns: []*schema.Column{MessagesColumns[1]},
			},
		},
	}

	// StatsColumns holds the columns for the "daily_stats" table.
	StatsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "user_id", Type: field.TypeString},
		{Name: "day", Type: field.TypeString},
		{Name: "total_turns", Type: field.TypeInt},
		{Name: "total_mistakes", Type: field.TypeInt},
		{Name: "breakdown", Type: field.TypeJSON},
	}
	// StatsTable holds the schema information for the "daily_stats" table.
	StatsTable = &schema.Table{
		Name:       statsTable,
		Columns:    StatsColumns,
		PrimaryKey: []*schema.Column{StatsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "daily_stats_user_id_day",
				Unique:  true,
				Columns: []*schema.Column{StatsColumns[1], StatsColumns[2]},
			},
		},
	}

	// Tables holds every table managed by the driver.
	Tables = []*schema.Table{
		CheckpointsTable,
		MistakesTable,
		OccurrencesTable,
		ProfilesTable,
		MessagesTable,
		StatsTable,
	}
)
