// Package configcmder provides the config command for managing persistent
// tutor configuration stored in the .tutor/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tutor/pkg/cliui"
	"github.com/papercomputeco/tutor/pkg/config"
)

const configLongDesc string = `Manage persistent tutor configuration.

Configuration is stored as config.toml in the .tutor/ directory and provides
default values for command flags. CLI flags and TUTOR_ environment variables
always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.driver, storage.sqlite_path, storage.postgres_dsn,
  generation.provider, generation.model, generation.base_url,
  generation.timeout_seconds,
  compaction.threshold, compaction.keep_tail, compaction.timeout_seconds,
  recurrence.policy, recurrence.window_days, recurrence.min_frequency,
  context.top_k, context.window_days,
  api.listen, eventstream.kafka_brokers, eventstream.kafka_topic,
  client.api_target

Use subcommands to get, set, or list configuration values:
  tutor config set <key> <value>    Set a configuration value
  tutor config get <key>            Get a configuration value
  tutor config list                 List all configuration values
  tutor config preset <name>        Point generation at a provider

Examples:
  tutor config set generation.provider anthropic
  tutor config set recurrence.policy sliding_window
  tutor config get compaction.threshold
  tutor config preset openai
  tutor config list`

const configShortDesc string = "Manage persistent tutor configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newPresetCmd())

	return cmd
}

func validateKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func printTarget(w io.Writer, cfger *config.Configer) {
	target := cfger.GetTarget()
	if target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
	} else {
		fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
	}
}
