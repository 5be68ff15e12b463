package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tutor/pkg/cliui"
	"github.com/papercomputeco/tutor/pkg/config"
)

const presetLongDesc string = `Point generation at a provider preset.

Writes the preset's generation.provider and generation.base_url into
config.toml, clearing generation.model so the provider's default model is
used. Every other setting is kept.

Available presets: anthropic, openai, gemini, ollama

Examples:
  tutor config preset anthropic
  tutor config preset ollama`

func newPresetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "preset <name>",
		Short:     "Point generation at a provider preset",
		Long:      presetLongDesc,
		Args:      cobra.ExactArgs(1),
		ValidArgs: config.ValidPresetNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runPreset(cmd.OutOrStdout(), args[0], configDir)
		},
	}

	return cmd
}

func runPreset(w io.Writer, name, configDir string) error {
	preset, err := config.PresetConfig(name)
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	printTarget(w, cfger)

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return err
	}
	cfg.Generation.Provider = preset.Generation.Provider
	cfg.Generation.BaseURL = preset.Generation.BaseURL
	cfg.Generation.Model = ""

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(w, "  %s Generation now uses %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(preset.Generation.Provider),
	)
	return nil
}
