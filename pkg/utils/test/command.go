package testutils

import (
	"bytes"

	"github.com/spf13/cobra"
)

// RunCommand executes sub beneath a root carrying the global --debug and
// --config-dir flags, returning everything written to stdout and stderr.
func RunCommand(sub *cobra.Command, configDir string, stdin string, args ...string) (string, error) {
	root := &cobra.Command{Use: "tutor", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().BoolP("debug", "d", false, "")
	root.PersistentFlags().String("config-dir", "", "")
	root.AddCommand(sub)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(bytes.NewBufferString(stdin))
	root.SetArgs(append(append([]string{sub.Name()}, args...), "--config-dir", configDir))

	err := root.Execute()
	return out.String(), err
}
