// Command loom compiles profile manifests into self-contained agent
// documents. Run `loom compile -p <profile>` inside a workspace, or omit
// the profile flag to pick one interactively.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "loom",
		Short:         "loom composes text fragments into deployable agent documents",
		Long:          "loom reads a per-profile declarative manifest, validates every fragment and skill reference it contains, and compiles each declared unit into one self-contained document under the output tree.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringP("workspace", "C", ".", "workspace directory")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		newCompileCmd(),
		newValidateCmd(),
		newProfilesCmd(),
		newVersionCmd(),
	)

	return rootCmd
}
