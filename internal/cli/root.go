// Package cli defines the incident-relay command line.
package cli

import (
	"github.com/spf13/cobra"
)

// GlobalFlags holds flags shared across all commands.
type GlobalFlags struct {
	ConfigPath string
}

// NewRootCommand builds the command tree. Without a subcommand the relay runs.
func NewRootCommand() *cobra.Command {
	flags := &GlobalFlags{}

	root := &cobra.Command{
		Use:           "incident-relay",
		Short:         "Relay status page incidents to a Discord webhook",
		Long:          "incident-relay polls a Statuspage v2 API and posts or edits one webhook message per incident and scheduled maintenance.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", "", "YAML config file (environment variables prefixed RELAY_ override it)")

	run := newRunCommand(flags)
	root.RunE = run.RunE

	root.AddCommand(run)
	root.AddCommand(newCheckCommand(flags))
	root.AddCommand(newVersionCommand())
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}
