package cli

import (
	"fmt"

	"github.com/bissquit/incident-relay/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "incident-relay %s (commit %s, built %s)\n",
				version.Version, version.GitCommit, version.BuildDate)
			return nil
		},
	}
}
