package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bissquit/incident-relay/internal/app"
	"github.com/bissquit/incident-relay/internal/config"
	"github.com/spf13/cobra"
)

func newCheckCommand(flags *GlobalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check every feed once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.ConfigPath)
			if err != nil {
				return err
			}

			application, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("create app: %w", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = application.Shutdown(ctx)
			}()

			results, checkErr := application.CheckOnce(cmd.Context())

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(results); err != nil {
					return fmt.Errorf("encode results: %w", err)
				}
			} else {
				for _, r := range results {
					fmt.Fprintf(out, "%-24s fetched=%d sent=%d edited=%d failed=%d unchanged=%d\n",
						r.Feed, r.Fetched, r.Sent, r.Edited, r.Failed, r.Unchanged)
				}
			}
			return checkErr
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}
