package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/stow/internal/app"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove the local state and the shared cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			state, _ := cmd.Flags().GetBool("state")
			cache, _ := cmd.Flags().GetBool("cache")
			all, _ := cmd.Flags().GetBool("all")

			opts := app.CleanOptions{
				State: state,
				Cache: cache,
			}

			switch {
			case all:
				opts.State = true
				opts.Cache = true
			case !state && !cache:
				// Default behavior: forget the up-to-date state
				opts.State = true
			}

			return c.app.Clean(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolP("state", "s", false, "Remove the local up-to-date state")
	cmd.Flags().BoolP("cache", "c", false, "Remove the shared cache directory")
	cmd.Flags().BoolP("all", "a", false, "Remove both")

	return cmd
}
