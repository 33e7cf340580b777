package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/stow/internal/app"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [tasks...]",
		Short: "Run tasks declared in stow.yaml",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				// Display command usage help without returning an error
				_ = cmd.Help()
				return nil
			}
			return c.app.Run(cmd.Context(), args, runOptions(cmd))
		},
	}
	addRunFlags(cmd)
	return cmd
}

// addRunFlags registers the flags shared by run and exec.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("no-cache", "n", false, "Bypass the cache and force execution")
	cmd.Flags().String("cache-dir", "", "Shared cache directory (default .stow/cache)")
	cmd.Flags().IntP("jobs", "j", 0, "Maximum number of tasks to run at once (default: number of CPUs)")
	cmd.Flags().StringP("output-mode", "o", "auto", "Output mode: auto, color, or plain")
	cmd.Flags().Bool("ci", false, "Use plain output (shorthand for --output-mode=plain)")
}

func runOptions(cmd *cobra.Command) app.RunOptions {
	noCache, _ := cmd.Flags().GetBool("no-cache")
	cacheDir, _ := cmd.Flags().GetString("cache-dir")
	jobs, _ := cmd.Flags().GetInt("jobs")
	outputMode, _ := cmd.Flags().GetString("output-mode")
	ci, _ := cmd.Flags().GetBool("ci")

	if ci {
		outputMode = "plain"
	}

	return app.RunOptions{
		NoCache:    noCache,
		CacheDir:   cacheDir,
		Jobs:       jobs,
		OutputMode: outputMode,
	}
}
