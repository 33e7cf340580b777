package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/stow/internal/app"
)

func (c *CLI) newExecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec [flags] -- <cmd> [args...]",
		Short: "Run a single command without a project file",
		Example: "  stow exec --input package-lock.json --input app --output build/js -- " +
			"npx webpack --entry ./app/index.js --output-path build/js",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			inputs, _ := cmd.Flags().GetStringArray("input")
			outputs, _ := cmd.Flags().GetStringArray("output")
			timeout, _ := cmd.Flags().GetDuration("timeout")

			return c.app.Exec(cmd.Context(), app.ExecOptions{
				RunOptions: runOptions(cmd),
				Name:       name,
				Command:    args,
				Inputs:     inputs,
				Outputs:    outputs,
				Timeout:    timeout,
			})
		},
	}

	cmd.Flags().String("name", "", "Task name used for the cache entry (default: the program name)")
	cmd.Flags().StringArray("input", nil, "Input path, optionally suffixed with :relative or :absolute (repeatable)")
	cmd.Flags().StringArray("output", nil, "Output path relative to the working directory (repeatable)")
	cmd.Flags().Duration("timeout", 0, "Kill the command after this duration")
	addRunFlags(cmd)

	return cmd
}
