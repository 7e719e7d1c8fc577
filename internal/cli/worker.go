package cli

import (
	"os"

	"github.com/spf13/cobra"

	"maskd/internal/executor"
)

// buildWorkerCmd registers the hidden subcommand the executor spawns.
// It speaks the one-request one-outcome protocol over stdin/stdout and
// must never print anything else to stdout.
func buildWorkerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:    executor.WorkerCommand,
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executor.RunWorker(os.Stdin, os.Stdout)
		},
	}
}
