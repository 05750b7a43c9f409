// Package commands wires the routegen CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/routegen/routegen/errors"
	"github.com/routegen/routegen/logger"
)

var (
	jsonOutput bool
	verbosity  int
)

// RootCmd is the routegen entry command.
var RootCmd = &cobra.Command{
	Use:   "routegen",
	Short: "Generate validation schemas and typed clients from route declarations",
	Long: `routegen scans a Go module for exported route declarations and keeps two
generated artifacts in sync with them: a runtime validation schema module and
a statically typed client module.

Available commands:
  generate - Run one generation pass
  watch    - Watch the source tree and regenerate on change
  init     - Write a default routegen.toml

Examples:
  routegen generate            # One pass over the current module
  routegen generate -C ./api   # One pass over another root
  routegen watch               # Regenerate on every source change
  routegen init                # Scaffold a project config`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Initialize(jsonOutput, verbosity); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func init() {
	RootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Emit logs as JSON")
	RootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")

	RootCmd.AddCommand(GenerateCmd)
	RootCmd.AddCommand(WatchCmd)
	RootCmd.AddCommand(InitCmd)
}
