package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/routegen/routegen/errors"
	"github.com/routegen/routegen/internal/config"
	"github.com/routegen/routegen/internal/driver"
	"github.com/routegen/routegen/internal/reactor"
	"github.com/routegen/routegen/internal/workspace"
)

var watchRoot string

// WatchCmd runs an initial pass, then regenerates on every relevant change
// until interrupted.
var WatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the source tree and regenerate on change",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := resolveRoot(watchRoot)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		resolver := config.NewResolver()
		cache := workspace.NewCache(resolver)
		d := driver.New(root, cache, resolver)

		res, err := d.Run(ctx)
		if err != nil {
			// A broken initial pass is not fatal in watch mode; the next
			// change gets another chance.
			pterm.Error.Printf("Initial pass failed: %v\n", err)
		} else {
			renderResult(res)
		}

		r := reactor.New(root, cache, d, reactor.Options{OnResult: renderResult})
		if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		pterm.Info.Println("Watch stopped")
		return nil
	},
}

func init() {
	WatchCmd.Flags().StringVarP(&watchRoot, "chdir", "C", ".", "Module root to watch")
}
