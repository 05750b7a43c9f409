package commands

import (
	"os"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/routegen/routegen/errors"
	"github.com/routegen/routegen/internal/config"
	"github.com/routegen/routegen/internal/driver"
	"github.com/routegen/routegen/internal/workspace"
)

var generateRoot string

// GenerateCmd runs one generation pass and exits.
var GenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run one generation pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := resolveRoot(generateRoot)
		if err != nil {
			return err
		}

		resolver := config.NewResolver()
		cache := workspace.NewCache(resolver)
		d := driver.New(root, cache, resolver)

		res, err := d.Run(cmd.Context())
		if err != nil {
			pterm.Error.Printf("Generation failed: %v\n", err)
			return err
		}

		renderResult(res)
		return nil
	},
}

func init() {
	GenerateCmd.Flags().StringVarP(&generateRoot, "chdir", "C", ".", "Module root to scan")
}

func resolveRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve %s", dir)
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return "", errors.Newf("%s is not a directory", abs)
	}
	return abs, nil
}

func renderResult(res *driver.Result) {
	for _, diag := range res.Diagnostics {
		pterm.Warning.Printf("%s: %s\n", diag.File, diag.Message)
	}
	for _, warn := range res.Warnings {
		pterm.Warning.Printf("route %s skipped (%s): %s\n", warn.Route, warn.File, warn.Message)
	}

	if res.Superseded {
		pterm.Info.Println("Pass superseded, outputs unchanged")
		return
	}
	pterm.Success.Printf("Generated %d routes, %d types\n", res.Routes, res.Types)
	for _, path := range res.Written {
		pterm.Info.Printf("  wrote %s\n", path)
	}
}
