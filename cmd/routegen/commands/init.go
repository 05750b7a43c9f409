package commands

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/routegen/routegen/errors"
	"github.com/routegen/routegen/internal/config"
)

var initRoot string

// configScaffold mirrors config.Options with TOML serialization tags so init
// writes a file the resolver parses back identically.
type configScaffold struct {
	Include      []string       `toml:"include"`
	Exclude      []string       `toml:"exclude"`
	BuildTags    []string       `toml:"build_tags"`
	RouteOrigins []string       `toml:"route_origins"`
	Output       outputScaffold `toml:"output"`
}

type outputScaffold struct {
	Client string `toml:"client"`
	Schema string `toml:"schema"`
}

// InitCmd scaffolds a default routegen.toml.
var InitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default routegen.toml",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := resolveRoot(initRoot)
		if err != nil {
			return err
		}

		path := filepath.Join(root, config.FileName)
		if _, err := os.Stat(path); err == nil {
			return errors.Newf("%s already exists", path)
		}

		defaults := config.Default()
		scaffold := configScaffold{
			Include:      []string{},
			Exclude:      []string{},
			BuildTags:    []string{},
			RouteOrigins: defaults.RouteOrigins,
			Output: outputScaffold{
				Client: defaults.Output.Client,
				Schema: defaults.Output.Schema,
			},
		}

		data, err := toml.Marshal(scaffold)
		if err != nil {
			return errors.Wrap(err, "failed to encode config")
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return errors.Wrapf(err, "failed to write %s", path)
		}

		pterm.Success.Printf("Wrote %s\n", path)
		return nil
	},
}

func init() {
	InitCmd.Flags().StringVarP(&initRoot, "chdir", "C", ".", "Directory to place the config in")
}
