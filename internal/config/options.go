package config

import "github.com/spf13/viper"

// FileName is the recognized project configuration filename. The resolver
// searches ancestor directories for it, nearest ancestor first.
const FileName = "routegen.toml"

// Options holds the parsed contents of a routegen.toml.
type Options struct {
	// Include/Exclude are doublestar globs relative to the config directory.
	// Empty Include means everything under the config directory.
	Include []string `mapstructure:"include"`
	Exclude []string `mapstructure:"exclude"`

	// BuildTags are passed to the package loader and affect import resolution.
	BuildTags []string `mapstructure:"build_tags"`

	// RouteOrigins are import paths whose exported factory functions mark a
	// declaration as a route.
	RouteOrigins []string `mapstructure:"route_origins"`

	Output Output `mapstructure:"output"`
}

// Output configures where the two generated documents are written,
// relative to the config directory.
type Output struct {
	Client string `mapstructure:"client"`
	Schema string `mapstructure:"schema"`
}

// DefaultRouteOrigin is the factory package recognized when a config does not
// override route_origins.
const DefaultRouteOrigin = "github.com/routegen/routegen/route"

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("include", []string{})
	v.SetDefault("exclude", []string{})
	v.SetDefault("build_tags", []string{})
	v.SetDefault("route_origins", []string{DefaultRouteOrigin})
	v.SetDefault("output.client", "generated/client.ts")
	v.SetDefault("output.schema", "generated/schema.ts")
}

// Default returns the options used when a directory has no governing config
// or its config file is malformed.
func Default() Options {
	return Options{
		RouteOrigins: []string{DefaultRouteOrigin},
		Output: Output{
			Client: "generated/client.ts",
			Schema: "generated/schema.ts",
		},
	}
}
