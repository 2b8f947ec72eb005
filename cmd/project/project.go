/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package project loads the build configuration for CLI commands. Flags and
// PERMUTE_* environment variables take precedence over the config file.
package project

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/permute/build"
	"bennypowers.dev/permute/config"
	"bennypowers.dev/permute/fs"
	"bennypowers.dev/permute/internal/logger"
	"bennypowers.dev/permute/lint"
	"bennypowers.dev/permute/lint/rules"
	"bennypowers.dev/permute/load"
	"bennypowers.dev/permute/render"
	"bennypowers.dev/permute/render/flatjson"
	"bennypowers.dev/permute/resolution"
	"bennypowers.dev/permute/schema"
)

// Persistent flag names.
const (
	FlagConfig    = "config"
	FlagResolver  = "resolver"
	FlagStrict    = "strict"
	FlagBuildPath = "build-path"
	FlagInput     = "input"
	FlagRemote    = "remote"
	FlagLogLevel  = "log-level"
)

// BindFlags registers the persistent flags on root and binds them to viper.
func BindFlags(root *cobra.Command) error {
	pf := root.PersistentFlags()
	pf.StringP(FlagConfig, "c", "", "Config file (default .config/permute.{yaml,yml,json})")
	pf.StringP(FlagResolver, "r", "", "Resolver document path or URL")
	pf.Bool(FlagStrict, false, "Require inputs for modifiers without defaults and fail on $type mismatches")
	pf.String(FlagBuildPath, "", "Directory outputs are written to")
	pf.StringSliceP(FlagInput, "i", nil, "Modifier input as key=value (repeatable)")
	pf.Bool(FlagRemote, false, "Allow http(s) resolver documents and references")
	pf.String(FlagLogLevel, "info", "Log level: debug, info, warn, error, silent")

	viper.SetEnvPrefix("PERMUTE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	return viper.BindPFlags(pf)
}

// SetupLogging applies the configured log level.
func SetupLogging() error {
	name := viper.GetString(FlagLogLevel)
	level, ok := logger.ParseLevel(name)
	if !ok {
		return schema.NewError(schema.ErrConfiguration, "unknown log level %q", name).
			WithSuggestions([]string{"debug", "info", "warn", "error", "silent"})
	}
	logger.SetLevel(level)
	return nil
}

// Load reads the config file and applies flag overrides. It returns the
// directory relative paths in the configuration resolve against.
func Load(filesystem fs.FileSystem) (*config.Config, string, error) {
	root := "."
	var cfg *config.Config
	if path := viper.GetString(FlagConfig); path != "" {
		loaded, err := config.LoadFile(filesystem, path)
		if err != nil {
			return nil, "", err
		}
		cfg = loaded
		root = rootOf(path)
	} else {
		loaded, err := config.Load(filesystem, root)
		if err != nil {
			return nil, "", err
		}
		cfg = loaded
	}
	if cfg == nil {
		cfg = config.Default()
	}

	if viper.IsSet(FlagResolver) {
		cfg.Resolver = viper.GetString(FlagResolver)
	}
	if viper.IsSet(FlagStrict) {
		cfg.Strict = viper.GetBool(FlagStrict)
	}
	if viper.IsSet(FlagBuildPath) {
		cfg.BuildPath = viper.GetString(FlagBuildPath)
	}
	if pairs := viper.GetStringSlice(FlagInput); len(pairs) > 0 {
		inputs, err := resolution.InputsFromStrings(pairs)
		if err != nil {
			return nil, "", err
		}
		cfg.Permutations = []map[string]any{inputs}
	}
	if cfg.Resolver == "" {
		return nil, "", schema.NewError(schema.ErrConfiguration,
			"no resolver document: pass --%s or set resolver in %s/%s.yaml",
			FlagResolver, config.ConfigDir, config.ConfigFileName)
	}
	return cfg, root, nil
}

// Env returns the build environment with the built-in renderers and lint plugin.
func Env(filesystem fs.FileSystem, root string) build.Env {
	env := build.Env{
		FS:        filesystem,
		Root:      root,
		Renderers: render.NewRegistry(flatjson.New()),
		Plugins:   lint.NewRegistry(rules.Plugin()),
	}
	if viper.GetBool(FlagRemote) {
		env.Fetcher = load.NewHTTPFetcher(load.DefaultMaxSize)
	}
	return env
}

// rootOf returns the project directory for a config file: the parent of a
// .config directory, or the file's own directory.
func rootOf(configPath string) string {
	dir := filepath.Dir(configPath)
	if filepath.Base(dir) == config.ConfigDir {
		return filepath.Dir(dir)
	}
	return dir
}
