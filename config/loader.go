/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package config

import (
	"encoding/json"
	"path/filepath"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	permutefs "bennypowers.dev/permute/fs"
	"bennypowers.dev/permute/schema"
)

// ConfigFileName is the base name of the config file without extension.
const ConfigFileName = "permute"

// ConfigDir is the directory where config files are stored.
const ConfigDir = ".config"

// configExtensions are the supported config file extensions in priority order.
var configExtensions = []string{".yaml", ".yml", ".json"}

// Find returns the path of the config file under rootDir, or "".
func Find(filesystem permutefs.FileSystem, rootDir string) string {
	for _, ext := range configExtensions {
		configPath := filepath.Join(rootDir, ConfigDir, ConfigFileName+ext)
		if filesystem.Exists(configPath) {
			return configPath
		}
	}
	return ""
}

// Load searches for .config/permute.{yaml,yml,json} from rootDir.
// Returns nil if no config found (not an error).
func Load(filesystem permutefs.FileSystem, rootDir string) (*Config, error) {
	configPath := Find(filesystem, rootDir)
	if configPath == "" {
		return nil, nil
	}
	return LoadFile(filesystem, configPath)
}

// LoadFile reads a config file. The format follows the extension; JSON files
// may carry comments and trailing commas.
func LoadFile(filesystem permutefs.FileSystem, configPath string) (*Config, error) {
	data, err := filesystem.ReadFile(configPath)
	if err != nil {
		return nil, schema.NewError(schema.ErrFileOperation, "failed to read config").
			WithPath(configPath).
			WithCause(err)
	}

	cfg := Default()
	switch filepath.Ext(configPath) {
	case ".json":
		err = json.Unmarshal(jsonc.ToJSON(data), cfg)
	default:
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, schema.NewError(schema.ErrConfiguration, "invalid config").
			WithPath(configPath).
			WithCause(err)
	}
	return cfg, nil
}
