/*
 * config.go, part of atomsio.
 *
 * Copyright 2024 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

// Package config reads the atomsio configuration file, which can be YAML or
// (if the name ends in .json) JSON:
//
//	log_level: info
//	backends:
//	  - name: ase
//	    enabled: true
//	    options:
//	      command: /opt/ase/bin/ase
//
// The backends list only enables, disables and configures backends. It doesn't
// change their priority, which is fixed.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPath is the environment variable with the path of the configuration
// file, used when none is given explicitly.
const EnvPath = "ATOMSIO_CONFIG"

// BackendConfig holds the settings for one backend.
type BackendConfig struct {
	Name string `yaml:"name" json:"name"`
	//Enabled is nil if the file doesn't say, so the backend default applies.
	Enabled *bool          `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Options map[string]any `yaml:"options,omitempty" json:"options,omitempty"`
}

// IsEnabled returns whether the backend is enabled, or def if the
// configuration doesn't say.
func (B BackendConfig) IsEnabled(def bool) bool {
	if B.Enabled == nil {
		return def
	}
	return *B.Enabled
}

// Config is the whole configuration.
type Config struct {
	LogLevel string          `yaml:"log_level" json:"log_level"`
	Backends []BackendConfig `yaml:"backends" json:"backends"`
}

// Default returns the configuration used when there is no file.
func Default() *Config {
	return &Config{LogLevel: "warn"}
}

// Backend returns the settings for the backend name. If there are none,
// it returns an empty BackendConfig for that name and false.
func (C *Config) Backend(name string) (BackendConfig, bool) {
	for _, b := range C.Backends {
		if b.Name == name {
			return b, true
		}
	}
	return BackendConfig{Name: name}, false
}

// Validate checks that every backend entry has a name, and that no name is repeated.
func (C *Config) Validate() error {
	seen := make(map[string]bool, len(C.Backends))
	for i, b := range C.Backends {
		if b.Name == "" {
			return fmt.Errorf("backend entry %d has no name", i)
		}
		if seen[b.Name] {
			return fmt.Errorf("backend %q configured twice", b.Name)
		}
		seen[b.Name] = true
	}
	return nil
}

// Path returns the configuration file to use: the given one, if not
// empty, or the one in EnvPath.
func Path(given string) string {
	if given != "" {
		return given
	}
	return os.Getenv(EnvPath)
}

// Load reads the configuration in path. An empty path, or a file that
// doesn't exist, give the Default configuration.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
