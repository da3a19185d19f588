/*
Copyright The Roster Engine Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config is the typed, yaml-tagged configuration struct for the
// process (spec.md ambient stack), nested the way the teacher's
// hack/e2e_driver/pkg/config.SimulatorConfig is: nominal sub-structs per
// concern rather than a flat map of settings.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root document loaded from disk.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Queue   QueueConfig   `yaml:"queue"`
	Solver  SolverConfig  `yaml:"solver"`
	Cache   CacheConfig   `yaml:"cache"`
	Admin   AdminConfig   `yaml:"admin"`
}

// LoggingConfig controls pkg/logging's constructor.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// QueueConfig controls pkg/queue's store namespacing, worker pool sizing,
// result TTL, and sweeper cadence (spec.md §4.8).
type QueueConfig struct {
	KeyPrefix             string        `yaml:"key_prefix"`
	NumWorkers            int           `yaml:"num_workers"`
	ClaimPollTimeout      time.Duration `yaml:"claim_poll_timeout"`
	ResultTTL             time.Duration `yaml:"result_ttl"`
	SweeperEnabled        bool          `yaml:"sweeper_enabled"`
	SweeperInterval       time.Duration `yaml:"sweeper_interval"`
	SweeperStaleBuffer    time.Duration `yaml:"sweeper_stale_buffer"`
}

// SolverConfig controls default solve budgets and the capacity ceiling
// (spec.md §5 "the process may advertise an estimated variable count...
// and refuse jobs that exceed a configurable ceiling").
type SolverConfig struct {
	DefaultTimeLimit time.Duration `yaml:"default_time_limit"`
	VariableCeiling  int64         `yaml:"variable_ceiling"`
}

// CacheConfig controls the C9 ratio cache's byte budget.
type CacheConfig struct {
	RatioCacheByteBudget int64 `yaml:"ratio_cache_byte_budget"`
}

// AdminConfig controls the out-of-band admin reset shared-secret check
// (spec.md §6.5) — the secret's value lives in an env var, never in the
// config file itself.
type AdminConfig struct {
	SharedSecretEnvVar string `yaml:"shared_secret_env_var"`
}

// Default returns the process's built-in defaults, overridable by a loaded
// file (cmd/rosterworker's -config flag).
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Development: false},
		Queue: QueueConfig{
			KeyPrefix:          "rosterengine",
			NumWorkers:         4,
			ClaimPollTimeout:   2 * time.Second,
			ResultTTL:          1 * time.Hour,
			SweeperEnabled:     true,
			SweeperInterval:    30 * time.Second,
			SweeperStaleBuffer: 1 * time.Minute,
		},
		Solver: SolverConfig{
			DefaultTimeLimit: 30 * time.Second,
			VariableCeiling:  2_000_000,
		},
		Cache: CacheConfig{
			RatioCacheByteBudget: 64 << 20,
		},
		Admin: AdminConfig{
			SharedSecretEnvVar: "ROSTER_ENGINE_ADMIN_SECRET",
		},
	}
}

// Load reads and parses a YAML config file, overlaying it onto Default() so
// a file need only specify the fields it overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}
