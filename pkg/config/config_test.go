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

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nathangeology/rosterengine/pkg/config"
)

func TestDefaultIsUsable(t *testing.T) {
	cfg := config.Default()
	if cfg.Queue.NumWorkers <= 0 {
		t.Fatalf("expected a positive default worker count, got %d", cfg.Queue.NumWorkers)
	}
	if cfg.Solver.DefaultTimeLimit <= 0 {
		t.Fatalf("expected a positive default solve time limit")
	}
	if cfg.Cache.RatioCacheByteBudget <= 0 {
		t.Fatalf("expected a positive ratio cache byte budget")
	}
	if cfg.Admin.SharedSecretEnvVar == "" {
		t.Fatalf("expected a non-empty admin shared secret env var name")
	}
}

func TestLoadOverlaysOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte(`
logging:
  level: debug
  development: true
queue:
  num_workers: 9
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write fixture config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected overridden logging level, got %q", cfg.Logging.Level)
	}
	if !cfg.Logging.Development {
		t.Fatalf("expected overridden development flag")
	}
	if cfg.Queue.NumWorkers != 9 {
		t.Fatalf("expected overridden worker count, got %d", cfg.Queue.NumWorkers)
	}
	// Fields untouched by the fixture keep their defaults.
	if cfg.Solver.DefaultTimeLimit != 30*time.Second {
		t.Fatalf("expected default solve time limit to survive overlay, got %s", cfg.Solver.DefaultTimeLimit)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("not: [valid"), 0o600); err != nil {
		t.Fatalf("write fixture config: %v", err)
	}
	if _, err := config.Load(path); err == nil {
		t.Fatalf("expected a parse error for malformed YAML")
	}
}
