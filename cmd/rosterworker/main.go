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

// Command rosterworker wires config, logging, metrics, the ratio cache, and
// the job queue's worker pool into one running process. There is
// deliberately no HTTP transport here: submitting jobs, polling status, and
// scraping metrics are all external collaborators' concern (spec.md
// Non-goals) that would sit in front of a *queue.Queue built by this
// process.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nathangeology/rosterengine/pkg/config"
	"github.com/nathangeology/rosterengine/pkg/logging"
	"github.com/nathangeology/rosterengine/pkg/metrics"
	"github.com/nathangeology/rosterengine/pkg/queue"
	"github.com/nathangeology/rosterengine/pkg/ratiocache"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file overlaying the built-in defaults")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}

	sugar, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer sugar.Sync() //nolint:errcheck

	cache, err := ratiocache.New(cfg.Cache.RatioCacheByteBudget)
	if err != nil {
		log.Fatalf("failed to build ratio cache: %v", err)
	}

	reg := metrics.NewRegistry()
	store := queue.NewMemStore(cfg.Queue.KeyPrefix, cfg.Queue.NumWorkers*4)
	q := queue.New(sugar, cfg.Queue, cfg.Solver, store, cache, reg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sugar.Infow("starting roster engine worker pool",
		"workers", cfg.Queue.NumWorkers,
		"result_ttl", cfg.Queue.ResultTTL,
		"sweeper_enabled", cfg.Queue.SweeperEnabled,
	)
	q.Start(ctx)

	<-ctx.Done()
	sugar.Infow("shutdown signal received, draining workers")
	q.Stop()
	sugar.Infow("roster engine worker pool stopped")
}
