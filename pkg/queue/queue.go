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

package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nathangeology/rosterengine/pkg/config"
	"github.com/nathangeology/rosterengine/pkg/metrics"
	"github.com/nathangeology/rosterengine/pkg/model"
	"github.com/nathangeology/rosterengine/pkg/pipeline"
	"github.com/nathangeology/rosterengine/pkg/ratiocache"
	"github.com/nathangeology/rosterengine/pkg/slots"
)

// Queue owns the Store, a fixed-size worker pool calling pipeline.Run per
// claimed job, and an optional sweeper goroutine. It is the process's single
// long-lived collaborator for C8 (spec.md §3, §4.8), the way the teacher's
// Provisioner owns a queue of pending pods and a fixed worker count consuming
// it (pkg/controllers/provisioning/provisioner.go).
type Queue struct {
	log     *zap.SugaredLogger
	cfg     config.QueueConfig
	solver  config.SolverConfig
	store   Store
	cache   *ratiocache.Cache
	metrics *metrics.Registry

	wg        sync.WaitGroup
	cancel    context.CancelFunc
	active    int64
	startOnce sync.Once
	stopOnce  sync.Once
}

// New builds a Queue against the given Store. cache and metricsReg may be
// nil (tests commonly pass nil for both; production wiring in cmd/ supplies
// both).
func New(log *zap.SugaredLogger, cfg config.QueueConfig, solverCfg config.SolverConfig, store Store, cache *ratiocache.Cache, metricsReg *metrics.Registry) *Queue {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Queue{
		log:     log,
		cfg:     cfg,
		solver:  solverCfg,
		store:   store,
		cache:   cache,
		metrics: metricsReg,
	}
}

// Submit validates the estimated variable count against the configured
// ceiling (spec.md §5, §7 CapacityExceeded), assigns a job id, records it as
// queued, and pushes it onto the FIFO. It returns the assigned job id.
func (q *Queue) Submit(ctx context.Context, in model.SolveInput) (string, error) {
	built := slots.Build(in.Horizon, in.DemandItems)
	estimated := in.EstimatedVariableCount(len(built.Slots))
	if q.solver.VariableCeiling > 0 && estimated > q.solver.VariableCeiling {
		return "", &model.CapacityExceededError{Estimated: estimated, Ceiling: q.solver.VariableCeiling}
	}

	id := uuid.NewString()
	now := time.Now()
	job := model.Job{
		ID:        id,
		Status:    model.JobQueued,
		CreatedAt: now,
		UpdatedAt: now,
		Input:     in,
	}
	if err := q.store.PutJob(ctx, job); err != nil {
		return "", fmt.Errorf("persist job %s: %w", id, err)
	}
	if err := q.store.PushTail(ctx, id); err != nil {
		return "", fmt.Errorf("enqueue job %s: %w", id, err)
	}
	if _, err := q.store.IncrTotalJobs(ctx); err != nil {
		q.log.Warnw("failed to increment job counter", "error", err)
	}
	if q.metrics != nil {
		q.metrics.JobsSubmittedTotal.WithLabelValues().Inc()
		q.metrics.QueueDepth.Inc()
	}
	return id, nil
}

// Status returns the current job record, or the cached result folded in
// when the job has completed (spec.md §4.8.1's read-through from the
// result cache once a job transitions to completed).
func (q *Queue) Status(ctx context.Context, id string) (model.Job, bool, error) {
	job, ok, err := q.store.GetJob(ctx, id)
	if err != nil || !ok {
		return job, ok, err
	}
	if job.Status == model.JobCompleted && job.Result == nil {
		if out, hit := q.store.GetResult(ctx, id); hit {
			job.Result = &out
		}
	}
	return job, true, nil
}

// Delete removes a job's metadata and any cached result (spec.md §6.4).
func (q *Queue) Delete(ctx context.Context, id string) error {
	if err := q.store.DeleteJob(ctx, id); err != nil {
		return err
	}
	return q.store.DeleteResult(ctx, id)
}

// AdminReset clears the entire namespace: every job, result, and the job
// counter (spec.md §6.5). Authentication of the caller is the HTTP
// transport's concern (an external collaborator); this method performs the
// reset itself once a caller has already been authorized.
func (q *Queue) AdminReset(ctx context.Context) error {
	return q.store.Reset(ctx)
}

// Start launches the fixed-size worker pool (and, if configured, the
// sweeper) and returns immediately; workers run until ctx is done or Stop is
// called.
func (q *Queue) Start(ctx context.Context) {
	q.startOnce.Do(func() {
		runCtx, cancel := context.WithCancel(ctx)
		q.cancel = cancel

		n := q.cfg.NumWorkers
		if n <= 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			q.wg.Add(1)
			go q.runWorker(runCtx, i)
		}
		if q.cfg.SweeperEnabled {
			q.wg.Add(1)
			go q.runSweeper(runCtx)
		}
	})
}

// Stop cancels every worker and the sweeper and waits for them to exit.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		if q.cancel != nil {
			q.cancel()
		}
		q.wg.Wait()
	})
}

func (q *Queue) runWorker(ctx context.Context, workerID int) {
	defer q.wg.Done()
	log := q.log.With("worker", workerID)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		id, ok, err := q.store.PopHead(ctx, q.cfg.ClaimPollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warnw("pop head failed", "error", err)
			continue
		}
		if !ok {
			continue
		}
		q.claimAndRun(ctx, log, id)
	}
}

func (q *Queue) claimAndRun(ctx context.Context, log *zap.SugaredLogger, id string) {
	job, ok, err := q.store.GetJob(ctx, id)
	if err != nil || !ok {
		log.Warnw("claimed job missing from store", "job_id", id, "error", err)
		return
	}
	if !model.CanTransition(job.Status, model.JobInProgress) {
		log.Warnw("skipping job with invalid transition", "job_id", id, "status", job.Status)
		return
	}
	job.Status = model.JobInProgress
	job.UpdatedAt = time.Now()
	if err := q.store.PutJob(ctx, job); err != nil {
		log.Warnw("failed to mark job in_progress", "job_id", id, "error", err)
		return
	}

	atomic.AddInt64(&q.active, 1)
	if q.metrics != nil {
		q.metrics.ActiveWorkers.Inc()
		q.metrics.QueueDepth.Dec()
	}
	defer func() {
		atomic.AddInt64(&q.active, -1)
		if q.metrics != nil {
			q.metrics.ActiveWorkers.Dec()
		}
	}()

	var stop func()
	if q.metrics != nil {
		stop = metrics.Measure(q.metrics.SolveDurationSeconds, map[string]string{"status": "unknown"})
	}
	out, runErr := pipeline.Run(log, job.Input, q.cache)
	if stop != nil {
		stop()
	}

	job.UpdatedAt = time.Now()
	if runErr != nil {
		job.Status = model.JobFailed
		job.Error = runErr.Error()
		if q.metrics != nil {
			q.metrics.JobsCompletedTotal.WithLabelValues("failed").Inc()
		}
	} else {
		job.Status = model.JobCompleted
		job.Result = &out
		if q.metrics != nil {
			q.metrics.JobsCompletedTotal.WithLabelValues("completed").Inc()
			unassigned := 0
			for _, u := range out.UnmetDemand {
				unassigned += u.Shortfall
			}
			q.metrics.UnschedulableSlots.Set(float64(unassigned))
		}
		if err := q.store.PutResult(ctx, id, out, q.cfg.ResultTTL); err != nil {
			log.Warnw("failed to cache result", "job_id", id, "error", err)
		} else if q.metrics != nil {
			q.metrics.ResultsCached.Inc()
		}
	}
	if err := retry.Do(func() error {
		return q.store.PutJob(ctx, job)
	}, retry.Attempts(3), retry.Delay(10*time.Millisecond)); err != nil {
		log.Errorw("failed to persist terminal job state", "job_id", id, "error", err)
	}
}

// runSweeper periodically requeues jobs stuck in_progress longer than the
// solver's time budget plus a configured buffer — a worker that died
// mid-solve otherwise leaves a job orphaned forever (spec.md §4.8.3).
func (q *Queue) runSweeper(ctx context.Context) {
	defer q.wg.Done()
	interval := q.cfg.SweeperInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.sweepOnce(ctx)
		}
	}
}

func (q *Queue) sweepOnce(ctx context.Context) {
	staleBudget := q.solver.DefaultTimeLimit + q.cfg.SweeperStaleBuffer
	jobs, err := q.store.ListInProgress(ctx)
	if err != nil {
		q.log.Warnw("sweeper failed to list in-progress jobs", "error", err)
		return
	}
	now := time.Now()
	for _, job := range jobs {
		limit := staleBudget
		if job.Input.SolverConfig.TimeLimitSeconds > 0 {
			limit = time.Duration(job.Input.SolverConfig.TimeLimitSeconds)*time.Second + q.cfg.SweeperStaleBuffer
		}
		if now.Sub(job.UpdatedAt) <= limit {
			continue
		}
		q.log.Warnw("requeuing orphaned job", "job_id", job.ID, "stale_for", now.Sub(job.UpdatedAt))
		job.Status = model.JobQueued
		job.UpdatedAt = now
		if err := q.store.PutJob(ctx, job); err != nil {
			q.log.Warnw("failed to requeue orphaned job", "job_id", job.ID, "error", err)
			continue
		}
		if err := q.store.PushTail(ctx, job.ID); err != nil {
			q.log.Warnw("failed to push orphaned job back onto queue", "job_id", job.ID, "error", err)
		}
	}
}
