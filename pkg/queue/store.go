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

// Package queue is the C8 durable job queue: submit/claim/complete/fail
// lifecycle, a fixed-size worker pool running pkg/pipeline.Run per claimed
// job, a sweeper that requeues orphaned in_progress jobs, and an admin
// reset. Keys are namespaced the way spec.md §4.8.2 describes a KV-backed
// implementation ({prefix}:job:queue, {prefix}:job:{id},
// {prefix}:result:{id}, {prefix}:stats:total_jobs), even though this
// in-process Store backs them with Go maps and channels rather than an
// external KV store — the namespacing keeps a future swap to Redis/etcd a
// storage-layer change only.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/nathangeology/rosterengine/pkg/model"
)

// Store is the persistence contract C8 needs: an atomic FIFO for job ids, a
// hash of job metadata keyed by id, and a TTL'd result cache. Grounded on
// spec.md §4.8.2's description of the reference KV-store layout; the
// interface exists so pkg/queue's worker pool and sweeper never talk to map
// internals directly, the way the teacher's provisioner never touches the
// Kubernetes client's local cache directly but goes through a Lister.
type Store interface {
	// PushTail enqueues a job id for claiming (the {prefix}:job:queue list).
	PushTail(ctx context.Context, id string) error
	// PopHead waits up to pollTimeout (subject to ctx) for a job id, returning
	// it removed from the queue, or false when none arrived in time.
	PopHead(ctx context.Context, pollTimeout time.Duration) (string, bool, error)

	// PutJob writes/overwrites a job's metadata hash.
	PutJob(ctx context.Context, job model.Job) error
	// GetJob reads a job's metadata hash.
	GetJob(ctx context.Context, id string) (model.Job, bool, error)
	// ListInProgress returns every job currently claimed, for the sweeper.
	ListInProgress(ctx context.Context) ([]model.Job, error)
	// DeleteJob removes a job's metadata hash entirely (delete by id).
	DeleteJob(ctx context.Context, id string) error

	// PutResult writes a completed job's result with a TTL (spec.md
	// §4.8.1's T_result).
	PutResult(ctx context.Context, id string, out model.SolveOutput, ttl time.Duration) error
	// GetResult reads a cached result, reporting whether it was present and
	// unexpired.
	GetResult(ctx context.Context, id string) (model.SolveOutput, bool)
	// DeleteResult evicts a cached result (delete by id).
	DeleteResult(ctx context.Context, id string) error

	// IncrTotalJobs bumps the {prefix}:stats:total_jobs counter and returns
	// the new value.
	IncrTotalJobs(ctx context.Context) (int64, error)

	// Reset clears every job, result, and counter under this store's
	// namespace (spec.md §6.5 admin reset).
	Reset(ctx context.Context) error
}

// MemStore is an in-process Store backed by a buffered channel (the FIFO),
// a mutex-guarded map (the job hash), a patrickmn/go-cache instance with a
// background janitor (the TTL'd result cache), and a mutex-guarded counter.
type MemStore struct {
	prefix string

	mu        sync.Mutex
	queueCh   chan string
	jobs      map[string]model.Job
	totalJobs int64

	results *gocache.Cache
}

// NewMemStore builds a Store. capacity bounds the FIFO's buffer; a push
// beyond it blocks until PopHead drains, matching a bounded-queue semantics
// a real KV-backed list would need an explicit depth check for anyway.
func NewMemStore(prefix string, capacity int) *MemStore {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemStore{
		prefix:  prefix,
		queueCh: make(chan string, capacity),
		jobs:    map[string]model.Job{},
		results: gocache.New(gocache.NoExpiration, 1*time.Minute),
	}
}

func (s *MemStore) jobKey(id string) string    { return fmt.Sprintf("%s:job:%s", s.prefix, id) }
func (s *MemStore) resultKey(id string) string { return fmt.Sprintf("%s:result:%s", s.prefix, id) }

func (s *MemStore) PushTail(ctx context.Context, id string) error {
	select {
	case s.queueCh <- id:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *MemStore) PopHead(ctx context.Context, pollTimeout time.Duration) (string, bool, error) {
	if pollTimeout <= 0 {
		pollTimeout = 2 * time.Second
	}
	timer := time.NewTimer(pollTimeout)
	defer timer.Stop()
	select {
	case id := <-s.queueCh:
		return id, true, nil
	case <-timer.C:
		return "", false, nil
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

func (s *MemStore) PutJob(_ context.Context, job model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[s.jobKey(job.ID)] = job
	return nil
}

func (s *MemStore) GetJob(_ context.Context, id string) (model.Job, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[s.jobKey(id)]
	return job, ok, nil
}

func (s *MemStore) ListInProgress(_ context.Context) ([]model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Job
	for _, job := range s.jobs {
		if job.Status == model.JobInProgress {
			out = append(out, job)
		}
	}
	return out, nil
}

func (s *MemStore) DeleteJob(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, s.jobKey(id))
	return nil
}

func (s *MemStore) PutResult(_ context.Context, id string, out model.SolveOutput, ttl time.Duration) error {
	s.results.Set(s.resultKey(id), out, ttl)
	return nil
}

func (s *MemStore) GetResult(_ context.Context, id string) (model.SolveOutput, bool) {
	v, ok := s.results.Get(s.resultKey(id))
	if !ok {
		return model.SolveOutput{}, false
	}
	out, ok := v.(model.SolveOutput)
	return out, ok
}

func (s *MemStore) DeleteResult(_ context.Context, id string) error {
	s.results.Delete(s.resultKey(id))
	return nil
}

func (s *MemStore) IncrTotalJobs(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalJobs++
	return s.totalJobs, nil
}

func (s *MemStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = map[string]model.Job{}
	s.totalJobs = 0
	s.results.Flush()
drain:
	for {
		select {
		case <-s.queueCh:
		default:
			break drain
		}
	}
	return nil
}
