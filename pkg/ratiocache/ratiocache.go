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

// Package ratiocache implements the C9 ratio/solution cache: a
// content-addressed, process-local memo of expensive sub-optimizations
// (spec.md §4.9). Reads are best-effort; writes happen only after ICPMP
// finds a feasible placement. Staleness is never an issue because the fingerprint
// content-addresses everything that affects correctness — eviction is pure
// capacity management (LRU over a fixed byte budget), never correctness.
package ratiocache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mitchellh/hashstructure/v2"

	"github.com/nathangeology/rosterengine/pkg/model"
)

// FingerprintInput is everything that determines whether two sub-problems
// are interchangeable for memoization purposes (spec.md §4.9).
type FingerprintInput struct {
	Pattern         model.WorkPattern
	Headcount       int
	CoverageDays    model.WeekdaySet
	HorizonLength   int
	SchemeSignature string
}

// Fingerprint hashes a FingerprintInput into the cache key: a structural
// hash of the whole input (so a slice-valued field like Pattern.Tokens
// doesn't need manual serialization) folded through sha256 for a
// fixed-width, collision-resistant key.
func Fingerprint(in FingerprintInput) (string, error) {
	h, err := hashstructure.Hash(in, hashstructure.FormatV2, nil)
	if err != nil {
		return "", err
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, h)
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:]), nil
}

// Entry is the memoized result: the best hyperparameter found (e.g. a
// strictness ratio) plus a small metric payload for diagnostics.
type Entry struct {
	StrictRatio float64
	Metrics     map[string]float64
}

// estimatedBytes is a coarse size estimate used for the byte-budget
// eviction policy; it doesn't need to be exact, only monotonic in the
// entry's actual footprint.
func (e Entry) estimatedBytes(key string) int64 {
	return int64(len(key)) + 8 + int64(len(e.Metrics))*24
}

// Cache is a process-local, LRU-evicted, byte-budgeted memo table.
type Cache struct {
	mu        sync.Mutex
	lru       *lru.Cache[string, Entry]
	byteBudget int64
	usedBytes  int64
}

// New builds a Cache with the given fixed byte budget. The underlying LRU
// has no count limit of its own (MaxInt) — capacity is enforced purely by
// byte accounting in Put, matching spec.md §4.9's "LRU with fixed byte
// budget" (hashicorp/golang-lru/v2 gives ordering + O(1) eviction; the byte
// bookkeeping on top is this package's own).
func New(byteBudget int64) (*Cache, error) {
	c := &Cache{byteBudget: byteBudget}
	inner, err := lru.NewWithEvict(int(^uint(0)>>1), func(key string, value Entry) {
		c.usedBytes -= value.estimatedBytes(key)
	})
	if err != nil {
		return nil, err
	}
	c.lru = inner
	return c, nil
}

// Get returns the memoized entry for fingerprint, if present. A miss is not
// an error: callers fall back to recomputation (spec.md §4.9 "reads are
// best-effort").
func (c *Cache) Get(fingerprint string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Get(fingerprint)
}

// Put memoizes entry under fingerprint, evicting the least-recently-used
// entries until the cache is back within its byte budget.
func (c *Cache) Put(fingerprint string, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.lru.Peek(fingerprint); ok {
		c.usedBytes -= old.estimatedBytes(fingerprint)
	}
	c.lru.Add(fingerprint, entry)
	c.usedBytes += entry.estimatedBytes(fingerprint)

	for c.usedBytes > c.byteBudget && c.lru.Len() > 0 {
		c.lru.RemoveOldest()
	}
}

// Len reports the current entry count, for metrics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
