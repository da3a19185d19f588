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

package queue_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nathangeology/rosterengine/pkg/config"
	"github.com/nathangeology/rosterengine/pkg/metrics"
	"github.com/nathangeology/rosterengine/pkg/model"
	"github.com/nathangeology/rosterengine/pkg/queue"
)

func TestQueue(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Queue Suite")
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func solvableInput(planningRef string) model.SolveInput {
	req := model.Requirement{
		ID:              "r1",
		WorkPattern:     model.WorkPattern{Tokens: []string{"D"}},
		HeadcountPerDay: 1,
		CoverageDays:    model.NewWeekdaySet(time.Thursday),
		ShiftsAllowed:   []string{"D"},
	}
	return model.SolveInput{
		PlanningReference: planningRef,
		Horizon:           model.PlanningHorizon{Start: day(2026, 1, 1), End: day(2026, 1, 1)},
		Employees: []model.Employee{
			{ID: "e1", Schemes: model.SchemeSet{model.SchemeB}, PrimaryScheme: model.SchemeB},
		},
		DemandItems: []model.DemandItem{{ID: "d1", Requirements: []model.Requirement{req}}},
		Shifts:      map[string]model.Shift{"D": {Code: "D", PaidMinutes: 8 * 60}},
	}
}

var _ = Describe("Queue", func() {
	var (
		ctx   context.Context
		store *queue.MemStore
		cfg   config.QueueConfig
		sCfg  config.SolverConfig
		q     *queue.Queue
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = queue.NewMemStore("test", 16)
		cfg = config.QueueConfig{
			NumWorkers:       2,
			ClaimPollTimeout: 50 * time.Millisecond,
			ResultTTL:        1 * time.Hour,
			SweeperEnabled:   false,
		}
		sCfg = config.SolverConfig{DefaultTimeLimit: 5 * time.Second, VariableCeiling: 1000}
		q = queue.New(nil, cfg, sCfg, store, nil, metrics.NewRegistry())
	})

	AfterEach(func() {
		q.Stop()
	})

	It("submits, processes, and exposes a completed job's result", func() {
		id, err := q.Submit(ctx, solvableInput("plan-1"))
		Expect(err).NotTo(HaveOccurred())
		Expect(id).NotTo(BeEmpty())

		q.Start(ctx)

		Eventually(func() model.JobStatus {
			job, ok, _ := q.Status(ctx, id)
			if !ok {
				return ""
			}
			return job.Status
		}, 2*time.Second, 10*time.Millisecond).Should(Equal(model.JobCompleted))

		job, ok, err := q.Status(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(job.Result).NotTo(BeNil())
		Expect(job.Result.Assignments).To(HaveLen(1))
	})

	It("rejects a submission whose estimated variable count exceeds the ceiling", func() {
		sCfg.VariableCeiling = 1
		q = queue.New(nil, cfg, sCfg, store, nil, nil)

		in := solvableInput("plan-2")
		in.Employees = append(in.Employees, model.Employee{ID: "e2", Schemes: model.SchemeSet{model.SchemeB}, PrimaryScheme: model.SchemeB})
		_, err := q.Submit(ctx, in)
		Expect(err).To(HaveOccurred())
		var capErr *model.CapacityExceededError
		Expect(err).To(BeAssignableToTypeOf(capErr))
	})

	It("deletes a job and its cached result", func() {
		id, err := q.Submit(ctx, solvableInput("plan-3"))
		Expect(err).NotTo(HaveOccurred())
		q.Start(ctx)

		Eventually(func() model.JobStatus {
			job, _, _ := q.Status(ctx, id)
			return job.Status
		}, 2*time.Second, 10*time.Millisecond).Should(Equal(model.JobCompleted))

		Expect(q.Delete(ctx, id)).To(Succeed())
		_, ok, err := q.Status(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
		_, hit := store.GetResult(ctx, id)
		Expect(hit).To(BeFalse())
	})

	It("clears every job on an admin reset", func() {
		id, err := q.Submit(ctx, solvableInput("plan-4"))
		Expect(err).NotTo(HaveOccurred())

		Expect(q.AdminReset(ctx)).To(Succeed())

		_, ok, err := q.Status(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})
})
