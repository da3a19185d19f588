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

package icpmp_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/samber/lo"

	"github.com/nathangeology/rosterengine/pkg/constraints"
	"github.com/nathangeology/rosterengine/pkg/icpmp"
	"github.com/nathangeology/rosterengine/pkg/model"
	"github.com/nathangeology/rosterengine/pkg/ratiocache"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

var _ = Describe("ICPMP Process", func() {
	var (
		horizon model.PlanningHorizon
		shifts  map[string]model.Shift
		catalog model.ConstraintCatalog
	)

	BeforeEach(func() {
		horizon = model.PlanningHorizon{Start: d(2026, 1, 1), End: d(2026, 1, 7)}
		shifts = map[string]model.Shift{
			"D": {Code: "D", PaidMinutes: 8 * 60},
		}
		catalog = constraints.DefaultCatalogSpecs()
	})

	Context("when the pool has fewer employees than the lower bound", func() {
		It("returns InsufficientEmployeesError", func() {
			req := model.Requirement{
				ID:              "r-insufficient",
				WorkPattern:     model.WorkPattern{Tokens: []string{"D", "D"}},
				HeadcountPerDay: 5,
				CoverageDays:    model.NewWeekdaySet(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday),
				ShiftsAllowed:   []string{"D"},
			}
			coverage := []time.Time{d(2026, 1, 1), d(2026, 1, 2), d(2026, 1, 3), d(2026, 1, 4), d(2026, 1, 5), d(2026, 1, 6), d(2026, 1, 7)}
			pool := []model.Employee{
				{ID: "e1", Schemes: model.SchemeSet{model.SchemeA}, PrimaryScheme: model.SchemeA},
			}

			_, err := icpmp.Process(nil, horizon, req, coverage, pool, catalog, shifts, nil)

			Expect(err).To(HaveOccurred())
			var insufficient *model.InsufficientEmployeesError
			Expect(err).To(BeAssignableToTypeOf(insufficient))
		})
	})

	Context("when no employee in the pool is eligible at all", func() {
		It("returns EligibilityEmptyError, not InsufficientEmployeesError", func() {
			req := model.Requirement{
				ID:                     "r-no-eligible",
				WorkPattern:            model.WorkPattern{Tokens: []string{"D", "D"}},
				HeadcountPerDay:        1,
				CoverageDays:           model.NewWeekdaySet(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday),
				ShiftsAllowed:          []string{"D"},
				RequiredQualifications: []string{"forklift"},
			}
			coverage := []time.Time{d(2026, 1, 1), d(2026, 1, 2)}
			pool := []model.Employee{
				{ID: "e1", Schemes: model.SchemeSet{model.SchemeA}, PrimaryScheme: model.SchemeA},
				{ID: "e2", Schemes: model.SchemeSet{model.SchemeA}, PrimaryScheme: model.SchemeA},
			}

			_, err := icpmp.Process(nil, horizon, req, coverage, pool, catalog, shifts, nil)

			Expect(err).To(HaveOccurred())
			var empty *model.EligibilityEmptyError
			Expect(err).To(BeAssignableToTypeOf(empty))
			var insufficient *model.InsufficientEmployeesError
			Expect(err).NotTo(BeAssignableToTypeOf(insufficient))
		})
	})

	Context("when the requirement accepts any scheme and the pool has both", func() {
		It("draws proportionally from each scheme in the selection", func() {
			req := model.Requirement{
				ID:              "r-diverse",
				WorkPattern:     model.WorkPattern{Tokens: []string{"D", "D"}},
				HeadcountPerDay: 1,
				CoverageDays:    model.NewWeekdaySet(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday),
				ShiftsAllowed:   []string{"D"},
			}
			coverage := []time.Time{d(2026, 1, 1), d(2026, 1, 2), d(2026, 1, 3), d(2026, 1, 4), d(2026, 1, 5), d(2026, 1, 6), d(2026, 1, 7)}
			pool := []model.Employee{
				{ID: "a1", Schemes: model.SchemeSet{model.SchemeA}, PrimaryScheme: model.SchemeA, TotalWorkingHoursPrior: 1},
				{ID: "a2", Schemes: model.SchemeSet{model.SchemeA}, PrimaryScheme: model.SchemeA, TotalWorkingHoursPrior: 2},
				{ID: "a3", Schemes: model.SchemeSet{model.SchemeA}, PrimaryScheme: model.SchemeA, TotalWorkingHoursPrior: 3},
				{ID: "b1", Schemes: model.SchemeSet{model.SchemeB}, PrimaryScheme: model.SchemeB, TotalWorkingHoursPrior: 1},
				{ID: "b2", Schemes: model.SchemeSet{model.SchemeB}, PrimaryScheme: model.SchemeB, TotalWorkingHoursPrior: 2},
				{ID: "b3", Schemes: model.SchemeSet{model.SchemeB}, PrimaryScheme: model.SchemeB, TotalWorkingHoursPrior: 3},
			}

			res, err := icpmp.Process(nil, horizon, req, coverage, pool, catalog, shifts, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Metadata.IsOptimal).To(BeTrue())
			Expect(res.FilteredEmployees).NotTo(BeEmpty())

			schemesUsed := lo.Uniq(lo.Map(res.FilteredEmployees, func(e model.Employee, _ int) model.Scheme {
				return e.EffectiveScheme()
			}))
			if len(res.FilteredEmployees) >= 2 {
				Expect(schemesUsed).To(ContainElements(model.SchemeA, model.SchemeB))
			}

			for _, e := range res.FilteredEmployees {
				Expect(e.Committed).To(BeTrue())
				Expect(e.RotationOffset).NotTo(BeNil())
			}
		})
	})

	Context("when the requirement is scoped to a single scheme", func() {
		It("selects employees with the lowest prior working hours first", func() {
			req := model.Requirement{
				ID:              "r-priority",
				WorkPattern:     model.WorkPattern{Tokens: []string{"D", "D"}},
				HeadcountPerDay: 1,
				CoverageDays:    model.NewWeekdaySet(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday),
				ShiftsAllowed:   []string{"D"},
				RequiredSchemes: []model.Scheme{model.SchemeA},
			}
			coverage := []time.Time{d(2026, 1, 1), d(2026, 1, 2), d(2026, 1, 3), d(2026, 1, 4), d(2026, 1, 5), d(2026, 1, 6), d(2026, 1, 7)}
			pool := []model.Employee{
				{ID: "e1", Schemes: model.SchemeSet{model.SchemeA}, PrimaryScheme: model.SchemeA, TotalWorkingHoursPrior: 10},
				{ID: "e2", Schemes: model.SchemeSet{model.SchemeA}, PrimaryScheme: model.SchemeA, TotalWorkingHoursPrior: 5},
				{ID: "e3", Schemes: model.SchemeSet{model.SchemeA}, PrimaryScheme: model.SchemeA, TotalWorkingHoursPrior: 1},
			}

			res, err := icpmp.Process(nil, horizon, req, coverage, pool, catalog, shifts, nil)
			Expect(err).NotTo(HaveOccurred())

			selectedIDs := lo.Map(res.FilteredEmployees, func(e model.Employee, _ int) string { return e.ID })
			Expect(selectedIDs).NotTo(ContainElement("e1"))
		})
	})

	Context("when a ratio cache is supplied", func() {
		It("reuses the cached employee count on a second call with the same shape", func() {
			req := model.Requirement{
				ID:              "r-cached",
				WorkPattern:     model.WorkPattern{Tokens: []string{"D", "D"}},
				HeadcountPerDay: 1,
				CoverageDays:    model.NewWeekdaySet(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday),
				ShiftsAllowed:   []string{"D"},
				RequiredSchemes: []model.Scheme{model.SchemeA},
			}
			coverage := []time.Time{d(2026, 1, 1), d(2026, 1, 2), d(2026, 1, 3), d(2026, 1, 4), d(2026, 1, 5), d(2026, 1, 6), d(2026, 1, 7)}
			pool := []model.Employee{
				{ID: "e1", Schemes: model.SchemeSet{model.SchemeA}, PrimaryScheme: model.SchemeA, TotalWorkingHoursPrior: 1},
				{ID: "e2", Schemes: model.SchemeSet{model.SchemeA}, PrimaryScheme: model.SchemeA, TotalWorkingHoursPrior: 2},
			}
			cache, err := ratiocache.New(1 << 20)
			Expect(err).NotTo(HaveOccurred())

			first, err := icpmp.Process(nil, horizon, req, coverage, pool, catalog, shifts, cache)
			Expect(err).NotTo(HaveOccurred())

			second, err := icpmp.Process(nil, horizon, req, coverage, pool, catalog, shifts, cache)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Metadata.OptimalEmployees).To(Equal(first.Metadata.OptimalEmployees))
		})
	})

	Context("when HeadcountPerDay is zero", func() {
		It("returns a trivially-optimal empty result", func() {
			req := model.Requirement{
				ID:              "r-zero",
				WorkPattern:     model.WorkPattern{Tokens: []string{"D", "O"}},
				HeadcountPerDay: 0,
				CoverageDays:    model.NewWeekdaySet(time.Monday),
			}
			res, err := icpmp.Process(nil, horizon, req, nil, nil, catalog, shifts, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Metadata.IsOptimal).To(BeTrue())
			Expect(res.FilteredEmployees).To(BeEmpty())
		})
	})
})
