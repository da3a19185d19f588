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

// Package icpmp implements the C4 ICPMP v3 preprocessor: per requirement,
// the provably-minimal employee count and rotation-offset assignment, found
// by a try-minimal-first search over candidate counts (spec.md §4.4).
//
// Out of scope: the ICPMP v1/v2 configuration optimizer ("what pattern
// should I pick?") — only v3 preprocessing in support of solving is
// implemented here.
package icpmp

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/nathangeology/rosterengine/pkg/calendar"
	"github.com/nathangeology/rosterengine/pkg/constraints"
	"github.com/nathangeology/rosterengine/pkg/eligibility"
	"github.com/nathangeology/rosterengine/pkg/model"
	"github.com/nathangeology/rosterengine/pkg/ratiocache"
)

// maxUBDelta is Δ in spec.md §4.4.1's UB = L + Δ.
const maxUBDelta = 10

// Result is the per-requirement outcome of ICPMP preprocessing.
type Result struct {
	FilteredEmployees []model.Employee
	Metadata          model.ICPMPRequirementMetadata
}

// Process runs the minimal-count search and employee selection for a single
// requirement (spec.md §4.4). pool is the job-local employee slice; Process
// never mutates pool in place, it returns copies with RotationOffset and
// Committed set.
//
// On success, err is nil. On InsufficientEmployeesError the job must fail
// fast (spec.md §4.4.5) — the returned Result is meaningless. On
// NoFeasibleCountError the caller should log the warning and pass `pool`
// through uncommitted, with offsets unfixed, for graceful degradation.
//
// cache, when non-nil, memoizes the first feasible n found for a given
// (pattern, headcount, coverage days, horizon length, scheme signature)
// fingerprint (spec.md §4.9, C9) so repeated requirements sharing that shape
// skip straight to the known-feasible count instead of re-walking [LB, UB].
// The hint is always re-verified by evaluatePlacement before being trusted,
// so a stale or cross-pool-reused hint can only waste a cheap check, never
// produce a wrong answer.
func Process(log *zap.SugaredLogger, horizon model.PlanningHorizon, req model.Requirement, coverage []time.Time, pool []model.Employee, catalog model.ConstraintCatalog, shifts map[string]model.Shift, cache *ratiocache.Cache) (Result, error) {
	anchor := req.AnchorDate(horizon)
	L := req.WorkPattern.Len()
	W := req.WorkPattern.WorkTokenCount()
	C := len(coverage)
	H := req.HeadcountPerDay

	if C == 0 || H == 0 {
		return Result{Metadata: model.ICPMPRequirementMetadata{IsOptimal: true, CoverageRate: 1, OffsetDistribution: map[int]int{}}}, nil
	}

	available := lo.Filter(pool, func(e model.Employee, _ int) bool {
		if e.Committed {
			return false
		}
		if !eligibility.Eligible(e, req) {
			return false
		}
		for _, d := range coverage {
			if eligibility.BlacklistedOn(e, req, d) {
				return false
			}
		}
		return true
	})
	sort.SliceStable(available, func(i, j int) bool {
		if available[i].TotalWorkingHoursPrior != available[j].TotalWorkingHoursPrior {
			return available[i].TotalWorkingHoursPrior < available[j].TotalWorkingHoursPrior
		}
		return available[i].ID < available[j].ID
	})

	extra := overtimeCapacityShifts(req, catalog, horizon, shifts)
	effectiveW := W + extra
	if effectiveW <= 0 {
		effectiveW = W
	}
	LB := int(math.Max(float64(H), math.Ceil(float64(C*H)/float64(effectiveW))))

	if len(available) == 0 {
		return Result{}, &model.EligibilityEmptyError{RequirementID: req.ID}
	}
	if len(available) < LB {
		return Result{}, &model.InsufficientEmployeesError{RequirementID: req.ID, Need: LB, Have: len(available)}
	}

	UB := L + maxUBDelta
	if UB > len(available) {
		UB = len(available)
	}
	if UB < LB {
		UB = LB
	}

	fingerprint := ""
	if cache != nil {
		fp, err := ratiocache.Fingerprint(fingerprintInput(req, horizon, C))
		if err == nil {
			fingerprint = fp
			if entry, ok := cache.Get(fingerprint); ok {
				if hinted := int(entry.StrictRatio); hinted >= LB && hinted <= UB {
					offsetCounts := distributeOffsets(hinted, L)
					if feasible, uSlots := evaluatePlacement(offsetCounts, coverage, anchor, req.WorkPattern, H); feasible {
						return commitSelection(available, hinted, offsetCounts, req, uSlots), nil
					}
				}
			}
		}
	}

	for n := LB; n <= UB; n++ {
		offsetCounts := distributeOffsets(n, L)
		if feasible, uSlots := evaluatePlacement(offsetCounts, coverage, anchor, req.WorkPattern, H); feasible {
			if cache != nil && fingerprint != "" {
				cache.Put(fingerprint, ratiocache.Entry{
					StrictRatio: float64(n),
					Metrics:     map[string]float64{"coverageRate": 1.0, "uSlotsTotal": float64(uSlots)},
				})
			}
			return commitSelection(available, n, offsetCounts, req, uSlots), nil
		}
	}

	if log != nil {
		log.Warnw("icpmp: no feasible employee count found, degrading to full pool", "requirementId", req.ID, "lowerBound", LB, "upperBound", UB)
	}
	return Result{
			FilteredEmployees: pool,
			Metadata: model.ICPMPRequirementMetadata{
				OptimalEmployees:   0,
				IsOptimal:          false,
				OffsetDistribution: map[int]int{},
			},
		}, &model.NoFeasibleCountError{RequirementID: req.ID, LowerBound: LB, UpperBound: UB}
}

// commitSelection finalizes a feasible n, delegating to selectEmployees for
// the priority-ordered pick.
func commitSelection(available []model.Employee, n int, offsetCounts map[int]int, req model.Requirement, uSlots int) Result {
	selected, usedOffsets := selectEmployees(available, n, offsetCounts, req)
	return Result{
		FilteredEmployees: selected,
		Metadata: model.ICPMPRequirementMetadata{
			OptimalEmployees:   n,
			USlotsTotal:        uSlots,
			OffsetDistribution: usedOffsets,
			IsOptimal:          true,
			CoverageRate:       1.0,
		},
	}
}

// fingerprintInput builds the C9 cache key input for this requirement: every
// field that determines offset-distribution feasibility, independent of
// which pool of employees happens to be available this time.
func fingerprintInput(req model.Requirement, horizon model.PlanningHorizon, horizonLength int) ratiocache.FingerprintInput {
	schemes := make([]string, 0, len(req.RequiredSchemes))
	for _, s := range req.RequiredSchemes {
		schemes = append(schemes, string(s))
	}
	sort.Strings(schemes)
	return ratiocache.FingerprintInput{
		Pattern:         req.WorkPattern,
		Headcount:       req.HeadcountPerDay,
		CoverageDays:    req.CoverageDays,
		HorizonLength:   horizonLength,
		SchemeSignature: strings.Join(schemes, ","),
	}
}

// distributeOffsets spreads n employees evenly over [0, L): floor(n/L) per
// offset, plus one extra for the first (n mod L) offsets (spec.md §4.4.2).
func distributeOffsets(n, L int) map[int]int {
	out := make(map[int]int, L)
	base := n / L
	rem := n % L
	for k := 0; k < L; k++ {
		c := base
		if k < rem {
			c++
		}
		if c > 0 {
			out[k] = c
		}
	}
	return out
}

// evaluatePlacement checks whether the given offset distribution covers
// every coverage day with at least H working employees, and totals the
// resulting U-slots (spec.md §4.4.2).
func evaluatePlacement(offsetCounts map[int]int, coverage []time.Time, anchor time.Time, pattern model.WorkPattern, H int) (bool, int) {
	L := pattern.Len()
	uSlots := 0
	for _, d := range coverage {
		working := 0
		for k, count := range offsetCounts {
			pd := calendar.PatternDay(d, anchor, k, L)
			if pattern.TokenAt(pd) != model.OffDayToken {
				working += count
			}
		}
		if working < H {
			return false, 0
		}
		uSlots += working - H
	}
	return true, uSlots
}

// selectEmployees implements the §4.4.3 priority order over `available`
// (already hours/id sorted) and fills the offset buckets, applying scheme
// proportional allocation when the requirement accepts more than one scheme.
func selectEmployees(available []model.Employee, n int, offsetCounts map[int]int, req model.Requirement) ([]model.Employee, map[int]int) {
	ordered := available
	if needsSchemeDiversity(req) {
		ordered = proportionalBySchemeOrder(available, n)
	}
	if len(ordered) > n {
		ordered = ordered[:n]
	}

	keys := make([]int, 0, len(offsetCounts))
	for k := range offsetCounts {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	out := make([]model.Employee, 0, n)
	used := map[int]int{}
	idx := 0
	for _, k := range keys {
		for i := 0; i < offsetCounts[k] && idx < len(ordered); i++ {
			e := ordered[idx]
			idx++
			offset := k
			e.RotationOffset = &offset
			e.Committed = true
			out = append(out, e)
			used[k]++
		}
	}
	return out, used
}

func needsSchemeDiversity(req model.Requirement) bool {
	if len(req.RequiredSchemes) == 0 {
		return true
	}
	if len(req.RequiredSchemes) > 1 {
		return true
	}
	return req.RequiredSchemes[0] == model.SchemeAny
}

// proportionalBySchemeOrder reorders `available` (already priority-sorted)
// so the first n entries are drawn proportionally to each scheme's share of
// the pool, via a round-robin interleave that preserves each scheme group's
// internal priority order.
func proportionalBySchemeOrder(available []model.Employee, n int) []model.Employee {
	groups := lo.GroupBy(available, func(e model.Employee) model.Scheme { return e.EffectiveScheme() })
	var schemeKeys []model.Scheme
	for k := range groups {
		schemeKeys = append(schemeKeys, k)
	}
	sort.Slice(schemeKeys, func(i, j int) bool { return schemeKeys[i] < schemeKeys[j] })

	out := make([]model.Employee, 0, len(available))
	pos := map[model.Scheme]int{}
	for len(out) < len(available) {
		progressed := false
		for _, k := range schemeKeys {
			p := pos[k]
			if p < len(groups[k]) {
				out = append(out, groups[k][p])
				pos[k] = p + 1
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	return out
}

// overtimeCapacityShifts computes the extra per-employee work-shift
// capacity granted by the monthly overtime allowance (spec.md §4.4.1):
// floor(monthly_overtime_hours / (shift_hours * cycles_per_horizon)).
func overtimeCapacityShifts(req model.Requirement, catalog model.ConstraintCatalog, horizon model.PlanningHorizon, shifts map[string]model.Shift) int {
	if len(req.ShiftsAllowed) == 0 {
		return 0
	}
	shift, ok := shifts[req.ShiftsAllowed[0]]
	if !ok || shift.PaidMinutes <= 0 {
		return 0
	}
	shiftHours := float64(shift.PaidMinutes) / 60
	L := req.WorkPattern.Len()
	if L == 0 {
		return 0
	}
	horizonDays := len(calendar.Dates(horizon))
	cyclesPerHorizon := float64(horizonDays) / float64(L)
	if cyclesPerHorizon <= 0 {
		cyclesPerHorizon = 1
	}

	template := templateEmployee(req)
	monthlyOTMinutes := constraints.Resolve(catalog, "apgdMonthlyOvertimeCap", template, "", 72*60)
	monthlyOTHours := monthlyOTMinutes / 60

	if shiftHours*cyclesPerHorizon <= 0 {
		return 0
	}
	return int(math.Floor(monthlyOTHours / (shiftHours * cyclesPerHorizon)))
}

// templateEmployee synthesizes a representative employee for resolving
// scheme-keyed parameters before any real employee has been selected.
func templateEmployee(req model.Requirement) model.Employee {
	scheme := model.SchemeB
	if len(req.RequiredSchemes) > 0 && req.RequiredSchemes[0] != model.SchemeAny {
		scheme = req.RequiredSchemes[0]
	}
	productType := ""
	if len(req.RequiredProductTypes) > 0 {
		productType = req.RequiredProductTypes[0]
	}
	return model.Employee{
		Schemes:       model.SchemeSet{scheme},
		PrimaryScheme: scheme,
		ProductType:   productType,
	}
}
