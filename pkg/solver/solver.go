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

// Package solver implements the C6 CP-SAT/MIP model builder: variable
// population over the slot x employee space, constraint-catalog wiring, the
// solve invocation with a time budget, and assignment extraction from the
// solved model (spec.md §4.6).
package solver

import (
	"fmt"
	"sort"
	"time"

	"github.com/nextmv-io/sdk/mip"
	"go.uber.org/multierr"

	"github.com/nathangeology/rosterengine/pkg/calendar"
	"github.com/nathangeology/rosterengine/pkg/constraints"
	"github.com/nathangeology/rosterengine/pkg/eligibility"
	"github.com/nathangeology/rosterengine/pkg/model"
)

// BuildInput bundles everything the model builder needs.
type BuildInput struct {
	Horizon      model.PlanningHorizon
	Slots        []model.Slot
	Employees    []model.Employee
	Shifts       map[string]model.Shift
	Catalog      model.ConstraintCatalog
	Requirements map[string]model.Requirement
}

// BuildModel populates a fresh *constraints.Ctx with x[s,e], u[s], and when
// ICPMP did not fix every employee's rotation offset, the off[e,k] indicator
// variables from spec.md §4.6, then runs every constraint module's Build
// against it.
func BuildModel(in BuildInput) (*constraints.Ctx, error) {
	m := mip.NewModel()
	m.Objective().SetMinimize()

	ctx := constraints.NewCtx(m, in.Slots, in.Employees, in.Shifts, in.Horizon, in.Catalog, in.Requirements)
	ctx.OffsetsFixed = allOffsetsFixed(in.Employees)

	if ctx.OffsetsFixed {
		for _, e := range in.Employees {
			if e.RotationOffset != nil {
				ctx.FixedOffset[e.ID] = *e.RotationOffset
			}
		}
	} else {
		if err := buildOffsetVariables(ctx, in); err != nil {
			return nil, err
		}
	}

	if err := populateAssignmentVariables(ctx, in); err != nil {
		return nil, err
	}

	var errs error
	for _, c := range constraints.DefaultCatalog() {
		if err := c.Build(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("constraint %s: %w", c.ID(), err))
		}
	}
	if errs != nil {
		return nil, errs
	}
	return ctx, nil
}

func allOffsetsFixed(employees []model.Employee) bool {
	for _, e := range employees {
		if e.RotationOffset == nil {
			return false
		}
	}
	return true
}

// buildOffsetVariables creates off[e,k] for every employee without a fixed
// offset, associated with the (single, deterministically-chosen) requirement
// they are eligible against, and constrains exactly one offset to be chosen.
func buildOffsetVariables(ctx *constraints.Ctx, in BuildInput) error {
	reqIDs := make([]string, 0, len(in.Requirements))
	for id := range in.Requirements {
		reqIDs = append(reqIDs, id)
	}
	sort.Strings(reqIDs)

	for _, e := range in.Employees {
		if e.RotationOffset != nil {
			continue
		}
		var chosen *model.Requirement
		for _, id := range reqIDs {
			req := in.Requirements[id]
			if eligibility.Eligible(e, req) {
				r := req
				chosen = &r
				break
			}
		}
		if chosen == nil || chosen.WorkPattern.Len() == 0 {
			continue
		}
		L := chosen.WorkPattern.Len()
		ctx.PatternLen[e.ID] = L

		sumCon := ctx.M.NewConstraint(mip.Equal, 1.0)
		for k := 0; k < L; k++ {
			v := ctx.M.NewBool()
			ctx.Off[constraints.OffKey{EmployeeID: e.ID, Offset: k}] = v
			sumCon.NewTerm(1.0, v)
		}
	}
	return nil
}

// populateAssignmentVariables creates x[s,e] for every (slot, employee) pair
// that eligibility and pattern/shift matching permit, and u[s] for every
// slot. When offsets are not fixed, each x[s,e] is linked to the off[e,k]
// indicator(s) consistent with that slot's shift.
func populateAssignmentVariables(ctx *constraints.Ctx, in BuildInput) error {
	for _, s := range in.Slots {
		req, ok := in.Requirements[s.RequirementID]
		if !ok {
			return fmt.Errorf("slot %s: requirement %s not found", s.ID, s.RequirementID)
		}
		ctx.U[s.ID] = ctx.M.NewBool()

		for _, e := range in.Employees {
			if !eligibility.EligibleOn(e, req, s.Date) {
				continue
			}

			if ctx.OffsetsFixed {
				offset, ok := ctx.FixedOffset[e.ID]
				if !ok {
					continue
				}
				pd := calendar.PatternDay(s.Date, req.AnchorDate(in.Horizon), offset, req.WorkPattern.Len())
				if req.WorkPattern.TokenAt(pd) != s.ShiftCode {
					continue // trivially zero: pattern is O or a different shift
				}
				ctx.X[constraints.XKey{SlotID: s.ID, EmployeeID: e.ID}] = ctx.M.NewBool()
				continue
			}

			L, hasPattern := ctx.PatternLen[e.ID]
			if !hasPattern {
				continue
			}
			x := ctx.M.NewBool()
			linked := false
			anchor := req.AnchorDate(in.Horizon)
			for k := 0; k < L; k++ {
				pd := calendar.PatternDay(s.Date, anchor, k, L)
				if req.WorkPattern.TokenAt(pd) != s.ShiftCode {
					continue
				}
				off, ok := ctx.Off[constraints.OffKey{EmployeeID: e.ID, Offset: k}]
				if !ok {
					continue
				}
				con := ctx.M.NewConstraint(mip.LessThanOrEqual, 0.0)
				con.NewTerm(1.0, x)
				con.NewTerm(-1.0, off)
				linked = true
			}
			if !linked {
				// No offset choice makes this employee's pattern land on this
				// slot's shift: pin the variable to zero.
				con := ctx.M.NewConstraint(mip.LessThanOrEqual, 0.0)
				con.NewTerm(1.0, x)
			}
			ctx.X[constraints.XKey{SlotID: s.ID, EmployeeID: e.ID}] = x
		}
	}
	return nil
}

// Outcome is the tagged result of a solve attempt (spec.md §9 Design Notes:
// a tagged outcome instead of exception-driven control flow around solver
// status).
type Outcome struct {
	Status          model.SolverRunStatus
	Assignments     []model.Assignment
	DurationSeconds float64
}

// Solve runs the CP-SAT/MIP solve with the given time budget and extracts
// assignments from the solution (spec.md §4.6 "Solver control", "Extraction").
func Solve(ctx *constraints.Ctx, budget time.Duration) (Outcome, error) {
	started := time.Now()

	mipSolver, err := mip.NewSolver(mip.Highs, ctx.M)
	if err != nil {
		return Outcome{}, fmt.Errorf("create solver: %w", err)
	}

	opts := mip.NewSolveOptions()
	if err := opts.SetMaximumDuration(budget); err != nil {
		return Outcome{}, fmt.Errorf("set solve duration: %w", err)
	}

	solution, err := mipSolver.Solve(opts)
	if err != nil {
		return Outcome{}, fmt.Errorf("solve: %w", err)
	}

	status := statusFromSolution(solution)
	var assignments []model.Assignment
	if status == model.RunOptimal || status == model.RunFeasible {
		assignments = extractAssignments(ctx, solution)
	}

	return Outcome{
		Status:          status,
		Assignments:     assignments,
		DurationSeconds: time.Since(started).Seconds(),
	}, nil
}

// statusFromSolution maps the solver's solution object to the tagged
// {OPTIMAL, FEASIBLE, UNKNOWN} outcome. A solve that produced no values at
// all is reported UNKNOWN rather than INFEASIBLE: without a definitive
// infeasibility proof from the solver, treating an unproven empty result as
// "timed out with nothing found" is the safer of the two readings (spec.md
// §4.6 "Solver timeout with no feasible solution -> UNKNOWN").
func statusFromSolution(solution mip.Solution) model.SolverRunStatus {
	if !solution.HasValues() {
		return model.RunUnknown
	}
	if solution.IsOptimal() {
		return model.RunOptimal
	}
	return model.RunFeasible
}

// extractAssignments picks, for each slot, the (at most one) x[s,e]=1; slots
// with none become UNASSIGNED.
func extractAssignments(ctx *constraints.Ctx, solution mip.Solution) []model.Assignment {
	out := make([]model.Assignment, 0, len(ctx.Slots))
	for _, s := range ctx.Slots {
		req := ctx.RequirementByID[s.RequirementID]
		assigned := false
		for _, e := range ctx.Employees {
			x, ok := ctx.X[constraints.XKey{SlotID: s.ID, EmployeeID: e.ID}]
			if !ok {
				continue
			}
			if solution.Value(x) < 0.9 {
				continue
			}
			empID := e.ID
			a := model.Assignment{
				SlotID:     s.ID,
				EmployeeID: &empID,
				Status:     model.StatusAssigned,
			}
			if offset, ok := resolvedOffset(ctx, solution, e.ID); ok {
				pd := calendar.PatternDay(s.Date, req.AnchorDate(ctx.Horizon), offset, req.WorkPattern.Len())
				a.PatternDay = &pd
			}
			out = append(out, a)
			assigned = true
			break
		}
		if !assigned {
			out = append(out, model.Assignment{SlotID: s.ID, Status: model.StatusUnassigned})
		}
	}
	return out
}

// resolvedOffset returns the rotation offset actually governing an employee
// in the solved model: the ICPMP-fixed offset when ctx.OffsetsFixed, or
// whichever off[e,k] the solver set to 1 when offsets were left free. ctx's
// own ctx.FixedOffset is populated only in the fixed-offset path, so reading
// it unconditionally (as the zero-value map lookup PatternDayForSlot does)
// silently reports offset 0 for every employee in the degraded,
// offsets-not-fixed path regardless of which off[e,k] the solver actually
// chose. Returns ok=false when neither source has an answer, so callers can
// omit the pattern-day annotation rather than report a fabricated one.
func resolvedOffset(ctx *constraints.Ctx, solution mip.Solution, employeeID string) (int, bool) {
	if ctx.OffsetsFixed {
		offset, ok := ctx.FixedOffset[employeeID]
		return offset, ok
	}
	L, hasPattern := ctx.PatternLen[employeeID]
	if !hasPattern {
		return 0, false
	}
	for k := 0; k < L; k++ {
		off, ok := ctx.Off[constraints.OffKey{EmployeeID: employeeID, Offset: k}]
		if !ok {
			continue
		}
		if solution.Value(off) >= 0.9 {
			return k, true
		}
	}
	return 0, false
}
