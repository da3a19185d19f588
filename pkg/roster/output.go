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

package roster

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nathangeology/rosterengine/pkg/constraints"
	"github.com/nathangeology/rosterengine/pkg/model"
	"github.com/nathangeology/rosterengine/pkg/solver"
)

// AssembleInput bundles everything AssembleOutput needs beyond the solved
// Ctx and the solve Outcome.
type AssembleInput struct {
	Ctx               *constraints.Ctx
	Outcome           solver.Outcome
	PlanningReference string
	ICPMPEnabled      bool
	ICPMPSeconds      float64
	ICPMPResults      map[string]model.ICPMPRequirementMetadata
	ICPMPWarnings     []string
	InputHash         string
	GeneratedAt       time.Time
}

// AssembleOutput builds the full output artifact (spec.md §6.6): the solver
// run summary, the weighted score, the flat assignment list, the employee
// roster, unmet demand, and the ICPMP preprocessing block.
func AssembleOutput(in AssembleInput) model.SolveOutput {
	ctx := in.Ctx

	entries, summary, hours := Build(Input{
		Horizon:         ctx.Horizon,
		Employees:       ctx.Employees,
		SlotByID:        ctx.SlotByID,
		RequirementByID: ctx.RequirementByID,
		Assignments:     in.Outcome.Assignments,
		Shifts:          ctx.Shifts,
	})

	return model.SolveOutput{
		SchemaVersion:     "1.0",
		PlanningReference: in.PlanningReference,
		SolverRun: model.SolverRun{
			RunID:           uuid.NewString(),
			Status:          in.Outcome.Status,
			DurationSeconds: in.Outcome.DurationSeconds,
		},
		Score:          score(ctx, in.Outcome),
		Assignments:    outputAssignments(ctx, in.Outcome.Assignments),
		EmployeeRoster: entries,
		RosterSummary:  summary,
		ICPMPPreprocessing: model.ICPMPPreprocessing{
			Enabled:                  in.ICPMPEnabled,
			PreprocessingTimeSeconds: in.ICPMPSeconds,
			Requirements:             in.ICPMPResults,
			Warnings:                 in.ICPMPWarnings,
		},
		UnmetDemand: unmetDemand(ctx, in.Outcome.Assignments),
		Meta: model.OutputMeta{
			InputHash:     in.InputHash,
			GeneratedAt:   in.GeneratedAt,
			EmployeeHours: hours,
		},
	}
}

// outputAssignments converts the internal assignment list to the artifact's
// per-assignment rows, joining in the slot's date and shift code.
func outputAssignments(ctx *constraints.Ctx, assignments []model.Assignment) []model.OutputAssignment {
	out := make([]model.OutputAssignment, 0, len(assignments))
	for _, a := range assignments {
		slot := ctx.SlotByID[a.SlotID]
		out = append(out, model.OutputAssignment{
			AssignmentID: a.SlotID,
			Date:         slot.Date,
			EmployeeID:   a.EmployeeID,
			ShiftCode:    slot.ShiftCode,
			PatternDay:   a.PatternDay,
			Status:       a.Status,
			Reason:       a.Reason,
		})
	}
	return out
}

// score sums each constraint module's reported violation count, weighted
// W_hard for hard constraints (spec.md §4.6 uses W_hard only to bound
// auxiliary soft-ification; as a diagnostic score it simply dominates the
// total) and by the catalog's configured SoftWeight for soft constraints.
func score(ctx *constraints.Ctx, outcome solver.Outcome) model.Score {
	const wHard = 1_000_000.0
	var hard, soft float64
	for _, c := range constraints.DefaultCatalog() {
		violations := c.Score(ctx, outcome.Assignments)
		if c.Enforcement() == model.EnforcementHard {
			hard += violations * wHard
		} else {
			weight := ctx.Catalog[c.ID()].SoftWeight
			if weight == 0 {
				weight = 1
			}
			soft += violations * weight
		}
	}
	return model.Score{Overall: hard + soft, Hard: hard, Soft: soft}
}

// unmetDemand reports, per requirement/date/shift, how many slots were left
// UNASSIGNED.
func unmetDemand(ctx *constraints.Ctx, assignments []model.Assignment) []model.UnmetDemandEntry {
	type key struct {
		reqID     string
		date      string
		shiftCode string
	}
	shortfall := map[key]int{}
	for _, a := range assignments {
		if a.Status != model.StatusUnassigned {
			continue
		}
		slot := ctx.SlotByID[a.SlotID]
		k := key{reqID: slot.RequirementID, date: slot.Date.Format("2006-01-02"), shiftCode: slot.ShiftCode}
		shortfall[k]++
	}

	keys := make([]key, 0, len(shortfall))
	for k := range shortfall {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].reqID != keys[j].reqID {
			return keys[i].reqID < keys[j].reqID
		}
		if keys[i].date != keys[j].date {
			return keys[i].date < keys[j].date
		}
		return keys[i].shiftCode < keys[j].shiftCode
	})

	out := make([]model.UnmetDemandEntry, 0, len(keys))
	for _, k := range keys {
		date, err := time.Parse("2006-01-02", k.date)
		if err != nil {
			date = time.Time{}
		}
		out = append(out, model.UnmetDemandEntry{
			RequirementID: k.reqID,
			Date:          date,
			ShiftCode:     k.shiftCode,
			Shortfall:     shortfall[k],
		})
	}
	return out
}
