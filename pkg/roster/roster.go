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

// Package roster implements the C7 output/roster builder: per-employee
// daily status, roster summary, aggregate hours, and the icpmp_preprocessing
// metadata block that together make up the solve output artifact (spec.md
// §4.7, §6.6).
package roster

import (
	"sort"
	"time"

	"github.com/nathangeology/rosterengine/pkg/calendar"
	"github.com/nathangeology/rosterengine/pkg/eligibility"
	"github.com/nathangeology/rosterengine/pkg/model"
)

// Input bundles everything the roster builder needs beyond the solved
// assignments.
type Input struct {
	Horizon        model.PlanningHorizon
	Employees      []model.Employee // the full job-local pool, including NOT_USED employees
	SlotByID       map[string]model.Slot
	RequirementByID map[string]model.Requirement
	Assignments    []model.Assignment
	Shifts         map[string]model.Shift
}

// Build computes the per-employee roster, its summary, and per-employee
// aggregate paid hours (spec.md §4.7).
func Build(in Input) ([]model.EmployeeRosterEntry, model.RosterSummary, map[string]float64) {
	dates := calendar.Dates(in.Horizon)

	assignedByEmployeeDate := map[string]assignedCell{}
	for _, a := range in.Assignments {
		if a.Status != model.StatusAssigned || a.EmployeeID == nil {
			continue
		}
		slot := in.SlotByID[a.SlotID]
		key := *a.EmployeeID + "|" + slot.Date.Format("2006-01-02")
		assignedByEmployeeDate[key] = assignedCell{assignment: a, shiftCode: slot.ShiftCode}
	}

	employeeRequirement := requirementPerEmployee(in)

	summary := model.RosterSummary{ByStatus: map[model.AssignmentStatus]int{}}
	hours := map[string]float64{}

	entries := make([]model.EmployeeRosterEntry, 0, len(in.Employees))
	sorted := append([]model.Employee(nil), in.Employees...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, e := range sorted {
		entry := model.EmployeeRosterEntry{
			EmployeeID:     e.ID,
			RotationOffset: e.RotationOffset,
			TotalDays:      len(dates),
		}
		req, committed := employeeRequirement[e.ID]
		if committed {
			entry.WorkPattern = req.WorkPattern
		}

		for _, date := range dates {
			dayKey := date.Format("2006-01-02")
			status, shiftCode, patternDay := dailyStatus(e, req, committed, in.Horizon, date, assignedByEmployeeDate, dayKey)
			entry.DailyStatus = append(entry.DailyStatus, model.DailyStatusEntry{
				Date:       date,
				Status:     status,
				ShiftCode:  shiftCode,
				PatternDay: patternDay,
			})
			summary.TotalDailyStatuses++
			summary.ByStatus[status]++
			switch status {
			case model.StatusAssigned:
				entry.AssignedDays++
				if shift, ok := in.Shifts[shiftCode]; ok {
					hours[e.ID] += float64(shift.PaidMinutes) / 60
				}
			case model.StatusOffDay:
				entry.OffDays++
			case model.StatusUnassigned:
				entry.UnassignedDays++
			}
		}

		entries = append(entries, entry)
	}

	return entries, summary, hours
}

// requirementPerEmployee resolves, for each employee ICPMP genuinely
// committed, the requirement whose pattern governs their OFF_DAY/UNASSIGNED
// days. Resolved from eligibility (the same deterministic first-eligible
// pick pkg/solver's buildOffsetVariables uses when assigning an offset
// variable's governing requirement), not from assignment presence: a
// committed employee (Committed=true, RotationOffset set by ICPMP's
// selectEmployees) can legitimately end up with zero ASSIGNED slots across
// the whole horizon whenever distributeOffsets puts two employees on the
// same offset and the solver has no fairness objective forcing an even
// split between them. Inferring commitment from assignment presence would
// mislabel every one of that employee's days NOT_USED instead of
// OFF_DAY/UNASSIGNED.
func requirementPerEmployee(in Input) map[string]model.Requirement {
	reqIDs := make([]string, 0, len(in.RequirementByID))
	for id := range in.RequirementByID {
		reqIDs = append(reqIDs, id)
	}
	sort.Strings(reqIDs)

	out := map[string]model.Requirement{}
	for _, e := range in.Employees {
		if !e.Committed || e.RotationOffset == nil {
			continue
		}
		for _, id := range reqIDs {
			req := in.RequirementByID[id]
			if eligibility.Eligible(e, req) {
				out[e.ID] = req
				break
			}
		}
	}
	return out
}

// assignedCell pairs an ASSIGNED-status assignment with its slot's shift
// code, so dailyStatus doesn't need a second map lookup.
type assignedCell struct {
	assignment model.Assignment
	shiftCode  string
}

// dailyStatus resolves a single (employee, date) cell per the invariants in
// spec.md §4.7: ASSIGNED iff an assignment exists, OFF_DAY iff the pattern
// says so, UNASSIGNED iff the pattern predicts work but nothing was
// assigned, NOT_USED for employees with no committed requirement at all.
func dailyStatus(e model.Employee, req model.Requirement, committed bool, horizon model.PlanningHorizon, date time.Time, assignedByEmployeeDate map[string]assignedCell, dayKey string) (model.AssignmentStatus, string, *int) {
	if cell, ok := assignedByEmployeeDate[e.ID+"|"+dayKey]; ok {
		return model.StatusAssigned, cell.shiftCode, cell.assignment.PatternDay
	}
	if !committed || e.RotationOffset == nil || req.WorkPattern.Len() == 0 {
		return model.StatusNotUsed, "", nil
	}
	pd := calendar.PatternDay(date, req.AnchorDate(horizon), *e.RotationOffset, req.WorkPattern.Len())
	token := req.WorkPattern.TokenAt(pd)
	if token == model.OffDayToken {
		return model.StatusOffDay, "", &pd
	}
	return model.StatusUnassigned, "", &pd
}
