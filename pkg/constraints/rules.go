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

package constraints

import (
	"time"

	"github.com/nextmv-io/sdk/mip"

	"github.com/nathangeology/rosterengine/pkg/calendar"
	"github.com/nathangeology/rosterengine/pkg/eligibility"
	"github.com/nathangeology/rosterengine/pkg/model"
)

// groupSlotsByDate indexes ctx.Slots by calendar date (day granularity).
func groupSlotsByDate(ctx *Ctx) map[time.Time][]model.Slot {
	out := map[time.Time][]model.Slot{}
	for _, s := range ctx.Slots {
		key := s.Date.Truncate(24 * time.Hour)
		out[key] = append(out[key], s)
	}
	return out
}

// ---- C9 headcount --------------------------------------------------------

// HeadcountConstraint is spec.md §4.5 "C9 headcount": for each slot, the sum
// of fills plus the unassigned indicator equals exactly one, which also
// enforces slot uniqueness since all terms are non-negative binaries.
type HeadcountConstraint struct{}

func (c *HeadcountConstraint) ID() string                              { return "headcount" }
func (c *HeadcountConstraint) Enforcement() model.ConstraintEnforcement { return model.EnforcementHard }

func (c *HeadcountConstraint) Build(ctx *Ctx) error {
	spec := ctx.Catalog["headcount"]
	if !spec.Enabled {
		return nil
	}
	for _, s := range ctx.Slots {
		u, ok := ctx.U[s.ID]
		if !ok {
			continue
		}
		con := ctx.M.NewConstraint(mip.Equal, 1.0)
		con.NewTerm(1.0, u)
		for _, e := range ctx.Employees {
			if x, ok := ctx.X[XKey{SlotID: s.ID, EmployeeID: e.ID}]; ok {
				con.NewTerm(1.0, x)
			}
		}
	}
	return nil
}

func (c *HeadcountConstraint) Score(ctx *Ctx, assignments []model.Assignment) float64 {
	violations := 0.0
	seen := map[string]int{}
	for _, a := range assignments {
		if a.Status == model.StatusAssigned {
			seen[a.SlotID]++
		}
	}
	for _, n := range seen {
		if n > 1 {
			violations += float64(n - 1)
		}
	}
	return violations
}

// ---- C6 atMostOneShiftPerDay ---------------------------------------------

type AtMostOneShiftPerDayConstraint struct{}

func (c *AtMostOneShiftPerDayConstraint) ID() string { return "atMostOneShiftPerDay" }
func (c *AtMostOneShiftPerDayConstraint) Enforcement() model.ConstraintEnforcement {
	return model.EnforcementHard
}

func (c *AtMostOneShiftPerDayConstraint) Build(ctx *Ctx) error {
	spec := ctx.Catalog["atMostOneShiftPerDay"]
	if !spec.Enabled {
		return nil
	}
	byDate := groupSlotsByDate(ctx)
	for _, e := range ctx.Employees {
		for _, daySlots := range byDate {
			con := ctx.M.NewConstraint(mip.LessThanOrEqual, 1.0)
			any := false
			for _, s := range daySlots {
				if x, ok := ctx.X[XKey{SlotID: s.ID, EmployeeID: e.ID}]; ok {
					con.NewTerm(1.0, x)
					any = true
				}
			}
			_ = any
		}
	}
	return nil
}

func (c *AtMostOneShiftPerDayConstraint) Score(ctx *Ctx, assignments []model.Assignment) float64 {
	byEmployeeDate := map[string]int{}
	for _, a := range assignments {
		if a.Status != model.StatusAssigned || a.EmployeeID == nil {
			continue
		}
		slot := ctx.SlotByID[a.SlotID]
		key := *a.EmployeeID + "|" + slot.Date.Format("2006-01-02")
		byEmployeeDate[key]++
	}
	v := 0.0
	for _, n := range byEmployeeDate {
		if n > 1 {
			v += float64(n - 1)
		}
	}
	return v
}

// ---- C7 qualificationMatch / C8 whitelistBlacklist / C10 availabilityWindow
//
// These three are enforced structurally: the model builder only creates
// x[s,e] variables for pairs that already pass eligibility.EligibleOn, so
// there is nothing left to add to the model here. Score still reports any
// violation that would indicate the variable-pruning step itself has a bug.

type QualificationMatchConstraint struct{}

func (c *QualificationMatchConstraint) ID() string { return "qualificationMatch" }
func (c *QualificationMatchConstraint) Enforcement() model.ConstraintEnforcement {
	return model.EnforcementHard
}
func (c *QualificationMatchConstraint) Build(ctx *Ctx) error { return nil }
func (c *QualificationMatchConstraint) Score(ctx *Ctx, assignments []model.Assignment) float64 {
	v := 0.0
	for _, a := range assignments {
		if a.Status != model.StatusAssigned || a.EmployeeID == nil {
			continue
		}
		slot := ctx.SlotByID[a.SlotID]
		req := ctx.RequirementByID[slot.RequirementID]
		emp := ctx.EmployeeByID[*a.EmployeeID]
		if !eligibility.Eligible(emp, req) {
			v++
		}
	}
	return v
}

type WhitelistBlacklistConstraint struct{}

func (c *WhitelistBlacklistConstraint) ID() string { return "whitelistBlacklist" }
func (c *WhitelistBlacklistConstraint) Enforcement() model.ConstraintEnforcement {
	return model.EnforcementHard
}
func (c *WhitelistBlacklistConstraint) Build(ctx *Ctx) error { return nil }
func (c *WhitelistBlacklistConstraint) Score(ctx *Ctx, assignments []model.Assignment) float64 {
	v := 0.0
	for _, a := range assignments {
		if a.Status != model.StatusAssigned || a.EmployeeID == nil {
			continue
		}
		slot := ctx.SlotByID[a.SlotID]
		req := ctx.RequirementByID[slot.RequirementID]
		emp := ctx.EmployeeByID[*a.EmployeeID]
		if eligibility.BlacklistedOn(emp, req, slot.Date) {
			v++
		}
	}
	return v
}

type AvailabilityWindowConstraint struct{}

func (c *AvailabilityWindowConstraint) ID() string { return "availabilityWindow" }
func (c *AvailabilityWindowConstraint) Enforcement() model.ConstraintEnforcement {
	return model.EnforcementHard
}
func (c *AvailabilityWindowConstraint) Build(ctx *Ctx) error { return nil }
func (c *AvailabilityWindowConstraint) Score(ctx *Ctx, assignments []model.Assignment) float64 {
	v := 0.0
	for _, a := range assignments {
		if a.Status != model.StatusAssigned || a.EmployeeID == nil {
			continue
		}
		slot := ctx.SlotByID[a.SlotID]
		emp := ctx.EmployeeByID[*a.EmployeeID]
		if !eligibility.Available(emp, slot.Date) {
			v++
		}
	}
	return v
}

// ---- C1 momDailyHoursCap ---------------------------------------------------

type DailyHoursCapConstraint struct{}

func (c *DailyHoursCapConstraint) ID() string { return "momDailyHoursCap" }
func (c *DailyHoursCapConstraint) Enforcement() model.ConstraintEnforcement {
	return model.EnforcementHard
}

func (c *DailyHoursCapConstraint) Build(ctx *Ctx) error {
	spec := ctx.Catalog["momDailyHoursCap"]
	if !spec.Enabled {
		return nil
	}
	byDate := groupSlotsByDate(ctx)
	for _, e := range ctx.Employees {
		capMinutes := Resolve(ctx.Catalog, "momDailyHoursCap", e, "maxDailyHoursA", 14*60)
		for _, daySlots := range byDate {
			con := ctx.M.NewConstraint(mip.LessThanOrEqual, capMinutes)
			for _, s := range daySlots {
				x, ok := ctx.X[XKey{SlotID: s.ID, EmployeeID: e.ID}]
				if !ok {
					continue
				}
				shift := ctx.Shifts[s.ShiftCode]
				con.NewTerm(float64(shift.PaidMinutes), x)
			}
		}
	}
	return nil
}

func (c *DailyHoursCapConstraint) Score(ctx *Ctx, assignments []model.Assignment) float64 {
	return scoreByGroup(ctx, assignments, func(e model.Employee, d time.Time) string {
		return e.ID + "|" + d.Format("2006-01-02")
	}, func(e model.Employee) float64 {
		return Resolve(ctx.Catalog, "momDailyHoursCap", e, "maxDailyHoursA", 14*60)
	})
}

// ---- C2 momWeeklyHoursCap ---------------------------------------------------

type WeeklyHoursCapConstraint struct{}

func (c *WeeklyHoursCapConstraint) ID() string { return "momWeeklyHoursCap" }
func (c *WeeklyHoursCapConstraint) Enforcement() model.ConstraintEnforcement {
	return model.EnforcementHard
}

func (c *WeeklyHoursCapConstraint) Build(ctx *Ctx) error {
	spec := ctx.Catalog["momWeeklyHoursCap"]
	if !spec.Enabled {
		return nil
	}
	byWeek := map[string][]model.Slot{}
	for _, s := range ctx.Slots {
		wk := calendar.WeekStart(s.Date).Format("2006-01-02")
		byWeek[wk] = append(byWeek[wk], s)
	}
	for _, e := range ctx.Employees {
		capMinutes := Resolve(ctx.Catalog, "momWeeklyHoursCap", e, "maxWeeklyHoursA", 44*60)
		for _, weekSlots := range byWeek {
			con := ctx.M.NewConstraint(mip.LessThanOrEqual, capMinutes)
			for _, s := range weekSlots {
				x, ok := ctx.X[XKey{SlotID: s.ID, EmployeeID: e.ID}]
				if !ok {
					continue
				}
				shift := ctx.Shifts[s.ShiftCode]
				con.NewTerm(float64(shift.PaidMinutes), x)
			}
		}
	}
	return nil
}

func (c *WeeklyHoursCapConstraint) Score(ctx *Ctx, assignments []model.Assignment) float64 {
	return scoreByGroup(ctx, assignments, func(e model.Employee, d time.Time) string {
		return e.ID + "|" + calendar.WeekStart(d).Format("2006-01-02")
	}, func(e model.Employee) float64 {
		return Resolve(ctx.Catalog, "momWeeklyHoursCap", e, "maxWeeklyHoursA", 44*60)
	})
}

// scoreByGroup is shared by the two minutes-based cap constraints: it sums
// paid minutes per (employee, groupKey(date)) and counts groups exceeding the
// employee's resolved cap.
func scoreByGroup(ctx *Ctx, assignments []model.Assignment, groupKey func(model.Employee, time.Time) string, cap func(model.Employee) float64) float64 {
	minutes := map[string]float64{}
	for _, a := range assignments {
		if a.Status != model.StatusAssigned || a.EmployeeID == nil {
			continue
		}
		slot := ctx.SlotByID[a.SlotID]
		emp := ctx.EmployeeByID[*a.EmployeeID]
		shift := ctx.Shifts[slot.ShiftCode]
		key := groupKey(emp, slot.Date)
		minutes[key] += float64(shift.PaidMinutes)
	}
	violations := 0.0
	seenCap := map[string]float64{}
	for key, m := range minutes {
		empID := key[:indexOf(key, '|')]
		c, ok := seenCap[empID]
		if !ok {
			c = cap(ctx.EmployeeByID[empID])
			seenCap[empID] = c
		}
		if m > c {
			violations++
		}
	}
	return violations
}

func indexOf(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return len(s)
}

// ---- C3 maxConsecutiveWorkingDays ------------------------------------------

type MaxConsecutiveDaysConstraint struct{}

func (c *MaxConsecutiveDaysConstraint) ID() string { return "maxConsecutiveWorkingDays" }
func (c *MaxConsecutiveDaysConstraint) Enforcement() model.ConstraintEnforcement {
	return model.EnforcementHard
}

func (c *MaxConsecutiveDaysConstraint) Build(ctx *Ctx) error {
	spec := ctx.Catalog["maxConsecutiveWorkingDays"]
	if !spec.Enabled {
		return nil
	}
	dates := calendar.Dates(ctx.Horizon)
	byDate := groupSlotsByDate(ctx)
	for _, e := range ctx.Employees {
		k := Resolve(ctx.Catalog, "maxConsecutiveWorkingDays", e, "", 12)
		windowLen := int(k) + 1
		if windowLen > len(dates) {
			continue
		}
		for start := 0; start+windowLen <= len(dates); start++ {
			con := ctx.M.NewConstraint(mip.LessThanOrEqual, k)
			for _, d := range dates[start : start+windowLen] {
				for _, s := range byDate[d.Truncate(24*time.Hour)] {
					if x, ok := ctx.X[XKey{SlotID: s.ID, EmployeeID: e.ID}]; ok {
						con.NewTerm(1.0, x)
					}
				}
			}
		}
	}
	return nil
}

func (c *MaxConsecutiveDaysConstraint) Score(ctx *Ctx, assignments []model.Assignment) float64 {
	worked := map[string]map[string]bool{}
	for _, a := range assignments {
		if a.Status != model.StatusAssigned || a.EmployeeID == nil {
			continue
		}
		slot := ctx.SlotByID[a.SlotID]
		if worked[*a.EmployeeID] == nil {
			worked[*a.EmployeeID] = map[string]bool{}
		}
		worked[*a.EmployeeID][slot.Date.Format("2006-01-02")] = true
	}
	dates := calendar.Dates(ctx.Horizon)
	v := 0.0
	for _, e := range ctx.Employees {
		k := int(Resolve(ctx.Catalog, "maxConsecutiveWorkingDays", e, "", 12))
		run := 0
		for _, d := range dates {
			if worked[e.ID][d.Format("2006-01-02")] {
				run++
			} else {
				run = 0
			}
			if run > k {
				v++
			}
		}
	}
	return v
}

// ---- C4 apgdMinRestBetweenShifts -------------------------------------------

type MinRestBetweenShiftsConstraint struct{}

func (c *MinRestBetweenShiftsConstraint) ID() string { return "apgdMinRestBetweenShifts" }
func (c *MinRestBetweenShiftsConstraint) Enforcement() model.ConstraintEnforcement {
	return model.EnforcementHard
}

func shiftWindow(s model.Slot, shift model.Shift) (time.Time, time.Time) {
	day := s.Date.Truncate(24 * time.Hour)
	start := day.Add(shift.Start)
	end := day.Add(shift.End)
	if end.Before(start) {
		end = end.AddDate(0, 0, 1) // overnight shift
	}
	return start, end
}

func (c *MinRestBetweenShiftsConstraint) Build(ctx *Ctx) error {
	spec := ctx.Catalog["apgdMinRestBetweenShifts"]
	if !spec.Enabled {
		return nil
	}
	for _, e := range ctx.Employees {
		minRestHours := Resolve(ctx.Catalog, "apgdMinRestBetweenShifts", e, "", 8)
		minRest := time.Duration(minRestHours * float64(time.Hour))
		var own []model.Slot
		for _, s := range ctx.Slots {
			if _, ok := ctx.X[XKey{SlotID: s.ID, EmployeeID: e.ID}]; ok {
				own = append(own, s)
			}
		}
		for i := 0; i < len(own); i++ {
			for j := i + 1; j < len(own); j++ {
				s1, s2 := own[i], own[j]
				shift1, shift2 := ctx.Shifts[s1.ShiftCode], ctx.Shifts[s2.ShiftCode]
				start1, end1 := shiftWindow(s1, shift1)
				start2, end2 := shiftWindow(s2, shift2)
				if start1.After(start2) {
					start1, end1, start2, end2 = start2, end2, start1, end1
					s1, s2 = s2, s1
				}
				gap := start2.Sub(end1)
				if gap < minRest && gap >= -24*time.Hour {
					con := ctx.M.NewConstraint(mip.LessThanOrEqual, 1.0)
					con.NewTerm(1.0, ctx.X[XKey{SlotID: s1.ID, EmployeeID: e.ID}])
					con.NewTerm(1.0, ctx.X[XKey{SlotID: s2.ID, EmployeeID: e.ID}])
				}
			}
		}
	}
	return nil
}

func (c *MinRestBetweenShiftsConstraint) Score(ctx *Ctx, assignments []model.Assignment) float64 {
	byEmployee := map[string][]model.Slot{}
	for _, a := range assignments {
		if a.Status != model.StatusAssigned || a.EmployeeID == nil {
			continue
		}
		byEmployee[*a.EmployeeID] = append(byEmployee[*a.EmployeeID], ctx.SlotByID[a.SlotID])
	}
	v := 0.0
	for empID, slots := range byEmployee {
		emp := ctx.EmployeeByID[empID]
		minRestHours := Resolve(ctx.Catalog, "apgdMinRestBetweenShifts", emp, "", 8)
		minRest := time.Duration(minRestHours * float64(time.Hour))
		for i := 0; i < len(slots); i++ {
			for j := i + 1; j < len(slots); j++ {
				s1, s2 := slots[i], slots[j]
				_, end1 := shiftWindow(s1, ctx.Shifts[s1.ShiftCode])
				start2, _ := shiftWindow(s2, ctx.Shifts[s2.ShiftCode])
				if start2.Before(end1) {
					start2, end1 = end1, start2
				}
				if start2.Sub(end1) < minRest {
					v++
				}
			}
		}
	}
	return v
}

// ---- C5 minOffDaysPerWeek ---------------------------------------------------

type MinOffDaysPerWeekConstraint struct{}

func (c *MinOffDaysPerWeekConstraint) ID() string { return "minOffDaysPerWeek" }
func (c *MinOffDaysPerWeekConstraint) Enforcement() model.ConstraintEnforcement {
	return model.EnforcementHard
}

func (c *MinOffDaysPerWeekConstraint) Build(ctx *Ctx) error {
	spec := ctx.Catalog["minOffDaysPerWeek"]
	if !spec.Enabled {
		return nil
	}
	minOff := 1.0
	if spec.DefaultValue != nil {
		minOff = *spec.DefaultValue
	}
	byWeek := map[string][]model.Slot{}
	for _, s := range ctx.Slots {
		wk := calendar.WeekStart(s.Date).Format("2006-01-02")
		byWeek[wk] = append(byWeek[wk], s)
	}
	for _, e := range ctx.Employees {
		for _, weekSlots := range byWeek {
			days := map[string][]model.Slot{}
			for _, s := range weekSlots {
				days[s.Date.Format("2006-01-02")] = append(days[s.Date.Format("2006-01-02")], s)
			}
			con := ctx.M.NewConstraint(mip.LessThanOrEqual, float64(len(days))-minOff)
			for _, daySlots := range days {
				for _, s := range daySlots {
					if x, ok := ctx.X[XKey{SlotID: s.ID, EmployeeID: e.ID}]; ok {
						con.NewTerm(1.0, x)
					}
				}
			}
		}
	}
	return nil
}

func (c *MinOffDaysPerWeekConstraint) Score(ctx *Ctx, assignments []model.Assignment) float64 {
	// weekLen holds the number of calendar days each week actually contributes
	// within the horizon, so a week truncated by the horizon boundary (e.g. a
	// 3-day partial week at either edge) is judged against its own length
	// rather than a fixed 7. Build's hard constraint already does this
	// correctly per week (con bound is len(days)-minOff); this mirrors it so
	// the post-solve diagnostic agrees with what was actually enforced.
	weekLen := map[string]map[string]bool{}
	for _, s := range ctx.Slots {
		wk := calendar.WeekStart(s.Date).Format("2006-01-02")
		if weekLen[wk] == nil {
			weekLen[wk] = map[string]bool{}
		}
		weekLen[wk][s.Date.Format("2006-01-02")] = true
	}

	type empWeek struct {
		employeeID string
		week       string
	}
	worked := map[empWeek]map[string]bool{}
	for _, a := range assignments {
		if a.Status != model.StatusAssigned || a.EmployeeID == nil {
			continue
		}
		slot := ctx.SlotByID[a.SlotID]
		wk := calendar.WeekStart(slot.Date).Format("2006-01-02")
		key := empWeek{employeeID: *a.EmployeeID, week: wk}
		if worked[key] == nil {
			worked[key] = map[string]bool{}
		}
		worked[key][slot.Date.Format("2006-01-02")] = true
	}
	v := 0.0
	for key, days := range worked {
		if len(days) >= len(weekLen[key.week]) {
			v++
		}
	}
	return v
}

// ---- C17 apgdMonthlyOvertimeCap ---------------------------------------------

type MonthlyOvertimeCapConstraint struct{}

func (c *MonthlyOvertimeCapConstraint) ID() string { return "apgdMonthlyOvertimeCap" }
func (c *MonthlyOvertimeCapConstraint) Enforcement() model.ConstraintEnforcement {
	return model.EnforcementHard
}

// monthlyBaseMinutes approximates the regular (non-overtime) monthly minutes
// budget as 8 standard hours per weekday-equivalent day in the month, used
// as the threshold beyond which minutes count as overtime for C17.
func monthlyBaseMinutes(month time.Time) float64 {
	return float64(calendar.DaysInMonth(month)) * 8 * 60 * 5 / 7
}

func (c *MonthlyOvertimeCapConstraint) Build(ctx *Ctx) error {
	spec := ctx.Catalog["apgdMonthlyOvertimeCap"]
	if !spec.Enabled {
		return nil
	}
	byMonth := map[string][]model.Slot{}
	for _, s := range ctx.Slots {
		byMonth[calendar.MonthKey(s.Date)] = append(byMonth[calendar.MonthKey(s.Date)], s)
	}
	for _, e := range ctx.Employees {
		if !IsAPGDD10(e) {
			continue
		}
		otCapMinutes := Resolve(ctx.Catalog, "apgdMonthlyOvertimeCap", e, "", 72*60)
		for month, monthSlots := range byMonth {
			if len(monthSlots) == 0 {
				continue
			}
			base := monthlyBaseMinutes(monthSlots[0].Date)
			con := ctx.M.NewConstraint(mip.LessThanOrEqual, base+otCapMinutes)
			_ = month
			for _, s := range monthSlots {
				x, ok := ctx.X[XKey{SlotID: s.ID, EmployeeID: e.ID}]
				if !ok {
					continue
				}
				shift := ctx.Shifts[s.ShiftCode]
				con.NewTerm(float64(shift.PaidMinutes), x)
			}
		}
	}
	return nil
}

func (c *MonthlyOvertimeCapConstraint) Score(ctx *Ctx, assignments []model.Assignment) float64 {
	minutes := map[string]float64{}
	for _, a := range assignments {
		if a.Status != model.StatusAssigned || a.EmployeeID == nil {
			continue
		}
		slot := ctx.SlotByID[a.SlotID]
		emp := ctx.EmployeeByID[*a.EmployeeID]
		if !IsAPGDD10(emp) {
			continue
		}
		key := emp.ID + "|" + calendar.MonthKey(slot.Date)
		minutes[key] += float64(ctx.Shifts[slot.ShiftCode].PaidMinutes)
	}
	v := 0.0
	for key, m := range minutes {
		empID := key[:indexOf(key, '|')]
		emp := ctx.EmployeeByID[empID]
		otCap := Resolve(ctx.Catalog, "apgdMonthlyOvertimeCap", emp, "", 72*60)
		if m > monthlyBaseMinutes(ctx.Horizon.Start)+otCap {
			v++
		}
	}
	return v
}

// ---- S-coverage (soft) -------------------------------------------------------

type CoverageSoftConstraint struct{}

func (c *CoverageSoftConstraint) ID() string                              { return "S-coverage" }
func (c *CoverageSoftConstraint) Enforcement() model.ConstraintEnforcement { return model.EnforcementSoft }

func (c *CoverageSoftConstraint) Build(ctx *Ctx) error {
	spec := ctx.Catalog["S-coverage"]
	if !spec.Enabled {
		return nil
	}
	weight := spec.SoftWeight
	if weight == 0 {
		weight = 1000
	}
	for _, u := range ctx.U {
		ctx.M.Objective().NewTerm(weight, u)
	}
	return nil
}

func (c *CoverageSoftConstraint) Score(ctx *Ctx, assignments []model.Assignment) float64 {
	v := 0.0
	for _, a := range assignments {
		if a.Status == model.StatusUnassigned {
			v++
		}
	}
	return v
}

// ---- S18 minimizeGaps (soft) -------------------------------------------------

type MinimizeGapsSoftConstraint struct{}

func (c *MinimizeGapsSoftConstraint) ID() string { return "S18-minimizeGaps" }
func (c *MinimizeGapsSoftConstraint) Enforcement() model.ConstraintEnforcement {
	return model.EnforcementSoft
}

func (c *MinimizeGapsSoftConstraint) Build(ctx *Ctx) error {
	spec := ctx.Catalog["S18-minimizeGaps"]
	if !spec.Enabled || !ctx.OffsetsFixed {
		return nil
	}
	weight := spec.SoftWeight
	if weight == 0 {
		weight = 10
	}
	byDate := groupSlotsByDate(ctx)
	for _, e := range ctx.Employees {
		if e.RotationOffset == nil {
			continue
		}
		req := requirementForEmployee(ctx, e)
		if req == nil || req.WorkPattern.Len() == 0 {
			continue
		}
		anchor := req.AnchorDate(ctx.Horizon)
		for d, daySlots := range byDate {
			pd := calendar.PatternDay(d, anchor, *e.RotationOffset, req.WorkPattern.Len())
			if req.WorkPattern.TokenAt(pd) == model.OffDayToken {
				continue
			}
			// pattern predicts work on d: reward (negative cost) each unit of
			// x[s,e] that fills a slot that day, which drives the solver to
			// prefer filling pattern-predicted work days over leaving gaps.
			for _, s := range daySlots {
				if x, ok := ctx.X[XKey{SlotID: s.ID, EmployeeID: e.ID}]; ok {
					ctx.M.Objective().NewTerm(-weight, x)
				}
			}
		}
	}
	return nil
}

func requirementForEmployee(ctx *Ctx, e model.Employee) *model.Requirement {
	for _, s := range ctx.Slots {
		if _, ok := ctx.X[XKey{SlotID: s.ID, EmployeeID: e.ID}]; ok {
			if r, ok := ctx.RequirementByID[s.RequirementID]; ok {
				return &r
			}
		}
	}
	return nil
}

func (c *MinimizeGapsSoftConstraint) Score(ctx *Ctx, assignments []model.Assignment) float64 {
	worked := map[string]map[string]bool{}
	for _, a := range assignments {
		if a.Status != model.StatusAssigned || a.EmployeeID == nil {
			continue
		}
		slot := ctx.SlotByID[a.SlotID]
		if worked[*a.EmployeeID] == nil {
			worked[*a.EmployeeID] = map[string]bool{}
		}
		worked[*a.EmployeeID][slot.Date.Format("2006-01-02")] = true
	}
	v := 0.0
	for _, e := range ctx.Employees {
		if e.RotationOffset == nil {
			continue
		}
		req := requirementForEmployee(ctx, e)
		if req == nil {
			continue
		}
		anchor := req.AnchorDate(ctx.Horizon)
		for _, d := range calendar.Dates(ctx.Horizon) {
			pd := calendar.PatternDay(d, anchor, *e.RotationOffset, req.WorkPattern.Len())
			if req.WorkPattern.TokenAt(pd) == model.OffDayToken {
				continue
			}
			if !worked[e.ID][d.Format("2006-01-02")] {
				v++
			}
		}
	}
	return v
}
