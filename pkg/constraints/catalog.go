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

	"github.com/nathangeology/rosterengine/pkg/model"
)

// XKey indexes the primary assignment variable x[s,e].
type XKey struct {
	SlotID     string
	EmployeeID string
}

// OffKey indexes the employee-offset indicator off[e,k] used when ICPMP did
// not fix offsets (spec.md §4.6: "If offsets are not fixed by C4, per-employee
// offset variable off[e]").
type OffKey struct {
	EmployeeID string
	Offset     int
}

// Ctx is the typed, explicitly-named replacement for the source's
// dynamic dict-based "context" blob (spec.md §9 Design Notes). Constraints
// receive a reference; they may add variables/constraints to Model and
// Violations, but must not mutate Slots, Employees, or the fixed maps.
type Ctx struct {
	M mip.Model

	Slots     []model.Slot
	Employees []model.Employee
	Shifts    map[string]model.Shift
	Horizon   model.PlanningHorizon
	Catalog   model.ConstraintCatalog

	RequirementByID map[string]model.Requirement
	SlotByID        map[string]model.Slot
	EmployeeByID    map[string]model.Employee

	// X[s,e] = 1 iff employee e fills slot s.
	X map[XKey]mip.Bool
	// U[s] = 1 iff slot s is left unassigned.
	U map[string]mip.Bool

	// OffsetsFixed is true once ICPMP has committed employees with a fixed
	// RotationOffset; when false, Off holds the per-(employee,offset)
	// indicator variables and FixedOffset is unused.
	OffsetsFixed bool
	FixedOffset  map[string]int
	Off          map[OffKey]mip.Bool
	PatternLen   map[string]int // employeeID -> L of the requirement pattern they're attached to

	// accumulated post-build diagnostics, keyed by constraint id.
	Violations map[string][]string
}

// NewCtx builds an empty Ctx ready for constraint modules to populate.
func NewCtx(m mip.Model, slots []model.Slot, employees []model.Employee, shifts map[string]model.Shift, horizon model.PlanningHorizon, catalog model.ConstraintCatalog, requirements map[string]model.Requirement) *Ctx {
	c := &Ctx{
		M:               m,
		Slots:           slots,
		Employees:       employees,
		Shifts:          shifts,
		Horizon:         horizon,
		Catalog:         catalog,
		RequirementByID: requirements,
		SlotByID:        map[string]model.Slot{},
		EmployeeByID:    map[string]model.Employee{},
		X:               map[XKey]mip.Bool{},
		U:               map[string]mip.Bool{},
		FixedOffset:     map[string]int{},
		Off:             map[OffKey]mip.Bool{},
		PatternLen:      map[string]int{},
		Violations:      map[string][]string{},
	}
	for _, s := range slots {
		c.SlotByID[s.ID] = s
	}
	for _, e := range employees {
		c.EmployeeByID[e.ID] = e
	}
	return c
}

// PatternDayForSlot resolves the pattern-day index an employee would occupy
// for a given slot, using the fixed offset when available.
func (c *Ctx) PatternDayForSlot(slotID, employeeID string, anchor time.Time, length int) int {
	slot := c.SlotByID[slotID]
	offset := c.FixedOffset[employeeID]
	n := int(slot.Date.Sub(anchor).Hours()/24) + offset
	m := n % length
	if m < 0 {
		m += length
	}
	return m
}

// Constraint is the C5 module contract: build(model, ctx) and
// score(assignments, ctx) (spec.md §4.5).
type Constraint interface {
	ID() string
	Enforcement() model.ConstraintEnforcement
	// Build adds variables/linear constraints/implications to ctx.M.
	Build(ctx *Ctx) error
	// Score returns the violation count (or weighted soft penalty) given a
	// solved assignment list, for reporting and soft-objective diagnostics.
	Score(ctx *Ctx, assignments []model.Assignment) float64
}

// f64 is a small helper for building *float64 default values inline.
func f64(v float64) *float64 { return &v }

// DefaultCatalogSpecs returns the minimum catalog from spec.md §4.5 with its
// documented default values and scheme overrides, enabled.
func DefaultCatalogSpecs() model.ConstraintCatalog {
	cat := model.ConstraintCatalog{}

	cat["momDailyHoursCap"] = model.ConstraintSpec{
		ID:           "momDailyHoursCap",
		Enforcement:  model.EnforcementHard,
		DefaultValue: f64(14 * 60),
		Enabled:      true,
		SchemeOverrides: map[model.Scheme]model.SchemeOverride{
			model.SchemeA: {Scalar: f64(14 * 60)},
			model.SchemeB: {Scalar: f64(13 * 60)},
			model.SchemeP: {Scalar: f64(9 * 60)},
		},
	}
	cat["momWeeklyHoursCap"] = model.ConstraintSpec{
		ID:           "momWeeklyHoursCap",
		Enforcement:  model.EnforcementHard,
		DefaultValue: f64(44 * 60),
		Enabled:      true,
		SchemeOverrides: map[model.Scheme]model.SchemeOverride{
			model.SchemeA: {Filtered: &model.FilteredValue{ProductTypes: []string{"APO"}, Value: 48 * 60}},
		},
	}
	cat["maxConsecutiveWorkingDays"] = model.ConstraintSpec{
		ID:           "maxConsecutiveWorkingDays",
		Enforcement:  model.EnforcementHard,
		DefaultValue: f64(12),
		Enabled:      true,
		SchemeOverrides: map[model.Scheme]model.SchemeOverride{
			model.SchemeA: {Filtered: &model.FilteredValue{ProductTypes: []string{"APO"}, Value: 8}},
		},
	}
	cat["apgdMinRestBetweenShifts"] = model.ConstraintSpec{
		ID:           "apgdMinRestBetweenShifts",
		Enforcement:  model.EnforcementHard,
		DefaultValue: f64(8),
		Enabled:      true,
		SchemeOverrides: map[model.Scheme]model.SchemeOverride{
			model.SchemeA: {Scalar: f64(8)},
			model.SchemeB: {Scalar: f64(8)},
			model.SchemeP: {Scalar: f64(1)},
		},
	}
	cat["minOffDaysPerWeek"] = model.ConstraintSpec{
		ID:           "minOffDaysPerWeek",
		Enforcement:  model.EnforcementHard,
		DefaultValue: f64(1),
		Enabled:      true,
	}
	cat["atMostOneShiftPerDay"] = model.ConstraintSpec{
		ID: "atMostOneShiftPerDay", Enforcement: model.EnforcementHard, Enabled: true,
	}
	cat["qualificationMatch"] = model.ConstraintSpec{
		ID: "qualificationMatch", Enforcement: model.EnforcementHard, Enabled: true,
	}
	cat["whitelistBlacklist"] = model.ConstraintSpec{
		ID: "whitelistBlacklist", Enforcement: model.EnforcementHard, Enabled: true,
	}
	cat["headcount"] = model.ConstraintSpec{
		ID: "headcount", Enforcement: model.EnforcementHard, Enabled: true,
	}
	cat["availabilityWindow"] = model.ConstraintSpec{
		ID: "availabilityWindow", Enforcement: model.EnforcementHard, Enabled: true,
	}
	cat["apgdMonthlyOvertimeCap"] = model.ConstraintSpec{
		ID:           "apgdMonthlyOvertimeCap",
		Enforcement:  model.EnforcementHard,
		DefaultValue: f64(72 * 60),
		Enabled:      true,
		SchemeOverrides: map[model.Scheme]model.SchemeOverride{
			model.SchemeA: {Filtered: &model.FilteredValue{ProductTypes: []string{"APO"}, Value: 124 * 60}},
		},
	}
	cat["S-coverage"] = model.ConstraintSpec{
		ID: "S-coverage", Enforcement: model.EnforcementSoft, SoftWeight: 1000, Enabled: true,
	}
	cat["S18-minimizeGaps"] = model.ConstraintSpec{
		ID: "S18-minimizeGaps", Enforcement: model.EnforcementSoft, SoftWeight: 10, Enabled: true,
	}
	return cat
}

// MergeWithDefaults overlays a caller-supplied catalog over the defaults, so
// a job submission need only carry the constraints it wants to override.
func MergeWithDefaults(override model.ConstraintCatalog) model.ConstraintCatalog {
	merged := DefaultCatalogSpecs()
	for id, spec := range override {
		merged[id] = spec
	}
	return merged
}

// DefaultCatalog returns the registered C5 constraint modules in a stable
// order: hard constraints first (cheapest/most-pruning first), soft last.
// Disabling one via ConstraintSpec.Enabled=false is purely local to that
// module's Build call.
func DefaultCatalog() []Constraint {
	return []Constraint{
		&HeadcountConstraint{},
		&AtMostOneShiftPerDayConstraint{},
		&QualificationMatchConstraint{},
		&WhitelistBlacklistConstraint{},
		&AvailabilityWindowConstraint{},
		&DailyHoursCapConstraint{},
		&WeeklyHoursCapConstraint{},
		&MaxConsecutiveDaysConstraint{},
		&MinRestBetweenShiftsConstraint{},
		&MinOffDaysPerWeekConstraint{},
		&MonthlyOvertimeCapConstraint{},
		&CoverageSoftConstraint{},
		&MinimizeGapsSoftConstraint{},
	}
}
