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

// Package slots implements the C3 slot model builder: demand items x
// planning horizon -> the ordered list of slots and each requirement's
// coverage calendar (spec.md §4.3).
package slots

import (
	"time"

	"github.com/nathangeology/rosterengine/pkg/calendar"
	"github.com/nathangeology/rosterengine/pkg/model"
)

// Result is the builder's output: the flat slot list plus, per requirement,
// the coverage calendar it was built from (so ICPMP doesn't recompute it).
type Result struct {
	Slots              []model.Slot
	CoverageByRequirement map[string][]time.Time
	RequirementByID    map[string]model.Requirement
}

// Build materializes slots for every requirement x covered date x allowed
// shift x headcount, per spec.md §4.3. Slot ids are deterministic so re-runs
// over the same input reproduce identical ids (spec.md §8 property 8).
func Build(horizon model.PlanningHorizon, demandItems []model.DemandItem) Result {
	res := Result{
		CoverageByRequirement: map[string][]time.Time{},
		RequirementByID:       map[string]model.Requirement{},
	}
	for _, item := range demandItems {
		for _, req := range item.Requirements {
			res.RequirementByID[req.ID] = req
			coverage := calendar.CoverageCalendar(horizon, req.CoverageDays)
			res.CoverageByRequirement[req.ID] = coverage
			if req.HeadcountPerDay <= 0 {
				continue
			}
			shiftsAllowed := req.ShiftsAllowed
			if len(shiftsAllowed) == 0 {
				continue
			}
			for _, d := range coverage {
				for _, shiftCode := range shiftsAllowed {
					for seq := 0; seq < req.HeadcountPerDay; seq++ {
						res.Slots = append(res.Slots, model.Slot{
							ID:            model.SlotID(req.ID, d, shiftCode, seq),
							Date:          d,
							ShiftCode:     shiftCode,
							DemandItemID:  item.ID,
							RequirementID: req.ID,
							Seq:           seq,
						})
					}
				}
			}
		}
	}
	return res
}
