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

// Package eligibility holds the single shared definition of requirement
// eligibility (spec.md §4.4.4), used by both the ICPMP preprocessor (C4) and
// the qualificationMatch / whitelistBlacklist / availabilityWindow
// constraint modules (C5) so the two phases never disagree about who may
// fill a slot.
package eligibility

import (
	"time"

	"github.com/samber/lo"

	"github.com/nathangeology/rosterengine/pkg/model"
)

// Eligible reports whether employee e may be scheduled against requirement r
// at all, independent of date (product type, rank, OU, qualifications,
// gender, scheme, whitelist and employee-pool membership). The blacklist is
// date-scoped and is checked separately by BlacklistedOn.
func Eligible(e model.Employee, r model.Requirement) bool {
	if len(r.RequiredProductTypes) > 0 && !lo.Contains(r.RequiredProductTypes, e.ProductType) {
		return false
	}
	if len(r.RequiredRanks) > 0 && !lo.Contains(r.RequiredRanks, e.Rank) {
		return false
	}
	if len(r.RequiredOUs) > 0 && !lo.Contains(r.RequiredOUs, e.OrganizationalUnit) {
		return false
	}
	for _, q := range r.RequiredQualifications {
		if _, ok := e.Qualifications[q]; !ok {
			return false
		}
	}
	if r.RequiredGender != "" && e.Gender != r.RequiredGender {
		return false
	}
	if !schemeMatches(e, r) {
		return false
	}
	if len(r.Whitelist) > 0 {
		if _, ok := r.Whitelist[e.ID]; !ok {
			return false
		}
	}
	if len(r.EmployeePool) > 0 && !lo.Contains(r.EmployeePool, e.ID) {
		return false
	}
	return true
}

func schemeMatches(e model.Employee, r model.Requirement) bool {
	if len(r.RequiredSchemes) == 0 {
		return true
	}
	for _, want := range r.RequiredSchemes {
		if want == model.SchemeAny {
			return true
		}
		if e.Schemes.Has(want) {
			return true
		}
	}
	return false
}

// BlacklistedOn reports whether e is blacklisted for r on date d. Blacklists
// are scoped to the requirement's whole date range in spec.md, so membership
// alone is sufficient; d is accepted for forward-compatibility with a
// date-ranged blacklist without changing the call sites.
func BlacklistedOn(e model.Employee, r model.Requirement, _ time.Time) bool {
	_, ok := r.Blacklist[e.ID]
	return ok
}

// Available reports whether d falls inside at least one of the employee's
// availability intervals. An employee with no intervals at all is treated as
// available every day (spec.md only documents the exclusion case).
func Available(e model.Employee, d time.Time) bool {
	if len(e.AvailabilityIntervals) == 0 {
		return true
	}
	for _, iv := range e.AvailabilityIntervals {
		if iv.Contains(d) {
			return true
		}
	}
	return false
}

// EligibleOn combines Eligible, BlacklistedOn and Available for a specific
// date, the full per-slot eligibility check used by C5's constraint modules.
func EligibleOn(e model.Employee, r model.Requirement, d time.Time) bool {
	return Eligible(e, r) && !BlacklistedOn(e, r, d) && Available(e, d)
}
