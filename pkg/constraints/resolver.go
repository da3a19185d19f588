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

// Package constraints holds the constraint parameter resolver (C2) and the
// constraint catalog / CP-SAT encoder (C5).
package constraints

import (
	"github.com/nathangeology/rosterengine/pkg/model"
)

// Resolve implements the C2 contract from spec.md §4.2:
//
//  1. Catalog entry for constraintID; if absent or disabled -> default.
//  2. Normalize employee scheme; if schemeOverrides has an entry:
//     - scalar -> return it
//     - FilteredValue matching productType/rank -> return its value,
//       otherwise fall through
//  3. Return DefaultValue if present, else default.
//
// Legacy params (flat maps like "maxDailyHoursA") are consulted only when no
// new-form override matched, for backward compatibility with spec.md §9.
func Resolve(catalog model.ConstraintCatalog, constraintID string, employee model.Employee, legacyParamName string, fallback float64) float64 {
	spec, ok := catalog[constraintID]
	if !ok || !spec.Enabled {
		return fallback
	}

	scheme := employee.EffectiveScheme()
	if override, ok := spec.SchemeOverrides[scheme]; ok {
		if override.Scalar != nil {
			return *override.Scalar
		}
		if override.Filtered != nil && override.Filtered.Matches(employee.ProductType, employee.Rank) {
			return override.Filtered.Value
		}
	}

	if legacyParamName != "" {
		if v, ok := spec.LegacyParams[legacyParamName]; ok {
			return v
		}
	}

	if spec.DefaultValue != nil {
		return *spec.DefaultValue
	}
	return fallback
}

// IsAPGDD10 reports whether the employee qualifies for the APGD-D10 labor
// profile: Scheme A held together with an "APO" product type (Glossary:
// APGD-D10 grants the 48h weekly cap, 124h monthly OT cap and 8-day
// consecutive limit).
func IsAPGDD10(e model.Employee) bool {
	return e.Schemes.Has(model.SchemeA) && e.ProductType == "APO"
}
