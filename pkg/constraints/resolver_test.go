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

package constraints_test

import (
	"testing"

	"github.com/nathangeology/rosterengine/pkg/constraints"
	"github.com/nathangeology/rosterengine/pkg/model"
)

func scalar(v float64) *float64 { return &v }

func TestResolveFallsBackWhenConstraintAbsent(t *testing.T) {
	catalog := model.ConstraintCatalog{}
	e := model.Employee{Schemes: model.SchemeSet{model.SchemeB}}
	got := constraints.Resolve(catalog, "maxWeeklyHours", e, "", 40)
	if got != 40 {
		t.Fatalf("expected fallback 40, got %v", got)
	}
}

func TestResolveFallsBackWhenDisabled(t *testing.T) {
	catalog := model.ConstraintCatalog{
		"maxWeeklyHours": {Enabled: false, DefaultValue: scalar(44)},
	}
	e := model.Employee{Schemes: model.SchemeSet{model.SchemeB}}
	got := constraints.Resolve(catalog, "maxWeeklyHours", e, "", 40)
	if got != 40 {
		t.Fatalf("expected fallback 40 for a disabled spec, got %v", got)
	}
}

func TestResolveUsesScalarSchemeOverride(t *testing.T) {
	catalog := model.ConstraintCatalog{
		"maxWeeklyHours": {
			Enabled: true,
			SchemeOverrides: map[model.Scheme]model.SchemeOverride{
				model.SchemeA: {Scalar: scalar(48)},
			},
			DefaultValue: scalar(44),
		},
	}
	e := model.Employee{Schemes: model.SchemeSet{model.SchemeA}, PrimaryScheme: model.SchemeA}
	got := constraints.Resolve(catalog, "maxWeeklyHours", e, "", 40)
	if got != 48 {
		t.Fatalf("expected scheme A override 48, got %v", got)
	}
}

func TestResolveUsesFilteredOverrideWhenMatching(t *testing.T) {
	catalog := model.ConstraintCatalog{
		"maxWeeklyHours": {
			Enabled: true,
			SchemeOverrides: map[model.Scheme]model.SchemeOverride{
				model.SchemeA: {Filtered: &model.FilteredValue{ProductTypes: []string{"APO"}, Value: 48}},
			},
			DefaultValue: scalar(44),
		},
	}
	matching := model.Employee{Schemes: model.SchemeSet{model.SchemeA}, PrimaryScheme: model.SchemeA, ProductType: "APO"}
	if got := constraints.Resolve(catalog, "maxWeeklyHours", matching, "", 40); got != 48 {
		t.Fatalf("expected filtered override 48 for matching product type, got %v", got)
	}

	nonMatching := model.Employee{Schemes: model.SchemeSet{model.SchemeA}, PrimaryScheme: model.SchemeA, ProductType: "other"}
	if got := constraints.Resolve(catalog, "maxWeeklyHours", nonMatching, "", 40); got != 44 {
		t.Fatalf("expected default 44 when the filtered override does not match, got %v", got)
	}
}

func TestResolveFallsThroughToLegacyParam(t *testing.T) {
	catalog := model.ConstraintCatalog{
		"maxWeeklyHours": {
			Enabled:      true,
			LegacyParams: map[string]float64{"maxWeeklyHoursA": 46},
		},
	}
	e := model.Employee{Schemes: model.SchemeSet{model.SchemeA}, PrimaryScheme: model.SchemeA}
	got := constraints.Resolve(catalog, "maxWeeklyHours", e, "maxWeeklyHoursA", 40)
	if got != 46 {
		t.Fatalf("expected legacy param 46, got %v", got)
	}
}

func TestResolveUsesDefaultValueWhenNoOverrideMatches(t *testing.T) {
	catalog := model.ConstraintCatalog{
		"maxWeeklyHours": {Enabled: true, DefaultValue: scalar(45)},
	}
	e := model.Employee{Schemes: model.SchemeSet{model.SchemeB}, PrimaryScheme: model.SchemeB}
	got := constraints.Resolve(catalog, "maxWeeklyHours", e, "", 40)
	if got != 45 {
		t.Fatalf("expected catalog default 45, got %v", got)
	}
}

func TestIsAPGDD10(t *testing.T) {
	qualifying := model.Employee{Schemes: model.SchemeSet{model.SchemeA}, ProductType: "APO"}
	if !constraints.IsAPGDD10(qualifying) {
		t.Fatalf("expected scheme A + APO product type to qualify for APGD-D10")
	}

	wrongScheme := model.Employee{Schemes: model.SchemeSet{model.SchemeB}, ProductType: "APO"}
	if constraints.IsAPGDD10(wrongScheme) {
		t.Fatalf("expected scheme B to not qualify for APGD-D10")
	}

	wrongProduct := model.Employee{Schemes: model.SchemeSet{model.SchemeA}, ProductType: "other"}
	if constraints.IsAPGDD10(wrongProduct) {
		t.Fatalf("expected a non-APO product type to not qualify for APGD-D10")
	}
}
