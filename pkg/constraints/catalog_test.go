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
	"time"

	"github.com/nathangeology/rosterengine/pkg/constraints"
	"github.com/nathangeology/rosterengine/pkg/model"
)

func TestDefaultCatalogHasEveryModuleEnabled(t *testing.T) {
	specs := constraints.DefaultCatalogSpecs()
	if len(specs) == 0 {
		t.Fatalf("expected a non-empty default catalog")
	}
	for id, spec := range specs {
		if !spec.Enabled {
			t.Fatalf("expected default spec %q to be enabled", id)
		}
	}
}

func TestMergeWithDefaultsOverridesOnlyNamedEntries(t *testing.T) {
	defaults := constraints.DefaultCatalogSpecs()
	var anyID string
	for id := range defaults {
		anyID = id
		break
	}

	override := model.ConstraintCatalog{
		anyID: {ID: anyID, Enabled: false},
	}
	merged := constraints.MergeWithDefaults(override)

	if merged[anyID].Enabled {
		t.Fatalf("expected the overridden entry %q to stay disabled after merge", anyID)
	}
	if len(merged) != len(defaults) {
		t.Fatalf("expected merge to keep every default entry, got %d want %d", len(merged), len(defaults))
	}
}

func TestMergeWithDefaultsOnNilOverride(t *testing.T) {
	merged := constraints.MergeWithDefaults(nil)
	if len(merged) != len(constraints.DefaultCatalogSpecs()) {
		t.Fatalf("expected a nil override to produce the plain defaults")
	}
}

func TestDefaultCatalogConstraintIDsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range constraints.DefaultCatalog() {
		if seen[c.ID()] {
			t.Fatalf("duplicate constraint id %q in DefaultCatalog", c.ID())
		}
		seen[c.ID()] = true
	}
}

func TestPatternDayForSlotWrapsWithFixedOffset(t *testing.T) {
	anchor := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	slot := model.Slot{ID: "s1", Date: anchor.AddDate(0, 0, 3)}
	ctx := constraints.NewCtx(nil, []model.Slot{slot}, nil, nil, model.PlanningHorizon{}, nil, nil)
	ctx.FixedOffset["e1"] = 2

	got := ctx.PatternDayForSlot("s1", "e1", anchor, 4)
	if got != 1 {
		t.Fatalf("expected (3+2) mod 4 = 1, got %d", got)
	}
}

func TestPatternDayForSlotHandlesNegativeModulo(t *testing.T) {
	anchor := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	slot := model.Slot{ID: "s1", Date: anchor.AddDate(0, 0, -1)}
	ctx := constraints.NewCtx(nil, []model.Slot{slot}, nil, nil, model.PlanningHorizon{}, nil, nil)

	got := ctx.PatternDayForSlot("s1", "e1", anchor, 3)
	if got != 2 {
		t.Fatalf("expected -1 mod 3 = 2, got %d", got)
	}
}
