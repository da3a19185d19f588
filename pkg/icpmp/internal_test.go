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

package icpmp

import (
	"testing"
	"time"

	"github.com/nathangeology/rosterengine/pkg/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDistributeOffsetsSpreadsEvenly(t *testing.T) {
	got := distributeOffsets(7, 3)
	want := map[int]int{0: 3, 1: 2, 2: 2}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("offset %d: got %d, want %d", k, got[k], v)
		}
	}
}

func TestDistributeOffsetsOmitsZeroBuckets(t *testing.T) {
	got := distributeOffsets(2, 5)
	if len(got) != 2 {
		t.Fatalf("expected 2 non-zero buckets, got %d: %v", len(got), got)
	}
}

func TestEvaluatePlacementFeasibleWhenWorkingMeetsHeadcount(t *testing.T) {
	pattern := model.WorkPattern{Tokens: []string{"D", "D", "D", "O", "O", "O"}}
	anchor := date(2026, 1, 1)
	coverage := []time.Time{date(2026, 1, 1), date(2026, 1, 2), date(2026, 1, 3)}

	// offset 0 and offset 1 each contribute 3 employees. On day 1 offset-0
	// employees are on pattern-day 0 and offset-1 employees on pattern-day 1,
	// both D, so 6 work; on day 3 offset-1 employees reach pattern-day 3 (O),
	// leaving the offset-0 bucket's 3, which still meets a headcount of 2.
	offsetCounts := map[int]int{0: 3, 1: 3}
	feasible, _ := evaluatePlacement(offsetCounts, coverage, anchor, pattern, 2)
	if !feasible {
		t.Fatalf("expected feasible placement")
	}
}

func TestEvaluatePlacementInfeasibleWhenHeadcountUnmet(t *testing.T) {
	pattern := model.WorkPattern{Tokens: []string{"D", "O"}}
	anchor := date(2026, 1, 1)
	coverage := []time.Time{date(2026, 1, 1)}

	// single employee at offset 1 is OFF on day 1 (pattern day 1), so working
	// count is zero against a headcount of 1.
	offsetCounts := map[int]int{1: 1}
	feasible, _ := evaluatePlacement(offsetCounts, coverage, anchor, pattern, 1)
	if feasible {
		t.Fatalf("expected infeasible placement")
	}
}

func TestNeedsSchemeDiversity(t *testing.T) {
	cases := []struct {
		req  model.Requirement
		want bool
	}{
		{model.Requirement{}, true},
		{model.Requirement{RequiredSchemes: []model.Scheme{model.SchemeA}}, false},
		{model.Requirement{RequiredSchemes: []model.Scheme{model.SchemeAny}}, true},
		{model.Requirement{RequiredSchemes: []model.Scheme{model.SchemeA, model.SchemeB}}, true},
	}
	for _, c := range cases {
		if got := needsSchemeDiversity(c.req); got != c.want {
			t.Errorf("needsSchemeDiversity(%+v) = %v, want %v", c.req, got, c.want)
		}
	}
}
