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

// Package pipeline composes C3-C7 into the single synchronous solve a
// worker runs per job (spec.md §2 Control flow): build slots, run ICPMP per
// requirement, construct and solve the CP-SAT model, then assemble the
// output artifact.
package pipeline

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mitchellh/hashstructure/v2"
	"go.uber.org/zap"

	"github.com/nathangeology/rosterengine/pkg/constraints"
	"github.com/nathangeology/rosterengine/pkg/icpmp"
	"github.com/nathangeology/rosterengine/pkg/model"
	"github.com/nathangeology/rosterengine/pkg/ratiocache"
	"github.com/nathangeology/rosterengine/pkg/roster"
	"github.com/nathangeology/rosterengine/pkg/slots"
	"github.com/nathangeology/rosterengine/pkg/solver"
)

// defaultSolveBudget is used when SolverConfig.TimeLimitSeconds is unset.
const defaultSolveBudget = 30 * time.Second

// Run executes one job's solve end to end. InsufficientEmployees is fatal
// (spec.md §4.4.5, §7) and is returned as the error; every other
// preprocessing shortfall degrades gracefully and is recorded as a warning
// on the returned artifact.
func Run(log *zap.SugaredLogger, in model.SolveInput, cache *ratiocache.Cache) (model.SolveOutput, error) {
	started := time.Now()
	catalog := constraints.MergeWithDefaults(in.Catalog)

	built := slots.Build(in.Horizon, in.DemandItems)

	reqIDs := make([]string, 0, len(built.RequirementByID))
	for id := range built.RequirementByID {
		reqIDs = append(reqIDs, id)
	}
	sort.Strings(reqIDs)

	pool := make([]model.Employee, len(in.Employees))
	copy(pool, in.Employees)
	byID := make(map[string]int, len(pool))
	for i, e := range pool {
		byID[e.ID] = i
	}

	icpmpResults := make(map[string]model.ICPMPRequirementMetadata, len(reqIDs))
	var warnings []string

	for _, id := range reqIDs {
		req := built.RequirementByID[id]
		coverage := built.CoverageByRequirement[id]

		res, err := icpmp.Process(log, in.Horizon, req, coverage, pool, catalog, in.Shifts, cache)
		if err != nil {
			var insufficient *model.InsufficientEmployeesError
			if errors.As(err, &insufficient) {
				return model.SolveOutput{}, err
			}
			warnings = append(warnings, fmt.Sprintf("requirement %s: %s", id, err.Error()))
		}
		icpmpResults[id] = res.Metadata

		for _, selected := range res.FilteredEmployees {
			if !selected.Committed {
				continue
			}
			if idx, ok := byID[selected.ID]; ok {
				pool[idx] = selected
			}
		}
	}

	buildInput := solver.BuildInput{
		Horizon:      in.Horizon,
		Slots:        built.Slots,
		Employees:    pool,
		Shifts:       in.Shifts,
		Catalog:      catalog,
		Requirements: built.RequirementByID,
	}

	ctx, err := solver.BuildModel(buildInput)
	if err != nil {
		return model.SolveOutput{}, fmt.Errorf("build model: %w", err)
	}

	budget := defaultSolveBudget
	if in.SolverConfig.TimeLimitSeconds > 0 {
		budget = time.Duration(in.SolverConfig.TimeLimitSeconds * float64(time.Second))
	}

	outcome, err := solver.Solve(ctx, budget)
	if err != nil {
		return model.SolveOutput{}, fmt.Errorf("solve: %w", err)
	}

	output := roster.AssembleOutput(roster.AssembleInput{
		Ctx:               ctx,
		Outcome:           outcome,
		PlanningReference: in.PlanningReference,
		ICPMPEnabled:      true,
		ICPMPSeconds:      time.Since(started).Seconds(),
		ICPMPResults:      icpmpResults,
		ICPMPWarnings:     warnings,
		InputHash:         inputHash(in),
		GeneratedAt:       started,
	})
	return output, nil
}

// inputHash gives the output artifact's meta.input_hash: a structural
// digest of the submitted document, independent of C9's
// offset-distribution-shaped fingerprint in package ratiocache.
func inputHash(in model.SolveInput) string {
	h, err := hashstructure.Hash(in, hashstructure.FormatV2, nil)
	if err != nil {
		return ""
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, h)
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}
