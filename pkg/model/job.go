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

package model

import "time"

// SolverConfig carries the per-job solver knobs accepted at submission time.
type SolverConfig struct {
	TimeLimitSeconds float64
	Seed             int64
}

// SolveInput is the full solver input document (§6.1 submit-job request body).
type SolveInput struct {
	PlanningReference string
	Horizon           PlanningHorizon
	Employees         []Employee
	DemandItems       []DemandItem
	Shifts            map[string]Shift
	Catalog           ConstraintCatalog
	SolverConfig      SolverConfig
}

// EstimatedVariableCount gives the |slots| x |employees| estimate used by the
// capacity ceiling check in §5 / §7 CapacityExceeded.
func (in SolveInput) EstimatedVariableCount(slotCount int) int64 {
	return int64(slotCount) * int64(len(in.Employees))
}

// Job is the durable record tracked by the queue (§3, §4.8).
type Job struct {
	ID        string
	Status    JobStatus
	CreatedAt time.Time
	UpdatedAt time.Time
	Input     SolveInput
	Result    *SolveOutput
	Error     string
}
