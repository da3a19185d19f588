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

// SolverRunStatus is the tagged outcome of a solve attempt (§9 Design Notes:
// replaces exception-driven control flow around solver status).
type SolverRunStatus string

const (
	RunOptimal     SolverRunStatus = "OPTIMAL"
	RunFeasible    SolverRunStatus = "FEASIBLE"
	RunInfeasible  SolverRunStatus = "INFEASIBLE"
	RunUnknown     SolverRunStatus = "UNKNOWN"
)

// Score reports the objective breakdown.
type Score struct {
	Overall float64
	Hard    float64
	Soft    float64
}

// OutputAssignment is one row of the assignments array in the output
// artifact (§6.6).
type OutputAssignment struct {
	AssignmentID string
	Date         time.Time
	EmployeeID   *string
	ShiftCode    string
	PatternDay   *int
	Status       AssignmentStatus
	Reason       string
}

// DailyStatusEntry is one day of an employee's roster.
type DailyStatusEntry struct {
	Date       time.Time
	Status     AssignmentStatus
	ShiftCode  string
	PatternDay *int
}

// EmployeeRosterEntry is the per-employee roster view (§4.7, §6.6).
type EmployeeRosterEntry struct {
	EmployeeID      string
	RotationOffset  *int
	WorkPattern     WorkPattern
	TotalDays       int
	AssignedDays    int
	OffDays         int
	UnassignedDays  int
	DailyStatus     []DailyStatusEntry
}

// RosterSummary aggregates status counts across the whole roster.
type RosterSummary struct {
	TotalDailyStatuses int
	ByStatus           map[AssignmentStatus]int
}

// ICPMPRequirementMetadata is the per-requirement preprocessing block.
type ICPMPRequirementMetadata struct {
	OptimalEmployees   int
	USlotsTotal        int
	OffsetDistribution map[int]int
	IsOptimal          bool
	CoverageRate       float64
}

// ICPMPPreprocessing is the icpmp_preprocessing output block.
type ICPMPPreprocessing struct {
	Enabled                bool
	PreprocessingTimeSeconds float64
	Requirements           map[string]ICPMPRequirementMetadata
	Warnings               []string
}

// UnmetDemandEntry records a coverage-day/shift that could not be filled.
type UnmetDemandEntry struct {
	RequirementID string
	Date          time.Time
	ShiftCode     string
	Shortfall     int
}

// OutputMeta is the meta block of the output artifact.
type OutputMeta struct {
	InputHash     string
	GeneratedAt   time.Time
	EmployeeHours map[string]float64
}

// SolverRun describes the run identity and timing.
type SolverRun struct {
	RunID           string
	Status          SolverRunStatus
	DurationSeconds float64
}

// SolveOutput is the full output artifact (§6.6).
type SolveOutput struct {
	SchemaVersion      string
	PlanningReference  string
	SolverRun          SolverRun
	Score              Score
	Assignments        []OutputAssignment
	EmployeeRoster     []EmployeeRosterEntry
	RosterSummary      RosterSummary
	ICPMPPreprocessing ICPMPPreprocessing
	UnmetDemand        []UnmetDemandEntry
	Meta               OutputMeta
}
