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

// Package calendar provides the pure, deterministic time utilities shared by
// the rest of the engine: horizon enumeration, pattern-day arithmetic,
// scheme-string normalization and coverage-day classification (spec.md §4.1).
package calendar

import (
	"strings"
	"time"

	"github.com/nathangeology/rosterengine/pkg/model"
)

// Dates enumerates every calendar date in the horizon, inclusive.
func Dates(h model.PlanningHorizon) []time.Time {
	if h.End.Before(h.Start) {
		return nil
	}
	n := int(h.End.Sub(h.Start).Hours()/24) + 1
	out := make([]time.Time, 0, n)
	for d := h.Start; !d.After(h.End); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// DaysSinceAnchor returns the integer day offset of date relative to anchor,
// truncated to whole days (both inputs are treated as calendar dates).
func DaysSinceAnchor(date, anchor time.Time) int {
	d := date.Truncate(24 * time.Hour)
	a := anchor.Truncate(24 * time.Hour)
	return int(d.Sub(a).Hours() / 24)
}

// PatternDay computes (days_since_anchor(date) + offset) mod L, the index
// into WorkPattern.Tokens for a given employee on a given date (spec.md
// §4.1, Glossary "Pattern day").
func PatternDay(date, anchor time.Time, offset, length int) int {
	if length <= 0 {
		return 0
	}
	n := DaysSinceAnchor(date, anchor) + offset
	m := n % length
	if m < 0 {
		m += length
	}
	return m
}

// NormalizeScheme maps synonyms like "Scheme A", " scheme_a ", "a" to the
// canonical model.Scheme tag.
func NormalizeScheme(raw string) model.Scheme {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "scheme")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "_- ")
	switch s {
	case "a":
		return model.SchemeA
	case "b":
		return model.SchemeB
	case "p":
		return model.SchemeP
	case "any", "":
		return model.SchemeAny
	default:
		return model.Scheme(strings.ToUpper(s))
	}
}

// DaysInMonth returns the calendar length (28-31) of the month containing d,
// used for monthly-cap lookups (spec.md §4.1).
func DaysInMonth(d time.Time) int {
	firstOfNext := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location()).AddDate(0, 1, 0)
	lastOfMonth := firstOfNext.AddDate(0, 0, -1)
	return lastOfMonth.Day()
}

// IsCoverageDay reports whether d's weekday belongs to the coverage set.
func IsCoverageDay(d time.Time, days model.WeekdaySet) bool {
	return days.Has(d.Weekday())
}

// CoverageCalendar filters horizon dates down to those the requirement wants
// headcount on (spec.md §4.3).
func CoverageCalendar(h model.PlanningHorizon, days model.WeekdaySet) []time.Time {
	all := Dates(h)
	if days.Empty() {
		return nil
	}
	out := make([]time.Time, 0, len(all))
	for _, d := range all {
		if IsCoverageDay(d, days) {
			out = append(out, d)
		}
	}
	return out
}

// WeekStart returns the Monday-anchored start of the week containing d, used
// for weekly hour-cap and minimum-off-day bucketing (spec.md §4.5 C2, C5).
func WeekStart(d time.Time) time.Time {
	wd := int(d.Weekday())
	// time.Weekday: Sunday=0 ... Saturday=6; convert to Monday-anchored offset.
	offset := (wd + 6) % 7
	return d.AddDate(0, 0, -offset).Truncate(24 * time.Hour)
}

// MonthKey returns a stable "YYYY-MM" bucketing key for monthly caps.
func MonthKey(d time.Time) string {
	return d.Format("2006-01")
}
