// Package merge implements the field merge policy: given an existing
// catalog entry and a freshly fetched source record, it decides which
// fields are overwritten, which are preserved, and how "not found" is
// encoded, per source kind and sync mode. Every function is a pure data
// transformation with no I/O, so the policy is testable as a table of
// (existing, fetched, mode) cases.
package merge

import (
	"math"

	"github.com/apetrov/gamelog/pkg/catalog"
	"github.com/apetrov/gamelog/pkg/sources"
)

// Eligible is the row predicate for candidate selection. Full mode takes
// every committed row; partial mode only rows still missing the fields
// the source would fill.
func Eligible(e catalog.Entry, kind sources.Kind, mode sources.Mode) bool {
	if catalog.Empty(e.Name) {
		return false
	}
	if mode == sources.Full {
		return true
	}
	switch kind {
	case sources.Metacritic:
		// Rows with both scores already populated are skipped entirely,
		// not even fetched.
		return catalog.Empty(e.PressScore) || catalog.Empty(e.UserScore)
	case sources.HLTB:
		return catalog.Empty(e.AvgTimeBeat)
	default:
		// The playtime source is bulk-driven and has no partial subset.
		return true
	}
}

// ApplyPlaytime merges one playtime record into an entry: cumulative
// hours into MyTimeBeat, last-played date into LastLaunchDate, and a
// status transition to Dropped for a launched title that is not
// Completed. A never-launched title with no manually tracked extra time
// is reset to the Not Started defaults.
func ApplyPlaytime(e catalog.Entry, rec sources.PlaytimeRecord) catalog.Entry {
	if !rec.Launched && rec.Hours == 0 {
		if e.AdditionalTime == catalog.NoneValue {
			e.MyTimeBeat = catalog.NoneValue
			e.LastLaunchDate = catalog.SheetDateNotSet
			e.Status = catalog.StatusNotStarted
		}
		return e
	}

	e.MyTimeBeat = catalog.FormatHours(roundHours(rec.Hours))
	if !rec.LastPlayed.IsZero() {
		e.LastLaunchDate = catalog.SheetDate(rec.LastPlayed)
	}
	if e.Status != catalog.StatusCompleted {
		e.Status = catalog.StatusDropped
	}
	return e
}

// ApplyReview merges one review-aggregator record into an entry. Fields
// the page carried overwrite the row regardless of prior content; fields
// the page lacked leave the row untouched. Partial-mode filtering happens
// in Eligible, not here; an eligible row merges the same way in both
// modes.
func ApplyReview(e catalog.Entry, rec sources.ReviewRecord) catalog.Entry {
	if rec.ReleaseDate != "" {
		e.ReleaseDate = rec.ReleaseDate
	}
	if rec.CriticScore != "" {
		e.PressScore = rec.CriticScore
	}
	if rec.UserScore != "" {
		e.UserScore = rec.UserScore
	}
	if rec.URL != "" {
		e.MetacriticURL = rec.URL
	}
	return e
}

// ApplyCompletion merges one completion-time lookup into an entry. A nil
// record means the title was not found: partial mode writes "0", full
// mode writes "0" only when the field was empty and otherwise preserves
// the existing value. A found record overwrites when it carries a
// positive figure.
func ApplyCompletion(e catalog.Entry, rec *sources.CompletionRecord, mode sources.Mode) catalog.Entry {
	if rec == nil {
		if mode == sources.Partial || catalog.Empty(e.AvgTimeBeat) {
			e.AvgTimeBeat = "0"
		}
		return e
	}
	if rec.Hours > 0 {
		e.AvgTimeBeat = catalog.FormatHours(roundHours(rec.Hours))
	}
	return e
}

// roundHours keeps hour figures at spreadsheet precision (two decimals).
func roundHours(h float64) float64 {
	return math.Round(h*100) / 100
}
