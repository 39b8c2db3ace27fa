package merge_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/apetrov/gamelog/pkg/catalog"
	"github.com/apetrov/gamelog/pkg/merge"
	"github.com/apetrov/gamelog/pkg/sources"
)

func TestEligible(t *testing.T) {
	tests := []struct {
		name  string
		entry catalog.Entry
		kind  sources.Kind
		mode  sources.Mode
		want  bool
	}{
		{
			name:  "empty name never eligible",
			entry: catalog.Entry{},
			kind:  sources.HLTB,
			mode:  sources.Full,
			want:  false,
		},
		{
			name:  "full mode takes every row",
			entry: catalog.Entry{Name: "Hades", PressScore: "9.3", UserScore: "8.8", AvgTimeBeat: "21"},
			kind:  sources.Metacritic,
			mode:  sources.Full,
			want:  true,
		},
		{
			name:  "metacritic partial skips rows with both scores",
			entry: catalog.Entry{Name: "Hades", PressScore: "9.3", UserScore: "8.8"},
			kind:  sources.Metacritic,
			mode:  sources.Partial,
			want:  false,
		},
		{
			name:  "metacritic partial takes row missing one score",
			entry: catalog.Entry{Name: "Hades", PressScore: "9.3"},
			kind:  sources.Metacritic,
			mode:  sources.Partial,
			want:  true,
		},
		{
			name:  "hltb partial skips populated expected hours",
			entry: catalog.Entry{Name: "Hades", AvgTimeBeat: "21.5"},
			kind:  sources.HLTB,
			mode:  sources.Partial,
			want:  false,
		},
		{
			name:  "hltb partial takes empty expected hours",
			entry: catalog.Entry{Name: "Hades"},
			kind:  sources.HLTB,
			mode:  sources.Partial,
			want:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, merge.Eligible(tt.entry, tt.kind, tt.mode))
		})
	}
}

func TestApplyPlaytimeLaunchedTitle(t *testing.T) {
	e := catalog.Entry{
		Name:   "Hades",
		Status: catalog.StatusNotStarted,
	}
	rec := sources.PlaytimeRecord{
		Name:       "Hades",
		Hours:      42,
		LastPlayed: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		Launched:   true,
	}

	got := merge.ApplyPlaytime(e, rec)

	assert.Equal(t, "42", got.MyTimeBeat)
	assert.Equal(t, "March 1, 2024", got.LastLaunchDate)
	assert.Equal(t, catalog.StatusDropped, got.Status)
}

func TestApplyPlaytimeNeverDemotesCompleted(t *testing.T) {
	e := catalog.Entry{Name: "Celeste", Status: catalog.StatusCompleted}
	rec := sources.PlaytimeRecord{Name: "Celeste", Hours: 12.5, Launched: true}

	got := merge.ApplyPlaytime(e, rec)

	assert.Equal(t, catalog.StatusCompleted, got.Status)
	assert.Equal(t, "12.5", got.MyTimeBeat)
}

func TestApplyPlaytimeResetsUntouchedTitle(t *testing.T) {
	e := catalog.Entry{
		Name:           "Backlog Game",
		Status:         catalog.StatusDropped,
		MyTimeBeat:     "3.5",
		LastLaunchDate: "May 2, 2023",
		AdditionalTime: catalog.NoneValue,
	}
	rec := sources.PlaytimeRecord{Name: "Backlog Game"}

	got := merge.ApplyPlaytime(e, rec)

	assert.Equal(t, catalog.NoneValue, got.MyTimeBeat)
	assert.Equal(t, catalog.SheetDateNotSet, got.LastLaunchDate)
	assert.Equal(t, catalog.StatusNotStarted, got.Status)
}

func TestApplyPlaytimePreservesManualTime(t *testing.T) {
	// Extra hours tracked by hand keep the row from being reset even when
	// the source reports zero playtime.
	e := catalog.Entry{
		Name:           "Switch Port",
		Status:         catalog.StatusDropped,
		MyTimeBeat:     "3.5",
		AdditionalTime: "10",
	}
	rec := sources.PlaytimeRecord{Name: "Switch Port"}

	got := merge.ApplyPlaytime(e, rec)

	assert.Equal(t, "3.5", got.MyTimeBeat)
	assert.Equal(t, catalog.StatusDropped, got.Status)
}

func TestApplyPlaytimeRoundsHours(t *testing.T) {
	e := catalog.Entry{Name: "Hades", Status: catalog.StatusNotStarted}
	rec := sources.PlaytimeRecord{Name: "Hades", Hours: 12.3456, Launched: true}

	got := merge.ApplyPlaytime(e, rec)

	assert.Equal(t, "12.35", got.MyTimeBeat)
}

func TestApplyReviewOverwritesRegardlessOfPriorContent(t *testing.T) {
	e := catalog.Entry{
		Name:          "Hades",
		ReleaseDate:   "January 1, 2000",
		PressScore:    "5.0",
		UserScore:     "5.0",
		MetacriticURL: "https://www.metacritic.com/game/old",
	}
	rec := sources.ReviewRecord{
		URL:         "https://www.metacritic.com/game/hades",
		ReleaseDate: "September 17, 2020",
		CriticScore: "9.3",
		UserScore:   "8.8",
	}

	got := merge.ApplyReview(e, rec)

	assert.Equal(t, "September 17, 2020", got.ReleaseDate)
	assert.Equal(t, "9.3", got.PressScore)
	assert.Equal(t, "8.8", got.UserScore)
	assert.Equal(t, "https://www.metacritic.com/game/hades", got.MetacriticURL)
}

func TestApplyReviewPreservesFieldsThePageLacked(t *testing.T) {
	e := catalog.Entry{
		Name:        "Hades",
		ReleaseDate: "September 17, 2020",
		PressScore:  "9.3",
	}
	rec := sources.ReviewRecord{URL: "https://www.metacritic.com/game/hades", UserScore: "8.8"}

	got := merge.ApplyReview(e, rec)

	assert.Equal(t, "September 17, 2020", got.ReleaseDate)
	assert.Equal(t, "9.3", got.PressScore)
	assert.Equal(t, "8.8", got.UserScore)
}

func TestApplyCompletion(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		rec      *sources.CompletionRecord
		mode     sources.Mode
		want     string
	}{
		{
			name:     "found overwrites",
			existing: "99", rec: &sources.CompletionRecord{Hours: 21.5},
			mode: sources.Full, want: "21.5",
		},
		{
			name:     "not found on empty field writes zero",
			existing: "", rec: nil,
			mode: sources.Full, want: "0",
		},
		{
			name:     "not found on populated field preserves value",
			existing: "21.5", rec: nil,
			mode: sources.Full, want: "21.5",
		},
		{
			name:     "partial not found writes zero",
			existing: "", rec: nil,
			mode: sources.Partial, want: "0",
		},
		{
			name:     "found with zero hours preserves value",
			existing: "21.5", rec: &sources.CompletionRecord{Hours: 0},
			mode: sources.Full, want: "21.5",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := catalog.Entry{Name: "Celeste", AvgTimeBeat: tt.existing}
			got := merge.ApplyCompletion(e, tt.rec, tt.mode)
			assert.Equal(t, tt.want, got.AvgTimeBeat)
		})
	}
}
