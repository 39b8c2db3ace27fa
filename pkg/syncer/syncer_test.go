package syncer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apetrov/gamelog/pkg/catalog"
	"github.com/apetrov/gamelog/pkg/errors"
	"github.com/apetrov/gamelog/pkg/sources"
)

// fakeStore is an in-memory Store keeping rows in insertion order.
type fakeStore struct {
	rows    []catalog.Entry
	writes  []string
	flushes int
	rowsErr error
}

func (f *fakeStore) Rows() ([]catalog.Entry, error) {
	if f.rowsErr != nil {
		return nil, f.rowsErr
	}
	out := make([]catalog.Entry, len(f.rows))
	copy(out, f.rows)
	return out, nil
}

func (f *fakeStore) FindByName(name string) (catalog.Entry, error) {
	for _, e := range f.rows {
		if e.Name == name {
			return e, nil
		}
	}
	return catalog.Entry{}, errors.NewNotFoundError("game", name)
}

func (f *fakeStore) Write(e catalog.Entry) error {
	f.writes = append(f.writes, e.Name)
	for i, row := range f.rows {
		if row.Name == e.Name {
			f.rows[i] = e
			return nil
		}
	}
	f.rows = append(f.rows, e)
	return nil
}

func (f *fakeStore) Flush() error {
	f.flushes++
	return nil
}

func (f *fakeStore) byName(t *testing.T, name string) catalog.Entry {
	t.Helper()
	e, err := f.FindByName(name)
	require.NoError(t, err)
	return e
}

type fakePlaytime struct {
	records []sources.PlaytimeRecord
	err     error
	calls   int
}

func (f *fakePlaytime) FetchOwned(ctx context.Context) ([]sources.PlaytimeRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

type fakeReviews struct {
	byURL    map[string]*sources.ReviewRecord
	byName   map[string]*sources.ReviewRecord
	failures map[string]error
	urlCalls []string
	searches []string
}

func (f *fakeReviews) FetchByURL(ctx context.Context, url string) (*sources.ReviewRecord, error) {
	f.urlCalls = append(f.urlCalls, url)
	if err, ok := f.failures[url]; ok {
		return nil, err
	}
	if rec, ok := f.byURL[url]; ok {
		return rec, nil
	}
	return nil, errors.NewNotFoundError("game page", url)
}

func (f *fakeReviews) SearchByName(ctx context.Context, name string) (*sources.ReviewRecord, error) {
	f.searches = append(f.searches, name)
	if err, ok := f.failures[name]; ok {
		return nil, err
	}
	if rec, ok := f.byName[name]; ok {
		return rec, nil
	}
	return nil, errors.NewNotFoundError("game", name)
}

type fakeCompletion struct {
	records  map[string]*sources.CompletionRecord
	failures map[string]error
}

func (f *fakeCompletion) FetchByName(ctx context.Context, name string) (*sources.CompletionRecord, error) {
	if err, ok := f.failures[name]; ok {
		return nil, err
	}
	if rec, ok := f.records[name]; ok {
		return rec, nil
	}
	return nil, errors.NewNotFoundError("game", name)
}

func entry(name string, mutate func(*catalog.Entry)) catalog.Entry {
	e := catalog.NewEntry(name, "PC")
	if mutate != nil {
		mutate(&e)
	}
	return e
}

func TestSynchronizeValidatesInput(t *testing.T) {
	s := New(&fakeStore{})

	_, err := s.Synchronize(context.Background(), "gog", sources.Full, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = s.Synchronize(context.Background(), sources.Steam, "half", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestSynchronizeReviewsFullMode(t *testing.T) {
	store := &fakeStore{rows: []catalog.Entry{
		entry("Hades", nil),
		entry("Celeste", func(e *catalog.Entry) {
			e.MetacriticURL = "https://www.metacritic.com/game/celeste/"
		}),
	}}
	reviews := &fakeReviews{
		byName: map[string]*sources.ReviewRecord{
			"Hades": {URL: "https://www.metacritic.com/game/hades/", CriticScore: "9.3", UserScore: "8.9"},
		},
		byURL: map[string]*sources.ReviewRecord{
			"https://www.metacritic.com/game/celeste/": {CriticScore: "9.4"},
		},
	}
	s := New(store, WithReviewSource(reviews))

	summary, err := s.Synchronize(context.Background(), sources.Metacritic, sources.Full, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Updated)
	assert.Zero(t, summary.Failed)
	assert.Equal(t, 1, store.flushes)

	// Stored page URL wins over name search.
	assert.Equal(t, []string{"https://www.metacritic.com/game/celeste/"}, reviews.urlCalls)
	assert.Equal(t, []string{"Hades"}, reviews.searches)

	assert.Equal(t, "9.3", store.byName(t, "Hades").PressScore)
	assert.Equal(t, "9.4", store.byName(t, "Celeste").PressScore)
}

func TestSynchronizeReviewsPartialSkipsPopulated(t *testing.T) {
	store := &fakeStore{rows: []catalog.Entry{
		entry("Hades", func(e *catalog.Entry) {
			e.PressScore = "9.3"
			e.UserScore = "8.9"
		}),
		entry("Celeste", func(e *catalog.Entry) {
			e.PressScore = "9.4" // user score still missing
		}),
	}}
	reviews := &fakeReviews{
		byName: map[string]*sources.ReviewRecord{
			"Celeste": {UserScore: "8.8"},
		},
	}
	s := New(store, WithReviewSource(reviews))

	summary, err := s.Synchronize(context.Background(), sources.Metacritic, sources.Partial, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, []string{"Celeste"}, reviews.searches)
	assert.Equal(t, "8.8", store.byName(t, "Celeste").UserScore)
}

func TestSynchronizeReviewsNotFoundKeepsRow(t *testing.T) {
	store := &fakeStore{rows: []catalog.Entry{
		entry("Obscure Title", func(e *catalog.Entry) {
			e.PressScore = "7.0"
		}),
	}}
	s := New(store, WithReviewSource(&fakeReviews{}))

	summary, err := s.Synchronize(context.Background(), sources.Metacritic, sources.Full, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.NotFound)
	assert.Zero(t, summary.Updated)
	assert.Empty(t, store.writes)
	assert.Equal(t, "7.0", store.byName(t, "Obscure Title").PressScore)
}

func TestSynchronizeReviewsSourceFailureContinues(t *testing.T) {
	store := &fakeStore{rows: []catalog.Entry{
		entry("Hades", nil),
		entry("Celeste", nil),
	}}
	reviews := &fakeReviews{
		failures: map[string]error{
			"Hades": errors.NewSourceError("metacritic", "/search", "bad gateway", nil),
		},
		byName: map[string]*sources.ReviewRecord{
			"Celeste": {CriticScore: "9.4"},
		},
	}
	s := New(store, WithReviewSource(reviews))

	summary, err := s.Synchronize(context.Background(), sources.Metacritic, sources.Full, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, "9.4", store.byName(t, "Celeste").PressScore)
}

func TestSynchronizeNothingToSync(t *testing.T) {
	store := &fakeStore{rows: []catalog.Entry{
		entry("Hades", func(e *catalog.Entry) {
			e.PressScore = "9.3"
			e.UserScore = "8.9"
		}),
	}}
	s := New(store, WithReviewSource(&fakeReviews{}))

	_, err := s.Synchronize(context.Background(), sources.Metacritic, sources.Partial, 0)
	assert.True(t, errors.Is(err, errors.ErrNothingToSync))
}

func TestSynchronizeRowCap(t *testing.T) {
	store := &fakeStore{rows: []catalog.Entry{
		entry("A", nil),
		entry("B", nil),
		entry("C", nil),
	}}
	reviews := &fakeReviews{byName: map[string]*sources.ReviewRecord{
		"A": {CriticScore: "8.0"},
		"B": {CriticScore: "8.1"},
		"C": {CriticScore: "8.2"},
	}}
	s := New(store, WithReviewSource(reviews))

	summary, err := s.Synchronize(context.Background(), sources.Metacritic, sources.Full, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Updated)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, []string{"A", "B"}, reviews.searches)
}

func TestSynchronizeCompletionWritesHours(t *testing.T) {
	store := &fakeStore{rows: []catalog.Entry{entry("Hades", nil)}}
	completion := &fakeCompletion{records: map[string]*sources.CompletionRecord{
		"Hades": {Name: "Hades", Hours: 21.5},
	}}
	s := New(store, WithCompletionSource(completion))

	summary, err := s.Synchronize(context.Background(), sources.HLTB, sources.Full, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, "21.5", store.byName(t, "Hades").AvgTimeBeat)
}

func TestSynchronizeCompletionNotFound(t *testing.T) {
	store := &fakeStore{rows: []catalog.Entry{
		entry("Obscure Title", nil),
		entry("Known Title", func(e *catalog.Entry) {
			e.AvgTimeBeat = "30"
		}),
	}}
	s := New(store, WithCompletionSource(&fakeCompletion{}))

	// Full mode: the empty field gets the "0" marker, the populated one
	// keeps its value.
	summary, err := s.Synchronize(context.Background(), sources.HLTB, sources.Full, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.NotFound)
	assert.Equal(t, "0", store.byName(t, "Obscure Title").AvgTimeBeat)
	assert.Equal(t, "30", store.byName(t, "Known Title").AvgTimeBeat)
}

// timedCompletion records when each fetch happens.
type timedCompletion struct {
	fakeCompletion
	calls []time.Time
}

func (f *timedCompletion) FetchByName(ctx context.Context, name string) (*sources.CompletionRecord, error) {
	f.calls = append(f.calls, time.Now())
	return f.fakeCompletion.FetchByName(ctx, name)
}

func TestSynchronizeDelaysBetweenRequests(t *testing.T) {
	const delay = 100 * time.Millisecond

	store := &fakeStore{rows: []catalog.Entry{
		entry("Hades", nil),
		entry("Celeste", nil),
		entry("Inside", nil),
	}}
	completion := &timedCompletion{fakeCompletion: fakeCompletion{records: map[string]*sources.CompletionRecord{
		"Hades":   {Name: "Hades", Hours: 21.5},
		"Celeste": {Name: "Celeste", Hours: 8},
		"Inside":  {Name: "Inside", Hours: 3.5},
	}}}
	s := New(store, WithCompletionSource(completion), WithDelay(delay))

	start := time.Now()
	_, err := s.Synchronize(context.Background(), sources.HLTB, sources.Full, 0)
	require.NoError(t, err)
	require.Len(t, completion.calls, 3)

	// The first request goes out immediately, each later one waits out
	// the configured delay.
	assert.Less(t, completion.calls[0].Sub(start), delay)
	assert.GreaterOrEqual(t, completion.calls[1].Sub(start), delay)
	assert.GreaterOrEqual(t, completion.calls[2].Sub(start), 2*delay)
}

func TestSynchronizePlaytime(t *testing.T) {
	store := &fakeStore{rows: []catalog.Entry{
		entry("Hades", func(e *catalog.Entry) { e.Platforms = "Steam" }),
		entry("Celeste", func(e *catalog.Entry) { e.Platforms = "Steam, Switch" }),
		entry("Bloodborne", func(e *catalog.Entry) { e.Platforms = "PS4" }),
	}}
	playtime := &fakePlaytime{records: []sources.PlaytimeRecord{
		{Name: "Hades", Hours: 80.5, LastPlayed: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Launched: true},
		{Name: "Clestee", Hours: 2, Launched: true}, // close to a catalog row
		{Name: "Vampire Survivors", Hours: 12, Launched: true},
	}}
	s := New(store, WithPlaytimeSource(playtime))

	summary, err := s.Synchronize(context.Background(), sources.Steam, sources.Full, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Updated)
	hades := store.byName(t, "Hades")
	assert.Equal(t, "80.5", hades.MyTimeBeat)
	assert.Equal(t, "March 1, 2024", hades.LastLaunchDate)
	assert.Equal(t, catalog.StatusDropped, hades.Status)

	// Celeste is tagged Steam but absent from the bulk result.
	assert.Equal(t, []string{"Celeste"}, summary.Unmatched)
	assert.Equal(t, 1, summary.NotFound)

	// Bloodborne is not a Steam row, just skipped.
	assert.Equal(t, 1, summary.Skipped)

	// Both unmatched bulk records are reported; only the near-miss gets
	// a suggestion.
	assert.ElementsMatch(t, []string{"Clestee", "Vampire Survivors"}, summary.Missing)
	require.Len(t, summary.Suggestions, 1)
	assert.Equal(t, "Clestee", summary.Suggestions[0].Original)
	assert.Equal(t, "Celeste", summary.Suggestions[0].Closest)
}

func TestSynchronizePlaytimeBulkFailureFailsRun(t *testing.T) {
	store := &fakeStore{rows: []catalog.Entry{entry("Hades", nil)}}
	playtime := &fakePlaytime{err: errors.NewSourceError("steam", "/owned", "unavailable", nil)}
	s := New(store, WithPlaytimeSource(playtime))

	_, err := s.Synchronize(context.Background(), sources.Steam, sources.Full, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSourceUnavailable))
	assert.Empty(t, store.writes)
	assert.Zero(t, store.flushes)
}

func TestSynchronizeCancelledBetweenRows(t *testing.T) {
	store := &fakeStore{rows: []catalog.Entry{entry("Hades", nil)}}
	s := New(store, WithReviewSource(&fakeReviews{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Synchronize(ctx, sources.Metacritic, sources.Full, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.writes)
}

func TestCheckReportsWithoutWrites(t *testing.T) {
	store := &fakeStore{rows: []catalog.Entry{
		entry("Hades", func(e *catalog.Entry) { e.Platforms = "Steam" }),
		entry("Celeste", func(e *catalog.Entry) { e.Platforms = "Steam" }),
	}}
	playtime := &fakePlaytime{records: []sources.PlaytimeRecord{
		{Name: "Hades", Hours: 80, Launched: true},
		{Name: "Clestee", Hours: 2, Launched: true},
	}}
	s := New(store, WithPlaytimeSource(playtime))

	summary, err := s.Check(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Celeste"}, summary.Unmatched)
	assert.Equal(t, []string{"Clestee"}, summary.Missing)
	require.Len(t, summary.Suggestions, 1)
	assert.Equal(t, "Celeste", summary.Suggestions[0].Closest)
	assert.Empty(t, store.writes)
	assert.Zero(t, store.flushes)
}

func TestAddMissing(t *testing.T) {
	store := &fakeStore{}
	playtime := &fakePlaytime{records: []sources.PlaytimeRecord{
		{Name: "Hades", Hours: 80.5, LastPlayed: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Launched: true},
	}}
	s := New(store, WithPlaytimeSource(playtime))

	err := s.AddMissing(context.Background(), []string{"Hades", "Bloodborne"})
	require.NoError(t, err)
	require.Len(t, store.rows, 2)
	assert.Equal(t, 1, store.flushes)

	// Launched bulk record folds its playtime in.
	hades := store.byName(t, "Hades")
	assert.Equal(t, "80.5", hades.MyTimeBeat)
	assert.Equal(t, catalog.StatusDropped, hades.Status)

	// No bulk record: add-missing defaults stand.
	bb := store.byName(t, "Bloodborne")
	assert.Equal(t, catalog.StatusNotStarted, bb.Status)
	assert.Equal(t, catalog.NoneValue, bb.MyTimeBeat)
	assert.Equal(t, catalog.SheetDateNotSet, bb.LastLaunchDate)
}

func TestAddMissingEmptyList(t *testing.T) {
	s := New(&fakeStore{}, WithPlaytimeSource(&fakePlaytime{}))
	err := s.AddMissing(context.Background(), nil)
	assert.True(t, errors.Is(err, errors.ErrNothingToSync))
}
