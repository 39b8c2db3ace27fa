// Package syncer orchestrates synchronization passes over the tabular
// store: it selects candidate rows, queries the right source adapter,
// applies the merge policy, writes results back, and reports a per-run
// summary. Rows are processed strictly one at a time with a minimum
// delay between external calls; a single failing row never aborts the
// batch.
package syncer

import (
	"context"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/apetrov/gamelog/pkg/catalog"
	"github.com/apetrov/gamelog/pkg/errors"
	"github.com/apetrov/gamelog/pkg/logging"
	"github.com/apetrov/gamelog/pkg/merge"
	"github.com/apetrov/gamelog/pkg/similarity"
	"github.com/apetrov/gamelog/pkg/sources"
)

// Store is the tabular store accessor the synchronizer writes through.
// Implementations upsert by identifier or name and append new entries at
// the first empty row.
type Store interface {
	// Rows returns all committed rows in store order.
	Rows() ([]catalog.Entry, error)
	// FindByName returns the row with the given display name, or
	// errors.ErrNotFound.
	FindByName(name string) (catalog.Entry, error)
	// Write upserts a row.
	Write(e catalog.Entry) error
	// Flush persists pending writes to the backing file.
	Flush() error
}

// Summary is the structured result of one synchronization pass.
type Summary struct {
	Source   sources.Kind
	Mode     sources.Mode
	Updated  int
	Skipped  int
	NotFound int
	Failed   int

	// Missing lists bulk playtime records with no exactly-matching
	// catalog row (playtime runs only).
	Missing []string
	// Suggestions pairs missing bulk records with the closest catalog
	// row, for manual reconciliation (match and possible classes only).
	Suggestions []similarity.Suggestion
	// Unmatched lists catalog rows tagged with the playtime platform
	// that the bulk fetch did not return.
	Unmatched []string
}

// Synchronizer drives synchronization passes against one tabular store.
type Synchronizer struct {
	store      Store
	playtime   sources.PlaytimeSource
	review     sources.ReviewSource
	completion sources.CompletionSource
	matcher    *similarity.Matcher
	delay      time.Duration
	platform   string
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithPlaytimeSource sets the playtime (library) source adapter.
func WithPlaytimeSource(src sources.PlaytimeSource) Option {
	return func(s *Synchronizer) { s.playtime = src }
}

// WithReviewSource sets the review-aggregator source adapter.
func WithReviewSource(src sources.ReviewSource) Option {
	return func(s *Synchronizer) { s.review = src }
}

// WithCompletionSource sets the completion-time source adapter.
func WithCompletionSource(src sources.CompletionSource) Option {
	return func(s *Synchronizer) { s.completion = src }
}

// WithMatcher sets the similarity matcher used by the discovery pass.
func WithMatcher(m *similarity.Matcher) Option {
	return func(s *Synchronizer) { s.matcher = m }
}

// WithDelay sets the minimum delay between consecutive external calls.
// The delay is not applied before the first call.
func WithDelay(d time.Duration) Option {
	return func(s *Synchronizer) { s.delay = d }
}

// WithPlatformTag sets the catalog platform name tied to the playtime
// source. Defaults to "Steam".
func WithPlatformTag(platform string) Option {
	return func(s *Synchronizer) { s.platform = platform }
}

// New creates a Synchronizer over the given tabular store.
func New(store Store, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		store:    store,
		matcher:  similarity.NewMatcher(0, 0),
		platform: "Steam",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synchronize runs one pass for the given source kind and mode. rowCap
// bounds the number of processed rows when positive (the test-mode
// dry-run bound); zero means no cap. Zero eligible rows yield
// errors.ErrNothingToSync.
func (s *Synchronizer) Synchronize(ctx context.Context, kind sources.Kind, mode sources.Mode, rowCap int) (*Summary, error) {
	if !kind.IsValid() {
		return nil, errors.NewValidationError("source_kind", string(kind), "unknown source kind")
	}
	if !mode.IsValid() {
		return nil, errors.NewValidationError("mode", string(mode), "unknown sync mode")
	}

	rows, err := s.store.Rows()
	if err != nil {
		return nil, err
	}

	summary := &Summary{Source: kind, Mode: mode}

	candidates := make([]catalog.Entry, 0, len(rows))
	for _, row := range rows {
		if merge.Eligible(row, kind, mode) {
			candidates = append(candidates, row)
		} else if !catalog.Empty(row.Name) {
			summary.Skipped++
		}
	}
	if len(candidates) == 0 {
		return nil, errors.ErrNothingToSync
	}
	if rowCap > 0 && len(candidates) > rowCap {
		summary.Skipped += len(candidates) - rowCap
		candidates = candidates[:rowCap]
	}

	logging.Ctx(ctx).Info().
		Str("source", kind.String()).
		Str("mode", mode.String()).
		Int("candidates", len(candidates)).
		Msg("Starting synchronization pass")

	switch kind {
	case sources.Steam:
		err = s.syncPlaytime(ctx, rows, candidates, summary)
	case sources.Metacritic:
		err = s.syncReviews(ctx, candidates, mode, summary)
	case sources.HLTB:
		err = s.syncCompletion(ctx, candidates, mode, summary)
	}
	if err != nil {
		return nil, err
	}

	if err := s.store.Flush(); err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().
		Str("source", kind.String()).
		Int("updated", summary.Updated).
		Int("skipped", summary.Skipped).
		Int("not_found", summary.NotFound).
		Int("failed", summary.Failed).
		Msg("Synchronization pass finished")
	return summary, nil
}

// syncReviews processes review-aggregator candidates row by row: stored
// page URL preferred, name search as the fallback.
func (s *Synchronizer) syncReviews(ctx context.Context, candidates []catalog.Entry, _ sources.Mode, summary *Summary) error {
	if s.review == nil {
		return errors.NewValidationError("review_source", nil, "review source not configured")
	}

	limiter := s.limiter()
	for _, row := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}

		var rec *sources.ReviewRecord
		var err error
		if url := strings.TrimSpace(row.MetacriticURL); url != "" && strings.Contains(strings.ToLower(url), "metacritic.com") {
			rec, err = s.review.FetchByURL(ctx, url)
		} else {
			rec, err = s.review.SearchByName(ctx, row.Name)
		}

		switch {
		case err == nil:
			merged := merge.ApplyReview(row, *rec)
			if err := s.store.Write(merged); err != nil {
				return err
			}
			summary.Updated++
		case errors.Is(err, errors.ErrNotFound):
			// NotFound never clears populated review fields.
			summary.NotFound++
		case errors.Is(err, errors.ErrSourceUnavailable):
			logging.Ctx(ctx).Warn().Err(err).Str("game", row.Name).Msg("Review source unavailable for row")
			summary.Failed++
		default:
			return err
		}
	}
	return nil
}

// syncCompletion processes completion-time candidates row by row.
func (s *Synchronizer) syncCompletion(ctx context.Context, candidates []catalog.Entry, mode sources.Mode, summary *Summary) error {
	if s.completion == nil {
		return errors.NewValidationError("completion_source", nil, "completion source not configured")
	}

	limiter := s.limiter()
	for _, row := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}

		rec, err := s.completion.FetchByName(ctx, row.Name)
		switch {
		case err == nil:
			merged := merge.ApplyCompletion(row, rec, mode)
			if err := s.store.Write(merged); err != nil {
				return err
			}
			summary.Updated++
		case errors.Is(err, errors.ErrNotFound):
			merged := merge.ApplyCompletion(row, nil, mode)
			if err := s.store.Write(merged); err != nil {
				return err
			}
			summary.NotFound++
		case errors.Is(err, errors.ErrSourceUnavailable):
			logging.Ctx(ctx).Warn().Err(err).Str("game", row.Name).Msg("Completion source unavailable for row")
			summary.Failed++
		default:
			return err
		}
	}
	return nil
}

// syncPlaytime runs the bulk playtime pass: one fetch for the whole
// library, exact-name matching against catalog rows, and the discovery
// report for titles on either side without a counterpart. The bulk
// fetch failing fails the run; there are no per-row calls to degrade.
func (s *Synchronizer) syncPlaytime(ctx context.Context, rows, candidates []catalog.Entry, summary *Summary) error {
	if s.playtime == nil {
		return errors.NewValidationError("playtime_source", nil, "playtime source not configured")
	}

	records, err := s.playtime.FetchOwned(ctx)
	if err != nil {
		return err
	}

	byName := make(map[string]sources.PlaytimeRecord, len(records))
	for _, rec := range records {
		byName[strings.TrimSpace(rec.Name)] = rec
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if !catalog.Empty(row.Name) {
			names = append(names, row.Name)
		}
	}

	for _, row := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec, ok := byName[strings.TrimSpace(row.Name)]
		if !ok {
			if row.OnPlatform(s.platform) {
				summary.Unmatched = append(summary.Unmatched, row.Name)
				summary.NotFound++
			} else {
				summary.Skipped++
			}
			continue
		}

		merged := merge.ApplyPlaytime(row, rec)
		if err := s.store.Write(merged); err != nil {
			return err
		}
		summary.Updated++
	}

	// Discovery: bulk records with no exactly-matching row, each paired
	// with the closest row name for manual reconciliation. Report only,
	// no writes.
	matched := make(map[string]bool, len(rows))
	for _, row := range rows {
		matched[strings.TrimSpace(row.Name)] = true
	}
	for _, rec := range records {
		name := strings.TrimSpace(rec.Name)
		if matched[name] {
			continue
		}
		summary.Missing = append(summary.Missing, rec.Name)
		if suggestion := s.matcher.FindClosest(rec.Name, names); suggestion.Class != similarity.None {
			summary.Suggestions = append(summary.Suggestions, suggestion)
		}
	}
	return nil
}

// Check runs the playtime discovery pass without writing anything: it
// reports bulk records missing from the catalog (with closest-row
// suggestions) and catalog rows tagged with the playtime platform that
// the bulk fetch did not return.
func (s *Synchronizer) Check(ctx context.Context) (*Summary, error) {
	if s.playtime == nil {
		return nil, errors.NewValidationError("playtime_source", nil, "playtime source not configured")
	}

	rows, err := s.store.Rows()
	if err != nil {
		return nil, err
	}
	records, err := s.playtime.FetchOwned(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Source: sources.Steam, Mode: sources.Full}

	byName := make(map[string]bool, len(records))
	for _, rec := range records {
		byName[strings.TrimSpace(rec.Name)] = true
	}
	names := make([]string, 0, len(rows))
	rowNames := make(map[string]bool, len(rows))
	for _, row := range rows {
		if catalog.Empty(row.Name) {
			continue
		}
		names = append(names, row.Name)
		rowNames[strings.TrimSpace(row.Name)] = true
		if row.OnPlatform(s.platform) && !byName[strings.TrimSpace(row.Name)] {
			summary.Unmatched = append(summary.Unmatched, row.Name)
		}
	}
	for _, rec := range records {
		if rowNames[strings.TrimSpace(rec.Name)] {
			continue
		}
		summary.Missing = append(summary.Missing, rec.Name)
		if suggestion := s.matcher.FindClosest(rec.Name, names); suggestion.Class != similarity.None {
			summary.Suggestions = append(summary.Suggestions, suggestion)
		}
	}
	return summary, nil
}

// AddMissing appends rows for the named titles with the add-missing
// defaults, applying the playtime merge when the bulk record shows the
// title was ever launched.
func (s *Synchronizer) AddMissing(ctx context.Context, names []string) error {
	if s.playtime == nil {
		return errors.NewValidationError("playtime_source", nil, "playtime source not configured")
	}
	if len(names) == 0 {
		return errors.ErrNothingToSync
	}

	records, err := s.playtime.FetchOwned(ctx)
	if err != nil {
		return err
	}
	byName := make(map[string]sources.PlaytimeRecord, len(records))
	for _, rec := range records {
		byName[strings.TrimSpace(rec.Name)] = rec
	}

	for _, name := range names {
		entry := catalog.NewEntry(name, s.platform)
		if rec, ok := byName[strings.TrimSpace(name)]; ok && rec.Launched {
			entry = merge.ApplyPlaytime(entry, rec)
		}
		if err := entry.Validate(); err != nil {
			return err
		}
		if err := s.store.Write(entry); err != nil {
			return err
		}
		logging.Ctx(ctx).Info().Str("game", name).Msg("Added missing catalog entry")
	}
	return s.store.Flush()
}

// limiter builds the per-run rate limiter enforcing the inter-request
// delay. The initial token makes the first call immediate.
func (s *Synchronizer) limiter() *rate.Limiter {
	if s.delay <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(s.delay), 1)
}
