package gamelog

import (
	"github.com/apetrov/gamelog/internal/config"
	"github.com/apetrov/gamelog/pkg/sources"
)

// options collects construction-time overrides.
type options struct {
	cfg        *config.Config
	playtime   sources.PlaytimeSource
	review     sources.ReviewSource
	completion sources.CompletionSource
}

// Option configures a Client.
type Option func(*options)

// WithConfig supplies a pre-loaded configuration instead of reading the
// environment and config files.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithPlaytimeSource overrides the playtime source adapter.
func WithPlaytimeSource(src sources.PlaytimeSource) Option {
	return func(o *options) { o.playtime = src }
}

// WithReviewSource overrides the review-aggregator source adapter.
func WithReviewSource(src sources.ReviewSource) Option {
	return func(o *options) { o.review = src }
}

// WithCompletionSource overrides the completion-time source adapter.
func WithCompletionSource(src sources.CompletionSource) Option {
	return func(o *options) { o.completion = src }
}
