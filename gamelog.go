// Package gamelog maintains a personal game catalog: a spreadsheet as
// the human-editable source of truth, synchronized against external
// sources (Steam playtime, Metacritic reviews, HowLongToBeat completion
// times) and compiled into a relational SQLite database on demand.
package gamelog

import (
	"context"

	"github.com/apetrov/gamelog/internal/config"
	"github.com/apetrov/gamelog/internal/sources/hltb"
	"github.com/apetrov/gamelog/internal/sources/metacritic"
	"github.com/apetrov/gamelog/internal/sources/steam"
	"github.com/apetrov/gamelog/internal/store/sheet"
	"github.com/apetrov/gamelog/pkg/rebuild"
	"github.com/apetrov/gamelog/pkg/similarity"
	"github.com/apetrov/gamelog/pkg/sources"
	"github.com/apetrov/gamelog/pkg/syncer"
)

// Client is the facade over the catalog: one open workbook, the three
// source adapters, and the rebuild engine. It is not safe for concurrent
// use; the surrounding layer serializes access.
type Client struct {
	cfg    *config.Config
	store  *sheet.Store
	sync   *syncer.Synchronizer
	engine *rebuild.Engine
}

// New opens the configured workbook and wires the synchronizer and
// rebuild engine. Steam credentials are only required once a playtime
// operation is invoked.
func New(opts ...Option) (*Client, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	cfg := o.cfg
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := sheet.Open(cfg.WorkbookPath)
	if err != nil {
		return nil, err
	}

	playtime := o.playtime
	if playtime == nil && cfg.RequireSteam() == nil {
		playtime = steam.New(cfg.SteamAPIKey, cfg.SteamID, steam.WithTimeout(cfg.HTTPTimeout))
	}
	review := o.review
	if review == nil {
		review = metacritic.New(metacritic.WithTimeout(cfg.HTTPTimeout))
	}
	completion := o.completion
	if completion == nil {
		completion = hltb.New(hltb.WithTimeout(cfg.HTTPTimeout))
	}

	syncOpts := []syncer.Option{
		syncer.WithReviewSource(review),
		syncer.WithCompletionSource(completion),
		syncer.WithMatcher(similarity.NewMatcher(cfg.MatchMax, cfg.PossibleMax)),
		syncer.WithDelay(cfg.RequestDelay),
	}
	if playtime != nil {
		syncOpts = append(syncOpts, syncer.WithPlaytimeSource(playtime))
	}

	return &Client{
		cfg:    cfg,
		store:  store,
		sync:   syncer.New(store, syncOpts...),
		engine: rebuild.New(cfg.DatabasePath, cfg.Statuses, cfg.Platforms),
	}, nil
}

// Sync runs one synchronization pass. rowCap bounds the number of
// processed rows when positive (the test-run bound from configuration);
// zero processes every eligible row.
func (c *Client) Sync(ctx context.Context, kind sources.Kind, mode sources.Mode, rowCap int) (*syncer.Summary, error) {
	if kind == sources.Steam {
		if err := c.cfg.RequireSteam(); err != nil {
			return nil, err
		}
	}
	return c.sync.Synchronize(ctx, kind, mode, rowCap)
}

// Check runs the playtime discovery pass: it reports Steam library
// titles missing from the catalog (with closest-row suggestions) and
// catalog rows tagged Steam that the library no longer lists. No writes.
func (c *Client) Check(ctx context.Context) (*syncer.Summary, error) {
	if err := c.cfg.RequireSteam(); err != nil {
		return nil, err
	}
	return c.sync.Check(ctx)
}

// AddMissing appends catalog rows for the named Steam titles with the
// new-entry defaults, folding in playtime for titles already launched.
func (c *Client) AddMissing(ctx context.Context, names []string) error {
	if err := c.cfg.RequireSteam(); err != nil {
		return err
	}
	return c.sync.AddMissing(ctx, names)
}

// Rebuild regenerates the relational database from the current workbook
// contents. All-or-nothing: a failed rebuild leaves the previous
// database file untouched.
func (c *Client) Rebuild(ctx context.Context) error {
	entries, err := c.store.Rows()
	if err != nil {
		return err
	}
	return c.engine.Rebuild(ctx, entries)
}

// TestRowCap returns the configured bound for test runs.
func (c *Client) TestRowCap() int {
	return c.cfg.TestRowCap
}

// DatabasePath returns the configured relational database location.
func (c *Client) DatabasePath() string {
	return c.cfg.DatabasePath
}

// Close releases the open workbook without saving pending writes;
// synchronization passes flush before returning.
func (c *Client) Close() error {
	return c.store.Close()
}
