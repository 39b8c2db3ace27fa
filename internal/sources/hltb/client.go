// Package hltb implements the completion-time source adapter over the
// howlongtobeat.com search API. Search is the only lookup the site
// offers; the best hit is chosen by name similarity, and an empty result
// set is ErrNotFound, kept distinct from a legitimate zero-hours answer.
package hltb

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/apetrov/gamelog/internal/transport"
	"github.com/apetrov/gamelog/pkg/errors"
	"github.com/apetrov/gamelog/pkg/logging"
	"github.com/apetrov/gamelog/pkg/similarity"
	"github.com/apetrov/gamelog/pkg/sources"
)

const defaultBaseURL = "https://howlongtobeat.com"

const searchPath = "/api/search"

// searchRequest mirrors the site's search API payload.
type searchRequest struct {
	SearchType    string        `json:"searchType"`
	SearchTerms   []string      `json:"searchTerms"`
	SearchPage    int           `json:"searchPage"`
	Size          int           `json:"size"`
	SearchOptions searchOptions `json:"searchOptions"`
}

type searchOptions struct {
	Games searchGames `json:"games"`
}

type searchGames struct {
	UserID       int    `json:"userId"`
	Platform     string `json:"platform"`
	SortCategory string `json:"sortCategory"`
}

// searchResponse mirrors the search API answer; comp_* figures are in
// seconds.
type searchResponse struct {
	Count int          `json:"count"`
	Data  []searchGame `json:"data"`
}

type searchGame struct {
	GameID   int64  `json:"game_id"`
	GameName string `json:"game_name"`
	CompMain int64  `json:"comp_main"`
	CompPlus int64  `json:"comp_plus"`
	Comp100  int64  `json:"comp_100"`
	CompAll  int64  `json:"comp_all"`
}

// Client implements sources.CompletionSource for howlongtobeat.com.
type Client struct {
	transport *transport.Client
	baseURL   string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the site host, used by tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTimeout overrides the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.transport.Configure(transport.WithTimeout(timeout))
	}
}

// New creates a HowLongToBeat client.
func New(opts ...Option) *Client {
	c := &Client{
		transport: transport.New(sources.HLTB.String(), transport.WithHeaders(http.Header{
			// The API answers 403 without a same-origin referer.
			"Referer":    []string{defaultBaseURL + "/"},
			"User-Agent": []string{"Mozilla/5.0 (Windows NT 10.0; Win64; x64)"},
		})),
		baseURL: defaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchByName searches for a title and returns its expected completion
// time. The best hit is the result whose name is most similar to the
// query; the main-story figure is preferred, falling back to
// completionist, main-plus-extras and all-styles.
func (c *Client) FetchByName(ctx context.Context, name string) (*sources.CompletionRecord, error) {
	req := searchRequest{
		SearchType:  "games",
		SearchTerms: strings.Fields(name),
		SearchPage:  1,
		Size:        20,
	}

	resp, err := c.transport.Post(ctx, c.baseURL+searchPath, req)
	if err != nil {
		return nil, err
	}

	var payload searchResponse
	if err := c.transport.DecodeResponse(resp, &payload); err != nil {
		return nil, err
	}

	if len(payload.Data) == 0 {
		return nil, errors.NewNotFoundError("howlongtobeat game", name)
	}

	best := payload.Data[0]
	bestScore := similarity.Similarity(name, best.GameName)
	for _, candidate := range payload.Data[1:] {
		if score := similarity.Similarity(name, candidate.GameName); score < bestScore {
			best, bestScore = candidate, score
		}
	}

	logging.Ctx(ctx).Debug().
		Str("query", name).
		Str("hit", best.GameName).
		Float64("score", bestScore).
		Msg("Picked search hit")

	return &sources.CompletionRecord{
		Name:  best.GameName,
		Hours: secondsToHours(firstPositive(best.CompMain, best.Comp100, best.CompPlus, best.CompAll)),
	}, nil
}

// firstPositive returns the first positive figure, or 0.
func firstPositive(values ...int64) int64 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

// secondsToHours converts API seconds to hours at spreadsheet precision.
func secondsToHours(seconds int64) float64 {
	return math.Round(float64(seconds)/3600*100) / 100
}
