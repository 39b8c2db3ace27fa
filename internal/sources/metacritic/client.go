// Package metacritic implements the review-aggregator source adapter.
// Game pages are scraped rather than fetched from an API: the critic
// score and release date come from the page's JSON-LD block, the
// community score from the score markup. Name search walks the search
// results page and takes the first game link.
package metacritic

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/net/html"

	"github.com/apetrov/gamelog/internal/transport"
	"github.com/apetrov/gamelog/pkg/catalog"
	"github.com/apetrov/gamelog/pkg/errors"
	"github.com/apetrov/gamelog/pkg/logging"
	"github.com/apetrov/gamelog/pkg/sources"
)

const defaultBaseURL = "https://www.metacritic.com"

// browserHeaders keeps the origin from answering 403 to non-browser
// user agents.
var browserHeaders = http.Header{
	"User-Agent": []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
			"AppleWebKit/537.36 (KHTML, like Gecko) " +
			"Chrome/120.0.0.0 Safari/537.36",
	},
	"Accept":          []string{"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
	"Accept-Language": []string{"en-US,en;q=0.9"},
}

// jsonLD is the subset of the page's structured data block we read.
type jsonLD struct {
	Type            string `json:"@type"`
	DatePublished   string `json:"datePublished"`
	AggregateRating struct {
		RatingValue json.Number `json:"ratingValue"`
	} `json:"aggregateRating"`
}

// Client implements sources.ReviewSource for metacritic.com.
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

// New creates a Metacritic client.
func New(opts ...Option) *Client {
	c := &Client{
		transport: transport.New(sources.Metacritic.String(), transport.WithHeaders(browserHeaders)),
		baseURL:   defaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchByURL scrapes a game page and returns its normalized record.
// A page that no longer exists is ErrNotFound, not a source failure.
func (c *Client) FetchByURL(ctx context.Context, pageURL string) (*sources.ReviewRecord, error) {
	resp, err := c.transport.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return nil, errors.NewNotFoundError("metacritic page", pageURL)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &errors.SourceError{
			Source:     sources.Metacritic.String(),
			StatusCode: resp.StatusCode,
			Endpoint:   pageURL,
			Message:    "unexpected status fetching game page",
		}
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, errors.WrapParse("html", pageURL, err)
	}

	rec := c.scrape(ctx, doc)
	rec.URL = pageURL
	return rec, nil
}

// SearchByName searches the site for a game and scrapes the first hit.
func (c *Client) SearchByName(ctx context.Context, name string) (*sources.ReviewRecord, error) {
	searchURL := c.baseURL + "/search/game/" + slugify(name) + "/results"
	resp, err := c.transport.Get(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	doc, parseErr := func() (*html.Node, error) {
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusOK {
			return nil, errors.NewNotFoundError("metacritic search result", name)
		}
		return html.Parse(resp.Body)
	}()
	if parseErr != nil {
		return nil, parseErr
	}

	gamePath := firstGameLink(doc)
	if gamePath == "" {
		return nil, errors.NewNotFoundError("metacritic search result", name)
	}

	pageURL := gamePath
	if strings.HasPrefix(gamePath, "/") {
		pageURL = c.baseURL + gamePath
	}
	logging.Ctx(ctx).Debug().Str("game", name).Str("url", pageURL).Msg("Resolved search hit")
	return c.FetchByURL(ctx, pageURL)
}

// scrape pulls release date, critic score and user score out of a parsed
// game page. Missing values stay empty; the merge policy preserves the
// row's existing cells for them.
func (c *Client) scrape(ctx context.Context, doc *html.Node) *sources.ReviewRecord {
	rec := &sources.ReviewRecord{}

	if raw := findJSONLD(doc); raw != "" {
		var ld jsonLD
		if err := json.Unmarshal([]byte(raw), &ld); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("Malformed JSON-LD block on game page")
		} else {
			rec.ReleaseDate = normalizeReleaseDate(ld.DatePublished)
			rec.CriticScore = convertCriticScore(ld.AggregateRating.RatingValue.String())
		}
	}

	rec.UserScore = findUserScore(doc)
	return rec
}

// findJSONLD returns the text of the first ld+json script element.
func findJSONLD(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "script" {
		for _, attr := range n.Attr {
			if attr.Key == "type" && attr.Val == "application/ld+json" {
				if n.FirstChild != nil {
					return n.FirstChild.Data
				}
				return ""
			}
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findJSONLD(child); found != "" {
			return found
		}
	}
	return ""
}

// findUserScore returns the community score from the first score element
// whose class marks it as a user score.
func findUserScore(n *html.Node) string {
	if n.Type == html.ElementNode {
		for _, attr := range n.Attr {
			if attr.Key != "class" {
				continue
			}
			class := strings.ToLower(attr.Val)
			if strings.Contains(class, "metascore_w user") || strings.Contains(class, "c-sitereviewscore_user") {
				score := strings.TrimSpace(nodeText(n))
				if score == "" || strings.EqualFold(score, "tbd") {
					return ""
				}
				if _, err := strconv.ParseFloat(score, 64); err == nil {
					return score
				}
			}
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findUserScore(child); found != "" {
			return found
		}
	}
	return ""
}

// firstGameLink returns the href of the first anchor pointing at a game
// page, skipping search and browse links.
func firstGameLink(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "a" {
		for _, attr := range n.Attr {
			if attr.Key != "href" {
				continue
			}
			href := attr.Val
			if !strings.Contains(href, "/game/") ||
				strings.Contains(href, "/search/") ||
				strings.Contains(href, "/browse/") {
				continue
			}
			if parts := strings.FieldsFunc(strings.TrimPrefix(href, "https://www.metacritic.com"),
				func(r rune) bool { return r == '/' }); len(parts) >= 2 {
				return href
			}
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := firstGameLink(child); found != "" {
			return found
		}
	}
	return ""
}

// nodeText concatenates the text content of a node's subtree.
func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		b.WriteString(nodeText(child))
	}
	return b.String()
}

// convertCriticScore converts the aggregator's 0-100 critic scale to the
// catalog's 0-10 scale.
func convertCriticScore(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "tbd" {
		return ""
	}
	score, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return ""
	}
	// Already on the 0-10 scale on some page variants.
	if score > 10 {
		score /= 10
	}
	return strconv.FormatFloat(score, 'f', 1, 64)
}

// releaseDateLayouts are the formats seen across page variants.
var releaseDateLayouts = []string{
	"2006-01-02",
	"Jan 2, 2006",
	catalog.SheetDateLayout,
}

// normalizeReleaseDate renders a page release date in the spreadsheet
// format; unparseable dates are dropped rather than written through.
func normalizeReleaseDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range releaseDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(catalog.SheetDateLayout)
		}
	}
	return ""
}

// slugify converts a game name into the search URL segment the site
// expects: lowercase, alphanumerics and single hyphens only.
func slugify(name string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
