// Package sources defines the contracts between the synchronizer and the
// external record sources: the playtime library (Steam), the review
// aggregator (Metacritic) and the completion-time database
// (HowLongToBeat). Adapters fetch and normalize records; they never
// touch the tabular store.
//
// Failure contract: a transport or remote-side failure is returned as a
// *errors.SourceError (matching errors.ErrSourceUnavailable); a record
// that simply does not exist is errors.ErrNotFound, a normal outcome
// with a defined merge policy.
package sources

import (
	"context"
	"slices"
	"time"
)

// Kind identifies an external record source.
type Kind string

// Known source kinds.
const (
	// Steam is the library/playtime source.
	Steam Kind = "steam"
	// Metacritic is the review-aggregator source.
	Metacritic Kind = "metacritic"
	// HLTB is the completion-time source (howlongtobeat.com).
	HLTB Kind = "hltb"
)

// Kinds returns all known source kinds.
func Kinds() []Kind {
	return []Kind{Steam, Metacritic, HLTB}
}

// IsValid returns true if the kind is one of the defined constants.
func (k Kind) IsValid() bool {
	return slices.Contains(Kinds(), k)
}

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// Mode selects how much of the catalog a synchronization pass covers.
type Mode string

const (
	// Full processes every row.
	Full Mode = "full"
	// Partial processes only rows missing the target fields.
	Partial Mode = "partial"
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	return string(m)
}

// IsValid returns true if the mode is one of the defined constants.
func (m Mode) IsValid() bool {
	return m == Full || m == Partial
}

// PlaytimeRecord is one owned title from the playtime source.
type PlaytimeRecord struct {
	Name       string
	Hours      float64   // cumulative playtime
	LastPlayed time.Time // zero when the title was never launched
	Launched   bool      // true when the title was ever launched
}

// ReviewRecord is the normalized result of one review-aggregator fetch.
// CriticScore and UserScore are on the catalog's 0-10 scale; the adapter
// converts the aggregator's 0-100 critic scale before returning. Empty
// string fields mean the page did not carry the value.
type ReviewRecord struct {
	URL         string
	ReleaseDate string // catalog.SheetDateLayout
	CriticScore string
	UserScore   string
}

// CompletionRecord is the expected completion time of one title. A zero
// Hours value is a real answer; "unknown title" is errors.ErrNotFound
// from the adapter, never a zero record.
type CompletionRecord struct {
	Name  string
	Hours float64
}

// PlaytimeSource lists the titles owned by the configured account.
// Individual lookups are not supported; callers match against the bulk
// result by exact name.
type PlaytimeSource interface {
	FetchOwned(ctx context.Context) ([]PlaytimeRecord, error)
}

// ReviewSource fetches review-aggregator records either directly by a
// stored page URL or by name search, taking the first search hit.
type ReviewSource interface {
	FetchByURL(ctx context.Context, url string) (*ReviewRecord, error)
	SearchByName(ctx context.Context, name string) (*ReviewRecord, error)
}

// CompletionSource searches the completion-time database by name.
type CompletionSource interface {
	FetchByName(ctx context.Context, name string) (*CompletionRecord, error)
}
