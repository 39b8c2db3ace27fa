// Package catalog defines the game catalog data model shared by the
// tabular store, the merge policy, the synchronizer, and the rebuild
// engine. An Entry mirrors one row of the human-editable spreadsheet;
// numeric and date fields stay in their cell (string) form so the
// spreadsheet remains the source of truth and validation happens once,
// at rebuild time.
package catalog

import (
	"strconv"
	"strings"
	"time"

	"github.com/apetrov/gamelog/pkg/errors"
)

// Status is the completion status of a catalog entry.
type Status string

// Completion statuses as stored in the spreadsheet and the database.
const (
	StatusCompleted  Status = "Completed"
	StatusNotStarted Status = "Not Started"
	StatusDropped    Status = "Dropped"
)

// Statuses returns all valid statuses in dictionary order.
func Statuses() []Status {
	return []Status{StatusCompleted, StatusNotStarted, StatusDropped}
}

// IsValid returns true if the status is one of the defined constants.
func (s Status) IsValid() bool {
	switch s {
	case StatusCompleted, StatusNotStarted, StatusDropped:
		return true
	}
	return false
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Domain-level sentinel values persisted in the spreadsheet and database.
// They MUST NOT change without migrating existing data.
const (
	// NoneValue is the cell text meaning a numeric value is intentionally absent.
	NoneValue = "none"

	// SheetDateNotSet is the human-readable cell date meaning "no date set".
	SheetDateNotSet = "December 12, 4712"

	// DBDateNotSet is the database form of SheetDateNotSet.
	DBDateNotSet = "4712-12-12"
)

// SheetDateLayout is the date format used in spreadsheet cells.
const SheetDateLayout = "January 2, 2006"

// DBDateLayout is the date format used in the relational store.
const DBDateLayout = "2006-01-02"

// Entry is one game owned by the user: a single row of the tabular store.
// Name and ID are never empty once the entry is committed; every other
// field is optional.
type Entry struct {
	ID             string // stable identifier, immutable once assigned
	Name           string // display name
	Platforms      string // comma-separated platform names, e.g. "Steam,Switch"
	Status         Status
	ReleaseDate    string // SheetDateLayout
	PressScore     string // critic score, 0-10 scale
	UserScore      string // community score, 0-10 scale
	MyScore        string // personal rating
	MetacriticURL  string
	AvgTimeBeat    string // expected completion time, hours
	TrailerURL     string
	MyTimeBeat     string // personally measured completion time, hours
	LastLaunchDate string // SheetDateLayout
	AdditionalTime string // extra hours played outside the tracked platform
}

// NewEntry returns an entry for a freshly discovered title with the
// defaults the add-missing flow writes: Not Started, sentinel dates,
// absent personal values.
func NewEntry(name, platform string) Entry {
	return Entry{
		Name:           name,
		Platforms:      platform,
		Status:         StatusNotStarted,
		ReleaseDate:    SheetDateNotSet,
		MyScore:        NoneValue,
		MyTimeBeat:     NoneValue,
		LastLaunchDate: SheetDateNotSet,
		AdditionalTime: NoneValue,
	}
}

// PlatformList splits the Platforms cell into trimmed platform names.
func (e *Entry) PlatformList() []string {
	if strings.TrimSpace(e.Platforms) == "" {
		return nil
	}
	parts := strings.Split(e.Platforms, ",")
	platforms := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			platforms = append(platforms, p)
		}
	}
	return platforms
}

// OnPlatform reports whether the entry is tagged with the given platform,
// case-insensitively.
func (e *Entry) OnPlatform(platform string) bool {
	for _, p := range e.PlatformList() {
		if strings.EqualFold(p, platform) {
			return true
		}
	}
	return false
}

// Validate checks the invariants that must hold before an entry is
// committed to the tabular store.
func (e *Entry) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return errors.NewValidationError("game_name", e.Name, "display name must not be empty")
	}
	if !e.Status.IsValid() {
		return errors.NewValidationError("status", string(e.Status), "unknown status")
	}
	return nil
}

// Empty reports whether a cell value is blank (unset, as opposed to the
// explicit NoneValue sentinel).
func Empty(cell string) bool {
	return strings.TrimSpace(cell) == ""
}

// Absent reports whether a cell value is blank or carries the NoneValue
// sentinel.
func Absent(cell string) bool {
	return Empty(cell) || strings.TrimSpace(cell) == NoneValue
}

// ParseOptionalFloat parses a numeric cell. Blank and NoneValue cells
// yield (nil, nil); anything else must parse as a float.
func ParseOptionalFloat(cell string) (*float64, error) {
	s := strings.TrimSpace(cell)
	if s == "" || s == NoneValue {
		return nil, nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// FormatHours renders an hour count the way the spreadsheet stores it.
func FormatHours(hours float64) string {
	return strconv.FormatFloat(hours, 'f', -1, 64)
}

// ParseSheetDate parses a SheetDateLayout cell.
func ParseSheetDate(cell string) (time.Time, error) {
	return time.Parse(SheetDateLayout, strings.TrimSpace(cell))
}

// SheetDate renders a time in the spreadsheet date format.
func SheetDate(t time.Time) string {
	return t.Format(SheetDateLayout)
}

// EpochToSheetDate converts Unix seconds to the spreadsheet date format.
func EpochToSheetDate(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format(SheetDateLayout)
}

// SheetDateToDB converts a spreadsheet date cell to the database form.
// Blank cells map to DBDateNotSet.
func SheetDateToDB(cell string) (string, error) {
	s := strings.TrimSpace(cell)
	if s == "" || s == SheetDateNotSet {
		return DBDateNotSet, nil
	}
	t, err := time.Parse(SheetDateLayout, s)
	if err != nil {
		return "", err
	}
	return t.Format(DBDateLayout), nil
}
