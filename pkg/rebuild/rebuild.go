// Package rebuild implements the relational rebuild engine: it
// regenerates the SQLite database from the current tabular snapshot in
// one all-or-nothing pass. The rebuild validates every row, generates
// dictionary and data rows deterministically, loads everything into a
// scratch database file inside a single transaction, and atomically
// renames the scratch file over the previous database. Any failure
// leaves the previous database untouched; a malformed row is never
// silently skipped.
package rebuild

import (
	"context"
	"database/sql"
	"os"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/apetrov/gamelog/pkg/catalog"
	"github.com/apetrov/gamelog/pkg/errors"
	"github.com/apetrov/gamelog/pkg/logging"
)

// idNamespace seeds the deterministic identifiers generated for rows
// lacking one: the same name always yields the same identifier, which
// keeps rebuilds of an unchanged snapshot byte-identical.
var idNamespace = uuid.MustParse("8f0b1c9e-3d47-4a52-9c86-5b1f2ad90e74")

// schema is the full relational schema, recreated on every rebuild.
var schema = []string{
	`CREATE TABLE status_dictionary (
		id   INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE platform_dictionary (
		id   INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE games (
		id                TEXT PRIMARY KEY,
		name              TEXT NOT NULL UNIQUE,
		status_id         INTEGER NOT NULL REFERENCES status_dictionary(id),
		release_date      TEXT NOT NULL,
		press_score       REAL,
		user_score        REAL,
		my_score          REAL,
		metacritic_url    TEXT NOT NULL DEFAULT '',
		average_time_beat REAL,
		trailer_url       TEXT NOT NULL DEFAULT '',
		my_time_beat      REAL,
		last_launch_date  TEXT NOT NULL,
		additional_time   REAL
	)`,
	`CREATE TABLE games_on_platforms (
		game_id     TEXT NOT NULL REFERENCES games(id),
		platform_id INTEGER NOT NULL REFERENCES platform_dictionary(id),
		PRIMARY KEY (game_id, platform_id)
	)`,
}

// dropStatements removes every data and dictionary table; order respects
// foreign keys.
var dropStatements = []string{
	`DROP TABLE IF EXISTS games_on_platforms`,
	`DROP TABLE IF EXISTS games`,
	`DROP TABLE IF EXISTS platform_dictionary`,
	`DROP TABLE IF EXISTS status_dictionary`,
}

// Engine rebuilds the relational database from a tabular snapshot.
type Engine struct {
	dbPath    string
	statuses  []string
	platforms []string
}

// New creates a rebuild engine writing to dbPath. statuses and platforms
// are the configured dictionary enumerations; surrogate identifiers are
// assigned by first-seen order within each list.
func New(dbPath string, statuses, platforms []string) *Engine {
	return &Engine{
		dbPath:    dbPath,
		statuses:  dedupe(statuses),
		platforms: dedupe(platforms),
	}
}

// record is one validated games-table row.
type record struct {
	id             string
	name           string
	statusID       int
	releaseDate    string
	pressScore     *float64
	userScore      *float64
	myScore        *float64
	metacriticURL  string
	avgTimeBeat    *float64
	trailerURL     string
	myTimeBeat     *float64
	lastLaunchDate string
	additionalTime *float64
	platformIDs    []int
}

// Rebuild regenerates the database from the snapshot. The whole pass
// either completes, replacing the previous database file in one rename,
// or fails leaving it untouched.
func (e *Engine) Rebuild(ctx context.Context, entries []catalog.Entry) error {
	if len(e.statuses) == 0 {
		return errors.NewValidationError("statuses", nil, "status dictionary must not be empty")
	}
	if len(e.platforms) == 0 {
		return errors.NewValidationError("platforms", nil, "platform dictionary must not be empty")
	}

	statusIDs := dictionary(e.statuses)
	platformIDs := dictionary(e.platforms)

	records := make([]record, 0, len(entries))
	for i, entry := range entries {
		rec, err := validate(i+2, entry, statusIDs, platformIDs)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}

	scratch := e.dbPath + ".rebuild"
	if err := os.Remove(scratch); err != nil && !os.IsNotExist(err) {
		return errors.WrapIO("remove", scratch, err)
	}

	if err := e.load(ctx, scratch, records); err != nil {
		os.Remove(scratch)
		return err
	}
	if err := os.Rename(scratch, e.dbPath); err != nil {
		os.Remove(scratch)
		return errors.WrapIO("rename", scratch, err)
	}

	logging.Ctx(ctx).Info().
		Str("db", e.dbPath).
		Int("games", len(records)).
		Msg("Relational database rebuilt")
	return nil
}

// load creates the schema and inserts everything into the scratch file
// in one transaction.
func (e *Engine) load(ctx context.Context, path string, records []record) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return errors.WrapIO("open", path, err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapIO("begin transaction", path, err)
	}
	defer tx.Rollback()

	for _, stmt := range dropStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return &errors.SchemaError{Statement: stmt, Err: err}
		}
	}
	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return &errors.SchemaError{Statement: stmt, Err: err}
		}
	}

	const insertStatus = `INSERT INTO status_dictionary (id, name) VALUES (?, ?)`
	for i, name := range e.statuses {
		if _, err := tx.ExecContext(ctx, insertStatus, i+1, name); err != nil {
			return &errors.SchemaError{Statement: insertStatus, Err: err}
		}
	}
	const insertPlatform = `INSERT INTO platform_dictionary (id, name) VALUES (?, ?)`
	for i, name := range e.platforms {
		if _, err := tx.ExecContext(ctx, insertPlatform, i+1, name); err != nil {
			return &errors.SchemaError{Statement: insertPlatform, Err: err}
		}
	}

	insertGame, err := tx.PrepareContext(ctx, `INSERT INTO games (
		id, name, status_id, release_date, press_score, user_score,
		my_score, metacritic_url, average_time_beat, trailer_url,
		my_time_beat, last_launch_date, additional_time
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return &errors.SchemaError{Statement: "prepare insert games", Err: err}
	}
	defer insertGame.Close()

	insertLink, err := tx.PrepareContext(ctx, `INSERT INTO games_on_platforms (game_id, platform_id) VALUES (?, ?)`)
	if err != nil {
		return &errors.SchemaError{Statement: "prepare insert games_on_platforms", Err: err}
	}
	defer insertLink.Close()

	for _, rec := range records {
		if _, err := insertGame.ExecContext(ctx,
			rec.id, rec.name, rec.statusID, rec.releaseDate,
			optional(rec.pressScore), optional(rec.userScore), optional(rec.myScore),
			rec.metacriticURL, optional(rec.avgTimeBeat), rec.trailerURL,
			optional(rec.myTimeBeat), rec.lastLaunchDate, optional(rec.additionalTime),
		); err != nil {
			return &errors.DataError{Game: rec.name, Field: "games", Err: err}
		}
		for _, pid := range rec.platformIDs {
			if _, err := insertLink.ExecContext(ctx, rec.id, pid); err != nil {
				return &errors.DataError{Game: rec.name, Field: "games_on_platforms", Err: err}
			}
		}
	}

	return tx.Commit()
}

// validate converts one entry into a typed record, translating every
// malformed cell into a DataError naming the row.
func validate(row int, e catalog.Entry, statusIDs, platformIDs map[string]int) (record, error) {
	fail := func(field string, value any, err error) (record, error) {
		return record{}, &errors.DataError{Row: row, Game: e.Name, Field: field, Value: value, Err: err}
	}

	if catalog.Empty(e.Name) {
		return fail("game_name", e.Name, errors.ErrInvalidInput)
	}

	statusID, ok := statusIDs[string(e.Status)]
	if !ok {
		return fail("status", string(e.Status), errors.ErrInvalidInput)
	}

	platforms := e.PlatformList()
	if len(platforms) == 0 {
		return fail("platforms", e.Platforms, errors.ErrInvalidInput)
	}
	pids := make([]int, 0, len(platforms))
	for _, p := range platforms {
		pid, ok := platformIDs[p]
		if !ok {
			return fail("platforms", p, errors.ErrInvalidInput)
		}
		pids = append(pids, pid)
	}

	releaseDate, err := catalog.SheetDateToDB(e.ReleaseDate)
	if err != nil {
		return fail("release_date", e.ReleaseDate, err)
	}
	lastLaunch, err := catalog.SheetDateToDB(e.LastLaunchDate)
	if err != nil {
		return fail("last_launch_date", e.LastLaunchDate, err)
	}

	pressScore, err := catalog.ParseOptionalFloat(e.PressScore)
	if err != nil {
		return fail("press_score", e.PressScore, err)
	}
	userScore, err := catalog.ParseOptionalFloat(e.UserScore)
	if err != nil {
		return fail("user_score", e.UserScore, err)
	}
	myScore, err := catalog.ParseOptionalFloat(e.MyScore)
	if err != nil {
		return fail("my_score", e.MyScore, err)
	}
	avgTimeBeat, err := catalog.ParseOptionalFloat(e.AvgTimeBeat)
	if err != nil {
		return fail("average_time_beat", e.AvgTimeBeat, err)
	}
	myTimeBeat, err := catalog.ParseOptionalFloat(e.MyTimeBeat)
	if err != nil {
		return fail("my_time_beat", e.MyTimeBeat, err)
	}
	additionalTime, err := catalog.ParseOptionalFloat(e.AdditionalTime)
	if err != nil {
		return fail("additional_time", e.AdditionalTime, err)
	}

	id := strings.TrimSpace(e.ID)
	if id == "" {
		id = uuid.NewSHA1(idNamespace, []byte(strings.TrimSpace(e.Name))).String()
	}

	return record{
		id:             id,
		name:           strings.TrimSpace(e.Name),
		statusID:       statusID,
		releaseDate:    releaseDate,
		pressScore:     pressScore,
		userScore:      userScore,
		myScore:        myScore,
		metacriticURL:  e.MetacriticURL,
		avgTimeBeat:    avgTimeBeat,
		trailerURL:     e.TrailerURL,
		myTimeBeat:     myTimeBeat,
		lastLaunchDate: lastLaunch,
		additionalTime: additionalTime,
		platformIDs:    pids,
	}, nil
}

// dictionary assigns surrogate identifiers by first-seen order, starting
// at 1.
func dictionary(names []string) map[string]int {
	ids := make(map[string]int, len(names))
	for i, name := range names {
		ids[name] = i + 1
	}
	return ids
}

// dedupe keeps the first occurrence of each name, preserving order.
func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// optional converts a nullable float into its SQL argument.
func optional(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
