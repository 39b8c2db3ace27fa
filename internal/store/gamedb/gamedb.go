// Package gamedb is the read-only query surface over the rebuilt
// relational database. Writing is owned entirely by the rebuild engine;
// this package only answers the questions the surrounding bot/CLI layer
// asks (lookups, per-platform listings, aggregate figures).
package gamedb

import (
	"context"
	"database/sql"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/apetrov/gamelog/pkg/errors"
)

// Game is one row of the games table with its platform names resolved.
type Game struct {
	ID             string
	Name           string
	Status         string
	ReleaseDate    string
	PressScore     *float64
	UserScore      *float64
	MyScore        *float64
	MetacriticURL  string
	AvgTimeBeat    *float64
	TrailerURL     string
	MyTimeBeat     *float64
	LastLaunchDate string
	AdditionalTime *float64
	Platforms      []string
}

// DB reads the rebuilt database.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens the database at path. The file must already exist; a
// database that was never rebuilt is not silently created.
func Open(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.WrapIO("open database", path, err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.WrapIO("open database", path, err)
	}
	return &DB{db: db, path: path}, nil
}

// Close releases the underlying connection.
func (d *DB) Close() error {
	return d.db.Close()
}

const gameColumns = `g.id, g.name, s.name, g.release_date, g.press_score,
	g.user_score, g.my_score, g.metacritic_url, g.average_time_beat,
	g.trailer_url, g.my_time_beat, g.last_launch_date, g.additional_time`

// GameByName returns the game with the given display name.
func (d *DB) GameByName(ctx context.Context, name string) (*Game, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT `+gameColumns+`
		FROM games g
		JOIN status_dictionary s ON s.id = g.status_id
		WHERE g.name = ?`, name)

	game, err := scanGame(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("game", name)
	}
	if err != nil {
		return nil, err
	}
	if game.Platforms, err = d.platformsOf(ctx, game.ID); err != nil {
		return nil, err
	}
	return game, nil
}

// GamesOnPlatform lists all games linked to the given platform, in name
// order.
func (d *DB) GamesOnPlatform(ctx context.Context, platform string) ([]Game, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+gameColumns+`
		FROM games g
		JOIN status_dictionary s ON s.id = g.status_id
		JOIN games_on_platforms l ON l.game_id = g.id
		JOIN platform_dictionary p ON p.id = l.platform_id
		WHERE p.name = ?
		ORDER BY g.name`, platform)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, *game)
	}
	return games, rows.Err()
}

// CountByStatus returns how many games carry the given status.
func (d *DB) CountByStatus(ctx context.Context, status string) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM games g
		JOIN status_dictionary s ON s.id = g.status_id
		WHERE s.name = ?`, status).Scan(&n)
	return n, err
}

// TotalHoursPlayed sums personally measured playtime plus tracked extra
// time across the whole catalog.
func (d *DB) TotalHoursPlayed(ctx context.Context) (float64, error) {
	var hours float64
	err := d.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(COALESCE(my_time_beat, 0) + COALESCE(additional_time, 0)), 0)
		FROM games`).Scan(&hours)
	return hours, err
}

// Platforms lists the platform dictionary in surrogate-identifier order.
func (d *DB) Platforms(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT name FROM platform_dictionary ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// platformsOf resolves the platform names linked to one game.
func (d *DB) platformsOf(ctx context.Context, gameID string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT p.name FROM games_on_platforms l
		JOIN platform_dictionary p ON p.id = l.platform_id
		WHERE l.game_id = ?
		ORDER BY p.id`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanGame(s scanner) (*Game, error) {
	var g Game
	err := s.Scan(
		&g.ID, &g.Name, &g.Status, &g.ReleaseDate, &g.PressScore,
		&g.UserScore, &g.MyScore, &g.MetacriticURL, &g.AvgTimeBeat,
		&g.TrailerURL, &g.MyTimeBeat, &g.LastLaunchDate, &g.AdditionalTime,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}
