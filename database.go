package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Player is a registered account. Its rowid doubles as the engine's actor id.
type Player struct {
	ID         int64  `db:"id"`
	Name       string `db:"name"`
	SecretCode string `db:"secret_code"`
}

// ActorID is the id the game engine knows this player by.
func (p Player) ActorID() string {
	return strconv.FormatInt(p.ID, 10)
}

// PlayerStats is one leaderboard row.
type PlayerStats struct {
	Name   string `db:"name" json:"name"`
	Games  int    `db:"games" json:"games"`
	Wins   int    `db:"wins" json:"wins"`
	Losses int    `db:"losses" json:"losses"`
}

// Store persists accounts, sessions and per-player results. It is the
// engine's StatsSink.
type Store struct {
	db     *sqlx.DB
	logger *AppLogger
}

func openStore(dsn string, logger *AppLogger) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("openStore: connect: %w", err)
	}
	s := &Store{db: db, logger: logger}
	if err := s.initDB(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initDB() error {
	schema := `
	PRAGMA journal_mode=WAL;

	CREATE TABLE IF NOT EXISTS player (
		name TEXT UNIQUE NOT NULL,
		secret_code TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS session (
		token INTEGER PRIMARY KEY,
		player_id INTEGER NOT NULL,
		FOREIGN KEY (player_id) REFERENCES player(rowid)
	);
	CREATE TABLE IF NOT EXISTS player_stats (
		actor_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		games INTEGER NOT NULL DEFAULT 0,
		wins INTEGER NOT NULL DEFAULT 0,
		losses INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_player_stats_wins ON player_stats(wins DESC, games ASC);
	`
	if _, err := s.db.Exec(schema); err != nil {
		log.Printf("initDB error: %v", err)
		return err
	}
	log.Printf("Database initialized successfully")
	return nil
}

// ErrNameTaken is returned by createPlayer for a name already registered.
var ErrNameTaken = errors.New("name already taken")

func (s *Store) createPlayer(name, secretCode string) (Player, error) {
	var existing Player
	err := s.db.Get(&existing, "SELECT rowid as id, name, secret_code FROM player WHERE name = ?", name)
	if err == nil {
		return Player{}, ErrNameTaken
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Player{}, fmt.Errorf("createPlayer: get: %w", err)
	}
	result, err := s.db.Exec("INSERT INTO player (name, secret_code) VALUES (?, ?)", name, secretCode)
	if err != nil {
		return Player{}, fmt.Errorf("createPlayer: insert: %w", err)
	}
	id, _ := result.LastInsertId()
	return Player{ID: id, Name: name, SecretCode: secretCode}, nil
}

func (s *Store) playerByCredentials(name, secretCode string) (Player, error) {
	var p Player
	err := s.db.Get(&p, "SELECT rowid as id, name, secret_code FROM player WHERE name = ? AND secret_code = ?", name, secretCode)
	return p, err
}

func (s *Store) playerByID(id int64) (Player, error) {
	var p Player
	err := s.db.Get(&p, "SELECT rowid as id, name, secret_code FROM player WHERE rowid = ?", id)
	return p, err
}

func (s *Store) createSession(token, playerID int64) error {
	_, err := s.db.Exec("INSERT INTO session (token, player_id) VALUES (?, ?)", token, playerID)
	return err
}

func (s *Store) playerForSession(token int64) (Player, error) {
	var p Player
	err := s.db.Get(&p, `
		SELECT p.rowid as id, p.name, p.secret_code
		FROM session s JOIN player p ON s.player_id = p.rowid
		WHERE s.token = ?`, token)
	return p, err
}

func (s *Store) deleteSession(token int64) error {
	_, err := s.db.Exec("DELETE FROM session WHERE token = ?", token)
	return err
}

// RecordOutcome adds one finished game to actorID's totals.
func (s *Store) RecordOutcome(ctx context.Context, actorID, name string, won bool) error {
	win, loss := 0, 1
	if won {
		win, loss = 1, 0
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO player_stats (actor_id, name, games, wins, losses)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(actor_id) DO UPDATE SET
			name = excluded.name,
			games = games + 1,
			wins = wins + excluded.wins,
			losses = losses + excluded.losses`,
		actorID, name, win, loss)
	if err != nil {
		return fmt.Errorf("RecordOutcome: %s: %w", actorID, err)
	}
	s.logger.DumpDB("after RecordOutcome: " + name)
	return nil
}

// Leaderboard returns the top limit players by wins, fewer games first.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]PlayerStats, error) {
	var rows []PlayerStats
	err := s.db.SelectContext(ctx, &rows, `
		SELECT name, games, wins, losses
		FROM player_stats
		ORDER BY wins DESC, games ASC, name ASC
		LIMIT ?`, limit)
	return rows, err
}
