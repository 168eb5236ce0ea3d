package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Tables only
// 1 - Triggers maintaining contests.data_revision and events.data_revision
const currentSchemaVersion = 1

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Store is the SQLite-backed entity store for contests.
// Uses WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// revisionTriggers bump the data revision of the affected contest (and
// event) whenever data a scheduling or tabulation run reads changes.
// Placement write-back touches only placement_for_this_judge and is not
// listed among the score content columns, so tabulating never invalidates
// itself.
var revisionTriggers = []string{
	// registrations
	`CREATE TRIGGER IF NOT EXISTS trg_registrations_ins AFTER INSERT ON registrations BEGIN
		UPDATE events SET data_revision = data_revision + 1 WHERE id = NEW.event_id;
		UPDATE contests SET data_revision = data_revision + 1
		WHERE id = (SELECT contest_id FROM events WHERE id = NEW.event_id);
	END`,
	`CREATE TRIGGER IF NOT EXISTS trg_registrations_upd AFTER UPDATE ON registrations BEGIN
		UPDATE events SET data_revision = data_revision + 1 WHERE id IN (OLD.event_id, NEW.event_id);
		UPDATE contests SET data_revision = data_revision + 1
		WHERE id IN (SELECT contest_id FROM events WHERE id IN (OLD.event_id, NEW.event_id));
	END`,
	`CREATE TRIGGER IF NOT EXISTS trg_registrations_del AFTER DELETE ON registrations BEGIN
		UPDATE events SET data_revision = data_revision + 1 WHERE id = OLD.event_id;
		UPDATE contests SET data_revision = data_revision + 1
		WHERE id = (SELECT contest_id FROM events WHERE id = OLD.event_id);
	END`,

	// scores: content only
	`CREATE TRIGGER IF NOT EXISTS trg_scores_ins AFTER INSERT ON scores BEGIN
		UPDATE events SET data_revision = data_revision + 1 WHERE id = NEW.event_id;
	END`,
	`CREATE TRIGGER IF NOT EXISTS trg_scores_upd AFTER UPDATE OF
		event_id, participant_id, judge_id, raw_score, drops, two_hand, falls, breaks,
		time_seconds, no_salute, improper_salute
	ON scores BEGIN
		UPDATE events SET data_revision = data_revision + 1 WHERE id IN (OLD.event_id, NEW.event_id);
	END`,
	`CREATE TRIGGER IF NOT EXISTS trg_scores_del AFTER DELETE ON scores BEGIN
		UPDATE events SET data_revision = data_revision + 1 WHERE id = OLD.event_id;
	END`,

	// events
	`CREATE TRIGGER IF NOT EXISTS trg_events_ins AFTER INSERT ON events BEGIN
		UPDATE contests SET data_revision = data_revision + 1 WHERE id = NEW.contest_id;
	END`,
	`CREATE TRIGGER IF NOT EXISTS trg_events_upd AFTER UPDATE OF
		contest_id, event_type, status_level, age_division, age_min, age_max,
		time_min_seconds, time_max_seconds
	ON events BEGIN
		UPDATE contests SET data_revision = data_revision + 1 WHERE id IN (OLD.contest_id, NEW.contest_id);
	END`,
	`CREATE TRIGGER IF NOT EXISTS trg_events_del AFTER DELETE ON events BEGIN
		UPDATE contests SET data_revision = data_revision + 1 WHERE id = OLD.contest_id;
	END`,

	// lane_judges
	`CREATE TRIGGER IF NOT EXISTS trg_lane_judges_ins AFTER INSERT ON lane_judges BEGIN
		UPDATE contests SET data_revision = data_revision + 1 WHERE id = NEW.contest_id;
	END`,
	`CREATE TRIGGER IF NOT EXISTS trg_lane_judges_upd AFTER UPDATE ON lane_judges BEGIN
		UPDATE contests SET data_revision = data_revision + 1 WHERE id IN (OLD.contest_id, NEW.contest_id);
	END`,
	`CREATE TRIGGER IF NOT EXISTS trg_lane_judges_del AFTER DELETE ON lane_judges BEGIN
		UPDATE contests SET data_revision = data_revision + 1 WHERE id = OLD.contest_id;
	END`,

	// participant_status feeds eligibility and advancement
	`CREATE TRIGGER IF NOT EXISTS trg_participant_status_ins AFTER INSERT ON participant_status BEGIN
		UPDATE events SET data_revision = data_revision + 1
		WHERE id IN (SELECT event_id FROM registrations WHERE participant_id = NEW.participant_id);
		UPDATE contests SET data_revision = data_revision + 1
		WHERE id IN (SELECT e.contest_id FROM registrations r JOIN events e ON e.id = r.event_id
		             WHERE r.participant_id = NEW.participant_id);
	END`,
	`CREATE TRIGGER IF NOT EXISTS trg_participant_status_upd AFTER UPDATE ON participant_status BEGIN
		UPDATE events SET data_revision = data_revision + 1
		WHERE id IN (SELECT event_id FROM registrations WHERE participant_id IN (OLD.participant_id, NEW.participant_id));
		UPDATE contests SET data_revision = data_revision + 1
		WHERE id IN (SELECT e.contest_id FROM registrations r JOIN events e ON e.id = r.event_id
		             WHERE r.participant_id IN (OLD.participant_id, NEW.participant_id));
	END`,
}

// migrateToV1 installs the data revision triggers. Databases created before
// v1 have the tables but not the triggers.
func migrateToV1(db *sql.DB) error {
	for _, stmt := range revisionTriggers {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

// inTx runs fn in a transaction, committing when fn returns nil.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
