// Package store persists exercises, the current selection and settings in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/breathbox/internal/app/settings"
	"github.com/osa030/breathbox/internal/domain/exercise"
)

const (
	keyCurrentExercise = "current_exercise"
	keySettings        = "settings"
)

// Store wraps the SQLite connection.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at dbPath and initialises the schema.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create db directory")
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=ON")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open sqlite")
	}

	// SQLite handles one writer at a time
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to init schema")
	}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to run migrations")
	}

	zlog.Debug().Msgf("store: opened: path=%s", dbPath)
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS exercises (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			inhale REAL NOT NULL,
			hold1 REAL NOT NULL,
			exhale REAL NOT NULL,
			hold2 REAL NOT NULL,
			short_description TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			benefit TEXT NOT NULL DEFAULT '',
			method TEXT NOT NULL DEFAULT '',
			custom INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exercises_position ON exercises(position)`,
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// runMigrations applies schema changes added after the initial schema.
// Each step is idempotent.
func runMigrations(db *sql.DB) error {
	hasSymbol, err := columnExists(db, "exercises", "symbol")
	if err != nil {
		return errors.Wrap(err, "failed to check symbol column")
	}
	if !hasSymbol {
		if _, err := db.Exec(`ALTER TABLE exercises ADD COLUMN symbol TEXT NOT NULL DEFAULT ''`); err != nil {
			return errors.Wrap(err, "failed to add symbol column")
		}
	}
	return nil
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(`SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// Seed inserts the built-in exercises when the catalogue is empty.
// It reports whether anything was inserted.
func (s *Store) Seed(ctx context.Context) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM exercises`).Scan(&n); err != nil {
		return false, errors.Wrap(err, "failed to count exercises")
	}
	if n > 0 {
		return false, nil
	}

	for _, ex := range exercise.Defaults() {
		if err := s.SaveExercise(ctx, ex); err != nil {
			return false, err
		}
	}
	zlog.Info().Msgf("store: seeded default exercises: count=%d", len(exercise.Defaults()))
	return true, nil
}

// Reset removes every stored exercise and value, then seeds the defaults again.
func (s *Store) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin reset")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM exercises`); err != nil {
		return errors.Wrap(err, "failed to clear exercises")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM kv`); err != nil {
		return errors.Wrap(err, "failed to clear values")
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit reset")
	}

	_, err = s.Seed(ctx)
	return err
}

// ListExercises returns the catalogue in insertion order.
func (s *Store) ListExercises(ctx context.Context) ([]exercise.Exercise, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, inhale, hold1, exhale, hold2,
			short_description, description, benefit, method, symbol, custom
		FROM exercises ORDER BY position, created_at
	`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list exercises")
	}
	defer rows.Close()

	var out []exercise.Exercise
	for rows.Next() {
		ex, err := scanExercise(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan exercise")
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

// GetExercise returns the exercise with the given id.
func (s *Store) GetExercise(ctx context.Context, id string) (exercise.Exercise, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, inhale, hold1, exhale, hold2,
			short_description, description, benefit, method, symbol, custom
		FROM exercises WHERE id = ?
	`, id)
	ex, err := scanExercise(row)
	if errors.Is(err, sql.ErrNoRows) {
		return exercise.Exercise{}, errors.Wrapf(exercise.ErrNotFound, "id=%s", id)
	}
	if err != nil {
		return exercise.Exercise{}, errors.Wrap(err, "failed to get exercise")
	}
	return ex, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExercise(sc scanner) (exercise.Exercise, error) {
	var ex exercise.Exercise
	var custom int
	err := sc.Scan(&ex.ID, &ex.Title, &ex.Inhale, &ex.Hold1, &ex.Exhale, &ex.Hold2,
		&ex.ShortDescription, &ex.Description, &ex.Benefit, &ex.Method, &ex.Symbol, &custom)
	ex.Custom = custom != 0
	return ex, err
}

// SaveExercise inserts or updates an exercise. New exercises go to the end of the list.
func (s *Store) SaveExercise(ctx context.Context, ex exercise.Exercise) error {
	now := time.Now().UnixMilli()
	custom := 0
	if ex.Custom {
		custom = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exercises (id, position, title, inhale, hold1, exhale, hold2,
			short_description, description, benefit, method, symbol, custom, created_at, updated_at)
		VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM exercises), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			inhale = excluded.inhale,
			hold1 = excluded.hold1,
			exhale = excluded.exhale,
			hold2 = excluded.hold2,
			short_description = excluded.short_description,
			description = excluded.description,
			benefit = excluded.benefit,
			method = excluded.method,
			symbol = excluded.symbol,
			custom = excluded.custom,
			updated_at = excluded.updated_at
	`, ex.ID, ex.Title, ex.Inhale, ex.Hold1, ex.Exhale, ex.Hold2,
		ex.ShortDescription, ex.Description, ex.Benefit, ex.Method, ex.Symbol, custom, now, now)
	if err != nil {
		return errors.Wrapf(err, "failed to save exercise: id=%s", ex.ID)
	}
	return nil
}

// DeleteExercise removes an exercise. A deleted current exercise is cleared as well.
func (s *Store) DeleteExercise(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM exercises WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "failed to delete exercise: id=%s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(exercise.ErrNotFound, "id=%s", id)
	}

	current, ok, err := s.GetCurrentExercise(ctx)
	if err != nil {
		return err
	}
	if ok && current.ID == id {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, keyCurrentExercise); err != nil {
			return errors.Wrap(err, "failed to clear current exercise")
		}
	}
	return nil
}

// GetCurrentExercise returns the selected exercise, if one is stored.
func (s *Store) GetCurrentExercise(ctx context.Context) (exercise.Exercise, bool, error) {
	var ex exercise.Exercise
	ok, err := s.getValue(ctx, keyCurrentExercise, &ex)
	return ex, ok, err
}

// SetCurrentExercise stores the selected exercise.
func (s *Store) SetCurrentExercise(ctx context.Context, ex exercise.Exercise) error {
	return s.putValue(ctx, keyCurrentExercise, ex)
}

// LoadSettings returns the persisted settings, if any.
func (s *Store) LoadSettings(ctx context.Context) (settings.Settings, bool, error) {
	st := settings.Default()
	ok, err := s.getValue(ctx, keySettings, &st)
	return st, ok, err
}

// SaveSettings persists the settings.
func (s *Store) SaveSettings(ctx context.Context, st settings.Settings) error {
	return s.putValue(ctx, keySettings, st)
}

func (s *Store) getValue(ctx context.Context, key string, dst any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "failed to read value: key=%s", key)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, errors.Wrapf(err, "failed to decode value: key=%s", key)
	}
	return true, nil
}

func (s *Store) putValue(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "failed to encode value: key=%s", key)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(data), time.Now().UnixMilli())
	if err != nil {
		return errors.Wrapf(err, "failed to write value: key=%s", key)
	}
	return nil
}
