package database

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"moviebuzz/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Open opens (creating if necessary) the local SQLite database and applies
// pending migrations.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, err
	}
	if err := goose.Up(db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

// DetailStore persists resolved movie detail records keyed by catalog id.
// Detail content never changes within a session, so rows have no TTL.
type DetailStore struct {
	db *sql.DB
}

// NewDetailStore wraps an open database.
func NewDetailStore(db *sql.DB) *DetailStore {
	return &DetailStore{db: db}
}

// Get returns the cached detail for an id, reporting whether one exists.
func (s *DetailStore) Get(id string) (models.MovieDetail, bool, error) {
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM movie_details WHERE imdb_id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MovieDetail{}, false, nil
	}
	if err != nil {
		return models.MovieDetail{}, false, fmt.Errorf("read detail cache: %w", err)
	}

	var detail models.MovieDetail
	if err := json.Unmarshal(payload, &detail); err != nil {
		return models.MovieDetail{}, false, fmt.Errorf("decode cached detail: %w", err)
	}
	return detail, true, nil
}

// Put stores a resolved detail record, replacing any previous row.
func (s *DetailStore) Put(detail models.MovieDetail) error {
	payload, err := json.Marshal(detail)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO movie_details (imdb_id, payload) VALUES (?, ?)
		 ON CONFLICT (imdb_id) DO UPDATE SET payload = excluded.payload`,
		detail.ID, payload,
	)
	if err != nil {
		return fmt.Errorf("write detail cache: %w", err)
	}
	return nil
}
