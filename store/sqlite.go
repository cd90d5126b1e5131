package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// CreateSQLiteStore creates a SQLite-backed LinkStore. The dbPath should be
// a path to the database file, e.g. "./shortlink.db", or ":memory:".
func CreateSQLiteStore(dbPath string) LinkStore {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		log.Fatalf("Unable to open SQLite database: %v", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer at a time
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		log.Printf("Warning: could not enable WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		log.Printf("Warning: could not set busy timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		log.Printf("Warning: could not enable foreign keys: %v", err)
	}

	s := &SQLiteStore{db: db}
	s.initSchema()

	return s
}

func (s *SQLiteStore) initSchema() {
	s.mu.Lock()
	defer s.mu.Unlock()

	createLinksSQL := `
		CREATE TABLE IF NOT EXISTS links (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			code TEXT NOT NULL UNIQUE,
			url TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL,
			is_custom INTEGER NOT NULL DEFAULT 0,
			clicks INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_links_code ON links(code);
	`
	if _, err := s.db.Exec(createLinksSQL); err != nil {
		log.Printf("Error creating links table: %v", err)
	}

	createEventsSQL := `
		CREATE TABLE IF NOT EXISTS click_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			link_id INTEGER NOT NULL REFERENCES links(id) ON DELETE CASCADE,
			ts DATETIME NOT NULL,
			referrer TEXT NOT NULL,
			ip TEXT,
			country TEXT,
			city TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_click_events_link_id ON click_events(link_id);
	`
	if _, err := s.db.Exec(createEventsSQL); err != nil {
		log.Printf("Error creating click_events table: %v", err)
	}
}

func (s *SQLiteStore) IsLikelyOk() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.db.Ping(); err != nil {
		log.Printf("Ping failed: %v", err)
		return false
	}
	return true
}

func (s *SQLiteStore) FindByCode(ctx context.Context, code string) (LinkRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec LinkRecord
	var linkId int64
	var isCustom int
	err := s.db.QueryRowContext(ctx, `
		SELECT id, code, url, created_at, expires_at, is_custom, clicks
		FROM links WHERE code = ?`, code).
		Scan(&linkId, &rec.ShortCode, &rec.OriginalURL, &rec.CreatedAt, &rec.ExpiresAt, &isCustom, &rec.Clicks)
	if err == sql.ErrNoRows {
		return LinkRecord{}, ErrNotFound
	}
	if err != nil {
		return LinkRecord{}, fmt.Errorf("error getting link %s: %w", code, err)
	}
	rec.IsCustom = isCustom != 0
	rec.ClickEvents = []ClickEvent{}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, referrer, ip, country, city
		FROM click_events WHERE link_id = ? ORDER BY id`, linkId)
	if err != nil {
		return LinkRecord{}, fmt.Errorf("error getting click events for %s: %w", code, err)
	}
	defer rows.Close()

	for rows.Next() {
		var ev ClickEvent
		var ip, country, city sql.NullString
		if err := rows.Scan(&ev.Timestamp, &ev.Referrer, &ip, &country, &city); err != nil {
			return LinkRecord{}, fmt.Errorf("error scanning click event for %s: %w", code, err)
		}
		ev.Geo = GeoInfo{IP: ip.String, Country: country.String, City: city.String}
		rec.ClickEvents = append(rec.ClickEvents, ev)
	}
	if err := rows.Err(); err != nil {
		return LinkRecord{}, fmt.Errorf("error reading click events for %s: %w", code, err)
	}

	return rec, nil
}

func (s *SQLiteStore) Exists(ctx context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM links WHERE code = ?`, code).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("error checking %s: %w", code, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, rec LinkRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO links (code, url, created_at, expires_at, is_custom, clicks)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ShortCode, rec.OriginalURL, rec.CreatedAt.UTC(), rec.ExpiresAt.UTC(), boolToInt(rec.IsCustom), rec.Clicks)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrDuplicateCode
		}
		return fmt.Errorf("couldn't store %s: %w", rec.ShortCode, err)
	}
	return nil
}

func (s *SQLiteStore) RecordClick(ctx context.Context, code string, ev ClickEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("couldn't begin click transaction for %s: %w", code, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE links SET clicks = clicks + 1 WHERE code = ?`, code)
	if err != nil {
		return fmt.Errorf("couldn't bump clicks for %s: %w", code, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO click_events (link_id, ts, referrer, ip, country, city)
		SELECT id, ?, ?, ?, ?, ? FROM links WHERE code = ?`,
		ev.Timestamp.UTC(), ev.Referrer, ev.Geo.IP, ev.Geo.Country, ev.Geo.City, code)
	if err != nil {
		return fmt.Errorf("couldn't append click event for %s: %w", code, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("couldn't commit click for %s: %w", code, err)
	}
	return nil
}

func (s *SQLiteStore) Cleanup() {
	s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
