package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ericfialkowski/shortlink/env"
	_ "github.com/go-sql-driver/mysql"
)

type MySQLStore struct {
	db *sql.DB
}

func mysqlCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, env.DurationOrDefault("mysql_timeout", 10*time.Second))
}

// CreateMySQLStore creates a MySQL-backed LinkStore. The dsn should be a
// MySQL DSN string, e.g.:
// "user:password@tcp(localhost:3306)/shortlink?parseTime=true"
func CreateMySQLStore(dsn string) LinkStore {
	// Ensure parseTime=true is set for proper time handling
	if !strings.Contains(dsn, "parseTime") {
		if strings.Contains(dsn, "?") {
			dsn += "&parseTime=true"
		} else {
			dsn += "?parseTime=true"
		}
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatalf("Unable to open MySQL database: %v", err)
	}

	db.SetMaxOpenConns(env.IntOrDefault("mysql_max_conns", 10))
	db.SetMaxIdleConns(env.IntOrDefault("mysql_max_idle_conns", 5))
	db.SetConnMaxLifetime(time.Duration(env.IntOrDefault("mysql_conn_max_lifetime_minutes", 5)) * time.Minute)

	ctx, cancel := mysqlCtx(context.Background())
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Unable to connect to MySQL: %v", err)
	}

	s := &MySQLStore{db: db}
	s.initSchema()

	return s
}

func (s *MySQLStore) initSchema() {
	ctx, cancel := mysqlCtx(context.Background())
	defer cancel()

	createLinksSQL := `
		CREATE TABLE IF NOT EXISTS links (
			id INT AUTO_INCREMENT PRIMARY KEY,
			code VARCHAR(12) NOT NULL UNIQUE,
			url TEXT NOT NULL,
			created_at DATETIME(6) NOT NULL,
			expires_at DATETIME(6) NOT NULL,
			is_custom BOOLEAN NOT NULL DEFAULT FALSE,
			clicks BIGINT NOT NULL DEFAULT 0,
			INDEX idx_links_code (code)
		)
	`
	if _, err := s.db.ExecContext(ctx, createLinksSQL); err != nil {
		log.Printf("Error creating links table: %v", err)
	}

	createEventsSQL := `
		CREATE TABLE IF NOT EXISTS click_events (
			id INT AUTO_INCREMENT PRIMARY KEY,
			link_id INT NOT NULL,
			ts DATETIME(6) NOT NULL,
			referrer TEXT NOT NULL,
			ip VARCHAR(64),
			country VARCHAR(128),
			city VARCHAR(128),
			INDEX idx_click_events_link_id (link_id),
			FOREIGN KEY (link_id) REFERENCES links(id) ON DELETE CASCADE
		)
	`
	if _, err := s.db.ExecContext(ctx, createEventsSQL); err != nil {
		log.Printf("Error creating click_events table: %v", err)
	}
}

func (s *MySQLStore) IsLikelyOk() bool {
	ctx, cancel := mysqlCtx(context.Background())
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		log.Printf("Ping failed: %v", err)
		return false
	}
	return true
}

func (s *MySQLStore) FindByCode(ctx context.Context, code string) (LinkRecord, error) {
	ctx, cancel := mysqlCtx(ctx)
	defer cancel()

	var rec LinkRecord
	var linkId int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, code, url, created_at, expires_at, is_custom, clicks
		FROM links WHERE code = ?`, code).
		Scan(&linkId, &rec.ShortCode, &rec.OriginalURL, &rec.CreatedAt, &rec.ExpiresAt, &rec.IsCustom, &rec.Clicks)
	if err == sql.ErrNoRows {
		return LinkRecord{}, ErrNotFound
	}
	if err != nil {
		return LinkRecord{}, fmt.Errorf("error getting link %s: %w", code, err)
	}
	rec.ClickEvents = []ClickEvent{}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, referrer, COALESCE(ip, ''), COALESCE(country, ''), COALESCE(city, '')
		FROM click_events WHERE link_id = ? ORDER BY id`, linkId)
	if err != nil {
		return LinkRecord{}, fmt.Errorf("error getting click events for %s: %w", code, err)
	}
	defer rows.Close()

	for rows.Next() {
		var ev ClickEvent
		if err := rows.Scan(&ev.Timestamp, &ev.Referrer, &ev.Geo.IP, &ev.Geo.Country, &ev.Geo.City); err != nil {
			return LinkRecord{}, fmt.Errorf("error scanning click event for %s: %w", code, err)
		}
		rec.ClickEvents = append(rec.ClickEvents, ev)
	}
	if err := rows.Err(); err != nil {
		return LinkRecord{}, fmt.Errorf("error reading click events for %s: %w", code, err)
	}

	return rec, nil
}

func (s *MySQLStore) Exists(ctx context.Context, code string) (bool, error) {
	ctx, cancel := mysqlCtx(ctx)
	defer cancel()

	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM links WHERE code = ?`, code).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("error checking %s: %w", code, err)
	}
	return n > 0, nil
}

func (s *MySQLStore) Insert(ctx context.Context, rec LinkRecord) error {
	ctx, cancel := mysqlCtx(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO links (code, url, created_at, expires_at, is_custom, clicks)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ShortCode, rec.OriginalURL, rec.CreatedAt.UTC(), rec.ExpiresAt.UTC(), rec.IsCustom, rec.Clicks)
	if err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			return ErrDuplicateCode
		}
		return fmt.Errorf("couldn't store %s: %w", rec.ShortCode, err)
	}
	return nil
}

func (s *MySQLStore) RecordClick(ctx context.Context, code string, ev ClickEvent) error {
	ctx, cancel := mysqlCtx(ctx)
	defer cancel()

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

func (s *MySQLStore) Cleanup() {
	s.db.Close()
}
