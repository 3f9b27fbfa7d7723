package db

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/RichardoC/firmsite-copilot/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS translation_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    slug TEXT NOT NULL,
    provider TEXT NOT NULL,
    chars INTEGER NOT NULL,
    day TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS translation_usage (
    day TEXT PRIMARY KEY,
    chars INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS translation_runs_day ON translation_runs(day);`

// Database is the caller side translation usage ledger.
type Database struct {
	db *sql.DB
}

func New(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Database{db: db}, nil
}

func (db *Database) Close() error {
	return db.db.Close()
}

// RecordRun stores run and adds its characters to the day it ran on.
func (db *Database) RecordRun(run *models.TranslationRun) error {
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	day := models.Day(run.CreatedAt)
	err = tx.QueryRow(`
        INSERT INTO translation_runs (slug, provider, chars, day, created_at)
        VALUES (?, ?, ?, ?, ?)
        RETURNING id`,
		run.Slug, run.Provider, run.Chars, day, run.CreatedAt.UTC()).Scan(&run.ID)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if _, err := tx.Exec(`
        INSERT INTO translation_usage (day, chars) VALUES (?, ?)
        ON CONFLICT(day) DO UPDATE SET chars = chars + excluded.chars`,
		day, run.Chars); err != nil {
		return fmt.Errorf("update usage: %w", err)
	}

	return tx.Commit()
}

// CharsOn returns the characters translated on day (see models.Day).
func (db *Database) CharsOn(day string) (int, error) {
	var chars int
	err := db.db.QueryRow("SELECT chars FROM translation_usage WHERE day = ?", day).Scan(&chars)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return chars, err
}

// Usage returns the per day totals and the most recent run.
func (db *Database) Usage() (models.UsageStats, error) {
	stats := models.UsageStats{ByDay: map[string]int{}}

	rows, err := db.db.Query("SELECT day, chars FROM translation_usage ORDER BY day")
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var day string
		var chars int
		if err := rows.Scan(&day, &chars); err != nil {
			return stats, err
		}
		stats.ByDay[day] = chars
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	err = db.db.QueryRow(`
        SELECT provider, created_at
        FROM translation_runs
        ORDER BY id DESC
        LIMIT 1`).Scan(&stats.Provider, &stats.LastRun)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return stats, err
	}
	return stats, nil
}

// Runs returns the latest runs, newest first.
func (db *Database) Runs(limit int) ([]models.TranslationRun, error) {
	rows, err := db.db.Query(`
        SELECT id, slug, provider, chars, created_at
        FROM translation_runs
        ORDER BY id DESC
        LIMIT ?`, limit)
	if err != nil {
		return []models.TranslationRun{}, err
	}
	defer rows.Close()

	runs := make([]models.TranslationRun, 0)
	for rows.Next() {
		var run models.TranslationRun
		if err := rows.Scan(&run.ID, &run.Slug, &run.Provider, &run.Chars, &run.CreatedAt); err != nil {
			return []models.TranslationRun{}, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// PruneBefore deletes usage and runs older than day and returns the number of
// runs removed. Nothing expires on its own.
func (db *Database) PruneBefore(day string) (int64, error) {
	tx, err := db.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM translation_runs WHERE day < ?", day)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if _, err := tx.Exec("DELETE FROM translation_usage WHERE day < ?", day); err != nil {
		return 0, err
	}
	return n, tx.Commit()
}
