package attendance

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"guest-checkin/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS attendance (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	phone       TEXT NOT NULL,
	date        TEXT NOT NULL,
	time        TEXT NOT NULL,
	status      TEXT NOT NULL,
	recorded_at TIMESTAMP NOT NULL
);`

// SQLiteLog keeps the attendance log in a SQLite database
type SQLiteLog struct {
	db *sql.DB
}

var _ Log = (*SQLiteLog)(nil)

// OpenSQLiteLog opens (creating if needed) the log database at path
func OpenSQLiteLog(path string) (*SQLiteLog, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open attendance database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create attendance table: %w", err)
	}
	return &SQLiteLog{db: db}, nil
}

// Append adds one row to the log
func (l *SQLiteLog) Append(ctx context.Context, e models.AttendanceEntry) (models.AttendanceEntry, error) {
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO attendance (name, phone, date, time, status, recorded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.Name, e.Phone, e.Date, e.Time, string(e.Status), e.RecordedAt.UTC())
	if err != nil {
		return models.AttendanceEntry{}, fmt.Errorf("failed to append attendance: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return models.AttendanceEntry{}, fmt.Errorf("failed to read attendance id: %w", err)
	}
	return e, nil
}

// Recent returns up to limit rows, newest first
func (l *SQLiteLog) Recent(ctx context.Context, limit int) ([]models.AttendanceEntry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, name, phone, date, time, status, recorded_at FROM attendance ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	var entries []models.AttendanceEntry
	for rows.Next() {
		var (
			e      models.AttendanceEntry
			status string
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Phone, &e.Date, &e.Time, &status, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		e.Status = models.AttendanceStatus(status)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database
func (l *SQLiteLog) Close() error {
	return l.db.Close()
}
