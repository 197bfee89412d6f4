package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/yegors/co-translate/pkg/logger"
)

// TimestampLayout is the stored timestamp format, second precision
const TimestampLayout = "2006-01-02 15:04:05"

const createHistoryTable = `
	CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT,
		source_text TEXT,
		source_lang TEXT,
		translated_text TEXT,
		target_lang TEXT
	)
`

// TranslationRecord is one completed translation
type TranslationRecord struct {
	ID             int64     `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	SourceText     string    `json:"source_text"`
	SourceLang     string    `json:"source_lang"`
	TranslatedText string    `json:"translated_text"`
	TargetLang     string    `json:"target_lang"`
}

// Preview shortens s to n runes for compact listings
func Preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// HistoryStore is the append-only translation log
type HistoryStore struct {
	db     *sql.DB
	path   string
	logger *logger.Logger
}

// NewHistoryStore opens the history database at dbPath and creates the table
func NewHistoryStore(dbPath string, log *logger.Logger) (*HistoryStore, error) {
	storageLogger := log.Named("sqlite-history")

	storageLogger.Info("Initializing history storage",
		logger.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := db.Exec(createHistoryTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history table: %w", err)
	}

	return &HistoryStore{
		db:     db,
		path:   dbPath,
		logger: storageLogger,
	}, nil
}

// Path returns the database file path
func (s *HistoryStore) Path() string {
	return s.path
}

// Close closes the database
func (s *HistoryStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Probe verifies write access by inserting and deleting a probe row
func (s *HistoryStore) Probe(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO history (timestamp, source_text, source_lang, translated_text, target_lang)
			VALUES (?, ?, ?, ?, ?)`,
			"TEST", "TEST", "en", "TEST", "en")
		if err != nil {
			return fmt.Errorf("failed to insert probe row: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get probe row id: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM history WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete probe row: %w", err)
		}
		return nil
	})
}

// Append stores a record, creating the table if it is missing. The record
// timestamp defaults to now and is stored as local wall-clock time.
func (s *HistoryStore) Append(ctx context.Context, record *TranslationRecord) (int64, error) {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	var id int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, createHistoryTable); err != nil {
			return fmt.Errorf("failed to create history table: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO history (timestamp, source_text, source_lang, translated_text, target_lang)
			VALUES (?, ?, ?, ?, ?)`,
			record.Timestamp.Local().Format(TimestampLayout),
			record.SourceText,
			record.SourceLang,
			record.TranslatedText,
			record.TargetLang,
		)
		if err != nil {
			return fmt.Errorf("failed to insert translation: %w", err)
		}

		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert ID: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	record.ID = id
	s.logger.Debug("Saved translation",
		logger.Int64("id", id),
		logger.String("source_lang", record.SourceLang),
		logger.String("target_lang", record.TargetLang))
	return id, nil
}

// ListAll returns every record, newest first. A missing table yields no records.
func (s *HistoryStore) ListAll(ctx context.Context) ([]*TranslationRecord, error) {
	return s.list(ctx, -1, 0)
}

// ListPage returns up to limit records after skipping offset, newest first
func (s *HistoryStore) ListPage(ctx context.Context, limit, offset int) ([]*TranslationRecord, error) {
	if limit <= 0 {
		return []*TranslationRecord{}, nil
	}
	return s.list(ctx, limit, offset)
}

func (s *HistoryStore) list(ctx context.Context, limit, offset int) ([]*TranslationRecord, error) {
	records := []*TranslationRecord{}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		exists, err := tableExists(ctx, tx)
		if err != nil || !exists {
			return err
		}

		rows, err := tx.QueryContext(ctx,
			`SELECT id, timestamp, source_text, source_lang, translated_text, target_lang
			FROM history
			ORDER BY timestamp DESC, id DESC
			LIMIT ? OFFSET ?`,
			limit, offset,
		)
		if err != nil {
			return fmt.Errorf("failed to query history: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				record                     TranslationRecord
				timestamp                  sql.NullString
				sourceText, sourceLang     sql.NullString
				translatedText, targetLang sql.NullString
			)
			if err := rows.Scan(&record.ID, &timestamp, &sourceText, &sourceLang, &translatedText, &targetLang); err != nil {
				return fmt.Errorf("failed to scan history row: %w", err)
			}
			if timestamp.Valid {
				if ts, err := time.ParseInLocation(TimestampLayout, timestamp.String, time.Local); err == nil {
					record.Timestamp = ts
				}
			}
			record.SourceText = sourceText.String
			record.SourceLang = sourceLang.String
			record.TranslatedText = translatedText.String
			record.TargetLang = targetLang.String
			records = append(records, &record)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Count returns the number of records
func (s *HistoryStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		exists, err := tableExists(ctx, tx)
		if err != nil || !exists {
			return err
		}
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM history`).Scan(&count); err != nil {
			return fmt.Errorf("failed to count history: %w", err)
		}
		return nil
	})
	return count, err
}

// ClearAll deletes every record and returns how many were removed.
// A missing table clears nothing.
func (s *HistoryStore) ClearAll(ctx context.Context) (int64, error) {
	var cleared int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		exists, err := tableExists(ctx, tx)
		if err != nil || !exists {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM history`)
		if err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		cleared, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("History cleared", logger.Int64("cleared", cleared))
	return cleared, nil
}

// inTx runs fn in its own transaction
func (s *HistoryStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func tableExists(ctx context.Context, tx *sql.Tx) (bool, error) {
	var name string
	err := tx.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name='history'`).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check history table: %w", err)
	}
	return true, nil
}

// Error categories used to rate-limit user notices
const (
	CategoryReadOnly = "readonly"
	CategorySQL      = "sql"
	CategoryGeneral  = "general"
)

// ErrorCategory classifies a persistence error
func ErrorCategory(err error) string {
	var sqlErr *msqlite.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.Code() & 0xff {
		case sqlite3.SQLITE_READONLY, sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_PERM:
			return CategoryReadOnly
		}
		return CategorySQL
	}

	msg := strings.ToLower(fmt.Sprint(err))
	switch {
	case strings.Contains(msg, "unable to open database"), strings.Contains(msg, "readonly database"):
		return CategoryReadOnly
	case strings.Contains(msg, "sql"):
		return CategorySQL
	}
	return CategoryGeneral
}
