package transcript

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists the transcript so it survives restarts.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and creates when missing) the transcript database at
// dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transcript_entries (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		text TEXT NOT NULL,
		direction TEXT NOT NULL,
		followup INTEGER NOT NULL,
		card TEXT,
		links TEXT,
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Append(ctx context.Context, entry Entry) error {
	var card *string
	if entry.Card != nil {
		encoded, err := json.Marshal(entry.Card)
		if err != nil {
			return fmt.Errorf("encode card: %w", err)
		}
		card = new(string)
		*card = string(encoded)
	}

	links, err := json.Marshal(entry.Links)
	if err != nil {
		return fmt.Errorf("encode links: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
	INSERT INTO transcript_entries (id, text, direction, followup, card, links, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Text,
		string(entry.Direction),
		entry.Followup,
		card,
		string(links),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append transcript entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, text, direction, followup, card, links, created_at
	FROM transcript_entries
	ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query transcript entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry     Entry
			direction string
			card      sql.NullString
			links     sql.NullString
			createdAt string
		)
		if err := rows.Scan(&entry.ID, &entry.Text, &direction, &entry.Followup, &card, &links, &createdAt); err != nil {
			return nil, fmt.Errorf("scan transcript entry: %w", err)
		}

		entry.Direction = Direction(direction)
		if card.Valid {
			entry.Card = &Card{}
			if err := json.Unmarshal([]byte(card.String), entry.Card); err != nil {
				return nil, fmt.Errorf("decode card of entry %s: %w", entry.ID, err)
			}
		}
		if links.Valid && links.String != "null" {
			if err := json.Unmarshal([]byte(links.String), &entry.Links); err != nil {
				return nil, fmt.Errorf("decode links of entry %s: %w", entry.ID, err)
			}
		}
		if entry.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at of entry %s: %w", entry.ID, err)
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcript entries: %w", err)
	}
	return entries, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
