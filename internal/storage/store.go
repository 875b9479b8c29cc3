// Package storage persists documents: each recording block's microphone and
// system streams as separate 16-bit PCM WAV files, and an SQLite catalog of
// documents, blocks, and transcript lines.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/moonshine-ai/MoonshineNoteTaker/internal/audio"
	"github.com/moonshine-ai/MoonshineNoteTaker/internal/transcript"
)

// Store is the persistence layer for saved documents.
type Store struct {
	db      *sql.DB
	rootDir string
}

// DocumentInfo is one catalog row, for listings.
type DocumentInfo struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	SampleRate int     `json:"sample_rate"`
	CreatedAt  float64 `json:"created_at"`
	BlockCount int     `json:"block_count"`
}

// Open opens (or creates) the catalog database and recordings directory.
func Open(dbPath, rootDir string) (*Store, error) {
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, fmt.Errorf("create recordings dir: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %v", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		sample_rate INTEGER NOT NULL,
		created_at REAL NOT NULL,
		block_count INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS blocks (
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		block_index INTEGER NOT NULL,
		start_time REAL NOT NULL,
		end_time REAL NOT NULL,
		mic_path TEXT NOT NULL,
		sys_path TEXT NOT NULL,
		PRIMARY KEY (document_id, block_index)
	);

	CREATE TABLE IF NOT EXISTS lines (
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		line_id INTEGER NOT NULL,
		text TEXT NOT NULL,
		start_time REAL NOT NULL,
		duration REAL NOT NULL,
		source TEXT NOT NULL,
		PRIMARY KEY (document_id, line_id)
	);

	CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %v", err)
	}

	return &Store{db: db, rootDir: rootDir}, nil
}

// Close closes the catalog database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveDocument writes the document's blocks and lines to disk under a
// per-document directory and records them in the catalog.
func (s *Store) SaveDocument(id, title string, sampleRate int, blocks []audio.RecordingBlock, lines []transcript.Line) error {
	docDir := filepath.Join(s.rootDir, id)
	if err := os.MkdirAll(docDir, 0755); err != nil {
		return fmt.Errorf("create document dir: %v", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %v", err)
	}
	defer tx.Rollback()

	createdAt := float64(time.Now().UnixNano()) / 1e9
	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO documents (id, title, sample_rate, created_at, block_count)
		VALUES (?, ?, ?, ?, ?)`,
		id, title, sampleRate, createdAt, len(blocks)); err != nil {
		return fmt.Errorf("save document row: %v", err)
	}

	if _, err := tx.Exec(`DELETE FROM blocks WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("clear blocks: %v", err)
	}
	if _, err := tx.Exec(`DELETE FROM lines WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("clear lines: %v", err)
	}

	for i, b := range blocks {
		micPath := filepath.Join(docDir, fmt.Sprintf("block-%04d-mic.wav", i))
		sysPath := filepath.Join(docDir, fmt.Sprintf("block-%04d-sys.wav", i))

		if err := writeStreamWAV(micPath, b.Microphone, sampleRate); err != nil {
			return fmt.Errorf("block %d microphone: %v", i, err)
		}
		if err := writeStreamWAV(sysPath, b.System, sampleRate); err != nil {
			return fmt.Errorf("block %d system: %v", i, err)
		}

		if _, err := tx.Exec(`
			INSERT INTO blocks (document_id, block_index, start_time, end_time, mic_path, sys_path)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, i, b.StartTime, b.EndTime, micPath, sysPath); err != nil {
			return fmt.Errorf("save block %d: %v", i, err)
		}
	}

	for _, l := range lines {
		if _, err := tx.Exec(`
			INSERT INTO lines (document_id, line_id, text, start_time, duration, source)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, l.ID, l.Text, l.StartTime, l.Duration, string(l.Source)); err != nil {
			return fmt.Errorf("save line %d: %v", l.ID, err)
		}
	}

	return tx.Commit()
}

// LoadDocument reads a saved document's blocks and lines back from disk.
func (s *Store) LoadDocument(id string) ([]audio.RecordingBlock, []transcript.Line, error) {
	rows, err := s.db.Query(`
		SELECT start_time, end_time, mic_path, sys_path
		FROM blocks
		WHERE document_id = ?
		ORDER BY block_index ASC`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("query blocks: %v", err)
	}
	defer rows.Close()

	var blocks []audio.RecordingBlock
	for rows.Next() {
		var b audio.RecordingBlock
		var micPath, sysPath string
		if err := rows.Scan(&b.StartTime, &b.EndTime, &micPath, &sysPath); err != nil {
			return nil, nil, fmt.Errorf("scan block: %v", err)
		}
		if b.Microphone, err = readStreamWAV(micPath); err != nil {
			return nil, nil, fmt.Errorf("load %s: %v", micPath, err)
		}
		if b.System, err = readStreamWAV(sysPath); err != nil {
			return nil, nil, fmt.Errorf("load %s: %v", sysPath, err)
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	lines, err := s.loadLines(id)
	if err != nil {
		return nil, nil, err
	}
	return blocks, lines, nil
}

func (s *Store) loadLines(id string) ([]transcript.Line, error) {
	rows, err := s.db.Query(`
		SELECT line_id, text, start_time, duration, source
		FROM lines
		WHERE document_id = ?
		ORDER BY start_time ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("query lines: %v", err)
	}
	defer rows.Close()

	var lines []transcript.Line
	for rows.Next() {
		var l transcript.Line
		var source string
		if err := rows.Scan(&l.ID, &l.Text, &l.StartTime, &l.Duration, &source); err != nil {
			return nil, fmt.Errorf("scan line: %v", err)
		}
		l.Source = transcript.Source(source)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// ListDocuments returns the most recently saved documents.
func (s *Store) ListDocuments(limit int) ([]DocumentInfo, error) {
	rows, err := s.db.Query(`
		SELECT id, title, sample_rate, created_at, block_count
		FROM documents
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %v", err)
	}
	defer rows.Close()

	var docs []DocumentInfo
	for rows.Next() {
		var d DocumentInfo
		if err := rows.Scan(&d.ID, &d.Title, &d.SampleRate, &d.CreatedAt, &d.BlockCount); err != nil {
			return nil, fmt.Errorf("scan document: %v", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
