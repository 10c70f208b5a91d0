package ogengine

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kphr/ogengine/content"
)

// Store wraps a SQLite database holding the content index: one row per
// entry with the front-matter fields the pipeline needs.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the schema.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets handlers read while the watcher re-indexes; busy_timeout makes
	// writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS entries (
    collection TEXT NOT NULL,
    id TEXT NOT NULL,
    title TEXT NOT NULL,
    author TEXT NOT NULL DEFAULT '',
    excerpt TEXT NOT NULL DEFAULT '',
    date TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT '',
    image_kind INTEGER NOT NULL DEFAULT 0,
    image_path TEXT NOT NULL DEFAULT '',
    featured INTEGER NOT NULL DEFAULT 0,
    embed_html TEXT NOT NULL DEFAULT '',
    video TEXT NOT NULL DEFAULT '',
    faq TEXT NOT NULL DEFAULT '',
    front_matter TEXT NOT NULL DEFAULT '',
    dir TEXT NOT NULL,
    file_path TEXT NOT NULL,
    PRIMARY KEY (collection, id)
);
`)
	return err
}

const entryColumns = `collection, id, title, author, excerpt, date, tags, image_kind, image_path,
	featured, embed_html, video, faq, front_matter, dir, file_path`

// ReplaceCollection atomically swaps the indexed entries of a collection for
// the given ones.
func (s *Store) ReplaceCollection(collection string, entries []content.Entry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM entries WHERE collection = ?`, collection); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO entries (` + entryColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if e.Collection != collection {
			return fmt.Errorf("entry %s belongs to collection %q", e.Key(), e.Collection)
		}
		args, err := entryArgs(e)
		if err != nil {
			return fmt.Errorf("entry %s: %w", e.Key(), err)
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("insert %s: %w", e.Key(), err)
		}
	}
	return tx.Commit()
}

// ListEntries returns the entries of a collection, newest first. An empty
// collection lists every collection; a non-empty tag filters
// case-insensitively.
func (s *Store) ListEntries(collection, tag string) ([]content.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE 1 = 1`
	var args []any
	if collection != "" {
		query += ` AND collection = ?`
		args = append(args, collection)
	}
	if tag != "" {
		query += ` AND instr(lower(tags), ',' || ? || ',') > 0`
		args = append(args, strings.ToLower(strings.TrimSpace(tag)))
	}
	query += ` ORDER BY date DESC, collection, id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []content.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of indexed entries in a collection.
func (s *Store) Count(collection string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM entries WHERE collection = ?`, collection).Scan(&n)
	return n, err
}

func entryArgs(e content.Entry) ([]any, error) {
	date := ""
	if e.Date != nil {
		date = e.Date.Format(time.RFC3339)
	}
	video := ""
	if e.Video != nil {
		b, err := json.Marshal(e.Video)
		if err != nil {
			return nil, err
		}
		video = string(b)
	}
	faq := ""
	if len(e.FAQ) > 0 {
		b, err := json.Marshal(e.FAQ)
		if err != nil {
			return nil, err
		}
		faq = string(b)
	}
	featured := 0
	if e.Featured {
		featured = 1
	}
	return []any{
		e.Collection, e.ID, e.Title, e.Author, e.Excerpt, date, JoinTags(e.Tags),
		int(e.Image.Kind), e.Image.Path, featured, e.EmbedHTML, video, faq,
		e.RawFrontMatter, e.Dir, e.FilePath,
	}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (content.Entry, error) {
	var (
		e              content.Entry
		date, tags     string
		kind, featured int
		video, faq     string
	)
	err := row.Scan(&e.Collection, &e.ID, &e.Title, &e.Author, &e.Excerpt, &date, &tags,
		&kind, &e.Image.Path, &featured, &e.EmbedHTML, &video, &faq,
		&e.RawFrontMatter, &e.Dir, &e.FilePath)
	if err != nil {
		return content.Entry{}, err
	}
	e.Image.Kind = content.RefKind(kind)
	e.Tags = ParseTags(tags)
	e.Featured = featured == 1
	if date != "" {
		t, err := time.Parse(time.RFC3339, date)
		if err != nil {
			return content.Entry{}, fmt.Errorf("entry %s: bad date %q: %w", e.Key(), date, err)
		}
		e.Date = &t
	}
	if video != "" {
		e.Video = new(content.Video)
		if err := json.Unmarshal([]byte(video), e.Video); err != nil {
			return content.Entry{}, fmt.Errorf("entry %s: video: %w", e.Key(), err)
		}
	}
	if faq != "" {
		if err := json.Unmarshal([]byte(faq), &e.FAQ); err != nil {
			return content.Entry{}, fmt.Errorf("entry %s: faq: %w", e.Key(), err)
		}
	}
	return e, nil
}

// JoinTags encodes tags as a comma-delimited string with leading and
// trailing commas (",go,web,") so a tag can be matched with instr.
func JoinTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	clean := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(strings.ReplaceAll(t, ",", " "))
		if t != "" {
			clean = append(clean, t)
		}
	}
	if len(clean) == 0 {
		return ""
	}
	return "," + strings.Join(clean, ",") + ","
}

// ParseTags splits a comma-delimited tag string (e.g. ",go,web,") into a slice.
func ParseTags(tagString string) []string {
	tagString = strings.Trim(tagString, ",")
	if tagString == "" {
		return nil
	}
	parts := strings.Split(tagString, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
