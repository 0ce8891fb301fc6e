// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package library is the local reference library: items with their notes,
// attachments and tags in SQLite, plus the accessors the analysis pipeline
// reads content and metadata through.
package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/picozot/pkg/types"
)

// ErrItemNotFound is returned when no item matches the requested id or key.
var ErrItemNotFound = errors.New("item not found")

// Store manages the library SQLite database.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens or creates the library database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating library directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			key TEXT NOT NULL UNIQUE,
			item_type TEXT NOT NULL,
			fields TEXT NOT NULL,
			date_added TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS notes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			key TEXT NOT NULL UNIQUE,
			parent_id INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
			title TEXT,
			content TEXT NOT NULL,
			date_added TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_parent ON notes(parent_id)`,
		`CREATE TABLE IF NOT EXISTS attachments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			key TEXT NOT NULL UNIQUE,
			parent_id INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
			title TEXT,
			content_type TEXT,
			path TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attachments_parent ON attachments(parent_id)`,
		`CREATE TABLE IF NOT EXISTS tags (
			item_id INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
			tag TEXT NOT NULL,
			PRIMARY KEY (item_id, tag)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tags_tag ON tags(tag)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// newKey returns an eight-character item key.
func newKey() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// AddItem inserts item with its tags and returns it with ID, Key and
// DateAdded populated. A caller-supplied Key is kept.
func (s *Store) AddItem(ctx context.Context, item types.Item) (types.Item, error) {
	if item.Key == "" {
		item.Key = newKey()
	}
	if item.ItemType == "" {
		item.ItemType = "journalArticle"
	}
	if item.Fields == nil {
		item.Fields = map[string]string{}
	}
	if item.DateAdded.IsZero() {
		item.DateAdded = s.now().UTC()
	}

	fieldsJSON, err := json.Marshal(item.Fields)
	if err != nil {
		return types.Item{}, fmt.Errorf("marshaling fields: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Item{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO items (key, item_type, fields, date_added) VALUES (?, ?, ?, ?)`,
		item.Key, item.ItemType, string(fieldsJSON), item.DateAdded.Format(time.RFC3339Nano),
	)
	if err != nil {
		return types.Item{}, fmt.Errorf("inserting item: %w", err)
	}
	if item.ID, err = res.LastInsertId(); err != nil {
		return types.Item{}, fmt.Errorf("reading item id: %w", err)
	}

	if err := insertTags(ctx, tx, item.ID, item.Tags); err != nil {
		return types.Item{}, err
	}
	if err := tx.Commit(); err != nil {
		return types.Item{}, fmt.Errorf("committing item: %w", err)
	}

	item.Tags = normalizeTags(item.Tags)
	return item, nil
}

func insertTags(ctx context.Context, tx *sql.Tx, itemID int64, tags []string) error {
	for _, tag := range normalizeTags(tags) {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO tags (item_id, tag) VALUES (?, ?)`, itemID, tag,
		); err != nil {
			return fmt.Errorf("inserting tag %q: %w", tag, err)
		}
	}
	return nil
}

// normalizeTags trims, drops empties and sorts.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// AddTags attaches tags to an existing item.
func (s *Store) AddTags(ctx context.Context, itemID int64, tags ...string) error {
	if _, err := s.GetItem(ctx, itemID); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertTags(ctx, tx, itemID, tags); err != nil {
		return err
	}
	return tx.Commit()
}

// GetItem loads the item with the given numeric id.
func (s *Store) GetItem(ctx context.Context, id int64) (types.Item, error) {
	return s.getItem(ctx, `WHERE id = ?`, id)
}

// GetItemByKey loads the item with the given key.
func (s *Store) GetItemByKey(ctx context.Context, key string) (types.Item, error) {
	return s.getItem(ctx, `WHERE key = ?`, key)
}

func (s *Store) getItem(ctx context.Context, where string, arg any) (types.Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, key, item_type, fields, date_added FROM items `+where, arg)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Item{}, fmt.Errorf("%w: %v", ErrItemNotFound, arg)
	}
	if err != nil {
		return types.Item{}, err
	}
	if item.Tags, err = s.tags(ctx, item.ID); err != nil {
		return types.Item{}, err
	}
	return item, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (types.Item, error) {
	var (
		item       types.Item
		fieldsJSON string
		dateAdded  string
	)
	if err := row.Scan(&item.ID, &item.Key, &item.ItemType, &fieldsJSON, &dateAdded); err != nil {
		return types.Item{}, err
	}
	if err := json.Unmarshal([]byte(fieldsJSON), &item.Fields); err != nil {
		return types.Item{}, fmt.Errorf("decoding fields of item %d: %w", item.ID, err)
	}
	item.DateAdded, _ = time.Parse(time.RFC3339Nano, dateAdded)
	return item, nil
}

func (s *Store) tags(ctx context.Context, itemID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tag FROM tags WHERE item_id = ? ORDER BY tag`, itemID)
	if err != nil {
		return nil, fmt.Errorf("querying tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// ListOptions filters ListItems.
type ListOptions struct {
	// Tag restricts results to items carrying this tag.
	Tag string
	// Query is a case-insensitive substring matched against title,
	// abstract and creators.
	Query string
	// Limit caps the number of results; zero means no limit.
	Limit int
}

// ListItems returns items in insertion order, filtered by opts.
func (s *Store) ListItems(ctx context.Context, opts ListOptions) ([]types.Item, error) {
	var (
		conditions []string
		args       []any
	)
	if opts.Tag != "" {
		conditions = append(conditions,
			`EXISTS (SELECT 1 FROM tags t WHERE t.item_id = items.id AND t.tag = ?)`)
		args = append(args, opts.Tag)
	}
	if q := strings.TrimSpace(opts.Query); q != "" {
		like := "%" + q + "%"
		conditions = append(conditions, `(
			json_extract(fields, '$.title') LIKE ? OR
			json_extract(fields, '$.abstractNote') LIKE ? OR
			json_extract(fields, '$.creators') LIKE ?)`)
		args = append(args, like, like, like)
	}

	query := `SELECT id, key, item_type, fields, date_added FROM items`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	var items []types.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range items {
		if items[i].Tags, err = s.tags(ctx, items[i].ID); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// DeleteItem removes an item together with its notes, attachments and tags.
func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", ErrItemNotFound, id)
	}
	return nil
}

// AddNote creates a child note under parentID. content is HTML.
func (s *Store) AddNote(ctx context.Context, parentID int64, title, content string) (types.Note, error) {
	note := types.Note{
		Key:       newKey(),
		ParentID:  parentID,
		Title:     title,
		Content:   content,
		DateAdded: s.now().UTC(),
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (key, parent_id, title, content, date_added) VALUES (?, ?, ?, ?, ?)`,
		note.Key, parentID, title, content, note.DateAdded.Format(time.RFC3339Nano),
	)
	if err != nil {
		return types.Note{}, fmt.Errorf("inserting note: %w", err)
	}
	if note.ID, err = res.LastInsertId(); err != nil {
		return types.Note{}, fmt.Errorf("reading note id: %w", err)
	}
	return note, nil
}

// Notes returns the child notes of parentID, oldest first.
func (s *Store) Notes(ctx context.Context, parentID int64) ([]types.Note, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, key, parent_id, title, content, date_added
		 FROM notes WHERE parent_id = ? ORDER BY id`, parentID)
	if err != nil {
		return nil, fmt.Errorf("querying notes: %w", err)
	}
	defer rows.Close()

	var notes []types.Note
	for rows.Next() {
		var (
			n         types.Note
			title     sql.NullString
			dateAdded string
		)
		if err := rows.Scan(&n.ID, &n.Key, &n.ParentID, &title, &n.Content, &dateAdded); err != nil {
			return nil, fmt.Errorf("scanning note: %w", err)
		}
		n.Title = title.String
		n.DateAdded, _ = time.Parse(time.RFC3339Nano, dateAdded)
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// AddAttachment links a file to parentID.
func (s *Store) AddAttachment(ctx context.Context, parentID int64, title, contentType, path string) (types.Attachment, error) {
	att := types.Attachment{
		Key:         newKey(),
		ParentID:    parentID,
		Title:       title,
		ContentType: contentType,
		Path:        path,
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO attachments (key, parent_id, title, content_type, path) VALUES (?, ?, ?, ?, ?)`,
		att.Key, parentID, title, contentType, path,
	)
	if err != nil {
		return types.Attachment{}, fmt.Errorf("inserting attachment: %w", err)
	}
	if att.ID, err = res.LastInsertId(); err != nil {
		return types.Attachment{}, fmt.Errorf("reading attachment id: %w", err)
	}
	return att, nil
}

// Attachments returns the attachments of parentID in insertion order.
func (s *Store) Attachments(ctx context.Context, parentID int64) ([]types.Attachment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, key, parent_id, title, content_type, path
		 FROM attachments WHERE parent_id = ? ORDER BY id`, parentID)
	if err != nil {
		return nil, fmt.Errorf("querying attachments: %w", err)
	}
	defer rows.Close()

	var atts []types.Attachment
	for rows.Next() {
		var (
			a           types.Attachment
			title, ctyp sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.Key, &a.ParentID, &title, &ctyp, &a.Path); err != nil {
			return nil, fmt.Errorf("scanning attachment: %w", err)
		}
		a.Title = title.String
		a.ContentType = ctyp.String
		atts = append(atts, a)
	}
	return atts, rows.Err()
}
