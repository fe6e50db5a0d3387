package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite" // pure Go sqlite driver

	"github.com/knowledge-engine/quizbank/internal/record"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		name TEXT PRIMARY KEY,
		position INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY,
		category TEXT NOT NULL REFERENCES categories(name),
		position INTEGER NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		keywords TEXT NOT NULL,
		create_time TEXT NOT NULL,
		update_time TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_questions_category ON questions(category, position);`,
}

// SQLiteStorage implements CatalogStorage on a SQLite database file
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates the database and its schema.
func NewSQLiteStorage(ctx context.Context, path string) (*SQLiteStorage, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	for _, stmt := range append([]string{"PRAGMA journal_mode=WAL;"}, schema...) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return &SQLiteStorage{db: db}, nil
}

// Save replaces the stored catalog in one transaction
func (s *SQLiteStorage) Save(ctx context.Context, c *record.Catalog) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{`DELETE FROM questions`, `DELETE FROM categories`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to clear catalog: %w", err)
		}
	}
	for i, cat := range c.Categories() {
		if _, err := tx.ExecContext(ctx, `INSERT INTO categories(name, position) VALUES(?, ?)`, cat, i); err != nil {
			return fmt.Errorf("failed to insert category %s: %w", cat, err)
		}
		for j, r := range c.Records(cat) {
			keywords, err := json.Marshal(r.Keywords)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx, `INSERT INTO questions(id, category, position, question, answer, keywords, create_time, update_time)
				VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
				r.ID, cat, j, r.Question, r.Answer, string(keywords), r.CreateTime, r.UpdateTime)
			if err != nil {
				return fmt.Errorf("failed to insert question %d: %w", r.ID, err)
			}
		}
	}
	return tx.Commit()
}

// Load reads the catalog in saved order
func (s *SQLiteStorage) Load(ctx context.Context) (*record.Catalog, error) {
	c := record.NewCatalog()
	cats, err := s.db.QueryContext(ctx, `SELECT name FROM categories ORDER BY position`)
	if err != nil {
		return nil, err
	}
	for cats.Next() {
		var name string
		if err := cats.Scan(&name); err != nil {
			cats.Close()
			return nil, err
		}
		c.Append(name)
	}
	cats.Close()
	if err := cats.Err(); err != nil {
		return nil, err
	}
	if len(c.Categories()) == 0 {
		return nil, ErrNoCatalog
	}

	rows, err := s.db.QueryContext(ctx, `SELECT q.id, q.category, q.question, q.answer, q.keywords, q.create_time, q.update_time
		FROM questions q JOIN categories c ON c.name = q.category
		ORDER BY c.position, q.position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var r record.QuestionRecord
		var keywords string
		if err := rows.Scan(&r.ID, &r.Category, &r.Question, &r.Answer, &keywords, &r.CreateTime, &r.UpdateTime); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(keywords), &r.Keywords); err != nil {
			return nil, fmt.Errorf("invalid keywords of question %d: %w", r.ID, err)
		}
		c.Append(r.Category, r)
	}
	return c, rows.Err()
}

// Close closes the database
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
