package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/example/totvocab/pkg/models"
)

// SQLStore is the relational backend. The category index is the row's
// category column and the timeline is created_at ordering, so the set and
// sorted-set semantics of the primary backend hold here by construction.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore opens a database connection. A postgres:// URL selects the
// postgres driver; anything else is treated as a sqlite file path.
func NewSQLStore(databaseURL string) (*SQLStore, error) {
	driver := "sqlite3"
	dsn := databaseURL
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		driver = "postgres"
	} else {
		if dir := filepath.Dir(databaseURL); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %v", err)
			}
		}
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	if driver == "sqlite3" {
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	s := &SQLStore{db: db}
	if err := s.initializeSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// initializeSchema creates necessary tables if they don't exist
func (s *SQLStore) initializeSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS words (
			id TEXT PRIMARY KEY,
			word TEXT NOT NULL,
			category TEXT NOT NULL,
			context TEXT NOT NULL DEFAULT '',
			pronunciation TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			related_words TEXT NOT NULL DEFAULT '[]',
			is_part_of_sentence BOOLEAN NOT NULL DEFAULT false,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create words table: %v", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_words_category ON words(category)`)
	if err != nil {
		return fmt.Errorf("failed to create category index: %v", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TEXT NOT NULL,
			position BIGINT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create messages table: %v", err)
	}

	return nil
}

// wordRow mirrors the words table; related_words is a JSON array column.
type wordRow struct {
	ID               string `db:"id"`
	Word             string `db:"word"`
	Category         string `db:"category"`
	Context          string `db:"context"`
	Pronunciation    string `db:"pronunciation"`
	Notes            string `db:"notes"`
	RelatedWords     string `db:"related_words"`
	IsPartOfSentence bool   `db:"is_part_of_sentence"`
	CreatedAt        int64  `db:"created_at"`
	UpdatedAt        int64  `db:"updated_at"`
}

func (r wordRow) toRecord() models.WordRecord {
	record := models.WordRecord{
		ID:               r.ID,
		Word:             r.Word,
		Category:         r.Category,
		Context:          r.Context,
		Pronunciation:    r.Pronunciation,
		Notes:            r.Notes,
		IsPartOfSentence: r.IsPartOfSentence,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.RelatedWords != "" && r.RelatedWords != "null" {
		var related []string
		if err := json.Unmarshal([]byte(r.RelatedWords), &related); err == nil {
			record.RelatedWords = related
		}
	}
	return record
}

func relatedWordsJSON(related []string) string {
	if related == nil {
		return "[]"
	}
	data, _ := json.Marshal(related)
	return string(data)
}

// AddWord inserts a new record.
func (s *SQLStore) AddWord(ctx context.Context, fields models.WordFields) (*models.WordRecord, error) {
	record := newWordRecord(fields)

	query := s.db.Rebind(`
		INSERT INTO words (id, word, category, context, pronunciation, notes,
			related_words, is_part_of_sentence, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.Word,
		record.Category,
		record.Context,
		record.Pronunciation,
		record.Notes,
		relatedWordsJSON(record.RelatedWords),
		record.IsPartOfSentence,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create word: %v", err)
	}

	return record, nil
}

// GetWord returns a word record by id.
func (s *SQLStore) GetWord(ctx context.Context, id string) (*models.WordRecord, error) {
	var row wordRow
	query := s.db.Rebind(`SELECT * FROM words WHERE id = ?`)
	err := s.db.GetContext(ctx, &row, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get word by ID: %v", err)
	}
	record := row.toRecord()
	return &record, nil
}

// GetWordsByCategory returns the records in a category.
func (s *SQLStore) GetWordsByCategory(ctx context.Context, category string) ([]models.WordRecord, error) {
	var rows []wordRow
	query := s.db.Rebind(`SELECT * FROM words WHERE category = ? ORDER BY created_at`)
	if err := s.db.SelectContext(ctx, &rows, query, category); err != nil {
		return nil, fmt.Errorf("failed to get words by category: %v", err)
	}
	return rowsToRecords(rows), nil
}

// GetRecentWords returns the last limit records in timeline order, oldest
// to newest.
func (s *SQLStore) GetRecentWords(ctx context.Context, limit int) ([]models.WordRecord, error) {
	var rows []wordRow
	query := s.db.Rebind(`
		SELECT * FROM (
			SELECT * FROM words ORDER BY created_at DESC LIMIT ?
		) recent ORDER BY created_at
	`)
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get recent words: %v", err)
	}
	return rowsToRecords(rows), nil
}

func rowsToRecords(rows []wordRow) []models.WordRecord {
	records := make([]models.WordRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toRecord())
	}
	return records
}

// UpdateWord merges the partial update over the stored record and rewrites
// the row. The category column doubles as the category index, so a category
// change needs no extra bookkeeping here.
func (s *SQLStore) UpdateWord(ctx context.Context, id string, update WordUpdate) (*models.WordRecord, error) {
	existing, err := s.GetWord(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := applyUpdate(*existing, update)
	query := s.db.Rebind(`
		UPDATE words SET
			word = ?,
			category = ?,
			context = ?,
			pronunciation = ?,
			notes = ?,
			related_words = ?,
			is_part_of_sentence = ?,
			updated_at = ?
		WHERE id = ?
	`)
	_, err = s.db.ExecContext(ctx, query,
		merged.Word,
		merged.Category,
		merged.Context,
		merged.Pronunciation,
		merged.Notes,
		relatedWordsJSON(merged.RelatedWords),
		merged.IsPartOfSentence,
		merged.UpdatedAt,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update word: %v", err)
	}

	return &merged, nil
}

// DeleteWord removes a record.
func (s *SQLStore) DeleteWord(ctx context.Context, id string) error {
	query := s.db.Rebind(`DELETE FROM words WHERE id = ?`)
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete word: %v", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %v", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// CategoryStats counts records per fixed category.
func (s *SQLStore) CategoryStats(ctx context.Context) (map[string]int, error) {
	stats := make(map[string]int, len(models.Categories()))
	for _, category := range models.Categories() {
		stats[category] = 0
	}

	rows, err := s.db.QueryxContext(ctx, `SELECT category, COUNT(*) FROM words GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to count categories: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %v", err)
		}
		if _, ok := stats[category]; ok {
			stats[category] = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read category counts: %v", err)
	}

	return stats, nil
}

// AddMessage appends one transcript turn.
func (s *SQLStore) AddMessage(ctx context.Context, role, content string) (*models.ChatMessage, error) {
	message := newChatMessage(role, content)

	query := s.db.Rebind(`
		INSERT INTO messages (id, role, content, created_at, position)
		VALUES (?, ?, ?, ?, ?)
	`)
	_, err := s.db.ExecContext(ctx, query, message.ID, message.Role, message.Content, message.CreatedAt, nowMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %v", err)
	}

	return message, nil
}

// RecentMessages returns the last limit transcript turns, oldest to newest.
func (s *SQLStore) RecentMessages(ctx context.Context, limit int) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	query := s.db.Rebind(`
		SELECT id, role, content, created_at FROM (
			SELECT * FROM messages ORDER BY position DESC LIMIT ?
		) recent ORDER BY position
	`)
	if err := s.db.SelectContext(ctx, &messages, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get recent messages: %v", err)
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	return messages, nil
}

// DeleteMessage removes a transcript turn without checking for existence.
func (s *SQLStore) DeleteMessage(ctx context.Context, id string) error {
	query := s.db.Rebind(`DELETE FROM messages WHERE id = ?`)
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete message: %v", err)
	}
	return nil
}
