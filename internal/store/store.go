// Package store provides durable CRUD and aggregate queries over word
// records and the chat transcript. Three backends implement the same
// interface: redis (the primary key/set/sorted-set layout), sql (sqlite or
// postgres) and an in-process memory store.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/example/totvocab/pkg/models"
)

// ErrNotFound is returned when an operation targets a record id that does
// not exist in the store.
var ErrNotFound = errors.New("record not found")

// WordUpdate carries a partial modification of a word record. Nil fields
// are left unchanged; updatedAt is always refreshed.
type WordUpdate struct {
	Word             *string
	Category         *string
	Context          *string
	Pronunciation    *string
	Notes            *string
	RelatedWords     *[]string
	IsPartOfSentence *bool
}

// Store is the data-access layer for word records and chat messages.
// Implementations make single round trips per call; the multi-step write
// sequences (record, category membership, timeline) are not transactional.
type Store interface {
	// AddWord generates a fresh id and timestamps, persists the record,
	// indexes it into its category and the global timeline, and returns
	// the stored record. Duplicate words are permitted.
	AddWord(ctx context.Context, fields models.WordFields) (*models.WordRecord, error)
	// GetWord is a point lookup; it returns ErrNotFound for unknown ids.
	GetWord(ctx context.Context, id string) (*models.WordRecord, error)
	// GetWordsByCategory resolves the category's member ids and looks each
	// up, omitting ids whose record is missing.
	GetWordsByCategory(ctx context.Context, category string) ([]models.WordRecord, error)
	// GetRecentWords returns up to limit most recent records in stored
	// timeline order, oldest to newest. Callers wanting newest-first
	// re-sort by createdAt.
	GetRecentWords(ctx context.Context, limit int) ([]models.WordRecord, error)
	// UpdateWord merges the given fields over the existing record and
	// rewrites it; a category change moves the id between category sets.
	// Returns ErrNotFound for unknown ids.
	UpdateWord(ctx context.Context, id string, update WordUpdate) (*models.WordRecord, error)
	// DeleteWord removes the record, its category membership and its
	// timeline entry. Returns ErrNotFound for unknown ids.
	DeleteWord(ctx context.Context, id string) error
	// CategoryStats returns the member count of every fixed category;
	// categories never used report 0.
	CategoryStats(ctx context.Context) (map[string]int, error)

	// AddMessage appends one transcript turn with a fresh id and timestamp.
	AddMessage(ctx context.Context, role, content string) (*models.ChatMessage, error)
	// RecentMessages returns up to limit transcript turns, oldest to
	// newest, skipping incomplete entries.
	RecentMessages(ctx context.Context, limit int) ([]models.ChatMessage, error)
	// DeleteMessage unconditionally removes a transcript turn.
	DeleteMessage(ctx context.Context, id string) error
}

func nowMilli() int64 {
	return time.Now().UnixMilli()
}

// newWordRecord builds a record from caller fields with a generated id and
// equal creation/update timestamps.
func newWordRecord(fields models.WordFields) *models.WordRecord {
	now := nowMilli()
	return &models.WordRecord{
		ID:               uuid.NewString(),
		Word:             fields.Word,
		Category:         fields.Category,
		Context:          fields.Context,
		Pronunciation:    fields.Pronunciation,
		Notes:            fields.Notes,
		RelatedWords:     fields.RelatedWords,
		IsPartOfSentence: fields.IsPartOfSentence,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// applyUpdate merges a partial update into a copy of the record. The id and
// createdAt never change; updatedAt is refreshed.
func applyUpdate(record models.WordRecord, update WordUpdate) models.WordRecord {
	if update.Word != nil {
		record.Word = *update.Word
	}
	if update.Category != nil {
		record.Category = *update.Category
	}
	if update.Context != nil {
		record.Context = *update.Context
	}
	if update.Pronunciation != nil {
		record.Pronunciation = *update.Pronunciation
	}
	if update.Notes != nil {
		record.Notes = *update.Notes
	}
	if update.RelatedWords != nil {
		record.RelatedWords = *update.RelatedWords
	}
	if update.IsPartOfSentence != nil {
		record.IsPartOfSentence = *update.IsPartOfSentence
	}
	record.UpdatedAt = nowMilli()
	return record
}

// newChatMessage builds a transcript turn with a generated id.
func newChatMessage(role, content string) *models.ChatMessage {
	return &models.ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().Format(time.RFC3339),
	}
}
