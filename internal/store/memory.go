package store

import (
	"context"
	"sync"

	"github.com/example/totvocab/pkg/models"
)

// MemoryStore is an in-process implementation of Store. It backs tests and
// credential-less development runs; nothing survives a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	words    map[string]models.WordRecord
	timeline []string // record ids in insertion order
	messages []models.ChatMessage
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		words: make(map[string]models.WordRecord),
	}
}

// AddWord stores the record and appends its id to the timeline.
func (s *MemoryStore) AddWord(ctx context.Context, fields models.WordFields) (*models.WordRecord, error) {
	record := newWordRecord(fields)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.words[record.ID] = *record
	s.timeline = append(s.timeline, record.ID)

	copied := *record
	return &copied, nil
}

// GetWord returns the record stored under the id, or ErrNotFound.
func (s *MemoryStore) GetWord(ctx context.Context, id string) (*models.WordRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.words[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &record, nil
}

// GetWordsByCategory returns the records in a category in timeline order.
func (s *MemoryStore) GetWordsByCategory(ctx context.Context, category string) ([]models.WordRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]models.WordRecord, 0)
	for _, id := range s.timeline {
		if record, ok := s.words[id]; ok && record.Category == category {
			records = append(records, record)
		}
	}
	return records, nil
}

// GetRecentWords returns the last limit records, oldest to newest.
func (s *MemoryStore) GetRecentWords(ctx context.Context, limit int) ([]models.WordRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := len(s.timeline) - limit
	if start < 0 {
		start = 0
	}
	records := make([]models.WordRecord, 0, len(s.timeline)-start)
	for _, id := range s.timeline[start:] {
		if record, ok := s.words[id]; ok {
			records = append(records, record)
		}
	}
	return records, nil
}

// UpdateWord merges the partial update over the stored record.
func (s *MemoryStore) UpdateWord(ctx context.Context, id string, update WordUpdate) (*models.WordRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.words[id]
	if !ok {
		return nil, ErrNotFound
	}

	merged := applyUpdate(existing, update)
	s.words[id] = merged
	return &merged, nil
}

// DeleteWord removes the record and its timeline entry.
func (s *MemoryStore) DeleteWord(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.words[id]; !ok {
		return ErrNotFound
	}
	delete(s.words, id)
	for i, tid := range s.timeline {
		if tid == id {
			s.timeline = append(s.timeline[:i], s.timeline[i+1:]...)
			break
		}
	}
	return nil
}

// CategoryStats counts records per fixed category.
func (s *MemoryStore) CategoryStats(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := make(map[string]int, len(models.Categories()))
	for _, category := range models.Categories() {
		stats[category] = 0
	}
	for _, record := range s.words {
		if _, ok := stats[record.Category]; ok {
			stats[record.Category]++
		}
	}
	return stats, nil
}

// AddMessage appends one transcript turn.
func (s *MemoryStore) AddMessage(ctx context.Context, role, content string) (*models.ChatMessage, error) {
	message := newChatMessage(role, content)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, *message)

	copied := *message
	return &copied, nil
}

// RecentMessages returns the last limit transcript turns, oldest to newest.
func (s *MemoryStore) RecentMessages(ctx context.Context, limit int) ([]models.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := len(s.messages) - limit
	if start < 0 {
		start = 0
	}
	return append([]models.ChatMessage{}, s.messages[start:]...), nil
}

// DeleteMessage removes a transcript turn without checking for existence.
func (s *MemoryStore) DeleteMessage(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, message := range s.messages {
		if message.ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			break
		}
	}
	return nil
}
