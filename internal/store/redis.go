package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/example/totvocab/pkg/models"
)

// Key layout, one hash per record plus index structures:
//
//	word:{id}       hash with the record fields
//	category:{cat}  set of record ids in the category
//	timeline        sorted set of record ids scored by createdAt
//	message:{id}    hash with one transcript turn
//	messages        sorted set of message ids scored by insertion time
const (
	wordKeyPrefix     = "word:"
	categoryKeyPrefix = "category:"
	timelineKey       = "timeline"
	messageKeyPrefix  = "message:"
	messagesKey       = "messages"
)

// RedisStore keeps records in a remote key/set/sorted-set service.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the store at the given URL. A non-empty token
// overrides the password embedded in the URL.
func NewRedisStore(url, token string) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse store URL: %v", err)
	}
	if token != "" {
		opt.Password = token
	}
	return &RedisStore{client: redis.NewClient(opt)}, nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func wordKey(id string) string      { return wordKeyPrefix + id }
func categoryKey(cat string) string { return categoryKeyPrefix + cat }
func messageKey(id string) string   { return messageKeyPrefix + id }

// wordHash flattens a record into hash fields. relatedWords is stored as a
// JSON array so the hash stays flat.
func wordHash(record *models.WordRecord) map[string]interface{} {
	related, _ := json.Marshal(record.RelatedWords)
	return map[string]interface{}{
		"id":               record.ID,
		"word":             record.Word,
		"category":         record.Category,
		"context":          record.Context,
		"pronunciation":    record.Pronunciation,
		"notes":            record.Notes,
		"relatedWords":     string(related),
		"isPartOfSentence": strconv.FormatBool(record.IsPartOfSentence),
		"createdAt":        strconv.FormatInt(record.CreatedAt, 10),
		"updatedAt":        strconv.FormatInt(record.UpdatedAt, 10),
	}
}

// parseWordHash rebuilds a record from hash fields, tolerating missing or
// malformed optional fields.
func parseWordHash(fields map[string]string) *models.WordRecord {
	record := &models.WordRecord{
		ID:            fields["id"],
		Word:          fields["word"],
		Category:      fields["category"],
		Context:       fields["context"],
		Pronunciation: fields["pronunciation"],
		Notes:         fields["notes"],
	}
	if raw := fields["relatedWords"]; raw != "" && raw != "null" {
		var related []string
		if err := json.Unmarshal([]byte(raw), &related); err == nil {
			record.RelatedWords = related
		}
	}
	record.IsPartOfSentence, _ = strconv.ParseBool(fields["isPartOfSentence"])
	record.CreatedAt, _ = strconv.ParseInt(fields["createdAt"], 10, 64)
	record.UpdatedAt, _ = strconv.ParseInt(fields["updatedAt"], 10, 64)
	return record
}

// AddWord writes the record hash, then the category set, then the timeline.
// The three steps are separate round trips; a failure in between leaves a
// partially indexed record, which readers tolerate.
func (s *RedisStore) AddWord(ctx context.Context, fields models.WordFields) (*models.WordRecord, error) {
	record := newWordRecord(fields)

	if err := s.client.HSet(ctx, wordKey(record.ID), wordHash(record)).Err(); err != nil {
		return nil, fmt.Errorf("failed to store word record: %v", err)
	}
	if err := s.client.SAdd(ctx, categoryKey(record.Category), record.ID).Err(); err != nil {
		return nil, fmt.Errorf("failed to index word category: %v", err)
	}
	if err := s.client.ZAdd(ctx, timelineKey, redis.Z{Score: float64(record.CreatedAt), Member: record.ID}).Err(); err != nil {
		return nil, fmt.Errorf("failed to index word timeline: %v", err)
	}

	return record, nil
}

// GetWord returns the record stored under the id, or ErrNotFound.
func (s *RedisStore) GetWord(ctx context.Context, id string) (*models.WordRecord, error) {
	fields, err := s.client.HGetAll(ctx, wordKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get word record: %v", err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return parseWordHash(fields), nil
}

// GetWordsByCategory looks up every member of the category set, omitting
// ids whose record hash has been deleted.
func (s *RedisStore) GetWordsByCategory(ctx context.Context, category string) ([]models.WordRecord, error) {
	ids, err := s.client.SMembers(ctx, categoryKey(category)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get category members: %v", err)
	}
	return s.collectWords(ctx, ids)
}

// GetRecentWords reads the tail of the timeline, oldest to newest.
func (s *RedisStore) GetRecentWords(ctx context.Context, limit int) ([]models.WordRecord, error) {
	ids, err := s.client.ZRange(ctx, timelineKey, int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read timeline: %v", err)
	}
	return s.collectWords(ctx, ids)
}

func (s *RedisStore) collectWords(ctx context.Context, ids []string) ([]models.WordRecord, error) {
	records := make([]models.WordRecord, 0, len(ids))
	for _, id := range ids {
		record, err := s.GetWord(ctx, id)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}

// UpdateWord merges the partial update over the stored record and rewrites
// it. A category change moves the id between the two category sets; the two
// set writes are not atomic.
func (s *RedisStore) UpdateWord(ctx context.Context, id string, update WordUpdate) (*models.WordRecord, error) {
	existing, err := s.GetWord(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := applyUpdate(*existing, update)
	if err := s.client.HSet(ctx, wordKey(id), wordHash(&merged)).Err(); err != nil {
		return nil, fmt.Errorf("failed to update word record: %v", err)
	}

	if merged.Category != existing.Category {
		if err := s.client.SRem(ctx, categoryKey(existing.Category), id).Err(); err != nil {
			return nil, fmt.Errorf("failed to remove old category index: %v", err)
		}
		if err := s.client.SAdd(ctx, categoryKey(merged.Category), id).Err(); err != nil {
			return nil, fmt.Errorf("failed to add new category index: %v", err)
		}
	}

	return &merged, nil
}

// DeleteWord removes the record hash, its category membership and its
// timeline entry.
func (s *RedisStore) DeleteWord(ctx context.Context, id string) error {
	existing, err := s.GetWord(ctx, id)
	if err != nil {
		return err
	}

	if err := s.client.Del(ctx, wordKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete word record: %v", err)
	}
	if err := s.client.SRem(ctx, categoryKey(existing.Category), id).Err(); err != nil {
		return fmt.Errorf("failed to remove category index: %v", err)
	}
	if err := s.client.ZRem(ctx, timelineKey, id).Err(); err != nil {
		return fmt.Errorf("failed to remove timeline entry: %v", err)
	}

	return nil
}

// CategoryStats returns the cardinality of every fixed category set.
func (s *RedisStore) CategoryStats(ctx context.Context) (map[string]int, error) {
	stats := make(map[string]int, len(models.Categories()))
	for _, category := range models.Categories() {
		count, err := s.client.SCard(ctx, categoryKey(category)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to count category %s: %v", category, err)
		}
		stats[category] = int(count)
	}
	return stats, nil
}

// AddMessage appends one transcript turn and indexes it into the message
// timeline.
func (s *RedisStore) AddMessage(ctx context.Context, role, content string) (*models.ChatMessage, error) {
	message := newChatMessage(role, content)

	hash := map[string]interface{}{
		"id":        message.ID,
		"role":      message.Role,
		"content":   message.Content,
		"createdAt": message.CreatedAt,
	}
	if err := s.client.HSet(ctx, messageKey(message.ID), hash).Err(); err != nil {
		return nil, fmt.Errorf("failed to store message: %v", err)
	}
	score := float64(nowMilli())
	if err := s.client.ZAdd(ctx, messagesKey, redis.Z{Score: score, Member: message.ID}).Err(); err != nil {
		return nil, fmt.Errorf("failed to index message: %v", err)
	}

	return message, nil
}

// RecentMessages reads the tail of the message timeline, oldest to newest,
// skipping entries whose hash is missing or incomplete.
func (s *RedisStore) RecentMessages(ctx context.Context, limit int) ([]models.ChatMessage, error) {
	ids, err := s.client.ZRange(ctx, messagesKey, int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read message timeline: %v", err)
	}

	messages := make([]models.ChatMessage, 0, len(ids))
	for _, id := range ids {
		fields, err := s.client.HGetAll(ctx, messageKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to get message: %v", err)
		}
		if fields["role"] == "" || fields["content"] == "" {
			continue
		}
		messages = append(messages, models.ChatMessage{
			ID:        fields["id"],
			Role:      fields["role"],
			Content:   fields["content"],
			CreatedAt: fields["createdAt"],
		})
	}
	return messages, nil
}

// DeleteMessage removes a transcript turn without checking for existence.
func (s *RedisStore) DeleteMessage(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, messageKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete message: %v", err)
	}
	if err := s.client.ZRem(ctx, messagesKey, id).Err(); err != nil {
		return fmt.Errorf("failed to remove message timeline entry: %v", err)
	}
	return nil
}
