package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"

	"github.com/example/totvocab/internal/ai"
	"github.com/example/totvocab/internal/parser"
	"github.com/example/totvocab/internal/store"
	"github.com/example/totvocab/pkg/models"
)

// listLimit caps how many records the list and stats endpoints fetch.
const listLimit = 1000

// recentLimit is the size of the recent-records panel.
const recentLimit = 5

// historyLimit caps the transcript returned by the history endpoint.
const historyLimit = 100

type chatRequest struct {
	Messages []ai.Message `json:"messages"`
}

// handleChat forwards the conversation to the completion provider, persists
// the exchanged turns, and extracts a word event from the reply. Storage
// failures on this path are logged and swallowed: the assistant's reply is
// always returned once the provider has produced it.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.completer.Configured() {
		log.Println("[ERROR] Completion provider credentials are not configured")
		writeError(w, http.StatusInternalServerError, "API密钥未配置")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON structure")
		return
	}

	reply, err := s.completer.ChatCompletion(r.Context(), req.Messages)
	if err != nil {
		log.Printf("[ERROR] Completion request failed: %v", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("API调用失败: %v", err))
		return
	}

	s.recordExchange(r.Context(), req.Messages, reply)

	if event := parser.Parse(reply); event.Kind != parser.None {
		if err := s.applyWordEvent(r.Context(), event); err != nil {
			log.Printf("[WARN] Failed to store word event: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, ai.Message{Role: models.RoleAssistant, Content: reply})
}

// recordExchange appends the latest user turn and the assistant reply to
// the transcript, logging failures instead of surfacing them.
func (s *Server) recordExchange(ctx context.Context, messages []ai.Message, reply string) {
	if n := len(messages); n > 0 && messages[n-1].Role == models.RoleUser {
		if _, err := s.store.AddMessage(ctx, models.RoleUser, messages[n-1].Content); err != nil {
			log.Printf("[WARN] Failed to store user message: %v", err)
		}
	}
	if _, err := s.store.AddMessage(ctx, models.RoleAssistant, reply); err != nil {
		log.Printf("[WARN] Failed to store assistant message: %v", err)
	}
}

// applyWordEvent turns a parsed reply template into a store mutation.
// Modifications are matched against prior records by word text; when no
// record matches, the event is dropped with a log line.
func (s *Server) applyWordEvent(ctx context.Context, event parser.WordEvent) error {
	switch event.Kind {
	case parser.Add:
		record, err := s.store.AddWord(ctx, models.WordFields{
			Word:     event.Word,
			Category: models.NormalizeCategory(event.Category),
			Context:  event.Context,
		})
		if err != nil {
			return err
		}
		log.Printf("[INFO] Recorded word %q in category %s (id=%s)", record.Word, record.Category, record.ID)
		return nil

	case parser.Modify, parser.Classify:
		lookup := event.OldWord
		if lookup == "" {
			lookup = event.Word
		}
		existing, err := s.findRecordByWord(ctx, lookup)
		if err != nil {
			return err
		}
		if existing == nil {
			log.Printf("[WARN] No record matches word %q, modification dropped", lookup)
			return nil
		}

		update := store.WordUpdate{}
		if event.Kind == parser.Modify && event.Word != "" {
			update.Word = &event.Word
		}
		if event.Category != "" {
			category := models.NormalizeCategory(event.Category)
			update.Category = &category
		}
		if event.Kind == parser.Modify && event.Context != "" {
			update.Context = &event.Context
		}

		updated, err := s.store.UpdateWord(ctx, existing.ID, update)
		if err != nil {
			return err
		}
		log.Printf("[INFO] Updated word %q in category %s (id=%s)", updated.Word, updated.Category, updated.ID)
		return nil
	}

	return nil
}

// findRecordByWord returns the newest record whose word text matches, or
// nil when none does.
func (s *Server) findRecordByWord(ctx context.Context, word string) (*models.WordRecord, error) {
	records, err := s.store.GetRecentWords(ctx, listLimit)
	if err != nil {
		return nil, err
	}
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Word == word {
			return &records[i], nil
		}
	}
	return nil, nil
}

// handleChatHistory returns the stored transcript; storage failure degrades
// to an empty array, never an error body.
func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	messages, err := s.store.RecentMessages(r.Context(), historyLimit)
	if err != nil {
		log.Printf("[WARN] Failed to fetch chat history: %v", err)
		messages = []models.ChatMessage{}
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, messages)
}

// handleStats reports the total vocabulary, per-category counts and the
// trailing seven days of additions.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	categories, err := s.store.CategoryStats(r.Context())
	if err != nil {
		log.Printf("[ERROR] Failed to fetch category stats: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch statistics")
		return
	}

	total := 0
	for _, count := range categories {
		total += count
	}

	recent, err := s.store.GetRecentWords(r.Context(), listLimit)
	if err != nil {
		log.Printf("[ERROR] Failed to fetch recent words for stats: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch statistics")
		return
	}

	writeJSON(w, http.StatusOK, models.Statistics{
		Total:      total,
		Categories: categories,
		DailyStats: dailyCounts(recent, 7),
	})
}

// handleAddWord creates a record directly, bypassing the chat flow.
func (s *Server) handleAddWord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var fields models.WordFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON structure")
		return
	}

	if fields.Word == "" || fields.Category == "" {
		writeError(w, http.StatusBadRequest, "词语和分类是必填项")
		return
	}
	fields.Category = models.NormalizeCategory(fields.Category)

	record, err := s.store.AddWord(r.Context(), fields)
	if err != nil {
		log.Printf("[ERROR] Failed to add word: %v", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("添加词语失败: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]*models.WordRecord{"word": record})
}

// handleListWords returns up to 1000 records, newest first; storage failure
// degrades to an empty list.
func (s *Server) handleListWords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, err := s.store.GetRecentWords(r.Context(), listLimit)
	if err != nil {
		log.Printf("[WARN] Failed to fetch words list: %v", err)
		records = nil
	}

	// Reverse the stored oldest-first order, then sort by creation time so
	// same-millisecond records keep their newest-first timeline order.
	words := make([]models.WordRecord, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		words = append(words, records[i])
	}
	sort.SliceStable(words, func(i, j int) bool {
		return words[i].CreatedAt > words[j].CreatedAt
	})
	writeJSON(w, http.StatusOK, map[string][]models.WordRecord{"words": words})
}

// handleRecentWords returns the five most recent records in stored timeline
// order; storage failure degrades to an empty list.
func (s *Server) handleRecentWords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, err := s.store.GetRecentWords(r.Context(), recentLimit)
	if err != nil {
		log.Printf("[WARN] Failed to fetch recent words: %v", err)
		records = []models.WordRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// handleDeleteWord removes a record by the id query parameter.
func (s *Server) handleDeleteWord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "缺少ID参数")
		return
	}

	if err := s.store.DeleteWord(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "记录不存在")
			return
		}
		log.Printf("[ERROR] Failed to delete word %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "删除失败")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
