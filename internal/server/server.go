// Package server exposes the HTTP surface: the chat endpoint with its
// word-extraction side effect, the record CRUD endpoints and the statistics
// endpoint.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/example/totvocab/internal/ai"
	"github.com/example/totvocab/internal/store"
)

// Completer is the completion provider as the server sees it; the concrete
// ai.Client satisfies it and tests substitute their own.
type Completer interface {
	Configured() bool
	ChatCompletion(ctx context.Context, messages []ai.Message) (string, error)
}

// Server holds the injected collaborators and the route table.
type Server struct {
	store     store.Store
	completer Completer
	mux       *http.ServeMux
}

// New wires the routes to a server backed by the given store and
// completion provider.
func New(st store.Store, completer Completer) *Server {
	s := &Server{
		store:     st,
		completer: completer,
		mux:       http.NewServeMux(),
	}

	s.mux.HandleFunc("/chat", s.handleChat)
	s.mux.HandleFunc("/chat/history", s.handleChatHistory)
	s.mux.HandleFunc("/stats", s.handleStats)
	s.mux.HandleFunc("/words/add", s.handleAddWord)
	s.mux.HandleFunc("/words/list", s.handleListWords)
	s.mux.HandleFunc("/words/recent", s.handleRecentWords)
	s.mux.HandleFunc("/words/delete", s.handleDeleteWord)

	return s
}

// Handler returns the route table for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
