// Package server exposes the tutor over HTTP.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sourabpanch7/sme-agent/pkg/workflow"
)

// genericFailure is all a caller learns about internal errors.
const genericFailure = "unable to process this request right now"

// TurnHandler runs one conversation turn.
type TurnHandler interface {
	Turn(ctx context.Context, threadID, message string) (*workflow.TurnResult, error)
}

// Server routes chat requests to the workflow engine.
type Server struct {
	engine TurnHandler
	router chi.Router
}

// New creates the HTTP server around an engine.
func New(engine TurnHandler) *Server {
	s := &Server{engine: engine}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Post("/chat", s.handleChat)
	r.Get("/healthz", s.handleHealth)
	s.router = r

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// chatRequest is one user turn. UserID keys the conversation thread;
// MessageID is the caller's id for this message and is echoed nowhere, the
// reply carries its own id.
type chatRequest struct {
	UserID    string `json:"user_id"`
	Query     string `json:"query"`
	MessageID string `json:"message_id"`
}

type contentItem struct {
	Text       string   `json:"text"`
	SourceDocs []string `json:"source_docs,omitempty"`
}

type chatResponse struct {
	UserID    string        `json:"user_id"`
	Role      string        `json:"role"`
	MessageID string        `json:"message_id"`
	Timestamp time.Time     `json:"timestamp"`
	Content   []contentItem `json:"content"`
	Outcome   string        `json:"outcome"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is required"})
		return
	}

	result, err := s.engine.Turn(r.Context(), req.UserID, req.Query)
	if err != nil {
		slog.Error("Turn failed",
			"request_id", middleware.GetReqID(r.Context()),
			"user_id", req.UserID,
			"message_id", req.MessageID,
			"error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: genericFailure})
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		UserID:    result.ThreadID,
		Role:      result.Role,
		MessageID: result.MessageID,
		Timestamp: result.Timestamp,
		Content: []contentItem{
			{Text: result.Answer, SourceDocs: result.SourceDocs},
		},
		Outcome: string(result.Outcome),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
