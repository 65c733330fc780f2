package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/companion"
	"github.com/aretw0/companion/internal/buildinfo"
	"github.com/aretw0/companion/internal/logging"
	"github.com/aretw0/companion/internal/presentation/graph"
	"github.com/aretw0/companion/pkg/domain"
	"github.com/aretw0/companion/pkg/dsl"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 64 << 10

// Agent is the part of companion.Agent the API serves.
type Agent interface {
	HandleMessage(ctx context.Context, sessionID, text string) (*companion.Reply, error)
	Conversation(ctx context.Context, sessionID string) (*domain.Conversation, error)
	Sessions(ctx context.Context) ([]string, error)
	Forget(ctx context.Context, sessionID string) error
	Graph() *dsl.Graph
}

var _ Agent = (*companion.Agent)(nil)

// Server exposes an Agent over JSON.
type Server struct {
	Agent   Agent
	Streams *StreamManager
	logger  *slog.Logger
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// MessageRequest is the body of POST /sessions/{id}/messages.
type MessageRequest struct {
	Text string `json:"text"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// NewHandler creates the HTTP handler for agent.
func NewHandler(agent Agent, opts ...Option) http.Handler {
	s := &Server{
		Agent:  agent,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/graph", s.GetGraph)
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Get("/{id}", s.GetSession)
		r.Delete("/{id}", s.DeleteSession)
		r.Post("/{id}/messages", s.PostMessage)
		r.Get("/{id}/events", s.SubscribeEvents)
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PostMessage handles POST /sessions/{id}/messages: it runs one turn and
// answers with the reply. Audio bytes travel base64 encoded.
func (s *Server) PostMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	var body MessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(&body); err != nil {
		s.writeError(w, r, domain.Wrap(domain.ErrValidation, "invalid request body", err))
		return
	}

	reply, err := s.Agent.HandleMessage(r.Context(), sessionID, body.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if payload, err := json.Marshal(reply); err == nil {
		s.Streams.Broadcast(sessionID, string(payload))
	}
	s.writeJSON(w, http.StatusOK, reply)
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Agent.Sessions(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	conv, err := s.Agent.Conversation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, conv)
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Agent.Forget(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetGraph handles GET /graph with the Mermaid flowchart of the turn graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(s.Agent.Graph(), nil))
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, buildinfo.Info())
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, domain.ErrValidation), errors.As(err, &maxBytes):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case domain.KindOf(err) != "internal":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	kind := domain.KindOf(err)
	if errors.Is(err, domain.ErrSessionNotFound) {
		kind = "not_found"
	}
	logger := s.logger.With("method", r.Method, "path", r.URL.Path, "status", status, "request_id", middleware.GetReqID(r.Context()))
	if status >= 500 {
		logger.Error("Request failed", "err", err)
	} else {
		logger.Warn("Request rejected", "err", err)
	}
	s.writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kind})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}
