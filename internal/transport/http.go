// internal/transport/http.go

// Package transport exposes the front desk protocol over HTTP.
package transport

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"frontdesk/internal/protocol"
)

// maxBody bounds a single POST /commands payload.
const maxBody = 1 << 20

type Handler struct {
	server *protocol.Server
	logger *slog.Logger
}

func NewHandler(server *protocol.Server, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{server: server, logger: logger}
}

// Router mounts the command endpoint and a health check.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.handleHealth)
	r.Post("/commands", h.handleCommands)
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "ok\n")
}

// handleCommands answers every request in the body, one response per line.
func (h *Handler) handleCommands(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		http.Error(w, "empty request", http.StatusBadRequest)
		return
	}

	responses := h.server.HandleInput(r.Context(), string(body))
	h.logger.DebugContext(r.Context(), "commands handled",
		"request_id", middleware.GetReqID(r.Context()), "responses", len(responses))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	for _, resp := range responses {
		io.WriteString(w, resp+"\n")
	}
}
