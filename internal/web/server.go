// Package web serves the hosting-platform surface: a liveness endpoint
// and a minimal registration form for subscribing a chat by id.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"lootbot/pkg/logx"
)

type Registry interface {
	Add(ctx context.Context, chatID int64) error
	Count(ctx context.Context) (int, error)
}

type Server struct {
	srv      *http.Server
	registry Registry
	log      logx.Logger
}

func New(addr string, reg Registry, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Server{registry: reg, log: log}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleIndex)
	r.Post("/register", s.handleRegister)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start serves in the background until Stop.
func (s *Server) Start() {
	go func() {
		s.log.Info("web server listening", logx.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("web server error", logx.Err(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	recipients, err := s.registry.Count(r.Context())
	if err != nil {
		// Liveness must not depend on the registry; report and stay healthy.
		s.log.Warn("recipient count failed", logx.Err(err))
		recipients = -1
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":     "ok",
		"recipients": recipients,
	})
}

const indexPage = `<!DOCTYPE html>
<html>
<head><title>lootbot</title></head>
<body>
<h1>Steam giveaway bot</h1>
<p>Register a Telegram chat id to receive -100% promotion alerts.</p>
<form method="POST" action="/register">
  <label>Chat id: <input type="text" name="chat_id"></label>
  <button type="submit">Subscribe</button>
</form>
</body>
</html>
`

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexPage))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	chatID, err := strconv.ParseInt(r.PostFormValue("chat_id"), 10, 64)
	if err != nil {
		http.Error(w, "chat_id must be an integer", http.StatusBadRequest)
		return
	}
	if err := s.registry.Add(r.Context(), chatID); err != nil {
		s.log.Error("web registration failed", logx.Int64("chat_id", chatID), logx.Err(err))
		http.Error(w, "registration failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte("<p>Subscribed. You can close this page.</p>"))
}
