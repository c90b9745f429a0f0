// ABOUTME: HTTP API for chat turns, selections, direct tool actions and sync control
// ABOUTME: JSON endpoints on a gorilla/mux router plus Prometheus metrics
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/harperreed/deskhand/cards"
	"github.com/harperreed/deskhand/db"
	"github.com/harperreed/deskhand/dispatch"
	"github.com/harperreed/deskhand/models"
	"github.com/harperreed/deskhand/provider"
	"github.com/harperreed/deskhand/session"
	"github.com/harperreed/deskhand/sync"
)

// Backend is what the HTTP API needs from the application.
type Backend interface {
	Engine() *sync.Engine
	Store() *db.Store
	Session(ctx context.Context, userID uuid.UUID) (*session.Session, error)
	Turn(ctx context.Context, userID uuid.UUID, prompt string) (dispatch.Turn, error)
	Dispatcher() *dispatch.Dispatcher
	CapabilityMap(ctx context.Context, userID uuid.UUID) (provider.CapabilityMap, error)
}

type Server struct {
	backend Backend
	router  *mux.Router
	log     zerolog.Logger
}

func NewServer(backend Backend, log zerolog.Logger) *Server {
	s := &Server{backend: backend, router: mux.NewRouter(), log: log}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(s.logRequests)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/users/{userId}").Subrouter()
	api.HandleFunc("/chat", s.handleChat).Methods(http.MethodPost)
	api.HandleFunc("/select", s.handleSelect).Methods(http.MethodPost)
	api.HandleFunc("/cancel", s.handleCancel).Methods(http.MethodPost)
	api.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/tools/{tool}", s.handleTool).Methods(http.MethodPost)
	api.HandleFunc("/sync", s.handleSync).Methods(http.MethodPost)
	api.HandleFunc("/sync/status", s.handleSyncStatus).Methods(http.MethodGet)
	api.HandleFunc("/capabilities", s.handleCapabilities).Methods(http.MethodGet)
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func userID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)["userId"])
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chatRequest struct {
	Input string `json:"input"`
}

type chatResponse struct {
	Messages []dispatch.ResultMessage `json:"messages"`
	// Stale is set when the user cancelled while a tool call was running.
	Stale bool `json:"stale,omitempty"`
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return nil, false
	}
	sess, err := s.backend.Session(r.Context(), uid)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return nil, false
	}
	return sess, true
}

func (s *Server) respondTurn(w http.ResponseWriter, msgs []dispatch.ResultMessage, err error) {
	switch {
	case errors.Is(err, session.ErrSuperseded):
		writeJSON(w, http.StatusOK, chatResponse{Messages: msgs, Stale: true})
	case err != nil:
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeJSON(w, http.StatusOK, chatResponse{Messages: msgs})
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Input == "" {
		writeError(w, http.StatusBadRequest, "input is required")
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	msgs, err := sess.Send(r.Context(), req.Input)
	s.respondTurn(w, msgs, err)
}

type selectRequest struct {
	Kind           cards.Kind   `json:"kind"`
	Option         cards.Option `json:"option"`
	OriginalPrompt string       `json:"original_prompt"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Kind != cards.ContactChoice && req.Kind != cards.DocumentChoice {
		writeError(w, http.StatusBadRequest, "kind must be contact_choice or document_choice")
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	msgs, err := sess.Select(r.Context(), dispatch.Selection{Kind: req.Kind, Option: req.Option, OriginalPrompt: req.OriginalPrompt})
	s.respondTurn(w, msgs, err)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Cancel()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.History())
}

// handleTool runs a card action or contextual action without the model.
func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	args := map[string]any{}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}
	turn, err := s.backend.Turn(r.Context(), uid, "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	msg := s.backend.Dispatcher().Dispatch(r.Context(), dispatch.ToolCall{Name: mux.Vars(r)["tool"], Args: args}, turn)
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	engine := s.backend.Engine()
	if name := r.URL.Query().Get("capability"); name != "" {
		c, err := models.ParseCapability(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		res := engine.RunSingle(r.Context(), uid, c)
		if errors.Is(res.Err, sync.ErrNotSynced) {
			writeError(w, http.StatusBadRequest, res.Error)
			return
		}
		writeJSON(w, http.StatusOK, sync.Report{UserID: uid, Results: []sync.Result{res}})
		return
	}
	writeJSON(w, http.StatusOK, engine.RunAll(r.Context(), uid))
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	statuses, err := s.backend.Store().ListSyncStatus(r.Context(), uid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if statuses == nil {
		statuses = []models.SyncStatus{}
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	m, err := s.backend.CapabilityMap(r.Context(), uid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, m)
}
