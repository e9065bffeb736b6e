package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sashakarcz/passify/internal/archive"
	"github.com/sashakarcz/passify/internal/events"
	"github.com/sashakarcz/passify/internal/generator"
	"github.com/sashakarcz/passify/internal/history"
	"github.com/sashakarcz/passify/internal/logger"
)

// GenerateResponse is returned by the generate endpoint
type GenerateResponse struct {
	Password string             `json:"password"`
	Length   int                `json:"length"`
	Strength generator.Strength `json:"strength"`
	Settings generator.Settings `json:"settings"`
}

// handleGenerate generates a password from JSON settings. Fields missing
// from the body keep the configured defaults.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	settings := s.sessions.Defaults()
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil && !errors.Is(err, io.EOF) {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	password, strength, err := s.generate(r.Context(), settings)
	if err != nil {
		if errors.Is(err, errHistorySave) {
			WriteJSONError(w, http.StatusInternalServerError, "Failed to save password history", "")
			return
		}
		WriteJSONError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{
		Password: password,
		Length:   len(password),
		Strength: *strength,
		Settings: settings,
	})
}

// HistoryResponse lists history entries newest first
type HistoryResponse struct {
	Entries []history.Entry `json:"entries"`
	Count   int             `json:"count"`
}

// handleHistoryAPI lists (GET) or clears (DELETE) the history
func (s *Server) handleHistoryAPI(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		entries, err := s.history.List(ctx)
		s.metrics.RecordHistoryOperation("list", err)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to list password history")
			WriteJSONError(w, http.StatusInternalServerError, "Failed to get history", err.Error())
			return
		}
		s.metrics.UpdateHistoryEntries(len(entries))

		writeJSON(w, http.StatusOK, HistoryResponse{
			Entries: entries,
			Count:   len(entries),
		})

	case http.MethodDelete:
		err := s.history.Clear(ctx)
		s.metrics.RecordHistoryOperation("clear", err)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to clear password history")
			WriteJSONError(w, http.StatusInternalServerError, "Failed to clear history", err.Error())
			return
		}
		s.metrics.UpdateHistoryEntries(0)

		logger.Info().
			Str("user", currentUser(r)).
			Msg("Password history cleared")
		s.publish(events.EventTypeHistoryCleared, "Password history cleared", nil)

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "History cleared",
		})

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodDelete)
	}
}

// ArchiveRequest represents an archive trigger request
type ArchiveRequest struct {
	TriggeredBy string `json:"triggered_by"`
}

// ArchiveLogResponse lists recent archive commits
type ArchiveLogResponse struct {
	Commits []*archive.CommitInfo `json:"commits"`
}

// handleArchive triggers an archive run (POST) or lists archive commits (GET)
func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
		return
	}

	if s.archiver == nil {
		WriteJSONError(w, http.StatusServiceUnavailable, "Archive is not enabled", "")
		return
	}

	if r.Method == http.MethodGet {
		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				WriteJSONError(w, http.StatusBadRequest, "Invalid limit", "")
				return
			}
			limit = n
		}

		commits, err := s.archiver.History(limit)
		if err != nil {
			WriteJSONError(w, http.StatusInternalServerError, "Failed to read archive log", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, ArchiveLogResponse{Commits: commits})
		return
	}

	var req ArchiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	triggeredBy := currentUser(r)
	if triggeredBy == "" {
		triggeredBy = req.TriggeredBy
	}
	if triggeredBy == "" {
		triggeredBy = "api"
	}

	result, err := s.archiver.TriggerArchive(r.Context(), triggeredBy)
	if err != nil {
		WriteJSONError(w, http.StatusInternalServerError, "Archive failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status        string                 `json:"status"`
	Time          string                 `json:"time"`
	History       HistoryHealth          `json:"history"`
	Database      *DatabaseHealth        `json:"database,omitempty"`
	Sessions      SessionHealth          `json:"sessions"`
	StreamClients int                    `json:"stream_clients"`
	Details       map[string]interface{} `json:"details,omitempty"`
}

// HistoryHealth describes the history backend
type HistoryHealth struct {
	Backend string `json:"backend"`
	Status  string `json:"status"`
}

// DatabaseHealth represents database health status
type DatabaseHealth struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	MaxConns    int32  `json:"max_conns"`
}

// SessionHealth represents session cache state
type SessionHealth struct {
	Active  int     `json:"active"`
	HitRate float64 `json:"hit_rate"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet, http.MethodHead)
		return
	}

	health := HealthResponse{
		Status:  "healthy",
		Time:    time.Now().UTC().Format(time.RFC3339),
		History: HistoryHealth{Backend: s.cfg.HistoryBackend, Status: "healthy"},
	}

	stats := s.sessions.Cache().Stats()
	health.Sessions = SessionHealth{Active: stats.Size, HitRate: stats.HitRate}

	if s.broadcaster != nil {
		health.StreamClients = s.broadcaster.ClientCount()
	}

	if s.database != nil {
		if err := s.database.Health(r.Context()); err != nil {
			health.Status = "unhealthy"
			health.History.Status = "unhealthy"
			health.Database = &DatabaseHealth{Status: "unhealthy"}
			health.Details = map[string]interface{}{
				"database_error": err.Error(),
			}
			writeJSON(w, http.StatusServiceUnavailable, health)
			return
		}

		pool := s.database.Stats()
		health.Database = &DatabaseHealth{
			Status:      "healthy",
			Connections: int(pool.AcquiredConns()),
			MaxConns:    pool.MaxConns(),
		}
	}

	writeJSON(w, http.StatusOK, health)
}

// handleActivityStream handles Server-Sent Events (SSE) for the activity log
func (s *Server) handleActivityStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	if s.broadcaster == nil {
		WriteJSONError(w, http.StatusServiceUnavailable, "Activity stream not available", "")
		return
	}

	client := s.broadcaster.Register(uuid.New().String())
	if client == nil {
		WriteJSONError(w, http.StatusServiceUnavailable, "Activity stream is shutting down", "")
		return
	}
	defer s.broadcaster.Unregister(client)

	// Streams outlive the server write timeout
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	initialEvent := &events.ActivityEvent{
		ID:        "init",
		Timestamp: time.Now().UTC(),
		Type:      events.EventTypeConnection,
		Message:   "Connected to activity stream",
	}
	if data, err := events.FormatSSE(initialEvent); err == nil {
		w.Write(data)
	}
	_ = rc.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-client.Channel:
			if !ok {
				return
			}

			data, err := events.FormatSSE(event)
			if err != nil {
				logger.Error().Err(err).Msg("Failed to format SSE event")
				continue
			}

			if _, err := w.Write(data); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
