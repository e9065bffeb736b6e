package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/sashakarcz/passify/internal/api/templates"
	"github.com/sashakarcz/passify/internal/events"
	"github.com/sashakarcz/passify/internal/generator"
	"github.com/sashakarcz/passify/internal/logger"
)

// exportFileName is the download name of the history export
const exportFileName = "password_history.txt"

// emptyExportMessage is served instead of an attachment when there is no history
const emptyExportMessage = "No history to export"

var errHistorySave = errors.New("Password generated but could not be saved to history.")

// nav builds the header state for the request
func (s *Server) nav(r *http.Request) templates.Nav {
	return templates.Nav{
		AuthEnabled: s.authManager.Enabled(),
		Username:    currentUser(r),
	}
}

// renderPage returns a writer for the output of a templates.Render call
func (s *Server) renderPage(w http.ResponseWriter, status int) func([]byte, error) {
	return func(page []byte, err error) {
		if err != nil {
			logger.Error().Err(err).Msg("Failed to render page")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		w.Write(page)
	}
}

// handleIndex renders the generator form and generates on submit
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
		return
	}

	sess := s.sessions.Load(w, r)
	data := templates.IndexData{
		Nav:      s.nav(r),
		Settings: sess.Settings,
	}

	if r.Method == http.MethodPost {
		settings, err := parseSettingsForm(r)
		if err != nil {
			s.metrics.RecordGenerationError("invalid_form")
			data.Error = err.Error()
		} else {
			// Settings stick even when generation fails
			s.sessions.SaveSettings(sess.ID, settings)
			data.Settings = settings

			password, strength, err := s.generate(r.Context(), settings)
			data.Password = password
			data.Strength = strength
			if err != nil {
				data.Error = err.Error()
			}
		}
	}

	s.renderPage(w, http.StatusOK)(templates.RenderIndex(data))
}

// generate creates a password, records it in history and announces it.
// On a history failure the password is still returned with errHistorySave.
func (s *Server) generate(ctx context.Context, settings generator.Settings) (string, *generator.Strength, error) {
	password, err := s.generator.Generate(settings)
	if err != nil {
		s.metrics.RecordGenerationError(generationErrorReason(err))
		s.publish(events.EventTypeGenerationFailed, err.Error(), nil)
		return "", nil, err
	}

	s.metrics.RecordGeneration(len(password))
	strength := generator.ScoreStrength(password)

	err = s.history.Save(ctx, password)
	s.metrics.RecordHistoryOperation("save", err)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to save password history")
		return password, &strength, errHistorySave
	}

	if s.broadcaster != nil {
		s.broadcaster.PublishGenerated(len(password), strength.Label)
	}

	logger.Debug().
		Int("length", len(password)).
		Str("strength", strength.Label).
		Msg("Generated password")

	return password, &strength, nil
}

// generationErrorReason maps generator errors to a metrics label
func generationErrorReason(err error) string {
	switch {
	case errors.Is(err, generator.ErrNoCharacterTypes):
		return "no_character_types"
	case errors.Is(err, generator.ErrLengthTooShort):
		return "length_too_short"
	case errors.Is(err, generator.ErrLengthOutOfRange):
		return "length_out_of_range"
	case errors.Is(err, generator.ErrNegativeMinimum):
		return "negative_minimum"
	case errors.Is(err, generator.ErrUnknownType):
		return "unknown_type"
	default:
		return "internal"
	}
}

// handleHistory lists the history newest first
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	entries, err := s.history.List(r.Context())
	s.metrics.RecordHistoryOperation("list", err)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list password history")
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}
	s.metrics.UpdateHistoryEntries(len(entries))

	data := templates.HistoryData{
		Nav:            s.nav(r),
		Entries:        entries,
		ArchiveEnabled: s.archiver != nil,
	}
	if s.broadcaster != nil {
		data.StreamURL = "/api/v1/activity/stream"
	}

	s.renderPage(w, http.StatusOK)(templates.RenderHistory(data))
}

// handleExport downloads the raw history file
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	content, err := s.history.Export(r.Context())
	s.metrics.RecordHistoryOperation("export", err)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to export password history")
		http.Error(w, "Failed to export history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if content == "" {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(emptyExportMessage))
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename="+exportFileName)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(content))

	s.publish(events.EventTypeHistoryExported, "Password history exported", nil)
}

// handleClear empties the history and returns to the history page
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	err := s.history.Clear(r.Context())
	s.metrics.RecordHistoryOperation("clear", err)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to clear password history")
		http.Error(w, "Failed to clear history", http.StatusInternalServerError)
		return
	}
	s.metrics.UpdateHistoryEntries(0)

	logger.Info().
		Str("user", currentUser(r)).
		Msg("Password history cleared")
	s.publish(events.EventTypeHistoryCleared, "Password history cleared", nil)

	http.Redirect(w, r, "/history", http.StatusFound)
}
