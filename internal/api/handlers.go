package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/yegors/co-translate/internal/config"
	"github.com/yegors/co-translate/internal/languages"
	"github.com/yegors/co-translate/internal/session"
	"github.com/yegors/co-translate/internal/storage/sqlite"
	"github.com/yegors/co-translate/internal/websocket"
	"github.com/yegors/co-translate/pkg/logger"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
	previewLength       = 30
)

// SessionController is the session surface the API drives
type SessionController interface {
	Start() error
	Stop() error
	ReprocessLast(ctx context.Context) error
	SetTargetLanguage(code string) error
	Snapshot() session.Snapshot
}

// HistoryStore is the history surface the API reads and clears
type HistoryStore interface {
	ListPage(ctx context.Context, limit, offset int) ([]*sqlite.TranslationRecord, error)
	Count(ctx context.Context) (int, error)
	ClearAll(ctx context.Context) (int64, error)
}

// PromptReloader re-reads the translation prompt file
type PromptReloader interface {
	ReloadPrompt() error
	PromptPath() string
}

// Handler contains the API handlers
type Handler struct {
	session   SessionController
	history   HistoryStore
	prompts   PromptReloader
	wsServer  *websocket.Server
	presenter *websocket.Presenter
	config    *config.Config
	logger    *logger.Logger
}

// NewHandler creates a new API handler. history may be nil when persistence
// is disabled.
func NewHandler(session SessionController, history HistoryStore, wsServer *websocket.Server, config *config.Config, logger *logger.Logger) *Handler {
	h := &Handler{
		session:  session,
		history:  history,
		wsServer: wsServer,
		config:   config,
		logger:   logger.Named("api-handler"),
	}
	if wsServer != nil {
		h.presenter = websocket.NewPresenter(wsServer)
	}
	return h
}

// SetPromptReloader enables prompt reloading. Without one the primary
// translation backend is disabled and reloading reports 404.
func (h *Handler) SetPromptReloader(prompts PromptReloader) {
	h.prompts = prompts
}

// GetHealth returns the health status of the API
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	snapshot := h.session.Snapshot()

	response := map[string]any{
		"status":          "ok",
		"session_state":   snapshot.State,
		"history_enabled": h.history != nil,
		"timestamp":       time.Now(),
	}
	if h.wsServer != nil {
		response["websocket_clients"] = h.wsServer.ClientCount()
	}

	WriteJSON(w, http.StatusOK, response)
}

// GetSession returns the current session state
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.sessionResponse())
}

// StartSession starts listening
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Start(); err != nil {
		if errors.Is(err, session.ErrAlreadyListening) {
			WriteError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("Failed to start session", logger.Error(err))
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, h.sessionResponse())
}

// StopSession stops listening. Utterances already captured keep processing.
func (h *Handler) StopSession(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Stop(); err != nil {
		if errors.Is(err, session.ErrNotListening) {
			WriteError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("Failed to stop session", logger.Error(err))
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, h.sessionResponse())
}

// ReprocessLast queues the last utterance for another pipeline run
func (h *Handler) ReprocessLast(w http.ResponseWriter, r *http.Request) {
	if err := h.session.ReprocessLast(r.Context()); err != nil {
		if errors.Is(err, session.ErrNoUtterance) {
			WriteError(w, http.StatusNotFound, session.NoAudioMessage)
			return
		}
		h.logger.Error("Failed to reprocess last utterance", logger.Error(err))
		WriteError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]any{
		"status":    session.StatusProcessingLast,
		"timestamp": time.Now(),
	})
}

// TargetRequest is the body of PUT /session/target
type TargetRequest struct {
	Language string `json:"language"`
}

// SetTarget changes the target language
func (h *Handler) SetTarget(w http.ResponseWriter, r *http.Request) {
	var req TargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.session.SetTargetLanguage(req.Language); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, h.sessionResponse())
}

// historyEntry is a record plus compact previews for list views
type historyEntry struct {
	*sqlite.TranslationRecord
	SourceName        string `json:"source_name"`
	TargetName        string `json:"target_name"`
	SourcePreview     string `json:"source_preview"`
	TranslatedPreview string `json:"translated_preview"`
}

// GetHistory returns stored translations, newest first
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		WriteError(w, http.StatusServiceUnavailable, "history is disabled")
		return
	}

	limit, err := intParam(r, "limit", defaultHistoryLimit)
	if err != nil || limit < 1 {
		WriteError(w, http.StatusBadRequest, "invalid limit parameter")
		return
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil || offset < 0 {
		WriteError(w, http.StatusBadRequest, "invalid offset parameter")
		return
	}

	records, err := h.history.ListPage(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Failed to list history", logger.Error(err))
		WriteError(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	total, err := h.history.Count(r.Context())
	if err != nil {
		h.logger.Error("Failed to count history", logger.Error(err))
		WriteError(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	entries := make([]historyEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, historyEntry{
			TranslationRecord: record,
			SourceName:        languages.DisplayName(record.SourceLang),
			TargetName:        languages.DisplayName(record.TargetLang),
			SourcePreview:     sqlite.Preview(record.SourceText, previewLength),
			TranslatedPreview: sqlite.Preview(record.TranslatedText, previewLength),
		})
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"records":   entries,
		"count":     len(entries),
		"total":     total,
		"limit":     limit,
		"offset":    offset,
		"timestamp": time.Now(),
	})
}

// ClearHistory deletes every stored translation
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		WriteError(w, http.StatusServiceUnavailable, "Cannot clear history: Database not accessible")
		return
	}

	cleared, err := h.history.ClearAll(r.Context())
	if err != nil {
		h.logger.Error("Failed to clear history", logger.Error(err))
		WriteError(w, http.StatusInternalServerError, "Failed to clear history: "+err.Error())
		return
	}

	if h.presenter != nil {
		h.presenter.HistoryCleared(cleared)
	}

	message := "Translation history cleared successfully"
	if cleared == 0 {
		message = "No history exists yet to clear"
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"cleared":   cleared,
		"message":   message,
		"timestamp": time.Now(),
	})
}

// GetLanguages returns the selectable languages
func (h *Handler) GetLanguages(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"languages":      languages.Supported(),
		"default_target": h.config.Translation.DefaultTarget,
		"timestamp":      time.Now(),
	})
}

// GetConfig returns the public configuration
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	publicConfig := map[string]any{
		"capture": map[string]any{
			"listen_timeout_seconds":    h.config.Capture.ListenTimeoutSecs,
			"phrase_time_limit_seconds": h.config.Capture.PhraseLimitSecs,
			"sample_rate":               h.config.Capture.SampleRate,
		},
		"translation": map[string]any{
			"provider":       h.config.Translation.Provider,
			"model":          h.config.Translation.Model,
			"default_target": h.config.Translation.DefaultTarget,
		},
		"transcription": map[string]any{
			"provider": h.config.Transcription.Provider,
			"model":    h.config.Transcription.Model,
		},
		"pipeline": map[string]any{
			"workers":    h.config.Pipeline.Workers,
			"queue_size": h.config.Pipeline.QueueSize,
		},
		"history_enabled": h.history != nil,
	}

	WriteJSON(w, http.StatusOK, publicConfig)
}

// ReloadPrompt re-reads the translation prompt file
func (h *Handler) ReloadPrompt(w http.ResponseWriter, r *http.Request) {
	if h.prompts == nil {
		WriteError(w, http.StatusNotFound, "primary translation backend is disabled")
		return
	}

	path := h.prompts.PromptPath()
	if err := h.prompts.ReloadPrompt(); err != nil {
		h.logger.Error("Failed to reload prompt", logger.String("prompt_path", path), logger.Error(err))
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	message := "Prompt reloaded"
	if path == "" {
		message = "Using the built-in prompt, nothing to reload"
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"message":     message,
		"prompt_path": path,
		"timestamp":   time.Now(),
	})
}

// HandleWebSocket upgrades the request to a websocket connection
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsServer == nil {
		WriteError(w, http.StatusServiceUnavailable, "websocket is disabled")
		return
	}
	h.wsServer.HandleConnection(w, r)
}

func (h *Handler) sessionResponse() map[string]any {
	snapshot := h.session.Snapshot()
	return map[string]any{
		"state":              snapshot.State,
		"target_language":    snapshot.TargetLanguage,
		"target_name":        snapshot.TargetName,
		"target_listed":      snapshot.TargetListed,
		"has_last_utterance": snapshot.HasLastUtterance,
		"pending_jobs":       snapshot.PendingJobs,
		"history_enabled":    snapshot.HistoryEnabled,
		"timestamp":          time.Now(),
	}
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]any{
		"error":     message,
		"timestamp": time.Now(),
	})
}
