package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vnmchuo/ai-core/internal/aiclient"
	"github.com/vnmchuo/ai-core/internal/auth"
	"github.com/vnmchuo/ai-core/internal/billing"
	"github.com/vnmchuo/ai-core/internal/logger"
	"github.com/vnmchuo/ai-core/internal/provider"
	"github.com/vnmchuo/ai-core/internal/settings"
	"github.com/vnmchuo/ai-core/internal/thread"
)

const (
	EngineHeader = "X-Core-AI-Engine"

	defaultPageSize = 50
	maxPageSize     = 500
)

// Error codes of the {code, message} envelope.
const (
	CodeMissingInput   = "missing_input"
	CodeMissingMessage = "missing_message"
	CodeInvalidJSON    = "invalid_json"
	CodeInvalidDate    = "invalid_date"
	CodeNotFound       = "not_found"
	CodeMissingKey     = "missing_key"
	CodeAIError        = "ai_error"
	CodeInternal       = "internal_error"
)

type Handler struct {
	clients  *aiclient.Factory
	threads  thread.Store
	logs     billing.Store
	settings *settings.Service
	vendors  []provider.Provider
	logger   *logger.Logger
}

func NewHandler(clients *aiclient.Factory, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		clients:  clients,
		threads:  clients.Threads,
		logs:     clients.Logs,
		settings: clients.Settings,
		vendors:  clients.Vendors,
		logger:   log,
	}
}

// Routes registers the administrative endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/send", h.HandleSend)

	r.Get("/threads", h.HandleListThreads)
	r.Post("/threads", h.HandleCreateThread)
	r.Get("/threads/{id}", h.HandleGetThread)
	r.Delete("/threads/{id}", h.HandleDeleteThread)
	r.Post("/threads/{id}/send", h.HandleThreadSend)

	r.Get("/logs", h.HandleListLogs)
	r.Get("/logs/stats", h.HandleStats)

	r.Get("/settings", h.HandleGetSettings)
	r.Post("/settings", h.HandleSaveSettings)

	r.Get("/models", h.HandleModels)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// fail maps err onto the error envelope.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		configErr    *provider.ConfigError
		providerErr  *provider.ProviderError
		transportErr *provider.TransportError
	)
	switch {
	case errors.Is(err, thread.ErrNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, "thread not found")
	case errors.Is(err, aiclient.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, CodeMissingInput, "provide message or chat")
	case errors.As(err, &configErr):
		writeError(w, http.StatusBadRequest, CodeMissingKey, configErr.Message)
	case errors.As(err, &providerErr):
		status := providerErr.StatusCode
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		writeError(w, status, CodeAIError, providerErr.Message)
	case errors.As(err, &transportErr):
		writeError(w, http.StatusBadGateway, CodeAIError, transportErr.Error())
	default:
		h.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", auth.GetRequestID(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
	}
}

// decode reads an optional JSON body into dst. An empty body is not an error.
func decode(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}

func clampPageSize(n int) int {
	if n < 1 {
		return defaultPageSize
	}
	if n > maxPageSize {
		return maxPageSize
	}
	return n
}

func threadID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}
