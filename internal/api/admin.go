package api

import (
	"net/http"
	"strconv"

	"github.com/vnmchuo/ai-core/internal/billing"
	"github.com/vnmchuo/ai-core/internal/provider"
	"github.com/vnmchuo/ai-core/internal/settings"
)

type statsResponse struct {
	Overview *billing.Stats       `json:"overview"`
	ByModel  []billing.ModelStats `json:"by_model"`
}

func (h *Handler) HandleListLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from, err := billing.ParseDay(q.Get("date_from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidDate, "date_from must be YYYY-MM-DD")
		return
	}
	to, err := billing.ParseDay(q.Get("date_to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidDate, "date_to must be YYYY-MM-DD")
		return
	}
	filter := billing.Filter{
		Model:    q.Get("model"),
		Engine:   q.Get("engine"),
		Status:   q.Get("status"),
		DateFrom: from,
		DateTo:   to,
	}

	perPage := clampPageSize(queryInt(r, "per_page", defaultPageSize))
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}

	result, err := h.logs.List(r.Context(), filter, perPage, (page-1)*perPage)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	overview, err := h.logs.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	byModel, err := h.logs.StatsByModel(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Overview: overview, ByModel: byModel})
}

func (h *Handler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	values, err := h.settings.Values(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, values)
}

func (h *Handler) HandleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var update settings.Update
	if err := decode(r, &update); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidJSON, "invalid request body")
		return
	}
	if err := h.settings.Save(r.Context(), update); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"saved": true})
}

// HandleModels lists each vendor's catalog. A vendor without a key, or one
// that fails, yields an empty list.
func (h *Handler) HandleModels(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

	keys, err := h.settings.APIKeys(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out := make(map[string][]provider.Model, len(h.vendors))
	for _, v := range h.vendors {
		out[v.Name()] = []provider.Model{}
		key := keys[v.Name()]
		if key == "" {
			continue
		}
		models, err := v.ListModels(r.Context(), key, force)
		if err != nil {
			h.logger.Warn("failed to list models", "provider", v.Name(), "error", err)
			continue
		}
		out[v.Name()] = models
	}
	writeJSON(w, http.StatusOK, out)
}
