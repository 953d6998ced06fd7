package api

import (
	"net/http"

	"github.com/vnmchuo/ai-core/internal/dispatch"
)

type createThreadRequest struct {
	Title         string `json:"title"`
	Model         string `json:"model"`
	SystemMessage string `json:"systemMessage"`
}

type threadSendRequest struct {
	Message string `json:"message"`
	Model   string `json:"model"`
}

func (h *Handler) HandleListThreads(w http.ResponseWriter, r *http.Request) {
	limit := clampPageSize(queryInt(r, "limit", defaultPageSize))
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	threads, err := h.threads.List(r.Context(), limit, offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, threads)
}

func (h *Handler) HandleCreateThread(w http.ResponseWriter, r *http.Request) {
	var req createThreadRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidJSON, "invalid request body")
		return
	}

	client, err := h.clients.New(r.Context(), req.Model, req.SystemMessage)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id, err := client.NewThread(r.Context(), req.Title)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"thread_id": id})
}

func (h *Handler) HandleGetThread(w http.ResponseWriter, r *http.Request) {
	id, ok := threadID(r)
	if !ok {
		writeError(w, http.StatusNotFound, CodeNotFound, "thread not found")
		return
	}

	t, err := h.threads.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) HandleDeleteThread(w http.ResponseWriter, r *http.Request) {
	id, ok := threadID(r)
	if !ok {
		writeError(w, http.StatusNotFound, CodeNotFound, "thread not found")
		return
	}

	deleted, err := h.threads.Delete(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, CodeNotFound, "thread not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// HandleThreadSend continues a stored thread. The thread's own model wins over
// the one in the body.
func (h *Handler) HandleThreadSend(w http.ResponseWriter, r *http.Request) {
	id, ok := threadID(r)
	if !ok {
		writeError(w, http.StatusNotFound, CodeNotFound, "thread not found")
		return
	}
	var req threadSendRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidJSON, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, CodeMissingMessage, "provide a message")
		return
	}

	client, err := h.clients.New(r.Context(), req.Model, "")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := client.LoadThread(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}

	reply, err := client.Send(r.Context(), req.Message, dispatch.SendOptions{})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set(EngineHeader, client.EngineLabel())
	writeJSON(w, http.StatusOK, sendResponse{Response: reply, ThreadID: client.ThreadID(), Chat: client.Chat()})
}
