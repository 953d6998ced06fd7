package api

import (
	"net/http"

	"github.com/vnmchuo/ai-core/internal/aiclient"
	"github.com/vnmchuo/ai-core/internal/dispatch"
	"github.com/vnmchuo/ai-core/internal/provider"
)

type sendRequest struct {
	Message       string             `json:"message"`
	Model         string             `json:"model"`
	Chat          []provider.Message `json:"chat"`
	SystemMessage string             `json:"systemMessage"`
}

type sendResponse struct {
	Response string             `json:"response"`
	ThreadID int64              `json:"thread_id,omitempty"`
	Chat     []provider.Message `json:"chat"`
}

// HandleSend sends a one-off message. With only chat given, its last element
// is the message and the rest is history.
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidJSON, "invalid request body")
		return
	}
	if req.Message == "" && len(req.Chat) == 0 {
		writeError(w, http.StatusBadRequest, CodeMissingInput, "provide message or chat")
		return
	}

	client, err := h.clients.New(r.Context(), req.Model, req.SystemMessage)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var reply string
	if req.Message != "" {
		client.SetChat(req.Chat)
		reply, err = client.Send(r.Context(), req.Message, dispatch.SendOptions{})
	} else {
		reply, err = client.Call(r.Context(), aiclient.Input{Messages: req.Chat}, dispatch.SendOptions{})
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set(EngineHeader, client.EngineLabel())
	writeJSON(w, http.StatusOK, sendResponse{Response: reply, Chat: client.Chat()})
}
