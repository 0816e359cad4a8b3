package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/restobill/internal/chat"
	"github.com/ariefcatur/restobill/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// ChatHandler exposes the scripted assistant of the demo page.
type ChatHandler struct {
	Hub *chat.Hub
	Log *zap.Logger
}

type ChatMessageReq struct {
	Text string `json:"text"`
}

type ChatSessionResp struct {
	ID         string         `json:"id"`
	State      chat.State     `json:"state"`
	Transcript []chat.Message `json:"transcript"`
}

func (h *ChatHandler) Register(r chi.Router) {
	r.Post("/chat/sessions", h.openSession)
	r.Route("/chat/sessions/{sid}", func(r chi.Router) {
		r.Get("/", h.getSession)
		r.Delete("/", h.closeSession)
		r.Post("/messages", h.postMessage)
		r.Post("/reset", h.reset)
	})
}

func sessionResp(s *chat.Session) ChatSessionResp {
	return ChatSessionResp{ID: s.ID, State: s.State(), Transcript: s.Transcript()}
}

func (h *ChatHandler) session(w http.ResponseWriter, r *http.Request) (*chat.Session, bool) {
	s, ok := h.Hub.Get(chi.URLParam(r, "sid"))
	if !ok {
		writeError(w, r, h.Log, orders.ErrNotFound)
	}
	return s, ok
}

func (h *ChatHandler) openSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.Hub.Open()
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResp(s))
}

// getSession returns the transcript. With ?wait=true it first blocks until
// the pending reply landed (or ~10s passed).
func (h *ChatHandler) getSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if cast.ToBool(r.URL.Query().Get("wait")) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		_ = s.WaitIdle(ctx)
		cancel()
	}
	writeJSON(w, http.StatusOK, sessionResp(s))
}

func (h *ChatHandler) closeSession(w http.ResponseWriter, r *http.Request) {
	h.Hub.Close(chi.URLParam(r, "sid"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) postMessage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req ChatMessageReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := s.Submit(req.Text); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusAccepted, sessionResp(s))
}

func (h *ChatHandler) reset(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Reset()
	writeJSON(w, http.StatusOK, sessionResp(s))
}
