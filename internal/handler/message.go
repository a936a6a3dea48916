package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"guestbook/internal/model"
	"guestbook/internal/store"
)

type createMessageRequest struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// CreateMessage handles POST /api/messages
func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	log.Printf("[POST /api/messages] Request received from %s", r.RemoteAddr)

	// リクエストボディサイズを1MBに制限
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req createMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[POST /api/messages] ❌ Bad Request: %v", err)
		h.Metrics.Failures.WithLabelValues("create", "400").Inc()
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// name と message は両方必須
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Message) == "" {
		log.Printf("[POST /api/messages] ❌ Bad Request: missing name or message")
		h.Metrics.Failures.WithLabelValues("create", "400").Inc()
		writeError(w, http.StatusBadRequest, "name and message are required")
		return
	}

	msg, err := h.Store.Create(r.Context(), req.Name, req.Message)
	if errors.Is(err, store.ErrValidation) {
		h.Metrics.Failures.WithLabelValues("create", "400").Inc()
		writeError(w, http.StatusBadRequest, "name and message are required")
		return
	}
	if err != nil {
		log.Printf("[POST /api/messages] ❌ Database error: %v", err)
		h.Metrics.Failures.WithLabelValues("create", "500").Inc()
		writeError(w, http.StatusInternalServerError, "Failed to create message")
		return
	}

	log.Printf("[POST /api/messages] ✅ Created message: ID=%d, Name=%q", msg.ID, msg.Name)
	h.Metrics.MessagesCreated.Inc()
	h.publish(model.Event{Type: model.EventMessageCreated, ID: msg.ID, Message: &msg})

	writeJSON(w, http.StatusCreated, msg)
}

// GetMessages handles GET /api/messages
// 全件を新しい順に返す（ページングなし）
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	log.Printf("[GET /api/messages] Request received from %s", r.RemoteAddr)

	msgList, err := h.Store.List(r.Context())
	if err != nil {
		log.Printf("[GET /api/messages] ❌ Database error: %v", err)
		h.Metrics.Failures.WithLabelValues("list", "500").Inc()
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	if msgList == nil {
		msgList = []model.Message{}
	}

	log.Printf("[GET /api/messages] ✅ Returned %d messages", len(msgList))
	writeJSON(w, http.StatusOK, msgList)
}

// DeleteMessage handles DELETE /api/messages/{id}
// 管理者トークンが必要。存在しない id でも 204 を返す
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	rawID := mux.Vars(r)["id"]
	log.Printf("[DELETE /api/messages/%s] Request received from %s", rawID, r.RemoteAddr)

	if err := h.Auth.CheckRequest(r); err != nil {
		log.Printf("[DELETE /api/messages/%s] ❌ Forbidden: %v", rawID, err)
		h.Metrics.Failures.WithLabelValues("delete", "403").Inc()
		writeError(w, http.StatusForbidden, "Forbidden: invalid admin token")
		return
	}

	id, ok := messageID(r)
	if !ok {
		log.Printf("[DELETE /api/messages/%s] ❌ Bad Request: invalid id", rawID)
		h.Metrics.Failures.WithLabelValues("delete", "400").Inc()
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	if err := h.Store.Delete(r.Context(), id); err != nil {
		log.Printf("[DELETE /api/messages/%d] ❌ Database error: %v", id, err)
		h.Metrics.Failures.WithLabelValues("delete", "500").Inc()
		writeError(w, http.StatusInternalServerError, "Failed to delete message")
		return
	}

	log.Printf("[DELETE /api/messages/%d] ✅ Deleted", id)
	h.Metrics.MessagesDeleted.Inc()

	// WebSocket経由で他のクライアントに削除を通知
	h.publish(model.Event{Type: model.EventMessageDeleted, ID: id})

	w.WriteHeader(http.StatusNoContent)
}
