package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"guestbook/internal/model"
	"guestbook/internal/store"
	"guestbook/internal/vote"
)

// decodeVoteRequest reads {"vote": ..., "prev": ...}. Both keys must be
// present; null means no vote.
func decodeVoteRequest(r *http.Request) (next, prev vote.Choice, err error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return vote.None, vote.None, err
	}

	for key, dst := range map[string]*vote.Choice{"vote": &next, "prev": &prev} {
		value, ok := raw[key]
		if !ok {
			return vote.None, vote.None, fmt.Errorf("%w: %s is required", vote.ErrInvalidChoice, key)
		}
		if err := json.Unmarshal(value, dst); err != nil {
			return vote.None, vote.None, err
		}
	}

	return next, prev, nil
}

// VoteMessage handles POST /api/messages/{id}/vote
func (h *Handler) VoteMessage(w http.ResponseWriter, r *http.Request) {
	rawID := mux.Vars(r)["id"]
	log.Printf("[POST /api/messages/%s/vote] Request received from %s", rawID, r.RemoteAddr)

	id, ok := messageID(r)
	if !ok {
		log.Printf("[POST /api/messages/%s/vote] ❌ Bad Request: invalid id", rawID)
		h.Metrics.Failures.WithLabelValues("vote", "400").Inc()
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	next, prev, err := decodeVoteRequest(r)
	if err != nil {
		log.Printf("[POST /api/messages/%d/vote] ❌ Bad Request: %v", id, err)
		h.Metrics.Failures.WithLabelValues("vote", "400").Inc()
		writeError(w, http.StatusBadRequest, "invalid vote payload")
		return
	}

	msg, err := h.Store.ReconcileVote(r.Context(), id, next, prev)
	switch {
	case errors.Is(err, store.ErrValidation):
		h.Metrics.Failures.WithLabelValues("vote", "400").Inc()
		writeError(w, http.StatusBadRequest, "invalid vote payload")
		return
	case errors.Is(err, store.ErrNotFound):
		log.Printf("[POST /api/messages/%d/vote] ❌ Not Found", id)
		h.Metrics.Failures.WithLabelValues("vote", "404").Inc()
		writeError(w, http.StatusNotFound, "Message not found")
		return
	case err != nil:
		// トランザクションはストア側でロールバック済み
		log.Printf("[POST /api/messages/%d/vote] ❌ Database error: %v", id, err)
		h.Metrics.Failures.WithLabelValues("vote", "500").Inc()
		writeError(w, http.StatusInternalServerError, "vote failed")
		return
	}

	log.Printf("[POST /api/messages/%d/vote] ✅ %s -> %s: likes=%d dislikes=%d",
		id, prev, next, msg.Likes, msg.Dislikes)
	h.Metrics.Votes.WithLabelValues(prev.String(), next.String()).Inc()
	h.publish(model.Event{Type: model.EventMessageVoted, ID: msg.ID, Message: &msg})

	writeJSON(w, http.StatusOK, msg)
}
