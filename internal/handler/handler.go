package handler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"guestbook/internal/auth"
	"guestbook/internal/config"
	"guestbook/internal/metrics"
	"guestbook/internal/model"
	"guestbook/internal/vote"
)

// MessageStore is the persistence the API needs. *store.Store implements it.
type MessageStore interface {
	List(ctx context.Context) ([]model.Message, error)
	Create(ctx context.Context, name, body string) (model.Message, error)
	Delete(ctx context.Context, id int64) error
	ReconcileVote(ctx context.Context, id int64, next, prev vote.Choice) (model.Message, error)
}

// Handler holds application dependencies
type Handler struct {
	Store     MessageStore
	Auth      *auth.Authorizer
	Config    config.Config
	Metrics   *metrics.Metrics
	Clients   map[*websocket.Conn]bool
	ClientMu  sync.RWMutex
	Broadcast chan model.Event
}

// New creates a new Handler with the given dependencies
func New(store MessageStore, cfg config.Config, m *metrics.Metrics) *Handler {
	return &Handler{
		Store:     store,
		Auth:      auth.New(cfg.AdminToken),
		Config:    cfg,
		Metrics:   m,
		Clients:   make(map[*websocket.Conn]bool),
		Broadcast: make(chan model.Event, 100),
	}
}

// SetupRouter configures and returns the HTTP router
func (h *Handler) SetupRouter() *mux.Router {
	r := mux.NewRouter()

	// REST API（/api と /api/... のみ。/apiary などは SPA へ）
	api := r.MatcherFunc(isAPIPath).Subrouter()
	api.HandleFunc("/api/health", h.Health).Methods("GET")
	api.HandleFunc("/api/messages", h.GetMessages).Methods("GET")
	api.HandleFunc("/api/messages", h.CreateMessage).Methods("POST")
	api.HandleFunc("/api/messages/{id}/vote", h.VoteMessage).Methods("POST")
	api.HandleFunc("/api/messages/{id}", h.DeleteMessage).Methods("DELETE")

	// 既知のパスに対する他のメソッドは 405
	api.Handle("/api/health", methodNotAllowed("GET"))
	api.Handle("/api/messages", methodNotAllowed("GET", "POST"))
	api.Handle("/api/messages/{id}/vote", methodNotAllowed("POST"))
	api.Handle("/api/messages/{id}", methodNotAllowed("DELETE"))

	// 未定義の API は SPA にフォールバックさせない
	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})

	// WebSocket
	r.HandleFunc("/ws", h.HandleWebSocket).Methods("GET")

	r.Handle("/metrics", h.Metrics.Handler()).Methods("GET")

	// フロントエンド
	r.PathPrefix("/").HandlerFunc(h.ServeStatic).Methods("GET", "HEAD")

	return r
}

func isAPIPath(r *http.Request, _ *mux.RouteMatch) bool {
	return r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/")
}

// methodNotAllowed answers 405 with the methods the path does accept.
func methodNotAllowed(allowed ...string) http.Handler {
	allow := strings.Join(allowed, ", ")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", allow)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
}

// Health handles GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// publish hands ev to the broadcaster without blocking the request.
func (h *Handler) publish(ev model.Event) {
	select {
	case h.Broadcast <- ev:
	default:
		log.Printf("[WebSocket] ⚠️  Broadcast buffer full, dropping %s event for message %d", ev.Type, ev.ID)
	}
}
