package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/fathom/ledgerdesk/internal/model"
	"github.com/fathom/ledgerdesk/internal/store"
)

func (s *Server) router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api/collections/{collection}", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleSave)
		r.Delete("/{id}", s.handleDelete)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"identity": s.id.Kind.String(),
		"clients":  s.ClientCount(),
		"ops":      len(s.sync.Ops()),
	})
}

// handleList serves the cached snapshot for a collection. The cache is
// fed by the live subscriptions, so a collection with no subscription
// yet reads as empty.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	if !validCollection(collection) {
		httpError(w, http.StatusNotFound, "unknown collection")
		return
	}

	s.snapshotsMu.RLock()
	records := s.snapshots[collection]
	s.snapshotsMu.RUnlock()

	if records == nil {
		records = []model.Fields{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"collection": collection,
		"records":    records,
	})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	if !validCollection(collection) {
		httpError(w, http.StatusNotFound, "unknown collection")
		return
	}

	var record model.Fields
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if record.ID() == "" {
		httpError(w, http.StatusBadRequest, "record must carry an id")
		return
	}

	if err := s.sync.Save(r.Context(), s.id, collection, record); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, store.ErrLocalPersist) {
			status = http.StatusInsufficientStorage
		}
		httpError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": record.ID()})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	if !validCollection(collection) {
		httpError(w, http.StatusNotFound, "unknown collection")
		return
	}
	id := chi.URLParam(r, "id")

	if err := s.sync.Delete(r.Context(), s.id, collection, id); err != nil {
		httpError(w, http.StatusBadGateway, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleWebSocket upgrades the connection and replays every cached
// snapshot before the client joins the broadcast set.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{}
	for _, origin := range s.cfg.AllowedOrigins {
		if origin == "*" {
			opts.InsecureSkipVerify = true
			break
		}
		opts.OriginPatterns = append(opts.OriginPatterns, origin)
	}

	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		s.cfg.Logger.Printf("WebSocket accept failed: %v", err)
		return
	}

	s.addClient(conn)

	s.snapshotsMu.RLock()
	initial := make([]Message, 0, len(s.snapshots))
	for collection, records := range s.snapshots {
		initial = append(initial, Message{
			Type:       "snapshot",
			Collection: collection,
			Records:    records,
			Timestamp:  time.Now(),
		})
	}
	s.snapshotsMu.RUnlock()

	for _, msg := range initial {
		data, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		err = conn.Write(ctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			s.removeClient(conn)
			return
		}
	}

	s.readLoop(conn)
}

// readLoop drains the client until it disconnects. Inbound frames are
// ignored; writes go through the REST endpoints.
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)

	for {
		_, _, err := conn.Read(s.ctx)
		if err != nil {
			return
		}
	}
}

func validCollection(name string) bool {
	for _, c := range model.StandardCollections {
		if c == name {
			return true
		}
	}
	return name == model.CollectionSettings
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
