package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"hackterm/internal/config"
	"hackterm/internal/kvstore"
	"hackterm/internal/terminal"
	"hackterm/internal/viewmodels"
)

const (
	maxRequestBody = 64 * 1024
	maxInputLength = 1024
	perPage        = 20
	createdKey     = "server.created"
	// WebSocket timing.
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var (
	errInvalidID = errors.New("invalid terminal id")
	errNotFound  = errors.New("terminal not found")
	errDeleted   = errors.New("terminal deleted")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:   maxRequestBody,
	WriteBufferSize:  maxRequestBody,
	HandshakeTimeout: writeWait,
}

// hosted is one in-memory terminal. There is at most one per state file:
// a terminal in use is never evicted, so it is never reloaded twice.
type hosted struct {
	term *terminal.Terminal

	// Guarded by Server.mu.
	lastActive time.Time
	users      int // in-flight requests plus open sockets
	conns      map[*websocket.Conn]struct{}

	cmdMu   sync.Mutex
	deleted bool // guarded by cmdMu; no command runs once set
}

// Server hosts terminals, each backed by its own state file.
type Server struct {
	catalog   *config.Catalog
	terminals map[string]*hosted
	clock     atomic.Value // func() time.Time
	log       logrus.FieldLogger
	settings  config.Settings

	mu           sync.RWMutex
	healthMu     sync.RWMutex
	statsmu      sync.RWMutex
	requestCount int64
	errorCount   int64
	healthy      bool
}

func newServer(settings config.Settings, catalog *config.Catalog) *Server {
	s := &Server{
		settings:  settings,
		catalog:   catalog,
		terminals: make(map[string]*hosted),
		log:       logrus.WithField("component", "server"),
		healthy:   true,
	}
	s.setClock(time.Now)
	return s
}

func (s *Server) setClock(now func() time.Time) {
	s.clock.Store(now)
}

func (s *Server) now() time.Time {
	return s.clock.Load().(func() time.Time)() //nolint:forcetypeassert // only setClock stores
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(loggingMiddleware)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1/terminals").Subrouter()
	api.HandleFunc("", s.handleCreate).Methods(http.MethodPost)
	api.HandleFunc("", s.handleList).Methods(http.MethodGet)
	api.HandleFunc("/{id}", s.handleDetail).Methods(http.MethodGet)
	api.HandleFunc("/{id}", s.handleDelete).Methods(http.MethodDelete)
	api.HandleFunc("/{id}/commands", s.handleCommand).Methods(http.MethodPost)
	api.HandleFunc("/{id}/ws", s.handleWebSocket).Methods(http.MethodGet)
	return r
}

func (s *Server) statePath(id string) string {
	return filepath.Join(s.settings.StateDir, id+".json")
}

func (s *Server) open(ctx context.Context, id string, create bool) (*hosted, error) {
	store, err := kvstore.OpenFile(ctx, s.statePath(id),
		kvstore.WithFileQuota(s.settings.QuotaBytes),
		kvstore.WithLogger(s.log.WithField("terminal", id)))
	if err != nil {
		return nil, err
	}
	// The document must exist on disk for the terminal to be reloadable after eviction.
	if create && !kvstore.SetJSON(store, createdKey, s.now()) {
		return nil, fmt.Errorf("failed to initialize state for terminal %s", id)
	}
	term := terminal.New(store, s.catalog, terminal.WithLogger(s.log.WithField("terminal", id)))
	return &hosted{term: term, lastActive: s.now(), conns: make(map[*websocket.Conn]struct{})}, nil
}

// lookup returns the terminal for id, reloading it from disk if it was evicted.
// The caller holds a use of the terminal until it calls release.
func (s *Server) lookup(ctx context.Context, id string) (*hosted, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.terminals[id]; ok {
		h.lastActive = s.now()
		h.users++
		return h, nil
	}
	if _, err := os.Stat(s.statePath(id)); err != nil {
		return nil, errNotFound
	}
	h, err := s.open(ctx, id, false)
	if err != nil {
		return nil, err
	}
	h.users++
	s.terminals[id] = h
	s.log.WithField("terminal", id).Info("Terminal reloaded from disk")
	return h, nil
}

func (s *Server) release(h *hosted) {
	s.mu.Lock()
	h.users--
	h.lastActive = s.now()
	s.mu.Unlock()
}

func (s *Server) touch(h *hosted) {
	s.mu.Lock()
	h.lastActive = s.now()
	s.mu.Unlock()
}

// execute runs input and wipes the terminal afterwards if it self-destructed.
// It fails with errDeleted once the terminal has been deleted.
func (s *Server) execute(ctx context.Context, id string, h *hosted, input string) (viewmodels.CommandResponse, error) {
	h.cmdMu.Lock()
	defer h.cmdMu.Unlock()
	if h.deleted {
		return viewmodels.CommandResponse{}, errDeleted
	}
	s.touch(h)

	res := h.term.Execute(ctx, input)
	notes := h.term.DrainNotifications()
	if res.ShouldDestroy {
		if err := h.term.Reset(); err != nil {
			s.log.WithField("terminal", id).WithError(err).Error("Failed to reset destroyed terminal")
		}
	}
	return viewmodels.BuildCommandResponse(id, res, notes, h.term.Prompt()), nil
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	s.incrementRequestCount()

	id := uuid.NewString()
	h, err := s.open(r.Context(), id, true)
	if err != nil {
		s.incrementErrorCount()
		s.log.WithError(err).Error("Failed to create terminal")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.mu.Lock()
	s.terminals[id] = h
	s.mu.Unlock()

	s.log.WithField("terminal", id).Info("Terminal created")
	s.writeJSON(w, http.StatusCreated, viewmodels.BuildTerminalDetail(id, h.term.Status(), h.lastActive))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.incrementRequestCount()

	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			page = n
		}
	}

	s.mu.RLock()
	items := make([]viewmodels.TerminalListItem, 0, len(s.terminals))
	for id, h := range s.terminals {
		items = append(items, viewmodels.BuildListItem(id, h.term.Status(), h.lastActive))
	}
	s.mu.RUnlock()

	s.writeJSON(w, http.StatusOK, viewmodels.BuildTerminalList(items, page, perPage))
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	s.incrementRequestCount()

	id := mux.Vars(r)["id"]
	h, err := s.lookup(r.Context(), id)
	if err != nil {
		s.lookupError(w, id, err)
		return
	}
	defer s.release(h)
	s.writeJSON(w, http.StatusOK, viewmodels.BuildTerminalDetail(id, h.term.Status(), s.now()))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.incrementRequestCount()

	id := mux.Vars(r)["id"]
	h, err := s.lookup(r.Context(), id)
	if err != nil {
		s.lookupError(w, id, err)
		return
	}
	defer s.release(h)

	s.mu.Lock()
	delete(s.terminals, id)
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	// Waits for a running command so nothing is flushed after the file is gone.
	h.cmdMu.Lock()
	h.deleted = true
	err = os.Remove(s.statePath(id))
	h.cmdMu.Unlock()

	for _, c := range conns {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "terminal deleted")
		c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)) //nolint:errcheck // closing anyway
		c.Close()                                                             //nolint:errcheck // closing anyway
	}

	if err != nil && !errors.Is(err, os.ErrNotExist) {
		s.incrementErrorCount()
		s.log.WithField("terminal", id).WithError(err).Error("Failed to remove state file")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.log.WithFields(logrus.Fields{"terminal": id, "sockets": len(conns)}).Info("Terminal deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	s.incrementRequestCount()

	id := mux.Vars(r)["id"]
	h, err := s.lookup(r.Context(), id)
	if err != nil {
		s.lookupError(w, id, err)
		return
	}
	defer s.release(h)

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	var req viewmodels.CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.incrementErrorCount()
		s.log.WithField("remote", r.RemoteAddr).WithError(err).Warn("Failed to decode command")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Input) > maxInputLength {
		s.incrementErrorCount()
		http.Error(w, "Input too long", http.StatusBadRequest)
		return
	}

	resp, err := s.execute(r.Context(), id, h, req.Input)
	if err != nil {
		s.lookupError(w, id, errNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.incrementRequestCount()

	id := mux.Vars(r)["id"]
	h, err := s.lookup(r.Context(), id)
	if err != nil {
		s.lookupError(w, id, err)
		return
	}
	defer s.release(h)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.incrementErrorCount()
		s.log.WithField("terminal", id).WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close() //nolint:errcheck // connection is done either way

	// Register the socket so a delete can close it. A terminal deleted
	// between lookup and here is no longer in the map.
	s.mu.Lock()
	live := s.terminals[id] == h
	if live {
		h.conns[conn] = struct{}{}
	}
	s.mu.Unlock()
	if !live {
		return
	}
	defer func() {
		s.mu.Lock()
		delete(h.conns, conn)
		s.mu.Unlock()
	}()

	log := s.log.WithFields(logrus.Fields{"terminal": id, "remote": r.RemoteAddr})
	log.Info("WebSocket connected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var writeMu sync.Mutex
	write := func(messageType int, v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return err
		}
		if v == nil {
			return conn.WriteMessage(messageType, nil)
		}
		return conn.WriteJSON(v)
	}

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := write(websocket.PingMessage, nil); err != nil {
					log.WithError(err).Debug("Ping failed")
					return
				}
			}
		}
	}()

	conn.SetReadLimit(maxRequestBody)
	conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck // a failed deadline surfaces on read
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var req viewmodels.CommandRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("WebSocket closed unexpectedly")
			}
			log.Info("WebSocket disconnected")
			return
		}
		if len(req.Input) > maxInputLength {
			req.Input = req.Input[:maxInputLength]
		}
		resp, err := s.execute(ctx, id, h, req.Input)
		if err != nil {
			log.Info("Terminal deleted, closing WebSocket")
			return
		}
		if err := write(websocket.TextMessage, resp); err != nil {
			log.WithError(err).Warn("Failed to write response")
			return
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.incrementRequestCount()

	s.healthMu.RLock()
	healthy := s.healthy
	s.healthMu.RUnlock()

	s.statsmu.RLock()
	requestCount := s.requestCount
	errorCount := s.errorCount
	s.statsmu.RUnlock()

	s.mu.RLock()
	terminalCount := len(s.terminals)
	s.mu.RUnlock()

	status := "healthy"
	statusCode := http.StatusOK
	if !healthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := fmt.Sprintf(`{"status":%q,"terminals":%d,"requests":%d,"errors":%d}`,
		status, terminalCount, requestCount, errorCount)
	if _, err := w.Write([]byte(response)); err != nil {
		s.log.WithError(err).Warn("Error writing health response")
	}
}

// evictIdle drops terminals idle for longer than the configured TTL.
// Their state stays on disk and is reloaded on the next request.
// Terminals with a request in flight or an open socket are kept.
func (s *Server) evictIdle() {
	cutoff := s.now().Add(-s.settings.IdleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, h := range s.terminals {
		if h.users == 0 && h.lastActive.Before(cutoff) {
			delete(s.terminals, id)
			evicted++
		}
	}
	if evicted > 0 {
		s.log.WithFields(logrus.Fields{"evicted": evicted, "remaining": len(s.terminals)}).Info("Evicted idle terminals")
	}
}

func (s *Server) lookupError(w http.ResponseWriter, id string, err error) {
	s.incrementErrorCount()
	switch {
	case errors.Is(err, errInvalidID):
		http.Error(w, "Invalid terminal id", http.StatusBadRequest)
	case errors.Is(err, errNotFound):
		http.Error(w, "Terminal not found", http.StatusNotFound)
	default:
		s.log.WithField("terminal", id).WithError(err).Error("Failed to load terminal")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.incrementErrorCount()
		s.log.WithError(err).Warn("Error writing response")
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'self'")

		start := time.Now()
		next.ServeHTTP(w, r)
		duration := time.Since(start)

		entry := logrus.WithFields(logrus.Fields{
			"remote":   r.RemoteAddr,
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": duration,
		})
		if duration > time.Second && r.Header.Get("Upgrade") == "" {
			entry.Warn("Slow request")
		} else {
			entry.Debug("Request served")
		}
	})
}

func (s *Server) incrementRequestCount() {
	s.statsmu.Lock()
	s.requestCount++
	s.statsmu.Unlock()
}

func (s *Server) incrementErrorCount() {
	s.statsmu.Lock()
	s.errorCount++
	s.statsmu.Unlock()
}

func (s *Server) setHealthy(healthy bool) {
	s.healthMu.Lock()
	s.healthy = healthy
	s.healthMu.Unlock()

	if !healthy {
		s.log.Warn("Server health status changed to degraded")
	} else {
		s.log.Info("Server health status changed to healthy")
	}
}
