package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wfunc/twilightsync/client"
	"github.com/wfunc/twilightsync/game"
	"github.com/wfunc/twilightsync/logger"
	"github.com/wfunc/twilightsync/models"
	"github.com/wfunc/twilightsync/network"
	"github.com/wfunc/twilightsync/room"
	"github.com/wfunc/twilightsync/session"
	"github.com/wfunc/twilightsync/turn"
)

// Backend is the session the control server exposes.
type Backend interface {
	State(ctx context.Context) (game.Mirror, error)
	Rooms() []game.Room
	RefreshRooms(ctx context.Context) ([]game.Room, error)
	CreateRoom(ctx context.Context, name string) (string, error)
	JoinRoom(ctx context.Context, roomID, name string) error
	Act(ctx context.Context, action string, args ...string) (*turn.Command, error)
	Pending() []turn.Command
	History(ctx context.Context, limit int) ([]models.GameRecord, error)
	Stats(ctx context.Context) (*models.PlayerStats, error)
}

// ControlServer is the local HTTP surface: health, metrics, state and actions.
type ControlServer struct {
	addr    string
	backend Backend
	router  chi.Router
	http    *http.Server
}

func NewControlServer(addr string, backend Backend, metrics http.Handler) *ControlServer {
	s := &ControlServer{addr: addr, backend: backend}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/healthz", healthz)
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}
	r.Get("/state", s.handleState)
	r.Get("/rooms", s.handleRooms)
	r.Post("/rooms", s.handleCreateRoom)
	r.Post("/rooms/{roomID}/join", s.handleJoinRoom)
	r.Post("/actions/{action}", s.handleAction)
	r.Get("/history", s.handleHistory)
	s.router = r

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// WithSessions exposes the sessions of m under /sessions.
func (s *ControlServer) WithSessions(m *session.Manager) *ControlServer {
	s.router.Get("/sessions", func(w http.ResponseWriter, r *http.Request) {
		all := m.All()
		infos := make([]session.Info, 0, len(all))
		for _, sess := range all {
			infos = append(infos, sess.Info())
		}
		writeJSON(w, http.StatusOK, infos)
	})
	s.router.Get("/sessions/{playerID}", func(w http.ResponseWriter, r *http.Request) {
		sess, ok := m.GetByPlayerID(chi.URLParam(r, "playerID"))
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, sess.Info())
	})
	return s
}

func (s *ControlServer) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown. A clean shutdown returns nil.
func (s *ControlServer) Start() error {
	logger.Log.Infof("Control server listening on %s", s.addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *ControlServer) Shutdown(ctx context.Context) error {
	logger.Log.Info("Stopping control server.")
	return s.http.Shutdown(ctx)
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

type stateResponse struct {
	Mirror  game.Mirror    `json:"mirror"`
	Pending []turn.Command `json:"pending"`
}

func (s *ControlServer) handleState(w http.ResponseWriter, r *http.Request) {
	m, err := s.backend.State(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{Mirror: m, Pending: s.backend.Pending()})
}

// handleRooms serves the cached list; ?refresh=1 queries the server first.
func (s *ControlServer) handleRooms(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "" {
		writeJSON(w, http.StatusOK, s.backend.Rooms())
		return
	}
	rooms, err := s.backend.RefreshRooms(r.Context())
	if err != nil && len(rooms) == 0 {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

type nameRequest struct {
	Name string `json:"name"`
}

func (s *ControlServer) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	roomID, err := s.backend.CreateRoom(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		RoomID string `json:"room_id"`
	}{RoomID: roomID})
}

func (s *ControlServer) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.backend.JoinRoom(r.Context(), chi.URLParam(r, "roomID"), req.Name); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type actionRequest struct {
	Args []string `json:"args"`
}

type actionResponse struct {
	Sent bool   `json:"sent"`
	CID  string `json:"cid,omitempty"`
}

// handleAction runs one action. An empty body means no arguments.
func (s *ControlServer) handleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}
	cmd, err := s.backend.Act(r.Context(), chi.URLParam(r, "action"), req.Args...)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := actionResponse{}
	if cmd != nil {
		resp.Sent, resp.CID = true, cmd.ID
	}
	writeJSON(w, http.StatusAccepted, resp)
}

type historyResponse struct {
	Records []models.GameRecord `json:"records"`
	Stats   *models.PlayerStats `json:"stats"`
}

func (s *ControlServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	records, err := s.backend.History(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	stats, err := s.backend.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Records: records, Stats: stats})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var (
		verr *session.ValidationError
		terr *room.TransportError
	)
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, client.ErrUnknownAction),
		errors.Is(err, client.ErrBadArguments),
		errors.Is(err, game.ErrUnknownZone):
		status = http.StatusBadRequest
	case errors.Is(err, network.ErrNotConnected), errors.Is(err, client.ErrClosed):
		status = http.StatusServiceUnavailable
	case errors.As(err, &terr):
		status = http.StatusBadGateway
	default:
		logger.Log.Errorf("Control request failed: %v", err)
	}
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{Error: err.Error()})
}
