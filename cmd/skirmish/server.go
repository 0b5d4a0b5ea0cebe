package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brensch/skirmish/agent"
)

type InfoResponse struct {
	APIVersion string `json:"apiversion"`
	Name       string `json:"name"`
	Side       string `json:"side"`
	Plies      int    `json:"plies"`
	Version    string `json:"version"`
}

type MoveResponse struct {
	Turn     int             `json:"turn"`
	Commands []agent.Command `json:"commands"`
	Error    string          `json:"error,omitempty"`
}

// Server serves one agent over HTTP and websocket. Requests are independent:
// each decision runs its own search.
type Server struct {
	agent    *agent.Agent
	plies    int
	timeout  time.Duration
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewServer(a *agent.Agent, plies int, timeout time.Duration, log *slog.Logger) *Server {
	return &Server{
		agent:   a,
		plies:   plies,
		timeout: timeout,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/start", s.handleStart)
	mux.HandleFunc("/move", s.handleMove)
	mux.HandleFunc("/end", s.handleEnd)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, InfoResponse{
		APIVersion: "1",
		Name:       "skirmish",
		Side:       s.agent.Side().String(),
		Plies:      s.plies,
		Version:    "1.0.0",
	})
}

func decodeSnapshot(w http.ResponseWriter, r *http.Request) (agent.Snapshot, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return agent.Snapshot{}, false
	}
	var snap agent.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return agent.Snapshot{}, false
	}
	return snap, true
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	snap, ok := decodeSnapshot(w, r)
	if !ok {
		return
	}
	if err := s.agent.Start(snap); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	snap, ok := decodeSnapshot(w, r)
	if !ok {
		return
	}

	cmds, err := s.step(r.Context(), snap)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, agent.ErrBadSnapshot) {
			status = http.StatusBadRequest
		}
		s.log.Warn("move failed", "match", snap.MatchID, "turn", snap.Turn, "err", err)
		writeJSON(w, status, MoveResponse{Turn: snap.Turn, Commands: []agent.Command{}, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, MoveResponse{Turn: snap.Turn, Commands: cmds})
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	snap, ok := decodeSnapshot(w, r)
	if !ok {
		return
	}
	s.agent.End(snap)
	w.WriteHeader(http.StatusOK)
}

// handleWS serves a whole match over one connection: every text frame is a
// Snapshot, every reply a MoveResponse.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	for {
		var snap agent.Snapshot
		if err := conn.ReadJSON(&snap); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			s.log.Debug("websocket read", "err", err)
			return
		}

		resp := MoveResponse{Turn: snap.Turn, Commands: []agent.Command{}}
		cmds, err := s.step(r.Context(), snap)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Commands = cmds
		}
		if err := conn.WriteJSON(resp); err != nil {
			s.log.Debug("websocket write", "err", err)
			return
		}
	}
}

func (s *Server) step(ctx context.Context, snap agent.Snapshot) ([]agent.Command, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.agent.Step(ctx, snap)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
