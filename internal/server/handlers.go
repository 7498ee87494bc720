package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"guessroom/internal/db"
	"guessroom/internal/rooms"
	"guessroom/internal/wshub"
)

const (
	msgRoomNotExists   = "error.room_not_exists"
	msgNameNotProvided = "error.name_not_provided"
)

var errNameNotProvided = errors.New(msgNameNotProvided)

type Server struct {
	Rooms   *rooms.Store
	DB      *db.DB              // nil if no database configured
	Events  chan db.EventRecord // nil if no database configured
	Origins []string
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("writing response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Code: "error", Message: msg})
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	h, err := s.Rooms.Create()
	if err != nil {
		log.Error().Err(err).Msg("create room")
		writeError(w, http.StatusInternalServerError, "error.create_room_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"code": "success",
		"id":   h.ID(),
		"key":  h.Key(),
	})
}

func (s *Server) handleRoomConfig(w http.ResponseWriter, r *http.Request) {
	h := s.Rooms.Get(r.PathValue("id"))
	if h == nil {
		writeError(w, http.StatusNotFound, msgRoomNotExists)
		return
	}
	writeJSON(w, http.StatusOK, h.Config())
}

func (s *Server) handleJoinable(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, msgNameNotProvided)
		return
	}
	h := s.Rooms.Get(r.PathValue("id"))
	if h == nil {
		writeError(w, http.StatusNotFound, msgRoomNotExists)
		return
	}
	writeJSON(w, http.StatusOK, h.CanConnect(name))
}

func (s *Server) handlePlayerSocket(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	s.serveSocket(w, r, func(h *wshub.Hub, c *wshub.Client) error {
		if name == "" {
			c.Close(wshub.StatusRejected, msgNameNotProvided)
			return errNameNotProvided
		}
		return h.ConnectPlayer(c, name)
	})
}

func (s *Server) handleObserverSocket(w http.ResponseWriter, r *http.Request) {
	s.serveSocket(w, r, func(h *wshub.Hub, c *wshub.Client) error {
		return h.ConnectObserver(c)
	})
}

func (s *Server) handleMasterSocket(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	s.serveSocket(w, r, func(h *wshub.Hub, c *wshub.Client) error {
		return h.ConnectMaster(c, key)
	})
}

// serveSocket upgrades the request and pumps it through the room hub until
// either side closes. A rejected socket only gets its close frame.
func (s *Server) serveSocket(w http.ResponseWriter, r *http.Request, admit func(*wshub.Hub, *wshub.Client) error) {
	id := r.PathValue("id")
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.Origins})
	if err != nil {
		log.Debug().Err(err).Str("room", id).Msg("websocket accept failed")
		return
	}
	c := wshub.NewClient(conn)
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h := s.Rooms.Get(id)
	if h == nil {
		c.Close(wshub.StatusRoomNotExists, msgRoomNotExists)
		c.WritePump(ctx)
		return
	}
	if err := admit(h, c); err != nil {
		c.WritePump(ctx)
		return
	}

	writerDone := make(chan struct{})
	go func() {
		c.WritePump(ctx)
		close(writerDone)
	}()
	err = c.ReadPump(ctx, func(data []byte) { h.HandleMessage(c, data) })
	log.Debug().Err(err).Str("room", id).Str("socket", c.ID).Msg("socket closed")
	h.Disconnect(c)
	c.Close(websocket.StatusNormalClosure, "")
	<-writerDone
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusNotFound, "error.audit_disabled")
		return
	}
	events, err := s.DB.RoomEvents(r.PathValue("id"))
	if err != nil {
		log.Error().Err(err).Msg("RoomEvents failed")
		writeError(w, http.StatusInternalServerError, "error.audit_failed")
		return
	}
	if events == nil {
		events = []db.EventRecord{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.DB != nil {
		if err := s.DB.Ping(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "db_error", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "rooms": s.Rooms.Len()})
}
