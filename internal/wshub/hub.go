// Package wshub adapts a room session to its sockets: it admits players,
// observers and the room master, keeps the two event histories that late
// joiners replay, and serializes every entry point on one mutex.
package wshub

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"guessroom/internal/game"
	"guessroom/internal/gamesession"
	"guessroom/internal/metrics"
	"guessroom/internal/protocol"
	"guessroom/internal/room"
	"guessroom/internal/roomsession"
	"guessroom/internal/sender"
	"guessroom/internal/timer"
)

var (
	ErrIncorrectKey     = errors.New("error.incorrect_key")
	ErrAlreadyConnected = errors.New("error.already_connected")
)

const reasonRoomClosing = "status.room_closing"

// rejectReasons bounds the metric label set. Wrapping sentinels come before
// the sentinels they may wrap.
var rejectReasons = []error{
	protocol.ErrMalformed,
	protocol.ErrUnknownType,
	sender.ErrNotPermitted,
	room.ErrInvalidSettings,
	roomsession.ErrAlreadyStarted,
	roomsession.ErrNotAllReady,
	roomsession.ErrRoomFull,
	roomsession.ErrNameRepeated,
	roomsession.ErrNotPlayingPlayer,
	roomsession.ErrPlayerNotExists,
	roomsession.ErrGameNotStarted,
	roomsession.ErrRoomClosed,
	gamesession.ErrUnexpectedState,
	game.ErrInvalidConfig,
	game.ErrNotYourTurn,
	game.ErrGameAlreadyFinished,
	game.ErrInvalidGuessLength,
	game.ErrInvalidAnswer,
	game.ErrNoPlayers,
}

func rejectReason(err error) string {
	for _, known := range rejectReasons {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "other"
}

type Role int

const (
	RolePlayer Role = iota
	RoleObserver
	RoleMaster
)

func (r Role) String() string {
	switch r {
	case RolePlayer:
		return "player"
	case RoleObserver:
		return "observer"
	case RoleMaster:
		return "master"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

type member struct {
	role Role
	name string
}

// EventHook observes every privileged event with its position in the room
// history and its encoded form.
type EventHook func(roomID string, seq int, e room.Event, data []byte)

type Options struct {
	// Scheduler drives turn timers; callbacks are run under the hub lock.
	Scheduler timer.Scheduler
	Shuffler  game.Shuffler
	Now       func() time.Time
	// OnClosed runs once, under the hub lock, after the room closed.
	OnClosed func(roomID string)
	OnEvent  EventHook
}

type randShuffler struct{}

func (randShuffler) Perm(n int) []int { return rand.Perm(n) }

// Hub owns one room. The zero value is not usable; use New.
type Hub struct {
	mu sync.Mutex

	id      string
	key     string
	session *roomsession.Session

	clientHistory     [][]byte
	privilegedHistory [][]byte

	members map[Socket]member
	names   map[string]int
	master  Socket
	closed  bool

	lastActive time.Time
	now        func() time.Time
	onClosed   func(string)
	onEvent    EventHook
}

func New(id, key string, cfg room.Config, opts Options) *Hub {
	if opts.Scheduler == nil {
		opts.Scheduler = timer.Real{}
	}
	if opts.Shuffler == nil {
		opts.Shuffler = randShuffler{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	h := &Hub{
		id:       id,
		key:      key,
		members:  make(map[Socket]member),
		names:    make(map[string]int),
		now:      opts.Now,
		onClosed: opts.OnClosed,
		onEvent:  opts.OnEvent,
	}
	h.lastActive = h.now()
	h.session = roomsession.New(id, cfg, roomsession.Options{
		Scheduler: timer.Locked(opts.Scheduler, &h.mu),
		Shuffler:  opts.Shuffler,
	})
	h.session.SubscribeEvents(h.deliverPrivileged)
	h.session.SubscribeClientEvents(h.deliverClient)

	genesis := h.session.Genesis()
	h.deliverPrivileged(genesis)
	h.deliverClient(genesis)
	return h
}

func (h *Hub) ID() string  { return h.id }
func (h *Hub) Key() string { return h.key }

func (h *Hub) Config() room.Config {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session.Room().Config()
}

func (h *Hub) PlayerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session.Room().PlayerCount()
}

func (h *Hub) CanConnect(name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.closed && h.session.CanConnect(name)
}

// LastActive is the time of the last connect or inbound message.
func (h *Hub) LastActive() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastActive
}

func (h *Hub) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *Hub) Sockets() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.members)
}

// ConnectPlayer admits sock as name. On rejection sock is closed with the
// error text as reason.
func (h *Hub) ConnectPlayer(sock Socket, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		sock.Close(StatusRoomClosing, reasonRoomClosing)
		return roomsession.ErrRoomClosed
	}
	if _, err := h.session.HandleRequest(roomsession.Connect{Player: name}, sender.Internal); err != nil {
		log.Debug().Str("room", h.id).Str("player", name).Err(err).Msg("player rejected")
		sock.Close(StatusRejected, err.Error())
		return err
	}
	h.admit(sock, member{role: RolePlayer, name: name}, h.clientHistory)
	h.names[name]++
	return nil
}

// ConnectObserver admits a read-only socket.
func (h *Hub) ConnectObserver(sock Socket) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		sock.Close(StatusRoomClosing, reasonRoomClosing)
		return roomsession.ErrRoomClosed
	}
	h.admit(sock, member{role: RoleObserver}, h.clientHistory)
	return nil
}

// ConnectMaster admits the single privileged socket. Its requests are sent
// as Internal and it replays the unsanitized history.
func (h *Hub) ConnectMaster(sock Socket, key string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch {
	case h.closed:
		sock.Close(StatusRoomClosing, reasonRoomClosing)
		return roomsession.ErrRoomClosed
	case key != h.key:
		sock.Close(StatusIncorrectKey, ErrIncorrectKey.Error())
		return ErrIncorrectKey
	case h.master != nil:
		sock.Close(StatusAlreadyConnected, ErrAlreadyConnected.Error())
		return ErrAlreadyConnected
	}
	h.admit(sock, member{role: RoleMaster}, h.privilegedHistory)
	h.master = sock
	return nil
}

func (h *Hub) admit(sock Socket, m member, history [][]byte) {
	// Histories only grow, so a capped slice stays stable.
	sock.Replay(history[:len(history):len(history)])
	h.members[sock] = m
	h.lastActive = h.now()
	metrics.Connections.WithLabelValues(m.role.String()).Inc()
	log.Debug().Str("room", h.id).Str("role", m.role.String()).Str("player", m.name).Msg("socket connected")
}

// HandleMessage decodes one request from sock, dispatches it and replies
// with a response envelope. Events it causes are delivered before the reply.
func (h *Hub) HandleMessage(sock Socket, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.members[sock]
	if !ok {
		return
	}
	h.lastActive = h.now()

	resp, err := h.dispatch(m, data)
	if err != nil {
		metrics.RejectedRequests.WithLabelValues(rejectReason(err)).Inc()
		log.Debug().Str("room", h.id).Str("role", m.role.String()).Str("player", m.name).Err(err).Msg("request rejected")
		h.reply(sock, protocol.EncodeError(err))
	} else if out, err := protocol.EncodeSuccess(resp); err != nil {
		log.Error().Str("room", h.id).Err(err).Msg("encode response")
		h.reply(sock, protocol.EncodeError(err))
	} else {
		h.reply(sock, out)
	}

	if h.session.Closed() {
		h.shutdown()
	}
}

func (h *Hub) dispatch(m member, data []byte) (any, error) {
	var from sender.Sender
	switch m.role {
	case RolePlayer:
		from = sender.Player(m.name)
	case RoleMaster:
		from = sender.Internal
	case RoleObserver:
		return nil, sender.ErrNotPermitted
	}
	req, err := protocol.DecodeRequest(data)
	if err != nil {
		return nil, err
	}
	return h.session.HandleRequest(req, from)
}

func (h *Hub) reply(sock Socket, data []byte) {
	if err := sock.Send(data); err != nil {
		log.Debug().Str("room", h.id).Err(err).Msg("reply dropped")
	}
}

// Disconnect unregisters sock. When the last socket of a player goes away
// the player leaves the room. Unknown sockets are ignored.
func (h *Hub) Disconnect(sock Socket) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.members[sock]
	if !ok {
		return
	}
	h.forget(sock, m)

	if m.role != RolePlayer {
		return
	}
	h.names[m.name]--
	if h.names[m.name] > 0 {
		return
	}
	delete(h.names, m.name)
	if _, err := h.session.HandleRequest(roomsession.Disconnect{Player: m.name}, sender.Internal); err != nil {
		log.Warn().Str("room", h.id).Str("player", m.name).Err(err).Msg("disconnect rejected")
	}
}

func (h *Hub) forget(sock Socket, m member) {
	delete(h.members, sock)
	if sock == h.master {
		h.master = nil
	}
	metrics.Connections.WithLabelValues(m.role.String()).Dec()
}

// Close ends the room: RoomClosed is emitted and every socket is closed.
// Calling it again has no effect.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.session.Close()
	h.shutdown()
}

func (h *Hub) shutdown() {
	if h.closed {
		return
	}
	h.closed = true
	for sock, m := range h.members {
		sock.Close(StatusRoomClosing, reasonRoomClosing)
		h.forget(sock, m)
	}
	clear(h.names)
	log.Info().Str("room", h.id).Msg("room closed")
	if h.onClosed != nil {
		h.onClosed(h.id)
	}
}

func (h *Hub) deliverPrivileged(e room.Event) {
	data, ok := h.encode(e)
	if !ok {
		return
	}
	metrics.Events.WithLabelValues(protocol.EventType(e)).Inc()
	h.privilegedHistory = append(h.privilegedHistory, data)
	if h.master != nil {
		h.reply(h.master, data)
	}
	if h.onEvent != nil {
		h.onEvent(h.id, len(h.privilegedHistory)-1, e, data)
	}
}

func (h *Hub) deliverClient(e room.Event) {
	data, ok := h.encode(e)
	if !ok {
		return
	}
	h.clientHistory = append(h.clientHistory, data)
	for sock, m := range h.members {
		if m.role == RoleMaster {
			continue
		}
		if err := sock.Send(data); err != nil {
			log.Debug().Str("room", h.id).Str("role", m.role.String()).Err(err).Msg("event dropped")
		}
	}
}

func (h *Hub) encode(e room.Event) ([]byte, bool) {
	data, err := protocol.EncodeEvent(e)
	if err != nil {
		log.Error().Str("room", h.id).Str("type", protocol.EventType(e)).Err(err).Msg("encode event")
		return nil, false
	}
	return data, true
}
