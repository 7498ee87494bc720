// Package roomsession binds a room snapshot to at most one live game
// session. It checks permissions, turns requests into events and publishes
// them on two streams: a privileged one carrying every event verbatim, and a
// client one where the game start payload has its answer withheld.
package roomsession

import (
	"fmt"
	"slices"

	"guessroom/internal/broadcast"
	"guessroom/internal/game"
	"guessroom/internal/gamesession"
	"guessroom/internal/room"
	"guessroom/internal/sender"
	"guessroom/internal/timer"
)

type Options struct {
	Scheduler timer.Scheduler
	Shuffler  game.Shuffler
}

// Session is not safe for concurrent use; the connection hub serializes
// every call, including turn timer callbacks.
type Session struct {
	genesis room.NewRoom
	room    room.Room
	game    *gamesession.Session
	gameSub *broadcast.Subscription
	closed  bool

	sched    timer.Scheduler
	shuffler game.Shuffler

	events       *broadcast.Broadcaster[room.Event]
	clientEvents *broadcast.Broadcaster[room.Event]
}

func New(id string, cfg room.Config, opts Options) *Session {
	genesis := room.NewRoom{ID: id, Config: cfg}
	return &Session{
		genesis:      genesis,
		room:         room.New(genesis),
		sched:        opts.Scheduler,
		shuffler:     opts.Shuffler,
		events:       broadcast.NewBroadcaster[room.Event](),
		clientEvents: broadcast.NewBroadcaster[room.Event](),
	}
}

// Genesis is the NewRoom event every history starts with.
func (s *Session) Genesis() room.NewRoom { return s.genesis }

func (s *Session) Room() room.Room { return s.room }

// Game returns the current server snapshot, if a game was started.
func (s *Session) Game() (game.Game, bool) {
	if s.game == nil {
		return game.Game{}, false
	}
	return s.game.Game(), true
}

func (s *Session) Closed() bool { return s.closed }

// SubscribeEvents receives every event verbatim, secrets included.
func (s *Session) SubscribeEvents(l broadcast.Listener[room.Event]) *broadcast.Subscription {
	return s.events.Subscribe(l)
}

// SubscribeClientEvents receives events safe for players and observers.
func (s *Session) SubscribeClientEvents(l broadcast.Listener[room.Event]) *broadcast.Subscription {
	return s.clientEvents.Subscribe(l)
}

// Close emits RoomClosed once.
func (s *Session) Close() {
	if s.closed {
		return
	}
	if err := s.emit(room.RoomClosed{}); err != nil {
		panic(fmt.Sprintf("roomsession: closing room %s: %v", s.room.ID(), err))
	}
}

// CanConnect reports whether a Connect for name would be admitted.
func (s *Session) CanConnect(name string) bool {
	if s.closed {
		return false
	}
	_, err := s.connect(Connect{Player: name}, sender.Internal)
	return err == nil
}

// HandleRequest validates req, then applies and publishes the events it
// produces. On error nothing has changed. Read-only requests return a
// response and emit nothing.
func (s *Session) HandleRequest(req Request, from sender.Sender) (any, error) {
	switch req.(type) {
	case GetState:
		return s.state(), nil
	case GetGameState:
		return GameStateResponse{Game: s.gameView()}, nil
	}
	if s.closed {
		return nil, ErrRoomClosed
	}

	var (
		e   room.Event
		err error
	)
	switch req := req.(type) {
	case ChangeSettings:
		e, err = s.changeSettings(req)
	case Connect:
		e, err = s.connect(req, from)
	case Disconnect:
		e, err = s.disconnect(req, from)
	case Ready:
		e, err = s.ready(req.Player, from, room.PlayerReady{Name: req.Player})
	case Unready:
		e, err = s.ready(req.Player, from, room.PlayerUnready{Name: req.Player})
	case Start:
		e, err = s.start(req, from)
	case Game:
		return nil, s.play(req, from)
	case Chat:
		e, err = s.chat(req, from)
	default:
		panic(fmt.Sprintf("roomsession: unhandled request %T", req))
	}
	if err != nil || e == nil {
		return nil, err
	}
	return nil, s.emit(e)
}

func (s *Session) changeSettings(req ChangeSettings) (room.Event, error) {
	if s.room.State() != room.Idle {
		return nil, ErrAlreadyStarted
	}
	if err := req.Config.Validate(); err != nil {
		return nil, err
	}
	return room.ChangeSettings{Config: req.Config}, nil
}

// connect admits a player. While gaming, a name still on the roster is a
// silent no-op and an absent one must belong to the running game.
func (s *Session) connect(req Connect, from sender.Sender) (room.Event, error) {
	if err := sender.Require(from.IsInternal()); err != nil {
		return nil, err
	}
	if s.room.State() == room.Gaming && s.room.HasPlayer(req.Player) {
		return nil, nil
	}
	if s.room.PlayerCount() >= s.room.Config().MaxPlayers {
		return nil, ErrRoomFull
	}
	switch s.room.State() {
	case room.Idle:
		if s.room.HasPlayer(req.Player) {
			return nil, ErrNameRepeated
		}
	case room.Gaming:
		if s.game == nil || !slices.Contains(s.game.Game().Players(), req.Player) {
			return nil, ErrNotPlayingPlayer
		}
	}
	return room.PlayerJoin{Name: req.Player}, nil
}

func (s *Session) disconnect(req Disconnect, from sender.Sender) (room.Event, error) {
	if err := sender.Require(from.IsInternal()); err != nil {
		return nil, err
	}
	if !s.room.HasPlayer(req.Player) {
		return nil, nil
	}
	return room.PlayerLeft{Name: req.Player}, nil
}

func (s *Session) ready(player string, from sender.Sender, e room.Event) (room.Event, error) {
	if err := sender.Require(from.IsPlayer(player)); err != nil {
		return nil, err
	}
	if s.room.State() != room.Idle {
		return nil, ErrAlreadyStarted
	}
	if !s.room.HasPlayer(player) {
		return nil, ErrPlayerNotExists
	}
	return e, nil
}

// start lets only Internal choose the answer; players get a shuffled one.
func (s *Session) start(req Start, from sender.Sender) (room.Event, error) {
	if req.Answer != nil && !from.IsInternal() {
		return nil, sender.ErrNotPermitted
	}
	if s.room.State() != room.Idle {
		return nil, ErrAlreadyStarted
	}
	if !s.room.AllReady() {
		return nil, ErrNotAllReady
	}
	start, err := game.NewStart(s.room.PlayerIDs(), s.room.Config().Game, req.Answer, s.shuffler)
	if err != nil {
		return nil, err
	}
	return room.GameStarted{Start: start}, nil
}

// play forwards a game request. The accepted game event reaches the room
// streams through the game session subscription; a win then finishes the
// game and closes the room.
func (s *Session) play(req Game, from sender.Sender) error {
	if s.game == nil {
		return ErrGameNotStarted
	}
	if err := s.game.HandleRequest(req.Request, from); err != nil {
		return err
	}
	winner, won := s.game.Game().Winner()
	if !won {
		return nil
	}
	if err := s.emit(room.GameFinished{Winner: winner}); err != nil {
		return err
	}
	return s.emit(room.RoomClosed{})
}

func (s *Session) chat(req Chat, from sender.Sender) (room.Event, error) {
	if err := sender.Require(from.IsInternal() || from.IsPlayer(req.Line.Name)); err != nil {
		return nil, err
	}
	return room.Chat{Line: req.Line}, nil
}

func (s *Session) state() StateResponse {
	return StateResponse{Room: s.room.View(), Game: s.gameView()}
}

func (s *Session) gameView() *game.View {
	if s.game == nil {
		return nil
	}
	v := s.game.Game().View()
	return &v
}

// AcceptEvent runs the side effects bound to e and applies it to the room
// snapshot, without publishing.
func (s *Session) AcceptEvent(e room.Event) error {
	switch e := e.(type) {
	case room.GameStarted:
		gs, err := gamesession.New(e.Start, s.sched)
		if err != nil {
			return err
		}
		s.teardownGame()
		s.game = gs
		s.gameSub = gs.Subscribe(s.onGameEvent)
		if err := gs.Start(); err != nil {
			return err
		}
	case room.GameEvent:
		if s.game == nil {
			return ErrGameNotStarted
		}
		s.game.AcceptEvent(e.Event)
	case room.RoomClosed:
		s.teardownGame()
		s.closed = true
	case room.NewRoom, room.ChangeSettings, room.PlayerJoin, room.PlayerLeft,
		room.PlayerRename, room.PlayerReady, room.PlayerUnready,
		room.GameFinished, room.Chat:
	default:
		panic(fmt.Sprintf("roomsession: unhandled event %T", e))
	}
	s.room = s.room.Apply(e)
	return nil
}

func (s *Session) emit(e room.Event) error {
	if err := s.AcceptEvent(e); err != nil {
		return err
	}
	s.publish(e)
	return nil
}

func (s *Session) publish(e room.Event) {
	s.events.Broadcast(e)
	s.clientEvents.Broadcast(ClientView(e))
}

// onGameEvent relays an event the game session already applied, so it is
// not forwarded back into the session.
func (s *Session) onGameEvent(e game.Event) {
	re := room.GameEvent{Event: e}
	s.room = s.room.Apply(re)
	s.publish(re)
}

func (s *Session) teardownGame() {
	if s.game == nil {
		return
	}
	s.gameSub.Unsubscribe()
	s.game.Stop()
	s.game = nil
	s.gameSub = nil
}

// ClientView maps a privileged event to its client-stream form.
func ClientView(e room.Event) room.Event {
	switch e := e.(type) {
	case room.GameStarted:
		return room.GameStarted{Start: e.Start.Sanitized()}
	case room.NewRoom, room.ChangeSettings, room.PlayerJoin, room.PlayerLeft,
		room.PlayerRename, room.PlayerReady, room.PlayerUnready,
		room.GameEvent, room.GameFinished, room.Chat, room.RoomClosed:
		return e
	default:
		panic(fmt.Sprintf("roomsession: unhandled event %T", e))
	}
}
