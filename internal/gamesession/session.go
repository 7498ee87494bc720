// Package gamesession runs one game: it wraps the guessing engine with a
// READY/RUNNING/FINISHED lifecycle and a turn timer, and publishes every
// accepted event.
package gamesession

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"guessroom/internal/broadcast"
	"guessroom/internal/game"
	"guessroom/internal/sender"
	"guessroom/internal/timer"
)

var ErrUnexpectedState = errors.New("error.unexpected_game_state")

type State int

const (
	Ready State = iota
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session is not safe for concurrent use. Callers serialize access, and the
// scheduler must run the turn timer under the same serialization.
type Session struct {
	state  State
	game   game.Game
	turn   *timer.Task
	events *broadcast.Broadcaster[game.Event]
}

func New(start game.Start, sched timer.Scheduler) (*Session, error) {
	g, err := game.NewServerGame(start)
	if err != nil {
		return nil, err
	}
	s := &Session{
		state:  Ready,
		game:   g,
		events: broadcast.NewBroadcaster[game.Event](),
	}
	s.turn = timer.NewTask(sched, start.Config.TurnTimeout(), s.onTurnTimeout)
	return s, nil
}

func (s *Session) State() State { return s.state }

// Game returns the current server snapshot.
func (s *Session) Game() game.Game { return s.game }

// Subscribe registers l for every accepted event, delivered after the
// snapshot has been updated.
func (s *Session) Subscribe(l broadcast.Listener[game.Event]) *broadcast.Subscription {
	return s.events.Subscribe(l)
}

func (s *Session) Start() error {
	switch s.state {
	case Ready:
		s.turn.Arm()
		s.state = Running
		return nil
	case Running:
		return nil
	default:
		return fmt.Errorf("start in state %s: %w", s.state, ErrUnexpectedState)
	}
}

func (s *Session) Stop() {
	switch s.state {
	case Running:
		s.turn.Cancel()
		s.state = Finished
	case Ready:
		s.state = Finished
	case Finished:
	}
}

// HandleRequest authorizes req, validates it against the engine and, only if
// accepted, applies and publishes the resulting event.
func (s *Session) HandleRequest(req game.Request, from sender.Sender) error {
	if err := authorize(req, from); err != nil {
		return err
	}
	e, err := s.game.HandleRequest(req)
	if err != nil {
		return err
	}
	if s.state == Finished {
		return fmt.Errorf("request in state %s: %w", s.state, ErrUnexpectedState)
	}
	s.AcceptEvent(e)
	s.events.Broadcast(e)
	return nil
}

func authorize(req game.Request, from sender.Sender) error {
	switch req := req.(type) {
	case game.GuessRequest:
		return sender.Require(from.IsPlayer(req.Player))
	case game.TimeoutRequest:
		return sender.Require(from.IsInternal())
	default:
		panic("gamesession: unhandled request type")
	}
}

// AcceptEvent applies e without publishing it. The turn timer restarts on
// every event while running, and the session stops once there is a winner.
func (s *Session) AcceptEvent(e game.Event) {
	switch e.(type) {
	case game.Timeout, game.Guess:
		if s.state == Running {
			s.turn.Arm()
		}
	default:
		panic("gamesession: unhandled event type")
	}

	s.game = s.game.HandleEvent(e)

	if s.game.IsFinished() {
		s.Stop()
	}
}

func (s *Session) onTurnTimeout() {
	player := s.game.CurrentPlayer()
	if err := s.HandleRequest(game.TimeoutRequest{}, sender.Internal); err != nil {
		log.Debug().Err(err).Str("player", player).Msg("turn timeout rejected")
		return
	}
	log.Debug().Str("player", player).Msg("turn timed out")
}
