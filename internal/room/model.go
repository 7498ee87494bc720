// Package room is the lobby state machine: roster, readiness, settings, the
// chat log and whether a game is in progress. Transitions are pure.
package room

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"guessroom/internal/game"
)

var ErrInvalidSettings = errors.New("error.invalid_settings")

type State int

const (
	Idle State = iota
	Gaming
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Gaming:
		return "gaming"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*s = Idle
	case "gaming":
		*s = Gaming
	default:
		return fmt.Errorf("unknown room state %q", b)
	}
	return nil
}

type Config struct {
	MaxPlayers int         `json:"maxPlayers"`
	Game       game.Config `json:"game"`
}

func DefaultConfig() Config {
	return Config{
		MaxPlayers: 8,
		Game:       game.DefaultConfig(),
	}
}

func (c Config) Validate() error {
	if c.MaxPlayers < 1 {
		return ErrInvalidSettings
	}
	if err := c.Game.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	return nil
}

type ChatLine struct {
	Name string `json:"name"`
	Msg  string `json:"msg"`
}

// Room is an immutable snapshot. The keys of the ready map always equal the
// roster.
type Room struct {
	id          string
	state       State
	playerIDs   []string
	playerReady map[string]bool
	chats       []ChatLine
	config      Config
}

// New builds the initial snapshot from the genesis event.
func New(e NewRoom) Room {
	return Room{
		id:          e.ID,
		state:       Idle,
		playerReady: map[string]bool{},
		config:      e.Config,
	}
}

func (r Room) ID() string { return r.id }

func (r Room) State() State { return r.state }

func (r Room) Config() Config { return r.config }

func (r Room) PlayerIDs() []string { return slices.Clone(r.playerIDs) }

func (r Room) PlayerCount() int { return len(r.playerIDs) }

func (r Room) HasPlayer(name string) bool {
	_, ok := r.playerReady[name]
	return ok
}

func (r Room) IsReady(name string) bool { return r.playerReady[name] }

// AllReady is false for an empty roster.
func (r Room) AllReady() bool {
	if len(r.playerIDs) == 0 {
		return false
	}
	for _, ready := range r.playerReady {
		if !ready {
			return false
		}
	}
	return true
}

func (r Room) Chats() []ChatLine { return slices.Clone(r.chats) }

// View is the serializable form of a snapshot.
type View struct {
	ID          string          `json:"id"`
	State       State           `json:"state"`
	PlayerIDs   []string        `json:"playerIDs"`
	PlayerReady map[string]bool `json:"playerReady"`
	Chats       []ChatLine      `json:"chats"`
	Config      Config          `json:"config"`
}

func (r Room) View() View {
	return View{
		ID:          r.id,
		State:       r.state,
		PlayerIDs:   r.PlayerIDs(),
		PlayerReady: maps.Clone(r.playerReady),
		Chats:       r.Chats(),
		Config:      r.config,
	}
}
