// Package protocol is the JSON wire codec for room events, room requests and
// request responses. Every message is a flat object with a "type" field.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"guessroom/internal/game"
	"guessroom/internal/room"
)

var (
	ErrMalformed   = errors.New("error.malformed_message")
	ErrUnknownType = errors.New("error.unknown_type")
)

// Room event types.
const (
	TypeNewRoom        = "new_room"
	TypeChangeSettings = "change_settings"
	TypePlayerJoin     = "player_join"
	TypePlayerLeft     = "player_left"
	TypePlayerRename   = "player_rename"
	TypePlayerReady    = "player_ready"
	TypePlayerUnready  = "player_unready"
	TypeGameStarted    = "game_started"
	TypeGameEvent      = "game_event"
	TypeGameFinished   = "game_finished"
	TypeChat           = "chat"
	TypeRoomClosed     = "room_closed"
)

// Game event types, nested under "event".
const (
	TypeNewGameServer = "new_game_server"
	TypeNewGameClient = "new_game_client"
	TypeTimeout       = "timeout"
	TypeGuess         = "guess"
)

type eventMessage struct {
	Type   string            `json:"type"`
	ID     string            `json:"id,omitempty"`
	Config *room.Config      `json:"config,omitempty"`
	Name   string            `json:"name,omitempty"`
	From   string            `json:"from,omitempty"`
	To     string            `json:"to,omitempty"`
	Event  *gameEventMessage `json:"event,omitempty"`
	Winner string            `json:"winner,omitempty"`
	Msg    *room.ChatLine    `json:"msg,omitempty"`
}

// a and b are pointers so that a zero score is still written.
type gameEventMessage struct {
	Type    string       `json:"type"`
	Players []string     `json:"players,omitempty"`
	Config  *game.Config `json:"config,omitempty"`
	Answer  []int        `json:"answer,omitempty"`
	Player  string       `json:"player,omitempty"`
	Guess   []int        `json:"guess,omitempty"`
	A       *int         `json:"a,omitempty"`
	B       *int         `json:"b,omitempty"`
}

// EventType returns the wire type of e.
func EventType(e room.Event) string {
	switch e.(type) {
	case room.NewRoom:
		return TypeNewRoom
	case room.ChangeSettings:
		return TypeChangeSettings
	case room.PlayerJoin:
		return TypePlayerJoin
	case room.PlayerLeft:
		return TypePlayerLeft
	case room.PlayerRename:
		return TypePlayerRename
	case room.PlayerReady:
		return TypePlayerReady
	case room.PlayerUnready:
		return TypePlayerUnready
	case room.GameStarted:
		return TypeGameStarted
	case room.GameEvent:
		return TypeGameEvent
	case room.GameFinished:
		return TypeGameFinished
	case room.Chat:
		return TypeChat
	case room.RoomClosed:
		return TypeRoomClosed
	default:
		panic(fmt.Sprintf("protocol: unhandled event %T", e))
	}
}

func EncodeEvent(e room.Event) ([]byte, error) {
	m := eventMessage{Type: EventType(e)}
	switch e := e.(type) {
	case room.NewRoom:
		m.ID = e.ID
		m.Config = &e.Config
	case room.ChangeSettings:
		m.Config = &e.Config
	case room.PlayerJoin:
		m.Name = e.Name
	case room.PlayerLeft:
		m.Name = e.Name
	case room.PlayerRename:
		m.From, m.To = e.From, e.To
	case room.PlayerReady:
		m.Name = e.Name
	case room.PlayerUnready:
		m.Name = e.Name
	case room.GameStarted:
		m.Event = encodeStart(e.Start)
	case room.GameEvent:
		m.Event = encodeGameEvent(e.Event)
	case room.GameFinished:
		m.Winner = e.Winner
	case room.Chat:
		m.Msg = &e.Line
	case room.RoomClosed:
	}
	return json.Marshal(m)
}

func encodeStart(s game.Start) *gameEventMessage {
	m := &gameEventMessage{
		Type:    TypeNewGameClient,
		Players: s.Players,
		Config:  &s.Config,
	}
	if s.IsServer() {
		m.Type = TypeNewGameServer
		m.Answer = s.Answer
	}
	return m
}

func encodeGameEvent(e game.Event) *gameEventMessage {
	switch e := e.(type) {
	case game.Timeout:
		return &gameEventMessage{Type: TypeTimeout}
	case game.Guess:
		return &gameEventMessage{Type: TypeGuess, Player: e.Player, Guess: e.Guess, A: &e.A, B: &e.B}
	default:
		panic(fmt.Sprintf("protocol: unhandled game event %T", e))
	}
}

// DecodeEvent parses a room event, as written by EncodeEvent.
func DecodeEvent(data []byte) (room.Event, error) {
	var m eventMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	switch m.Type {
	case TypeNewRoom:
		if m.ID == "" || m.Config == nil {
			return nil, malformed(m.Type)
		}
		return room.NewRoom{ID: m.ID, Config: *m.Config}, nil
	case TypeChangeSettings:
		if m.Config == nil {
			return nil, malformed(m.Type)
		}
		return room.ChangeSettings{Config: *m.Config}, nil
	case TypePlayerJoin, TypePlayerLeft, TypePlayerReady, TypePlayerUnready:
		if m.Name == "" {
			return nil, malformed(m.Type)
		}
		return namedEvent(m.Type, m.Name), nil
	case TypePlayerRename:
		if m.From == "" || m.To == "" {
			return nil, malformed(m.Type)
		}
		return room.PlayerRename{From: m.From, To: m.To}, nil
	case TypeGameStarted:
		if m.Event == nil {
			return nil, malformed(m.Type)
		}
		start, err := decodeStart(m.Event)
		if err != nil {
			return nil, err
		}
		return room.GameStarted{Start: start}, nil
	case TypeGameEvent:
		if m.Event == nil {
			return nil, malformed(m.Type)
		}
		e, err := decodeGameEvent(m.Event)
		if err != nil {
			return nil, err
		}
		return room.GameEvent{Event: e}, nil
	case TypeGameFinished:
		return room.GameFinished{Winner: m.Winner}, nil
	case TypeChat:
		if m.Msg == nil {
			return nil, malformed(m.Type)
		}
		return room.Chat{Line: *m.Msg}, nil
	case TypeRoomClosed:
		return room.RoomClosed{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
}

func namedEvent(typ, name string) room.Event {
	switch typ {
	case TypePlayerJoin:
		return room.PlayerJoin{Name: name}
	case TypePlayerLeft:
		return room.PlayerLeft{Name: name}
	case TypePlayerReady:
		return room.PlayerReady{Name: name}
	default:
		return room.PlayerUnready{Name: name}
	}
}

func decodeStart(m *gameEventMessage) (game.Start, error) {
	if m.Config == nil || len(m.Players) == 0 {
		return game.Start{}, malformed(m.Type)
	}
	switch m.Type {
	case TypeNewGameServer:
		if m.Answer == nil {
			return game.Start{}, malformed(m.Type)
		}
		return game.Start{Players: m.Players, Config: *m.Config, Answer: m.Answer}, nil
	case TypeNewGameClient:
		return game.Start{Players: m.Players, Config: *m.Config}, nil
	default:
		return game.Start{}, fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
}

func decodeGameEvent(m *gameEventMessage) (game.Event, error) {
	switch m.Type {
	case TypeTimeout:
		return game.Timeout{}, nil
	case TypeGuess:
		if m.Player == "" || m.Guess == nil || m.A == nil || m.B == nil {
			return nil, malformed(m.Type)
		}
		return game.Guess{Player: m.Player, Guess: m.Guess, A: *m.A, B: *m.B}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
}

func malformed(typ string) error {
	return fmt.Errorf("%w: incomplete %s", ErrMalformed, typ)
}
