package protocol

import (
	"encoding/json"
	"fmt"

	"guessroom/internal/game"
	"guessroom/internal/room"
	"guessroom/internal/roomsession"
)

// Room request types. Game requests nest under "request" and reuse
// TypeGuess and TypeTimeout.
const (
	TypeConnect      = "connect"
	TypeDisconnect   = "disconnect"
	TypeReady        = "ready"
	TypeUnready      = "unready"
	TypeStart        = "start"
	TypeGame         = "game"
	TypeGetState     = "get_state"
	TypeGetGameState = "get_game_state"
)

type requestMessage struct {
	Type    string              `json:"type"`
	Player  string              `json:"player,omitempty"`
	Config  *room.Config        `json:"config,omitempty"`
	Answer  []int               `json:"answer,omitempty"`
	Request *gameRequestMessage `json:"request,omitempty"`
	Msg     *room.ChatLine      `json:"msg,omitempty"`
}

type gameRequestMessage struct {
	Type   string `json:"type"`
	Player string `json:"player,omitempty"`
	Guess  []int  `json:"guess,omitempty"`
}

// DecodeRequest parses an inbound room request.
func DecodeRequest(data []byte) (roomsession.Request, error) {
	var m requestMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	switch m.Type {
	case TypeChangeSettings:
		if m.Config == nil {
			return nil, malformed(m.Type)
		}
		return roomsession.ChangeSettings{Config: *m.Config}, nil
	case TypeConnect, TypeDisconnect, TypeReady, TypeUnready:
		if m.Player == "" {
			return nil, malformed(m.Type)
		}
		return playerRequest(m.Type, m.Player), nil
	case TypeStart:
		return roomsession.Start{Answer: m.Answer}, nil
	case TypeGame:
		if m.Request == nil {
			return nil, malformed(m.Type)
		}
		req, err := decodeGameRequest(m.Request)
		if err != nil {
			return nil, err
		}
		return roomsession.Game{Request: req}, nil
	case TypeChat:
		if m.Msg == nil {
			return nil, malformed(m.Type)
		}
		return roomsession.Chat{Line: *m.Msg}, nil
	case TypeGetState:
		return roomsession.GetState{}, nil
	case TypeGetGameState:
		return roomsession.GetGameState{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
}

func playerRequest(typ, player string) roomsession.Request {
	switch typ {
	case TypeConnect:
		return roomsession.Connect{Player: player}
	case TypeDisconnect:
		return roomsession.Disconnect{Player: player}
	case TypeReady:
		return roomsession.Ready{Player: player}
	default:
		return roomsession.Unready{Player: player}
	}
}

func decodeGameRequest(m *gameRequestMessage) (game.Request, error) {
	switch m.Type {
	case TypeGuess:
		if m.Player == "" || m.Guess == nil {
			return nil, malformed(m.Type)
		}
		return game.GuessRequest{Player: m.Player, Guess: m.Guess}, nil
	case TypeTimeout:
		return game.TimeoutRequest{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
}
