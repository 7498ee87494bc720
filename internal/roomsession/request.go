package roomsession

import (
	"guessroom/internal/game"
	"guessroom/internal/room"
)

// Request is a room request. The set of implementations is closed.
type Request interface {
	roomRequest()
}

type ChangeSettings struct {
	Config room.Config
}

// Connect and Disconnect are issued by the connection hub, never by players.
type Connect struct {
	Player string
}

type Disconnect struct {
	Player string
}

type Ready struct {
	Player string
}

type Unready struct {
	Player string
}

// Start begins a game. Answer is optional; when nil a random one is drawn.
type Start struct {
	Answer []int
}

type Game struct {
	Request game.Request
}

type Chat struct {
	Line room.ChatLine
}

type GetState struct{}

type GetGameState struct{}

func (ChangeSettings) roomRequest() {}
func (Connect) roomRequest()        {}
func (Disconnect) roomRequest()     {}
func (Ready) roomRequest()          {}
func (Unready) roomRequest()        {}
func (Start) roomRequest()          {}
func (Game) roomRequest()           {}
func (Chat) roomRequest()           {}
func (GetState) roomRequest()       {}
func (GetGameState) roomRequest()   {}

// StateResponse answers GetState. Game is nil when no game was started.
type StateResponse struct {
	Room room.View  `json:"room"`
	Game *game.View `json:"game"`
}

type GameStateResponse struct {
	Game *game.View `json:"game"`
}
