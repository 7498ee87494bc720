package room

import "guessroom/internal/game"

// Event is a room event. The set of implementations is closed; every switch
// over it must name each type.
type Event interface {
	roomEvent()
}

// NewRoom is the first event of every room history.
type NewRoom struct {
	ID     string
	Config Config
}

type ChangeSettings struct {
	Config Config
}

type PlayerJoin struct {
	Name string
}

type PlayerLeft struct {
	Name string
}

type PlayerRename struct {
	From string
	To   string
}

type PlayerReady struct {
	Name string
}

type PlayerUnready struct {
	Name string
}

// GameStarted carries a server-only start payload on the privileged stream
// and a sanitized one on the client stream.
type GameStarted struct {
	Start game.Start
}

type GameEvent struct {
	Event game.Event
}

type GameFinished struct {
	Winner string
}

type Chat struct {
	Line ChatLine
}

type RoomClosed struct{}

func (NewRoom) roomEvent()        {}
func (ChangeSettings) roomEvent() {}
func (PlayerJoin) roomEvent()     {}
func (PlayerLeft) roomEvent()     {}
func (PlayerRename) roomEvent()   {}
func (PlayerReady) roomEvent()    {}
func (PlayerUnready) roomEvent()  {}
func (GameStarted) roomEvent()    {}
func (GameEvent) roomEvent()      {}
func (GameFinished) roomEvent()   {}
func (Chat) roomEvent()           {}
func (RoomClosed) roomEvent()     {}
