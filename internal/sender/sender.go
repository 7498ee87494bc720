// Package sender identifies who issued a request: a named player or the
// server itself.
package sender

import "errors"

var ErrNotPermitted = errors.New("error.not_permitted")

type Kind int

const (
	KindPlayer Kind = iota + 1
	KindInternal
)

// Sender is either Player(id) or Internal. The zero value is not valid.
type Sender struct {
	kind   Kind
	player string
}

// Internal is used for actions the transport layer has already authorized:
// connect, disconnect and turn timeouts.
var Internal = Sender{kind: KindInternal}

func Player(id string) Sender {
	return Sender{kind: KindPlayer, player: id}
}

func (s Sender) Kind() Kind { return s.kind }

func (s Sender) IsInternal() bool { return s.kind == KindInternal }

// IsPlayer reports whether s is the player with the given id.
func (s Sender) IsPlayer(id string) bool {
	return s.kind == KindPlayer && s.player == id
}

// PlayerID returns the player id and true, or "" and false for Internal.
func (s Sender) PlayerID() (string, bool) {
	if s.kind != KindPlayer {
		return "", false
	}
	return s.player, true
}

func (s Sender) String() string {
	switch s.kind {
	case KindPlayer:
		return "player:" + s.player
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Require returns ErrNotPermitted unless ok.
func Require(ok bool) error {
	if !ok {
		return ErrNotPermitted
	}
	return nil
}
