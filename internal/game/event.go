package game

// Event is a normal game event. The set of implementations is closed:
// Timeout and Guess.
type Event interface {
	gameEvent()
}

// Timeout passes the turn to the next player.
type Timeout struct{}

// Guess is an accepted guess with its peg feedback.
type Guess struct {
	Player string
	Guess  []int
	A      int
	B      int
}

func (Timeout) gameEvent() {}
func (Guess) gameEvent()   {}

// Request is a server-side game request. Implementations: GuessRequest and
// TimeoutRequest.
type Request interface {
	gameRequest()
}

type GuessRequest struct {
	Player string
	Guess  []int
}

type TimeoutRequest struct{}

func (GuessRequest) gameRequest()   {}
func (TimeoutRequest) gameRequest() {}
