// Package game is the guessing engine: an immutable game snapshot, turn
// order, win detection and peg feedback scoring.
package game

import "slices"

type secret struct {
	answer []int
	digits map[int]bool
}

// Game is an immutable snapshot. Server snapshots carry the secret answer;
// client snapshots do not. Transitions return a new Game.
type Game struct {
	players []string
	guesser int
	winner  string
	won     bool
	config  Config
	secret  *secret
}

// NewClientGame builds the initial snapshot from a start payload, ignoring
// any answer it carries.
func NewClientGame(start Start) Game {
	return Game{
		players: slices.Clone(start.Players),
		config:  start.Config,
	}
}

// NewServerGame builds the initial server snapshot. The start payload must
// carry a valid answer.
func NewServerGame(start Start) (Game, error) {
	if len(start.Players) == 0 {
		return Game{}, ErrNoPlayers
	}
	if err := ValidateAnswer(start.Answer, start.Config.AnswerLength); err != nil {
		return Game{}, err
	}
	g := NewClientGame(start)
	digits := make(map[int]bool, len(start.Answer))
	for _, d := range start.Answer {
		digits[d] = true
	}
	g.secret = &secret{answer: slices.Clone(start.Answer), digits: digits}
	return g, nil
}

func (g Game) Players() []string { return slices.Clone(g.players) }

func (g Game) Guesser() int { return g.guesser }

// CurrentPlayer is the player whose turn it is.
func (g Game) CurrentPlayer() string {
	if len(g.players) == 0 {
		return ""
	}
	return g.players[g.guesser]
}

func (g Game) Config() Config { return g.config }

// Winner returns the winner and whether the game is won.
func (g Game) Winner() (string, bool) { return g.winner, g.won }

func (g Game) IsFinished() bool { return g.won }

func (g Game) IsServer() bool { return g.secret != nil }

// Answer returns a copy of the secret, or nil on client snapshots.
func (g Game) Answer() []int {
	if g.secret == nil {
		return nil
	}
	return slices.Clone(g.secret.answer)
}

// Sanitized drops the secret.
func (g Game) Sanitized() Game {
	g.secret = nil
	return g
}

// HandleEvent applies an accepted event.
func (g Game) HandleEvent(e Event) Game {
	next := g
	switch e := e.(type) {
	case Timeout:
		next.guesser = g.nextGuesser()
	case Guess:
		next.guesser = g.nextGuesser()
		if e.A == g.config.AnswerLength {
			next.winner = e.Player
			next.won = true
		}
	default:
		panic("game: unhandled event type")
	}
	return next
}

func (g Game) nextGuesser() int {
	return (g.guesser + 1) % len(g.players)
}

// HandleRequest validates req against a server snapshot and returns the
// resulting event. The snapshot is never modified.
func (g Game) HandleRequest(req Request) (Event, error) {
	if g.won {
		return nil, ErrGameAlreadyFinished
	}
	switch req := req.(type) {
	case TimeoutRequest:
		return Timeout{}, nil
	case GuessRequest:
		if g.players[g.guesser] != req.Player {
			return nil, ErrNotYourTurn
		}
		a, b, err := g.score(req.Guess)
		if err != nil {
			return nil, err
		}
		return Guess{Player: req.Player, Guess: slices.Clone(req.Guess), A: a, B: b}, nil
	default:
		panic("game: unhandled request type")
	}
}

// score counts a (right digit, right place) and b (wrong place, digit in the
// answer). b uses set membership, so a repeated guessed digit may count more
// than once.
func (g Game) score(guess []int) (a, b int, err error) {
	if g.secret == nil {
		return 0, 0, ErrInvalidAnswer
	}
	if len(guess) != len(g.secret.answer) {
		return 0, 0, ErrInvalidGuessLength
	}
	for i, d := range guess {
		switch {
		case d == g.secret.answer[i]:
			a++
		case g.secret.digits[d]:
			b++
		}
	}
	return a, b, nil
}

// View is the client-safe, serializable form of a snapshot.
type View struct {
	Players []string `json:"players"`
	Guesser int      `json:"guesser"`
	Winner  string   `json:"winner,omitempty"`
	Config  Config   `json:"config"`
}

func (g Game) View() View {
	return View{
		Players: g.Players(),
		Guesser: g.guesser,
		Winner:  g.winner,
		Config:  g.config,
	}
}
