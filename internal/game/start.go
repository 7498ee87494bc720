package game

import "slices"

// Shuffler produces uniformly random permutations of [0, n).
// *math/rand/v2.Rand satisfies it.
type Shuffler interface {
	Perm(n int) []int
}

// Start describes a new game. It is server-only while Answer is set.
type Start struct {
	Players []string `json:"players"`
	Config  Config   `json:"config"`
	Answer  []int    `json:"answer,omitempty"`
}

// IsServer reports whether s still carries the secret answer.
func (s Start) IsServer() bool { return s.Answer != nil }

// Sanitized returns the client payload: roster and config only.
func (s Start) Sanitized() Start {
	return Start{
		Players: slices.Clone(s.Players),
		Config:  s.Config,
	}
}

// NewStart builds a server-only start payload. The turn order is a shuffle
// of players. When answer is nil one is drawn from the digit pool.
func NewStart(players []string, cfg Config, answer []int, shuffler Shuffler) (Start, error) {
	if len(players) == 0 {
		return Start{}, ErrNoPlayers
	}
	if err := cfg.Validate(); err != nil {
		return Start{}, err
	}
	if answer == nil {
		answer = RandomAnswer(cfg.AnswerLength, shuffler)
	} else if err := ValidateAnswer(answer, cfg.AnswerLength); err != nil {
		return Start{}, err
	}

	order := shuffler.Perm(len(players))
	shuffled := make([]string, len(players))
	for i, j := range order {
		shuffled[i] = players[j]
	}
	return Start{
		Players: shuffled,
		Config:  cfg,
		Answer:  slices.Clone(answer),
	}, nil
}

// RandomAnswer returns length distinct digits from 1..9.
func RandomAnswer(length int, shuffler Shuffler) []int {
	perm := shuffler.Perm(len(digitPool))
	answer := make([]int, length)
	for i := range answer {
		answer[i] = digitPool[perm[i]]
	}
	return answer
}

func ValidateAnswer(answer []int, length int) error {
	if len(answer) != length {
		return ErrInvalidAnswer
	}
	seen := make(map[int]bool, len(answer))
	for _, d := range answer {
		if d < digitPool[0] || d > digitPool[len(digitPool)-1] || seen[d] {
			return ErrInvalidAnswer
		}
		seen[d] = true
	}
	return nil
}
