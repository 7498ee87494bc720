package game

import "errors"

var (
	ErrNotYourTurn         = errors.New("error.not_your_round")
	ErrGameAlreadyFinished = errors.New("error.game_already_end")
	ErrInvalidGuessLength  = errors.New("error.answer_length_mismatch")
	ErrInvalidAnswer       = errors.New("error.invalid_answer")
	ErrNoPlayers           = errors.New("error.no_players")
)
