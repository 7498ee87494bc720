package roomsession

import "errors"

var (
	ErrAlreadyStarted   = errors.New("error.game_already_started")
	ErrNotAllReady      = errors.New("error.not_all_prepared")
	ErrRoomFull         = errors.New("error.room_full")
	ErrNameRepeated     = errors.New("error.name_repeated")
	ErrNotPlayingPlayer = errors.New("error.not_playing_player")
	ErrPlayerNotExists  = errors.New("error.player_not_exists")
	ErrGameNotStarted   = errors.New("error.game_not_started")
	ErrRoomClosed       = errors.New("error.room_closed")
)
