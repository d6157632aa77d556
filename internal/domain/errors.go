package domain

import "errors"

var (
	ErrLobbyNotFound    = errors.New("lobby not found")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrLobbyFull        = errors.New("lobby is full")
	ErrGameInProgress   = errors.New("game already in progress")
	ErrNameTaken        = errors.New("name already taken in this lobby")
	ErrNotHost          = errors.New("only the host can do that")
	ErrNotEnoughPlayers = errors.New("not enough players to start")
	ErrNotAllReady      = errors.New("not all players are ready")
	ErrNoActiveGame     = errors.New("no active game for this lobby")
)
