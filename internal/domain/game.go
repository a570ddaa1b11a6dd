package domain

import "errors"

var (
	ErrGameExists   = errors.New("game already exists")
	ErrGameNotFound = errors.New("game not found")
	ErrCannotStart  = errors.New("unable to start game")
)

type GameID string

type GameStatus string

const (
	StatusLobby   GameStatus = "lobby"
	StatusPlaying GameStatus = "playing"
	StatusStopped GameStatus = "stopped"
)

// GameRecord is the persisted view of a lobby.
type GameRecord struct {
	ID                GameID     `json:"id" bson:"_id"`
	ExternalIPAddress string     `json:"externalIPAddress" bson:"externalIPAddress"`
	Port              int        `json:"port" bson:"port"`
	Status            GameStatus `json:"status" bson:"status"`
}
