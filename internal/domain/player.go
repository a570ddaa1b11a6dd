// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const MaxNameLen = 36

var (
	ErrNameTooLong = errors.New("name too long")
	ErrNameEmpty   = errors.New("name empty")
)

type PlayerID string

// Player is one roster entry of a game lobby.
type Player struct {
	ID   PlayerID `json:"id"`
	Name string   `json:"name"`
}

func NewPlayer(id PlayerID, name string) Player {
	return Player{ID: id, Name: name}
}

// ValidateName applies the display name rules used by the NAME command.
func ValidateName(name string) error {
	if len(name) == 0 {
		return ErrNameEmpty
	}
	if len(name) > MaxNameLen {
		return ErrNameTooLong
	}
	return nil
}
