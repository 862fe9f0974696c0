// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
)

const (
	MaxUserIDLen   = 64
	MaxUsernameLen = 64
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
	ErrUserIDTooLong   = errors.New("user id too long")
	ErrUserIDEmpty     = errors.New("user id empty")
)

type UserID string

// Identity is the display identity a client claims when joining a room.
// It is not authenticated.
type Identity struct {
	UserID   UserID `json:"userId"`
	UserName string `json:"userName"`
}

// NewIdentity is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewIdentity(userID, username string) (Identity, error) {
	if len(userID) == 0 {
		return Identity{}, ErrUserIDEmpty
	}
	if len(userID) > MaxUserIDLen {
		return Identity{}, ErrUserIDTooLong
	}
	if len(username) == 0 {
		return Identity{}, ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return Identity{}, ErrUsernameTooLong
	}
	return Identity{UserID: UserID(userID), UserName: username}, nil
}
