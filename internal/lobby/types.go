package lobby

import (
	"errors"
	"fmt"

	"github.com/anikeaty08/linera-game/internal/clock"
	"github.com/anikeaty08/linera-game/internal/game"
)

type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusFull      Status = "FULL"
	StatusStarted   Status = "STARTED"
	StatusCancelled Status = "CANCELLED"
	StatusExpired   Status = "EXPIRED"
)

const (
	// Lifetime is how long a lobby stays joinable, in microseconds.
	Lifetime = 900 * clock.Second

	joinIncrement  = 10 * clock.Second
	joinBlockDelay = 5 * clock.Second
)

var (
	ErrInvalidArgs   = errors.New("lobby_invalid_args")
	ErrNotFound      = errors.New("lobby_not_found")
	ErrNotOpen       = errors.New("lobby_not_open")
	ErrExpired       = errors.New("lobby_expired")
	ErrBadPassword   = errors.New("lobby_bad_password")
	ErrNotCreator    = errors.New("lobby_not_creator")
	ErrAlreadyJoined = errors.New("lobby_already_joined")
)

type Lobby struct {
	ID             string    `json:"id"`
	Creator        string    `json:"creator"`
	CreatorName    string    `json:"creator_name"`
	Kind           game.Kind `json:"kind"`
	Mode           game.Mode `json:"mode"`
	Public         bool      `json:"public"`
	PasswordHash   string    `json:"password_hash,omitempty"`
	Status         Status    `json:"status"`
	TimeControlSec uint64    `json:"time_control_sec"`
	CreatedAt      uint64    `json:"created_at"`
	ExpiresAt      uint64    `json:"expires_at"`
	Players        []string  `json:"players"`
	Names          []string  `json:"names"`
	GameID         string    `json:"game_id,omitempty"`
}

func (l *Lobby) Expired(now uint64) bool { return now > l.ExpiresAt }

func (l *Lobby) Timeouts() clock.Timeouts {
	return clock.Timeouts{
		Start:      l.TimeControlSec * clock.Second,
		Increment:  joinIncrement,
		BlockDelay: joinBlockDelay,
	}
}

// HashPassword folds the bytes as h*31+b with wrapping and renders hex.
func HashPassword(p string) string {
	var h uint64
	for i := 0; i < len(p); i++ {
		h = h*31 + uint64(p[i])
	}
	return fmt.Sprintf("%x", h)
}

type JoinResult struct {
	Lobby *Lobby
	Game  *game.Record
}
