package model

import (
	"time"

	"github.com/google/uuid"
)

type RoomStatus = string

const (
	RoomStatusWaiting  RoomStatus = "waiting"
	RoomStatusInGame   RoomStatus = "in_game"
	RoomStatusFinished RoomStatus = "finished"
	RoomStatusClosed   RoomStatus = "closed"
)

type GameType = string

const (
	GameSpecies GameType = "species"
	GameFlags   GameType = "flags"
	GamePrice   GameType = "price"
	GameLyrics  GameType = "lyrics"
	GameWord    GameType = "word"
)

func KnownGameType(gt GameType) bool {
	switch gt {
	case GameSpecies, GameFlags, GamePrice, GameLyrics, GameWord:
		return true
	}
	return false
}

// Room is the container one play session lives in. Code is the
// human-shareable handle; HostPlayerID points at whichever Player currently
// drives state transitions. Host identity is always a Player id, never a
// display name.
type Room struct {
	ID           uuid.UUID
	Code         string
	HostPlayerID uuid.UUID
	Status       RoomStatus
	GameType     GameType
	Settings     Settings
	CreatedAt    time.Time
}

// Settings is the per-game configuration written once at room creation.
// TotalRounds and RoundDurationMs are shared by every game type; Extra keeps
// game-specific knobs (price tolerance, word length, ...).
type Settings struct {
	TotalRounds     int            `json:"totalRounds"`
	RoundDurationMs int64          `json:"roundDurationMs"`
	Extra           map[string]any `json:"extra,omitempty"`
}

func DefaultSettings(gameType GameType) Settings {
	s := Settings{
		TotalRounds:     5,
		RoundDurationMs: 15000,
	}
	switch gameType {
	case GamePrice:
		s.Extra = map[string]any{"tolerancePercent": 10.0}
	case GameWord:
		s.RoundDurationMs = 30000
	}
	return s
}

func (s Settings) Validate() error {
	if s.TotalRounds < 1 {
		return ErrBadSettings
	}
	if s.RoundDurationMs < 1000 {
		return ErrBadSettings
	}
	return nil
}
