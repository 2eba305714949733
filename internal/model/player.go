package model

import (
	"time"

	"github.com/google/uuid"
)

// Player is one participant. The id is generated once and cached by the
// client so a reconnect resolves to the same row instead of inserting a
// duplicate.
type Player struct {
	ID         uuid.UUID
	RoomID     uuid.UUID
	Name       string
	IsHost     bool
	Score      int
	LastSeenAt time.Time
	JoinedAt   time.Time
}
