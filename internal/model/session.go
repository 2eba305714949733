package model

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus = string

const (
	SessionStatusWaiting      SessionStatus = "waiting"
	SessionStatusRoundActive  SessionStatus = "round_active"
	SessionStatusRoundResults SessionStatus = "round_results"
	SessionStatusGameOver     SessionStatus = "game_over"
)

// GameSession is the live round state, 1:1 with a Room. Every transition is
// issued by the current host; Version is the optimistic-concurrency token a
// losing concurrent write fails on.
type GameSession struct {
	ID           uuid.UUID
	RoomID       uuid.UUID
	Status       SessionStatus
	CurrentRound int
	TotalRounds  int
	RoundData    RoundData
	Answers      map[uuid.UUID]Answer
	Version      int64
}

// Answer is one player's submission for the current round. Resubmitting
// overwrites, it never duplicates.
type Answer struct {
	Value       string    `json:"value"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// RoundData carries the current challenge, the pre-fetched queue of upcoming
// ones, the absolute round deadline and, once scored, the results list.
type RoundData struct {
	GameType GameType      `json:"gameType,omitempty"`
	Current  *Challenge    `json:"current,omitempty"`
	Queue    []Challenge   `json:"queue,omitempty"`
	EndTime  time.Time     `json:"endTime"`
	Results  []RoundResult `json:"results,omitempty"`
}

// Remaining derives the time left in the round from the absolute deadline.
// EndTime is the single source of truth; callers re-derive on every change
// instead of ticking their own countdown.
func (rd RoundData) Remaining(now time.Time) time.Duration {
	if rd.EndTime.IsZero() {
		return 0
	}
	left := rd.EndTime.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// Challenge is the game-specific payload of one round, a tagged union keyed
// by GameType. Exact-match games carry Accepted spellings, numeric games an
// Exact value.
type Challenge struct {
	GameType GameType       `json:"gameType"`
	Prompt   string         `json:"prompt"`
	Accepted []string       `json:"accepted,omitempty"`
	Exact    float64        `json:"exact,omitempty"`
	Meta     map[string]any `json:"meta,omitempty"`
}

func (c Challenge) Validate() error {
	if !KnownGameType(c.GameType) {
		return ErrBadRoundData
	}
	if c.Prompt == "" {
		return ErrBadRoundData
	}
	switch c.GameType {
	case GamePrice:
		if c.Exact <= 0 {
			return ErrBadRoundData
		}
	default:
		if len(c.Accepted) == 0 {
			return ErrBadRoundData
		}
	}
	return nil
}

// Validate is applied at the store boundary so a malformed payload is
// rejected before it is written, not when some client chokes on it.
func (rd RoundData) Validate() error {
	if rd.Current != nil {
		if err := rd.Current.Validate(); err != nil {
			return err
		}
	}
	for _, c := range rd.Queue {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// RoundResult is one player's scored outcome for one round.
type RoundResult struct {
	Round    int       `json:"round"`
	PlayerID uuid.UUID `json:"playerId"`
	Answer   string    `json:"answer"`
	Correct  bool      `json:"correct"`
	Points   int       `json:"points"`
}
