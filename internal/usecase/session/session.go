package usecase_session

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/partyloop/guessparty/internal/model"
	"github.com/partyloop/guessparty/internal/scoring"
	"github.com/partyloop/guessparty/internal/storage"
)

var (
	ErrNotFound         = errors.New("no such resource")
	ErrForbidden        = errors.New("forbidden")
	ErrBadTransition    = errors.New("transition not allowed from current state")
	ErrRoundStillActive = errors.New("round deadline not reached and answers pending")
	ErrVersionConflict  = errors.New("session modified concurrently")
	ErrValidation       = errors.New("invalid request")
	ErrInternal         = errors.New("internal error")
)

//go:generate mockery --name=SessionRepository --output=./mocks/session/repository --filename=repository.go
type SessionRepository interface {
	ByRoomID(ctx context.Context, roomID uuid.UUID) (model.GameSession, error)
	// Update is a conditional write on the version the session was read at;
	// a concurrent writer that got there first makes it fail with
	// storage.ErrVersionConflict instead of being silently clobbered.
	Update(ctx context.Context, session model.GameSession) error
	UpsertAnswer(ctx context.Context, roomID uuid.UUID, playerID uuid.UUID, answer model.Answer) error
}

//go:generate mockery --name=RoomRepository --output=./mocks/session/rooms --filename=rooms.go
type RoomRepository interface {
	ByCode(ctx context.Context, code string) (model.Room, error)
	SetStatusByCode(ctx context.Context, code string, status model.RoomStatus) error
}

//go:generate mockery --name=PlayerRepository --output=./mocks/session/players --filename=players.go
type PlayerRepository interface {
	ListByRoom(ctx context.Context, roomID uuid.UUID) ([]model.Player, error)
	AddScore(ctx context.Context, playerID uuid.UUID, delta int) error
}

//go:generate mockery --name=ChallengeSource --output=./mocks/session/challenges --filename=challenges.go
type ChallengeSource interface {
	// Fetch returns count challenges for the game type. Implementations fall
	// back to a local dataset on upstream failure, so an error here is
	// exceptional.
	Fetch(ctx context.Context, gameType model.GameType, count int) ([]model.Challenge, error)
}

type Usecase struct {
	SessionRepository SessionRepository
	RoomRepository    RoomRepository
	PlayerRepository  PlayerRepository
	Challenges        ChallengeSource

	now func() time.Time
}

func New(
	SessionRepository SessionRepository,
	RoomRepository RoomRepository,
	PlayerRepository PlayerRepository,
	Challenges ChallengeSource,
) *Usecase {
	return &Usecase{
		SessionRepository: SessionRepository,
		RoomRepository:    RoomRepository,
		PlayerRepository:  PlayerRepository,
		Challenges:        Challenges,
		now:               time.Now,
	}
}

// hostRoom re-reads the room and checks the caller against the authoritative
// host reference. A locally cached "I am host" flag is only ever a hint.
func (u *Usecase) hostRoom(ctx context.Context, code string, requesterID uuid.UUID) (model.Room, error) {
	room, err := u.RoomRepository.ByCode(ctx, code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.Room{}, ErrNotFound
		}
		return model.Room{}, errors.Join(ErrInternal, err)
	}
	if room.HostPlayerID != requesterID {
		return model.Room{}, ErrForbidden
	}
	return room, nil
}

// Terminal room states absorb every transition attempt.
func roomAbsorbed(room model.Room) bool {
	return room.Status == model.RoomStatusClosed || room.Status == model.RoomStatusFinished
}

// Get returns the session for a room, for clients catching up after a
// reconnect. Remaining time is derived from the absolute deadline.
func (u *Usecase) Get(ctx context.Context, code string) (model.GameSession, time.Duration, error) {
	room, err := u.RoomRepository.ByCode(ctx, code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.GameSession{}, 0, ErrNotFound
		}
		return model.GameSession{}, 0, errors.Join(ErrInternal, err)
	}
	session, err := u.SessionRepository.ByRoomID(ctx, room.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.GameSession{}, 0, ErrNotFound
		}
		return model.GameSession{}, 0, errors.Join(ErrInternal, err)
	}
	return session, session.RoundData.Remaining(u.now()), nil
}

// Start moves waiting -> round_active: fetches the first challenge plus a
// queue of upcoming ones, sets currentRound=1, clears answers and writes the
// absolute round deadline.
func (u *Usecase) Start(ctx context.Context, code string, requesterID uuid.UUID) (model.GameSession, error) {
	room, err := u.hostRoom(ctx, code, requesterID)
	if err != nil {
		return model.GameSession{}, err
	}
	if roomAbsorbed(room) {
		return model.GameSession{}, ErrBadTransition
	}

	session, err := u.SessionRepository.ByRoomID(ctx, room.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.GameSession{}, ErrNotFound
		}
		return model.GameSession{}, errors.Join(ErrInternal, err)
	}
	if session.Status != model.SessionStatusWaiting {
		return model.GameSession{}, ErrBadTransition
	}

	challenges, err := u.Challenges.Fetch(ctx, room.GameType, room.Settings.TotalRounds)
	if err != nil || len(challenges) == 0 {
		return model.GameSession{}, errors.Join(ErrInternal, err)
	}

	session.Status = model.SessionStatusRoundActive
	session.CurrentRound = 1
	session.TotalRounds = room.Settings.TotalRounds
	session.Answers = map[uuid.UUID]model.Answer{}
	session.RoundData = model.RoundData{
		GameType: room.GameType,
		Current:  &challenges[0],
		Queue:    challenges[1:],
		EndTime:  u.now().Add(time.Duration(room.Settings.RoundDurationMs) * time.Millisecond),
	}

	if err := u.SessionRepository.Update(ctx, session); err != nil {
		if errors.Is(err, storage.ErrVersionConflict) {
			return model.GameSession{}, ErrVersionConflict
		}
		return model.GameSession{}, errors.Join(ErrInternal, err)
	}
	if err := u.RoomRepository.SetStatusByCode(ctx, room.Code, model.RoomStatusInGame); err != nil {
		return model.GameSession{}, errors.Join(ErrInternal, err)
	}
	return session, nil
}

// Submit upserts the player's answer for the current round. Only players on
// the room's roster may answer. Resubmitting overwrites. Returns whether
// every present player has now answered, so the caller can prod the host to
// end the round early.
func (u *Usecase) Submit(ctx context.Context, code string, playerID uuid.UUID, value string) (allAnswered bool, err error) {
	if value == "" {
		return false, ErrValidation
	}
	room, err := u.RoomRepository.ByCode(ctx, code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, ErrNotFound
		}
		return false, errors.Join(ErrInternal, err)
	}
	session, err := u.SessionRepository.ByRoomID(ctx, room.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, ErrNotFound
		}
		return false, errors.Join(ErrInternal, err)
	}
	if session.Status != model.SessionStatusRoundActive {
		return false, ErrBadTransition
	}

	players, err := u.PlayerRepository.ListByRoom(ctx, room.ID)
	if err != nil {
		return false, errors.Join(ErrInternal, err)
	}
	member := false
	for _, player := range players {
		if player.ID == playerID {
			member = true
			break
		}
	}
	if !member {
		return false, ErrForbidden
	}

	answer := model.Answer{Value: value, SubmittedAt: u.now()}
	if err := u.SessionRepository.UpsertAnswer(ctx, room.ID, playerID, answer); err != nil {
		return false, errors.Join(ErrInternal, err)
	}

	if session.Answers == nil {
		session.Answers = map[uuid.UUID]model.Answer{}
	}
	if _, already := session.Answers[playerID]; !already {
		session.Answers[playerID] = answer
	}
	return len(session.Answers) >= len(players), nil
}

// EndRound moves round_active -> round_results. Allowed once every present
// player has answered or the deadline has passed; scores are computed here
// and appended to roundData.results.
func (u *Usecase) EndRound(ctx context.Context, code string, requesterID uuid.UUID) (model.GameSession, error) {
	room, err := u.hostRoom(ctx, code, requesterID)
	if err != nil {
		return model.GameSession{}, err
	}
	if roomAbsorbed(room) {
		return model.GameSession{}, ErrBadTransition
	}

	session, err := u.SessionRepository.ByRoomID(ctx, room.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.GameSession{}, ErrNotFound
		}
		return model.GameSession{}, errors.Join(ErrInternal, err)
	}
	if session.Status != model.SessionStatusRoundActive {
		return model.GameSession{}, ErrBadTransition
	}

	players, err := u.PlayerRepository.ListByRoom(ctx, room.ID)
	if err != nil {
		return model.GameSession{}, errors.Join(ErrInternal, err)
	}

	now := u.now()
	allAnswered := len(session.Answers) >= len(players)
	if now.Before(session.RoundData.EndTime) && !allAnswered {
		return model.GameSession{}, ErrRoundStillActive
	}

	results := u.scoreRound(room, session, players)
	session.RoundData.Results = append(session.RoundData.Results, results...)
	session.Status = model.SessionStatusRoundResults

	if err := u.SessionRepository.Update(ctx, session); err != nil {
		if errors.Is(err, storage.ErrVersionConflict) {
			return model.GameSession{}, ErrVersionConflict
		}
		return model.GameSession{}, errors.Join(ErrInternal, err)
	}

	for _, r := range results {
		if r.Points == 0 {
			continue
		}
		if err := u.PlayerRepository.AddScore(ctx, r.PlayerID, r.Points); err != nil {
			return model.GameSession{}, errors.Join(ErrInternal, err)
		}
	}
	return session, nil
}

// NextRound moves round_results -> round_active, pulling the next challenge
// from the pre-fetched queue (refetching if it ran dry), or -> game_over when
// every round has been played. currentRound never passes totalRounds.
func (u *Usecase) NextRound(ctx context.Context, code string, requesterID uuid.UUID) (model.GameSession, error) {
	room, err := u.hostRoom(ctx, code, requesterID)
	if err != nil {
		return model.GameSession{}, err
	}
	if roomAbsorbed(room) {
		return model.GameSession{}, ErrBadTransition
	}

	session, err := u.SessionRepository.ByRoomID(ctx, room.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.GameSession{}, ErrNotFound
		}
		return model.GameSession{}, errors.Join(ErrInternal, err)
	}
	if session.Status != model.SessionStatusRoundResults {
		return model.GameSession{}, ErrBadTransition
	}

	if session.CurrentRound+1 > session.TotalRounds {
		session.Status = model.SessionStatusGameOver
		session.RoundData.Current = nil
		session.RoundData.Queue = nil
		if err := u.SessionRepository.Update(ctx, session); err != nil {
			if errors.Is(err, storage.ErrVersionConflict) {
				return model.GameSession{}, ErrVersionConflict
			}
			return model.GameSession{}, errors.Join(ErrInternal, err)
		}
		if err := u.RoomRepository.SetStatusByCode(ctx, room.Code, model.RoomStatusFinished); err != nil {
			return model.GameSession{}, errors.Join(ErrInternal, err)
		}
		return session, nil
	}

	if len(session.RoundData.Queue) == 0 {
		more, err := u.Challenges.Fetch(ctx, room.GameType, session.TotalRounds-session.CurrentRound)
		if err != nil || len(more) == 0 {
			return model.GameSession{}, errors.Join(ErrInternal, err)
		}
		session.RoundData.Queue = more
	}

	session.CurrentRound++
	session.Status = model.SessionStatusRoundActive
	session.Answers = map[uuid.UUID]model.Answer{}
	session.RoundData.Current = &session.RoundData.Queue[0]
	session.RoundData.Queue = session.RoundData.Queue[1:]
	session.RoundData.EndTime = u.now().Add(time.Duration(room.Settings.RoundDurationMs) * time.Millisecond)

	if err := u.SessionRepository.Update(ctx, session); err != nil {
		if errors.Is(err, storage.ErrVersionConflict) {
			return model.GameSession{}, ErrVersionConflict
		}
		return model.GameSession{}, errors.Join(ErrInternal, err)
	}
	return session, nil
}

func (u *Usecase) scoreRound(room model.Room, session model.GameSession, players []model.Player) []model.RoundResult {
	challenge := session.RoundData.Current
	if challenge == nil {
		return nil
	}
	duration := time.Duration(room.Settings.RoundDurationMs) * time.Millisecond
	roundStart := session.RoundData.EndTime.Add(-duration)

	results := make([]model.RoundResult, 0, len(players))
	for _, p := range players {
		result := model.RoundResult{
			Round:    session.CurrentRound,
			PlayerID: p.ID,
		}
		if answer, ok := session.Answers[p.ID]; ok {
			latency := answer.SubmittedAt.Sub(roundStart)
			result.Answer = answer.Value
			result.Correct, result.Points = scoreAnswer(room, *challenge, answer.Value, latency, duration)
		}
		results = append(results, result)
	}
	return results
}

func scoreAnswer(room model.Room, challenge model.Challenge, value string, latency, duration time.Duration) (bool, int) {
	switch challenge.GameType {
	case model.GamePrice:
		guess, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return false, 0
		}
		cfg := scoring.DefaultNumericBandConfig(tolerancePercent(room.Settings))
		points := scoring.NumericBand(challenge.Exact, guess, latency, cfg)
		return points > 0, points
	default:
		cfg := scoring.DefaultExactMatchConfig(duration)
		return scoring.ExactMatch(challenge.Accepted, value, latency, cfg)
	}
}

func tolerancePercent(settings model.Settings) float64 {
	if v, ok := settings.Extra["tolerancePercent"]; ok {
		if f, ok := v.(float64); ok && f > 0 {
			return f
		}
	}
	return 10
}
