package usecase_session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/partyloop/guessparty/internal/model"
	"github.com/partyloop/guessparty/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type sessionRepoMock struct {
	mock.Mock
}

func (m *sessionRepoMock) ByRoomID(ctx context.Context, roomID uuid.UUID) (model.GameSession, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(model.GameSession), args.Error(1)
}

func (m *sessionRepoMock) Update(ctx context.Context, session model.GameSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *sessionRepoMock) UpsertAnswer(ctx context.Context, roomID uuid.UUID, playerID uuid.UUID, answer model.Answer) error {
	args := m.Called(ctx, roomID, playerID, answer)
	return args.Error(0)
}

type roomRepoMock struct {
	mock.Mock
}

func (m *roomRepoMock) ByCode(ctx context.Context, code string) (model.Room, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(model.Room), args.Error(1)
}

func (m *roomRepoMock) SetStatusByCode(ctx context.Context, code string, status model.RoomStatus) error {
	args := m.Called(ctx, code, status)
	return args.Error(0)
}

type playerRepoMock struct {
	mock.Mock
}

func (m *playerRepoMock) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]model.Player, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).([]model.Player), args.Error(1)
}

func (m *playerRepoMock) AddScore(ctx context.Context, playerID uuid.UUID, delta int) error {
	args := m.Called(ctx, playerID, delta)
	return args.Error(0)
}

type challengeSourceMock struct {
	mock.Mock
}

func (m *challengeSourceMock) Fetch(ctx context.Context, gameType model.GameType, count int) ([]model.Challenge, error) {
	args := m.Called(ctx, gameType, count)
	return args.Get(0).([]model.Challenge), args.Error(1)
}

type resources struct {
	usecase     *Usecase
	sessionRepo *sessionRepoMock
	roomRepo    *roomRepoMock
	playerRepo  *playerRepoMock
	challenges  *challengeSourceMock
	ctx         context.Context
	now         time.Time
}

func initResources(t *testing.T) *resources {
	t.Helper()

	sessionRepo := &sessionRepoMock{}
	roomRepo := &roomRepoMock{}
	playerRepo := &playerRepoMock{}
	challenges := &challengeSourceMock{}
	usecase := New(sessionRepo, roomRepo, playerRepo, challenges)

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	usecase.now = func() time.Time { return now }

	return &resources{
		usecase:     usecase,
		sessionRepo: sessionRepo,
		roomRepo:    roomRepo,
		playerRepo:  playerRepo,
		challenges:  challenges,
		ctx:         context.Background(),
		now:         now,
	}
}

func wordChallenges(n int) []model.Challenge {
	out := make([]model.Challenge, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.Challenge{
			GameType: model.GameWord,
			Prompt:   "rnaegma",
			Accepted: []string{"anagram"},
		})
	}
	return out
}

func hostedRoom() model.Room {
	return model.Room{
		ID:           uuid.New(),
		Code:         "AB12CD",
		HostPlayerID: uuid.New(),
		Status:       model.RoomStatusWaiting,
		GameType:     model.GameWord,
		Settings: model.Settings{
			TotalRounds:     5,
			RoundDurationMs: 15000,
		},
	}
}

func TestStart(t *testing.T) {
	t.Parallel()

	t.Run("Should activate the first round with an absolute deadline", func(t *testing.T) {
		r := initResources(t)
		room := hostedRoom()
		session := model.GameSession{RoomID: room.ID, Status: model.SessionStatusWaiting, Version: 3}

		r.roomRepo.On("ByCode", r.ctx, room.Code).Return(room, nil).Once()
		r.sessionRepo.On("ByRoomID", r.ctx, room.ID).Return(session, nil).Once()
		r.challenges.On("Fetch", r.ctx, model.GameWord, 5).Return(wordChallenges(5), nil).Once()
		r.sessionRepo.On("Update", r.ctx, mock.AnythingOfType("model.GameSession")).Return(nil).Once()
		r.roomRepo.On("SetStatusByCode", r.ctx, room.Code, model.RoomStatusInGame).Return(nil).Once()

		got, err := r.usecase.Start(r.ctx, room.Code, room.HostPlayerID)

		require.NoError(t, err)
		assert.Equal(t, model.SessionStatusRoundActive, got.Status)
		assert.Equal(t, 1, got.CurrentRound)
		assert.Equal(t, 5, got.TotalRounds)
		assert.Empty(t, got.Answers)
		assert.NotNil(t, got.RoundData.Current)
		assert.Len(t, got.RoundData.Queue, 4)
		assert.Equal(t, r.now.Add(15*time.Second), got.RoundData.EndTime)
		r.roomRepo.AssertExpectations(t)
	})

	t.Run("Should refuse a non-host caller", func(t *testing.T) {
		r := initResources(t)
		room := hostedRoom()
		r.roomRepo.On("ByCode", r.ctx, room.Code).Return(room, nil).Once()

		_, err := r.usecase.Start(r.ctx, room.Code, uuid.New())

		assert.ErrorIs(t, err, ErrForbidden)
		r.sessionRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("Should refuse to start twice", func(t *testing.T) {
		r := initResources(t)
		room := hostedRoom()
		session := model.GameSession{RoomID: room.ID, Status: model.SessionStatusRoundActive}
		r.roomRepo.On("ByCode", r.ctx, room.Code).Return(room, nil).Once()
		r.sessionRepo.On("ByRoomID", r.ctx, room.ID).Return(session, nil).Once()

		_, err := r.usecase.Start(r.ctx, room.Code, room.HostPlayerID)

		assert.ErrorIs(t, err, ErrBadTransition)
	})

	t.Run("Should refuse transitions in a closed room", func(t *testing.T) {
		r := initResources(t)
		room := hostedRoom()
		room.Status = model.RoomStatusClosed
		r.roomRepo.On("ByCode", r.ctx, room.Code).Return(room, nil).Once()

		_, err := r.usecase.Start(r.ctx, room.Code, room.HostPlayerID)

		assert.ErrorIs(t, err, ErrBadTransition)
	})

	t.Run("Should surface a lost concurrent write", func(t *testing.T) {
		r := initResources(t)
		room := hostedRoom()
		session := model.GameSession{RoomID: room.ID, Status: model.SessionStatusWaiting}
		r.roomRepo.On("ByCode", r.ctx, room.Code).Return(room, nil).Once()
		r.sessionRepo.On("ByRoomID", r.ctx, room.ID).Return(session, nil).Once()
		r.challenges.On("Fetch", r.ctx, model.GameWord, 5).Return(wordChallenges(5), nil).Once()
		r.sessionRepo.On("Update", r.ctx, mock.Anything).Return(storage.ErrVersionConflict).Once()

		_, err := r.usecase.Start(r.ctx, room.Code, room.HostPlayerID)

		assert.ErrorIs(t, err, ErrVersionConflict)
	})
}

func TestSubmit(t *testing.T) {
	t.Parallel()

	t.Run("Should report when the last player answers", func(t *testing.T) {
		r := initResources(t)
		room := hostedRoom()
		alice, bob := uuid.New(), uuid.New()
		session := model.GameSession{
			RoomID:  room.ID,
			Status:  model.SessionStatusRoundActive,
			Answers: map[uuid.UUID]model.Answer{alice: {Value: "anagram"}},
		}
		r.roomRepo.On("ByCode", r.ctx, room.Code).Return(room, nil).Once()
		r.sessionRepo.On("ByRoomID", r.ctx, room.ID).Return(session, nil).Once()
		r.sessionRepo.On("UpsertAnswer", r.ctx, room.ID, bob, mock.AnythingOfType("model.Answer")).Return(nil).Once()
		r.playerRepo.On("ListByRoom", r.ctx, room.ID).
			Return([]model.Player{{ID: alice}, {ID: bob}}, nil).Once()

		allAnswered, err := r.usecase.Submit(r.ctx, room.Code, bob, "anagram")

		require.NoError(t, err)
		assert.True(t, allAnswered)
	})

	t.Run("Should not report all answered while some are pending", func(t *testing.T) {
		r := initResources(t)
		room := hostedRoom()
		bob := uuid.New()
		session := model.GameSession{
			RoomID: room.ID,
			Status: model.SessionStatusRoundActive,
		}
		r.roomRepo.On("ByCode", r.ctx, room.Code).Return(room, nil).Once()
		r.sessionRepo.On("ByRoomID", r.ctx, room.ID).Return(session, nil).Once()
		r.sessionRepo.On("UpsertAnswer", r.ctx, room.ID, bob, mock.Anything).Return(nil).Once()
		r.playerRepo.On("ListByRoom", r.ctx, room.ID).
			Return([]model.Player{{ID: uuid.New()}, {ID: bob}, {ID: uuid.New()}}, nil).Once()

		allAnswered, err := r.usecase.Submit(r.ctx, room.Code, bob, "anagram")

		require.NoError(t, err)
		assert.False(t, allAnswered)
	})

	t.Run("Should refuse an answer from outside the roster", func(t *testing.T) {
		r := initResources(t)
		room := hostedRoom()
		session := model.GameSession{RoomID: room.ID, Status: model.SessionStatusRoundActive}
		r.roomRepo.On("ByCode", r.ctx, room.Code).Return(room, nil).Once()
		r.sessionRepo.On("ByRoomID", r.ctx, room.ID).Return(session, nil).Once()
		r.playerRepo.On("ListByRoom", r.ctx, room.ID).
			Return([]model.Player{{ID: uuid.New()}}, nil).Once()

		_, err := r.usecase.Submit(r.ctx, room.Code, uuid.New(), "anagram")

		assert.ErrorIs(t, err, ErrForbidden)
		r.sessionRepo.AssertNotCalled(t, "UpsertAnswer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Should refuse answers outside an active round", func(t *testing.T) {
		r := initResources(t)
		room := hostedRoom()
		session := model.GameSession{RoomID: room.ID, Status: model.SessionStatusRoundResults}
		r.roomRepo.On("ByCode", r.ctx, room.Code).Return(room, nil).Once()
		r.sessionRepo.On("ByRoomID", r.ctx, room.ID).Return(session, nil).Once()

		_, err := r.usecase.Submit(r.ctx, room.Code, uuid.New(), "anagram")

		assert.ErrorIs(t, err, ErrBadTransition)
		r.sessionRepo.AssertNotCalled(t, "UpsertAnswer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Should reject an empty answer", func(t *testing.T) {
		r := initResources(t)

		_, err := r.usecase.Submit(r.ctx, "AB12CD", uuid.New(), "")

		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestEndRound(t *testing.T) {
	t.Parallel()

	t.Run("Should refuse while the deadline is ahead and answers are pending", func(t *testing.T) {
		r := initResources(t)
		room := hostedRoom()
		session := model.GameSession{
			RoomID:    room.ID,
			Status:    model.SessionStatusRoundActive,
			RoundData: model.RoundData{EndTime: r.now.Add(10 * time.Second)},
		}
		r.roomRepo.On("ByCode", r.ctx, room.Code).Return(room, nil).Once()
		r.sessionRepo.On("ByRoomID", r.ctx, room.ID).Return(session, nil).Once()
		r.playerRepo.On("ListByRoom", r.ctx, room.ID).
			Return([]model.Player{{ID: uuid.New()}}, nil).Once()

		_, err := r.usecase.EndRound(r.ctx, room.Code, room.HostPlayerID)

		assert.ErrorIs(t, err, ErrRoundStillActive)
	})

	t.Run("Should end early once everyone answered and award points", func(t *testing.T) {
		r := initResources(t)
		room := hostedRoom()
		alice := uuid.New()
		endTime := r.now.Add(10 * time.Second)
		session := model.GameSession{
			RoomID:       room.ID,
			Status:       model.SessionStatusRoundActive,
			CurrentRound: 2,
			TotalRounds:  5,
			RoundData: model.RoundData{
				GameType: model.GameWord,
				Current:  &wordChallenges(1)[0],
				EndTime:  endTime,
			},
			Answers: map[uuid.UUID]model.Answer{
				alice: {Value: "Anagram", SubmittedAt: endTime.Add(-13 * time.Second)},
			},
		}
		r.roomRepo.On("ByCode", r.ctx, room.Code).Return(room, nil).Once()
		r.sessionRepo.On("ByRoomID", r.ctx, room.ID).Return(session, nil).Once()
		r.playerRepo.On("ListByRoom", r.ctx, room.ID).
			Return([]model.Player{{ID: alice}}, nil).Once()
		r.sessionRepo.On("Update", r.ctx, mock.AnythingOfType("model.GameSession")).Return(nil).Once()
		r.playerRepo.On("AddScore", r.ctx, alice, 100).Return(nil).Once()

		got, err := r.usecase.EndRound(r.ctx, room.Code, room.HostPlayerID)

		require.NoError(t, err)
		assert.Equal(t, model.SessionStatusRoundResults, got.Status)
		require.Len(t, got.RoundData.Results, 1)
		result := got.RoundData.Results[0]
		assert.Equal(t, 2, result.Round)
		assert.True(t, result.Correct)
		assert.Equal(t, 100, result.Points)
		r.playerRepo.AssertExpectations(t)
	})

	t.Run("Should score silent players as zero after the deadline", func(t *testing.T) {
		r := initResources(t)
		room := hostedRoom()
		silent := uuid.New()
		session := model.GameSession{
			RoomID:       room.ID,
			Status:       model.SessionStatusRoundActive,
			CurrentRound: 1,
			TotalRounds:  5,
			RoundData: model.RoundData{
				GameType: model.GameWord,
				Current:  &wordChallenges(1)[0],
				EndTime:  r.now.Add(-time.Second),
			},
		}
		r.roomRepo.On("ByCode", r.ctx, room.Code).Return(room, nil).Once()
		r.sessionRepo.On("ByRoomID", r.ctx, room.ID).Return(session, nil).Once()
		r.playerRepo.On("ListByRoom", r.ctx, room.ID).
			Return([]model.Player{{ID: silent}}, nil).Once()
		r.sessionRepo.On("Update", r.ctx, mock.Anything).Return(nil).Once()

		got, err := r.usecase.EndRound(r.ctx, room.Code, room.HostPlayerID)

		require.NoError(t, err)
		require.Len(t, got.RoundData.Results, 1)
		assert.False(t, got.RoundData.Results[0].Correct)
		assert.Zero(t, got.RoundData.Results[0].Points)
		r.playerRepo.AssertNotCalled(t, "AddScore", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestNextRound(t *testing.T) {
	t.Parallel()

	t.Run("Should advance to the next queued challenge", func(t *testing.T) {
		r := initResources(t)
		room := hostedRoom()
		queue := wordChallenges(3)
		session := model.GameSession{
			RoomID:       room.ID,
			Status:       model.SessionStatusRoundResults,
			CurrentRound: 2,
			TotalRounds:  5,
			RoundData: model.RoundData{
				GameType: model.GameWord,
				Current:  &wordChallenges(1)[0],
				Queue:    queue,
				EndTime:  r.now.Add(-time.Minute),
			},
			Answers: map[uuid.UUID]model.Answer{uuid.New(): {Value: "anagram"}},
		}
		r.roomRepo.On("ByCode", r.ctx, room.Code).Return(room, nil).Once()
		r.sessionRepo.On("ByRoomID", r.ctx, room.ID).Return(session, nil).Once()
		r.sessionRepo.On("Update", r.ctx, mock.AnythingOfType("model.GameSession")).Return(nil).Once()

		got, err := r.usecase.NextRound(r.ctx, room.Code, room.HostPlayerID)

		require.NoError(t, err)
		assert.Equal(t, model.SessionStatusRoundActive, got.Status)
		assert.Equal(t, 3, got.CurrentRound)
		assert.Empty(t, got.Answers)
		assert.Len(t, got.RoundData.Queue, 2)
		assert.Equal(t, r.now.Add(15*time.Second), got.RoundData.EndTime)
	})

	t.Run("Should refetch when the queue ran dry", func(t *testing.T) {
		r := initResources(t)
		room := hostedRoom()
		session := model.GameSession{
			RoomID:       room.ID,
			Status:       model.SessionStatusRoundResults,
			CurrentRound: 2,
			TotalRounds:  5,
			RoundData:    model.RoundData{GameType: model.GameWord},
		}
		r.roomRepo.On("ByCode", r.ctx, room.Code).Return(room, nil).Once()
		r.sessionRepo.On("ByRoomID", r.ctx, room.ID).Return(session, nil).Once()
		r.challenges.On("Fetch", r.ctx, model.GameWord, 3).Return(wordChallenges(3), nil).Once()
		r.sessionRepo.On("Update", r.ctx, mock.Anything).Return(nil).Once()

		got, err := r.usecase.NextRound(r.ctx, room.Code, room.HostPlayerID)

		require.NoError(t, err)
		assert.Equal(t, 3, got.CurrentRound)
		assert.NotNil(t, got.RoundData.Current)
		r.challenges.AssertExpectations(t)
	})

	t.Run("Should finish the game after the final round", func(t *testing.T) {
		r := initResources(t)
		room := hostedRoom()
		session := model.GameSession{
			RoomID:       room.ID,
			Status:       model.SessionStatusRoundResults,
			CurrentRound: 5,
			TotalRounds:  5,
			RoundData:    model.RoundData{GameType: model.GameWord, Current: &wordChallenges(1)[0]},
		}
		r.roomRepo.On("ByCode", r.ctx, room.Code).Return(room, nil).Once()
		r.sessionRepo.On("ByRoomID", r.ctx, room.ID).Return(session, nil).Once()
		r.sessionRepo.On("Update", r.ctx, mock.AnythingOfType("model.GameSession")).Return(nil).Once()
		r.roomRepo.On("SetStatusByCode", r.ctx, room.Code, model.RoomStatusFinished).Return(nil).Once()

		got, err := r.usecase.NextRound(r.ctx, room.Code, room.HostPlayerID)

		require.NoError(t, err)
		assert.Equal(t, model.SessionStatusGameOver, got.Status)
		assert.Equal(t, 5, got.CurrentRound)
		assert.Nil(t, got.RoundData.Current)
		r.roomRepo.AssertExpectations(t)
	})

	t.Run("Should refuse from an active round", func(t *testing.T) {
		r := initResources(t)
		room := hostedRoom()
		session := model.GameSession{RoomID: room.ID, Status: model.SessionStatusRoundActive}
		r.roomRepo.On("ByCode", r.ctx, room.Code).Return(room, nil).Once()
		r.sessionRepo.On("ByRoomID", r.ctx, room.ID).Return(session, nil).Once()

		_, err := r.usecase.NextRound(r.ctx, room.Code, room.HostPlayerID)

		assert.ErrorIs(t, err, ErrBadTransition)
	})
}
