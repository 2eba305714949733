package usecase_presence

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

type playerRepoMock struct {
	mock.Mock
}

func (m *playerRepoMock) Touch(ctx context.Context, playerID uuid.UUID, at time.Time) error {
	args := m.Called(ctx, playerID, at)
	return args.Error(0)
}

func (m *playerRepoMock) ByID(ctx context.Context, id uuid.UUID) (model.Player, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Player), args.Error(1)
}

func (m *playerRepoMock) DeleteStale(ctx context.Context, roomID uuid.UUID, cutoff time.Time) (int, error) {
	args := m.Called(ctx, roomID, cutoff)
	return args.Int(0), args.Error(1)
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

type resources struct {
	usecase    *Usecase
	playerRepo *playerRepoMock
	roomRepo   *roomRepoMock
	ctx        context.Context
	now        time.Time
}

func initResources(t *testing.T) *resources {
	t.Helper()

	playerRepo := &playerRepoMock{}
	roomRepo := &roomRepoMock{}
	usecase := New(playerRepo, roomRepo)

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	usecase.now = func() time.Time { return now }

	return &resources{
		usecase:    usecase,
		playerRepo: playerRepo,
		roomRepo:   roomRepo,
		ctx:        context.Background(),
		now:        now,
	}
}

func activeRoom(code string) model.Room {
	return model.Room{
		ID:           uuid.New(),
		Code:         code,
		HostPlayerID: uuid.New(),
		Status:       model.RoomStatusInGame,
	}
}

func TestHeartbeat(t *testing.T) {
	t.Parallel()

	t.Run("Should bump last seen", func(t *testing.T) {
		r := initResources(t)
		playerID := uuid.New()
		r.playerRepo.On("Touch", r.ctx, playerID, r.now).Return(nil).Once()

		err := r.usecase.Heartbeat(r.ctx, playerID)

		assert.NoError(t, err)
		r.playerRepo.AssertExpectations(t)
	})

	t.Run("Should report a pruned player", func(t *testing.T) {
		r := initResources(t)
		playerID := uuid.New()
		r.playerRepo.On("Touch", r.ctx, playerID, r.now).Return(storage.ErrNotFound).Once()

		err := r.usecase.Heartbeat(r.ctx, playerID)

		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPruneStale(t *testing.T) {
	t.Parallel()

	t.Run("Should prune with the staleness cutoff", func(t *testing.T) {
		r := initResources(t)
		room := activeRoom("AB12CD")
		r.roomRepo.On("ByCode", r.ctx, room.Code).Return(room, nil).Once()
		r.playerRepo.On("DeleteStale", r.ctx, room.ID, r.now.Add(-StaleAfter)).Return(2, nil).Once()

		pruned, err := r.usecase.PruneStale(r.ctx, room.Code, room.HostPlayerID)

		require.NoError(t, err)
		assert.Equal(t, 2, pruned)
		r.playerRepo.AssertExpectations(t)
	})

	t.Run("Should refuse a non-host caller", func(t *testing.T) {
		r := initResources(t)
		room := activeRoom("AB12CD")
		r.roomRepo.On("ByCode", r.ctx, room.Code).Return(room, nil).Once()

		_, err := r.usecase.PruneStale(r.ctx, room.Code, uuid.New())

		assert.ErrorIs(t, err, ErrForbidden)
		r.playerRepo.AssertNotCalled(t, "DeleteStale", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCheckHostFailover(t *testing.T) {
	t.Parallel()

	t.Run("Should leave a room with a live host open", func(t *testing.T) {
		r := initResources(t)
		room := activeRoom("AB12CD")
		host := model.Player{ID: room.HostPlayerID, LastSeenAt: r.now.Add(-time.Minute)}
		r.roomRepo.On("ByCode", r.ctx, room.Code).Return(room, nil).Once()
		r.playerRepo.On("ByID", r.ctx, room.HostPlayerID).Return(host, nil).Once()

		closed, err := r.usecase.CheckHostFailover(r.ctx, room.Code)

		require.NoError(t, err)
		assert.False(t, closed)
		r.roomRepo.AssertNotCalled(t, "SetStatusByCode", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Should tolerate silence up to the threshold", func(t *testing.T) {
		r := initResources(t)
		room := activeRoom("AB12CD")
		host := model.Player{ID: room.HostPlayerID, LastSeenAt: r.now.Add(-FailoverAfter)}
		r.roomRepo.On("ByCode", r.ctx, room.Code).Return(room, nil).Once()
		r.playerRepo.On("ByID", r.ctx, room.HostPlayerID).Return(host, nil).Once()

		closed, err := r.usecase.CheckHostFailover(r.ctx, room.Code)

		require.NoError(t, err)
		assert.False(t, closed)
	})

	t.Run("Should close the room when the host is silent past the threshold", func(t *testing.T) {
		r := initResources(t)
		room := activeRoom("AB12CD")
		host := model.Player{ID: room.HostPlayerID, LastSeenAt: r.now.Add(-FailoverAfter - time.Second)}
		r.roomRepo.On("ByCode", r.ctx, room.Code).Return(room, nil).Once()
		r.playerRepo.On("ByID", r.ctx, room.HostPlayerID).Return(host, nil).Once()
		r.roomRepo.On("SetStatusByCode", r.ctx, room.Code, model.RoomStatusClosed).Return(nil).Once()

		closed, err := r.usecase.CheckHostFailover(r.ctx, room.Code)

		require.NoError(t, err)
		assert.True(t, closed)
		r.roomRepo.AssertExpectations(t)
	})

	t.Run("Should close a room whose host row was pruned", func(t *testing.T) {
		r := initResources(t)
		room := activeRoom("AB12CD")
		r.roomRepo.On("ByCode", r.ctx, room.Code).Return(room, nil).Once()
		r.playerRepo.On("ByID", r.ctx, room.HostPlayerID).Return(model.Player{}, storage.ErrNotFound).Once()
		r.roomRepo.On("SetStatusByCode", r.ctx, room.Code, model.RoomStatusClosed).Return(nil).Once()

		closed, err := r.usecase.CheckHostFailover(r.ctx, room.Code)

		require.NoError(t, err)
		assert.True(t, closed)
	})

	t.Run("Should leave a finished room untouched", func(t *testing.T) {
		r := initResources(t)
		room := activeRoom("AB12CD")
		room.Status = model.RoomStatusFinished
		r.roomRepo.On("ByCode", r.ctx, room.Code).Return(room, nil).Once()

		closed, err := r.usecase.CheckHostFailover(r.ctx, room.Code)

		require.NoError(t, err)
		assert.False(t, closed)
		r.playerRepo.AssertNotCalled(t, "ByID", mock.Anything, mock.Anything)
		r.roomRepo.AssertNotCalled(t, "SetStatusByCode", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Should treat an already closed room as closed", func(t *testing.T) {
		r := initResources(t)
		room := activeRoom("AB12CD")
		room.Status = model.RoomStatusClosed
		r.roomRepo.On("ByCode", r.ctx, room.Code).Return(room, nil).Once()

		closed, err := r.usecase.CheckHostFailover(r.ctx, room.Code)

		require.NoError(t, err)
		assert.True(t, closed)
	})
}
