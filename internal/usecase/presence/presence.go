package usecase_presence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/partyloop/guessparty/internal/model"
	"github.com/partyloop/guessparty/internal/storage"
)

var (
	ErrNotFound  = errors.New("no such resource")
	ErrForbidden = errors.New("forbidden")
	ErrInternal  = errors.New("internal error")
)

const (
	// HeartbeatInterval is how often a connected client bumps last_seen_at.
	HeartbeatInterval = 30 * time.Second
	// PruneInterval is how often the host sweeps stale players.
	PruneInterval = 60 * time.Second
	// StaleAfter is the liveness threshold for pruning.
	StaleAfter = 2 * time.Minute
	// FailoverAfter is how long a silent host is tolerated before any
	// non-host client closes the room.
	FailoverAfter = 150 * time.Second
)

//go:generate mockery --name=PlayerRepository --output=./mocks/presence/players --filename=players.go
type PlayerRepository interface {
	Touch(ctx context.Context, playerID uuid.UUID, at time.Time) error
	ByID(ctx context.Context, id uuid.UUID) (model.Player, error)
	// DeleteStale removes players in the room not seen since the cutoff and
	// reports how many went.
	DeleteStale(ctx context.Context, roomID uuid.UUID, cutoff time.Time) (int, error)
}

//go:generate mockery --name=RoomRepository --output=./mocks/presence/rooms --filename=rooms.go
type RoomRepository interface {
	ByCode(ctx context.Context, code string) (model.Room, error)
	SetStatusByCode(ctx context.Context, code string, status model.RoomStatus) error
}

type Usecase struct {
	PlayerRepository PlayerRepository
	RoomRepository   RoomRepository

	now func() time.Time
}

func New(
	PlayerRepository PlayerRepository,
	RoomRepository RoomRepository,
) *Usecase {
	return &Usecase{
		PlayerRepository: PlayerRepository,
		RoomRepository:   RoomRepository,
		now:              time.Now,
	}
}

func (u *Usecase) Heartbeat(ctx context.Context, playerID uuid.UUID) error {
	if err := u.PlayerRepository.Touch(ctx, playerID, u.now()); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return errors.Join(ErrInternal, err)
	}
	return nil
}

// PruneStale deletes players whose heartbeat went quiet. This is the only
// place player rows are pruned, and only the host runs it.
func (u *Usecase) PruneStale(ctx context.Context, code string, requesterID uuid.UUID) (int, error) {
	room, err := u.RoomRepository.ByCode(ctx, code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, errors.Join(ErrInternal, err)
	}
	if room.HostPlayerID != requesterID {
		return 0, ErrForbidden
	}

	pruned, err := u.PlayerRepository.DeleteStale(ctx, room.ID, u.now().Add(-StaleAfter))
	if err != nil {
		return 0, errors.Join(ErrInternal, err)
	}
	return pruned, nil
}

// CheckHostFailover closes the room when the host has been silent past the
// failover threshold. Several clients racing to write the same terminal
// status is fine: the value is identical and closed absorbs everything.
func (u *Usecase) CheckHostFailover(ctx context.Context, code string) (closed bool, err error) {
	room, err := u.RoomRepository.ByCode(ctx, code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, ErrNotFound
		}
		return false, errors.Join(ErrInternal, err)
	}
	switch room.Status {
	case model.RoomStatusClosed:
		return true, nil
	case model.RoomStatusFinished:
		// Also terminal; a silent host after game over must not flip it.
		return false, nil
	}
	if room.HostPlayerID == uuid.Nil {
		return false, nil
	}

	host, err := u.PlayerRepository.ByID(ctx, room.HostPlayerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Host row already pruned; the room is headless.
			if err := u.RoomRepository.SetStatusByCode(ctx, code, model.RoomStatusClosed); err != nil {
				return false, errors.Join(ErrInternal, err)
			}
			return true, nil
		}
		return false, errors.Join(ErrInternal, err)
	}

	if u.now().Sub(host.LastSeenAt) <= FailoverAfter {
		return false, nil
	}
	if err := u.RoomRepository.SetStatusByCode(ctx, code, model.RoomStatusClosed); err != nil {
		return false, errors.Join(ErrInternal, err)
	}
	return true, nil
}
