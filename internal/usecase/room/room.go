package usecase_room

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/partyloop/guessparty/internal/model"
	"github.com/partyloop/guessparty/internal/storage"
)

var (
	ErrValidation       = errors.New("invalid request")
	ErrNotFound         = errors.New("no such resource")
	ErrForbidden        = errors.New("forbidden")
	ErrRoomsUnavailable = errors.New("no available rooms")
	ErrInternal         = errors.New("internal error")
)

// How long an empty room is kept around before Cleanup may reap it.
const cleanupGrace = 60 * time.Second

//go:generate mockery --name=RoomRepository --output=./mocks/room/repository --filename=repository.go
type RoomRepository interface {
	// CreateWithHost inserts the room, its host player and a waiting game
	// session in one transaction. A code collision surfaces as
	// storage.ErrDuplicate.
	CreateWithHost(ctx context.Context, room model.Room, host model.Player) error
	ByCode(ctx context.Context, code string) (model.Room, error)
	DeleteByCode(ctx context.Context, code string) error
	SetHost(ctx context.Context, roomID uuid.UUID, playerID uuid.UUID) error
}

//go:generate mockery --name=PlayerRepository --output=./mocks/room/players --filename=players.go
type PlayerRepository interface {
	// Add returns storage.ErrDuplicate when a player with that name already
	// exists in the room.
	Add(ctx context.Context, player model.Player) error
	ByID(ctx context.Context, id uuid.UUID) (model.Player, error)
	ByRoomAndName(ctx context.Context, roomID uuid.UUID, name string) (model.Player, error)
	ListByRoom(ctx context.Context, roomID uuid.UUID) ([]model.Player, error)
	CountByRoom(ctx context.Context, roomID uuid.UUID) (int, error)
}

type Usecase struct {
	RoomRepository   RoomRepository
	PlayerRepository PlayerRepository

	now func() time.Time
}

func New(
	RoomRepository RoomRepository,
	PlayerRepository PlayerRepository,
) *Usecase {
	return &Usecase{
		RoomRepository:   RoomRepository,
		PlayerRepository: PlayerRepository,
		now:              time.Now,
	}
}

// Create allocates a room code, inserts the room with the creator as host and
// a game session in 'waiting'. Returns the code and the creator's player id.
func (u *Usecase) Create(ctx context.Context, playerName string, gameType model.GameType) (string, uuid.UUID, error) {
	playerName = strings.TrimSpace(playerName)
	if playerName == "" {
		return "", uuid.Nil, ErrValidation
	}
	if gameType == "" {
		gameType = model.GameWord
	}
	if !model.KnownGameType(gameType) {
		return "", uuid.Nil, ErrValidation
	}

	hostID := uuid.New()
	host := model.Player{
		ID:         hostID,
		Name:       playerName,
		IsHost:     true,
		LastSeenAt: u.now(),
		JoinedAt:   u.now(),
	}

	// Codes can collide with live rooms. Retrying on the unique constraint
	// instead of trusting 36^6 to be sparse enough.
	var retries = 3
	for retries > 0 {
		code := u.buildRoomCode()
		room := model.Room{
			ID:           uuid.New(),
			Code:         code,
			HostPlayerID: hostID,
			Status:       model.RoomStatusWaiting,
			GameType:     gameType,
			Settings:     model.DefaultSettings(gameType),
			CreatedAt:    u.now(),
		}
		host.RoomID = room.ID
		if err := u.RoomRepository.CreateWithHost(ctx, room, host); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				retries--
				continue
			}
			return "", uuid.Nil, errors.Join(ErrInternal, err)
		}
		return code, hostID, nil
	}
	return "", uuid.Nil, ErrRoomsUnavailable
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func (u *Usecase) buildRoomCode() string {
	const codeLen = 6
	var builder strings.Builder
	builder.Grow(codeLen)

	for i := 0; i < codeLen; i++ {
		builder.WriteByte(codeAlphabet[rand.Intn(len(codeAlphabet))])
	}

	return builder.String()
}

// Join adds a player to the room. Joining twice with the same name is a
// no-op returning the existing player. The first joiner of a room without a
// host reference claims it (best-effort, last successful write wins).
func (u *Usecase) Join(ctx context.Context, playerName string, code string) (model.Room, model.Player, error) {
	playerName = strings.TrimSpace(playerName)
	if playerName == "" {
		return model.Room{}, model.Player{}, ErrValidation
	}

	room, err := u.RoomRepository.ByCode(ctx, strings.ToUpper(code))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.Room{}, model.Player{}, ErrNotFound
		}
		return model.Room{}, model.Player{}, errors.Join(ErrInternal, err)
	}

	if existing, err := u.PlayerRepository.ByRoomAndName(ctx, room.ID, playerName); err == nil {
		return room, existing, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return model.Room{}, model.Player{}, errors.Join(ErrInternal, err)
	}

	player := model.Player{
		ID:         uuid.New(),
		RoomID:     room.ID,
		Name:       playerName,
		IsHost:     false,
		Score:      0,
		LastSeenAt: u.now(),
		JoinedAt:   u.now(),
	}
	if err := u.PlayerRepository.Add(ctx, player); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			// Lost a concurrent insert race for the same name. Benign.
			existing, err := u.PlayerRepository.ByRoomAndName(ctx, room.ID, playerName)
			if err != nil {
				return model.Room{}, model.Player{}, errors.Join(ErrInternal, err)
			}
			return room, existing, nil
		}
		return model.Room{}, model.Player{}, errors.Join(ErrInternal, err)
	}

	if room.HostPlayerID == uuid.Nil {
		if err := u.RoomRepository.SetHost(ctx, room.ID, player.ID); err == nil {
			room.HostPlayerID = player.ID
			player.IsHost = true
		}
	}

	return room, player, nil
}

// Get reads the room and its roster.
func (u *Usecase) Get(ctx context.Context, code string) (model.Room, []model.Player, error) {
	room, err := u.RoomRepository.ByCode(ctx, strings.ToUpper(code))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.Room{}, nil, ErrNotFound
		}
		return model.Room{}, nil, errors.Join(ErrInternal, err)
	}

	players, err := u.PlayerRepository.ListByRoom(ctx, room.ID)
	if err != nil {
		return model.Room{}, nil, errors.Join(ErrInternal, err)
	}
	return room, players, nil
}

// Resolve finds the caller's own player row after a reconnect: cached id
// first, then name lookup. Never creates a new row.
func (u *Usecase) Resolve(ctx context.Context, code string, playerID uuid.UUID, playerName string) (model.Player, error) {
	room, err := u.RoomRepository.ByCode(ctx, strings.ToUpper(code))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.Player{}, ErrNotFound
		}
		return model.Player{}, errors.Join(ErrInternal, err)
	}

	if playerID != uuid.Nil {
		if player, err := u.PlayerRepository.ByID(ctx, playerID); err == nil && player.RoomID == room.ID {
			return player, nil
		}
	}

	player, err := u.PlayerRepository.ByRoomAndName(ctx, room.ID, strings.TrimSpace(playerName))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.Player{}, ErrNotFound
		}
		return model.Player{}, errors.Join(ErrInternal, err)
	}
	return player, nil
}

// Delete removes the room. Only the player the room's host reference points
// at may do it; the reference is re-read here, never trusted from the client.
func (u *Usecase) Delete(ctx context.Context, code string, requestingPlayerID uuid.UUID) error {
	room, err := u.RoomRepository.ByCode(ctx, strings.ToUpper(code))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return errors.Join(ErrInternal, err)
	}

	if room.HostPlayerID != requestingPlayerID {
		return ErrForbidden
	}

	if err := u.RoomRepository.DeleteByCode(ctx, room.Code); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return errors.Join(ErrInternal, err)
	}
	return nil
}

type CleanupReport struct {
	ShouldDelete bool
	Message      string
	PlayerCount  int
	AgeSeconds   int
}

// Cleanup reaps the room only when it is both empty and past the grace
// period; otherwise it reports why the room was kept. Idempotent.
func (u *Usecase) Cleanup(ctx context.Context, code string) (CleanupReport, error) {
	room, err := u.RoomRepository.ByCode(ctx, strings.ToUpper(code))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return CleanupReport{ShouldDelete: true, Message: "room already deleted"}, nil
		}
		return CleanupReport{}, errors.Join(ErrInternal, err)
	}

	count, err := u.PlayerRepository.CountByRoom(ctx, room.ID)
	if err != nil {
		return CleanupReport{}, errors.Join(ErrInternal, err)
	}

	age := u.now().Sub(room.CreatedAt)
	if count > 0 {
		return CleanupReport{
			ShouldDelete: false,
			Message:      "room still has players",
			PlayerCount:  count,
			AgeSeconds:   int(age.Seconds()),
		}, nil
	}
	if age < cleanupGrace {
		return CleanupReport{
			ShouldDelete: false,
			Message:      "room too young to reap",
			AgeSeconds:   int(age.Seconds()),
		}, nil
	}

	if err := u.RoomRepository.DeleteByCode(ctx, room.Code); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return CleanupReport{}, errors.Join(ErrInternal, err)
	}
	return CleanupReport{
		ShouldDelete: true,
		Message:      "room deleted",
		AgeSeconds:   int(age.Seconds()),
	}, nil
}
