package infra_postgres_player

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/partyloop/guessparty/internal/model"
	"github.com/partyloop/guessparty/internal/storage"
)

type Driver struct {
	db *sqlx.DB
}

func New(
	db *sqlx.DB,
) *Driver {
	return &Driver{db: db}
}

type playerDTO struct {
	ID         uuid.UUID `db:"id"`
	RoomID     uuid.UUID `db:"room_id"`
	Name       string    `db:"name"`
	IsHost     bool      `db:"is_host"`
	Score      int       `db:"score"`
	LastSeenAt time.Time `db:"last_seen_at"`
	JoinedAt   time.Time `db:"joined_at"`
}

func (dto playerDTO) toModel() model.Player {
	return model.Player{
		ID:         dto.ID,
		RoomID:     dto.RoomID,
		Name:       dto.Name,
		IsHost:     dto.IsHost,
		Score:      dto.Score,
		LastSeenAt: dto.LastSeenAt,
		JoinedAt:   dto.JoinedAt,
	}
}

func (d *Driver) Add(ctx context.Context, player model.Player) error {
	query := `
		INSERT INTO players (id, room_id, name, is_host, score, last_seen_at, joined_at)
		VALUES (:id, :room_id, :name, :is_host, :score, :last_seen_at, :joined_at)
	`

	_, err := d.db.NamedExecContext(ctx, query, playerDTO{
		ID:         player.ID,
		RoomID:     player.RoomID,
		Name:       player.Name,
		IsHost:     player.IsHost,
		Score:      player.Score,
		LastSeenAt: player.LastSeenAt,
		JoinedAt:   player.JoinedAt,
	})
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" /* unique_violation */ {
			return storage.ErrDuplicate
		}
		return err
	}
	return nil
}

func (d *Driver) ByID(ctx context.Context, id uuid.UUID) (model.Player, error) {
	var dto playerDTO

	query := `
		SELECT id, room_id, name, is_host, score, last_seen_at, joined_at
		FROM players
		WHERE id = $1
	`

	err := d.db.GetContext(ctx, &dto, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Player{}, storage.ErrNotFound
		}
		return model.Player{}, err
	}

	return dto.toModel(), nil
}

func (d *Driver) ByRoomAndName(ctx context.Context, roomID uuid.UUID, name string) (model.Player, error) {
	var dto playerDTO

	query := `
		SELECT id, room_id, name, is_host, score, last_seen_at, joined_at
		FROM players
		WHERE room_id = $1 AND name = $2
	`

	err := d.db.GetContext(ctx, &dto, query, roomID, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Player{}, storage.ErrNotFound
		}
		return model.Player{}, err
	}

	return dto.toModel(), nil
}

func (d *Driver) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]model.Player, error) {
	var dtos []playerDTO

	query := `
		SELECT id, room_id, name, is_host, score, last_seen_at, joined_at
		FROM players
		WHERE room_id = $1
		ORDER BY joined_at
	`

	if err := d.db.SelectContext(ctx, &dtos, query, roomID); err != nil {
		return nil, err
	}

	players := make([]model.Player, 0, len(dtos))
	for _, dto := range dtos {
		players = append(players, dto.toModel())
	}
	return players, nil
}

func (d *Driver) CountByRoom(ctx context.Context, roomID uuid.UUID) (int, error) {
	var count int

	query := `
		SELECT COUNT(id)
		FROM players
		WHERE room_id = $1
	`

	if err := d.db.GetContext(ctx, &count, query, roomID); err != nil {
		return 0, err
	}
	return count, nil
}

// AddScore bumps the player's total. Scores only ever grow within a game.
func (d *Driver) AddScore(ctx context.Context, playerID uuid.UUID, delta int) error {
	query := `
		UPDATE players
		SET score = score + $1
		WHERE id = $2
	`

	result, err := d.db.ExecContext(ctx, query, delta, playerID)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (d *Driver) Touch(ctx context.Context, playerID uuid.UUID, at time.Time) error {
	query := `
		UPDATE players
		SET last_seen_at = $1
		WHERE id = $2
	`

	result, err := d.db.ExecContext(ctx, query, at, playerID)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteStale prunes players in the room whose heartbeat predates the cutoff.
func (d *Driver) DeleteStale(ctx context.Context, roomID uuid.UUID, cutoff time.Time) (int, error) {
	query := `
		DELETE FROM players
		WHERE room_id = $1 AND last_seen_at < $2
	`

	result, err := d.db.ExecContext(ctx, query, roomID, cutoff)
	if err != nil {
		return 0, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rowsAffected), nil
}
