package infra_postgres_room

import (
	"context"
	"database/sql"
	"encoding/json"
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

type roomDTO struct {
	ID        uuid.UUID     `db:"id"`
	Code      string        `db:"code"`
	HostID    uuid.NullUUID `db:"host_id"`
	Status    string        `db:"status"`
	GameType  string        `db:"game_type"`
	Settings  []byte        `db:"settings"`
	CreatedAt time.Time     `db:"created_at"`
}

func (dto roomDTO) toModel() (model.Room, error) {
	var settings model.Settings
	if len(dto.Settings) > 0 {
		if err := json.Unmarshal(dto.Settings, &settings); err != nil {
			return model.Room{}, err
		}
	}
	room := model.Room{
		ID:        dto.ID,
		Code:      dto.Code,
		Status:    dto.Status,
		GameType:  dto.GameType,
		Settings:  settings,
		CreatedAt: dto.CreatedAt,
	}
	if dto.HostID.Valid {
		room.HostPlayerID = dto.HostID.UUID
	}
	return room, nil
}

// CreateWithHost writes the room, its host player and a waiting game session
// in one transaction, so a room is never observable without its session.
func (d *Driver) CreateWithHost(ctx context.Context, room model.Room, host model.Player) error {
	if err := room.Settings.Validate(); err != nil {
		return err
	}
	settings, err := json.Marshal(room.Settings)
	if err != nil {
		return err
	}

	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	insertRoom := `
		INSERT INTO rooms (id, code, host_id, status, game_type, settings, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := tx.ExecContext(ctx, insertRoom,
		room.ID, room.Code, room.HostPlayerID, room.Status, room.GameType, settings, room.CreatedAt,
	); err != nil {
		return mapError(err)
	}

	insertPlayer := `
		INSERT INTO players (id, room_id, name, is_host, score, last_seen_at, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := tx.ExecContext(ctx, insertPlayer,
		host.ID, room.ID, host.Name, true, 0, host.LastSeenAt, host.JoinedAt,
	); err != nil {
		return mapError(err)
	}

	insertSession := `
		INSERT INTO game_sessions (id, room_id, status, current_round, total_rounds, round_data, answers, version)
		VALUES ($1, $2, $3, 0, $4, '{}', '{}', 0)
	`
	if _, err := tx.ExecContext(ctx, insertSession,
		uuid.New(), room.ID, model.SessionStatusWaiting, room.Settings.TotalRounds,
	); err != nil {
		return mapError(err)
	}

	return tx.Commit()
}

func (d *Driver) ByCode(ctx context.Context, code string) (model.Room, error) {
	var dto roomDTO

	query := `
		SELECT id, code, host_id, status, game_type, settings, created_at
		FROM rooms
		WHERE code = UPPER($1)
	`

	err := d.db.GetContext(ctx, &dto, query, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Room{}, storage.ErrNotFound
		}
		return model.Room{}, err
	}

	return dto.toModel()
}

func (d *Driver) DeleteByCode(ctx context.Context, code string) error {
	query := `
		DELETE FROM rooms
		WHERE code = UPPER($1)
	`

	result, err := d.db.ExecContext(ctx, query, code)
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

func (d *Driver) SetStatusByCode(ctx context.Context, code string, status model.RoomStatus) error {
	query := `
		UPDATE rooms
		SET status = $1
		WHERE code = UPPER($2)
	`

	result, err := d.db.ExecContext(ctx, query, status, code)
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

// SetHost claims the host slot only while it is empty; a concurrent claimant
// that committed first wins and this write is a no-op.
func (d *Driver) SetHost(ctx context.Context, roomID uuid.UUID, playerID uuid.UUID) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	claim := `
		UPDATE rooms
		SET host_id = $1
		WHERE id = $2 AND host_id IS NULL
	`
	result, err := tx.ExecContext(ctx, claim, playerID, roomID)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return tx.Commit()
	}

	mark := `
		UPDATE players
		SET is_host = TRUE
		WHERE id = $1 AND room_id = $2
	`
	if _, err := tx.ExecContext(ctx, mark, playerID, roomID); err != nil {
		return err
	}
	return tx.Commit()
}

func mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" /* unique_violation */ {
		return storage.ErrDuplicate
	}
	return err
}
