package infra_postgres_session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
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

type sessionDTO struct {
	ID           uuid.UUID `db:"id"`
	RoomID       uuid.UUID `db:"room_id"`
	Status       string    `db:"status"`
	CurrentRound int       `db:"current_round"`
	TotalRounds  int       `db:"total_rounds"`
	RoundData    []byte    `db:"round_data"`
	Answers      []byte    `db:"answers"`
	Version      int64     `db:"version"`
}

func (dto sessionDTO) toModel() (model.GameSession, error) {
	session := model.GameSession{
		ID:           dto.ID,
		RoomID:       dto.RoomID,
		Status:       dto.Status,
		CurrentRound: dto.CurrentRound,
		TotalRounds:  dto.TotalRounds,
		Answers:      map[uuid.UUID]model.Answer{},
		Version:      dto.Version,
	}
	if len(dto.RoundData) > 0 {
		if err := json.Unmarshal(dto.RoundData, &session.RoundData); err != nil {
			return model.GameSession{}, err
		}
	}
	if len(dto.Answers) > 0 {
		if err := json.Unmarshal(dto.Answers, &session.Answers); err != nil {
			return model.GameSession{}, err
		}
	}
	return session, nil
}

func (d *Driver) ByRoomID(ctx context.Context, roomID uuid.UUID) (model.GameSession, error) {
	var dto sessionDTO

	query := `
		SELECT id, room_id, status, current_round, total_rounds, round_data, answers, version
		FROM game_sessions
		WHERE room_id = $1
	`

	err := d.db.GetContext(ctx, &dto, query, roomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.GameSession{}, storage.ErrNotFound
		}
		return model.GameSession{}, err
	}

	return dto.toModel()
}

// Update writes the session conditionally on the version it was read at and
// bumps it. Zero rows affected means a concurrent writer got there first.
// The round data payload is validated before anything touches the store.
func (d *Driver) Update(ctx context.Context, session model.GameSession) error {
	if err := session.RoundData.Validate(); err != nil {
		return err
	}
	roundData, err := json.Marshal(session.RoundData)
	if err != nil {
		return err
	}
	answers, err := json.Marshal(session.Answers)
	if err != nil {
		return err
	}

	query := `
		UPDATE game_sessions
		SET status = $1,
			current_round = $2,
			total_rounds = $3,
			round_data = $4,
			answers = $5,
			version = version + 1
		WHERE room_id = $6 AND version = $7
	`

	result, err := d.db.ExecContext(ctx, query,
		session.Status, session.CurrentRound, session.TotalRounds,
		roundData, answers, session.RoomID, session.Version,
	)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return storage.ErrVersionConflict
	}
	return nil
}

// UpsertAnswer writes one player's answer in place. Deliberately not
// version-checked: concurrent submissions from different players must all
// land, and a resubmission by the same player overwrites its own key only.
func (d *Driver) UpsertAnswer(ctx context.Context, roomID uuid.UUID, playerID uuid.UUID, answer model.Answer) error {
	payload, err := json.Marshal(answer)
	if err != nil {
		return err
	}

	query := `
		UPDATE game_sessions
		SET answers = jsonb_set(answers, ARRAY[$1::text], $2::jsonb, true)
		WHERE room_id = $3
	`

	result, err := d.db.ExecContext(ctx, query, playerID.String(), payload, roomID)
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
