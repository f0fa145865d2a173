package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"pollpulse/internal/domain/room"
)

type RoomRepo struct {
	db *sql.DB
}

func NewRoomRepo(db *sql.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

func (r *RoomRepo) Create(ctx context.Context, rm *room.Room) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO rooms (id, creator_id, title, description, deadline, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, rm.ID, rm.CreatorID, rm.Title, rm.Description, rm.Deadline, rm.CreatedAt, rm.UpdatedAt)
	if err != nil {
		return err
	}

	for i, opt := range rm.Options {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO room_options (room_id, idx, text, votes)
            VALUES ($1, $2, $3, 0)
        `, rm.ID, i, opt.Text); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByID reads the room and its child rows from one snapshot so the tally
// always matches the voter list.
func (r *RoomRepo) GetByID(ctx context.Context, id string) (*room.Room, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rm := &room.Room{}
	err = tx.QueryRowContext(ctx, `
        SELECT id, creator_id, title, description, deadline, created_at, updated_at
        FROM rooms WHERE id = $1
    `, id).Scan(&rm.ID, &rm.CreatorID, &rm.Title, &rm.Description, &rm.Deadline, &rm.CreatedAt, &rm.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, room.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, `
        SELECT text, votes FROM room_options WHERE room_id = $1 ORDER BY idx
    `, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		o := room.Option{Justification: []string{}}
		if err := rows.Scan(&o.Text, &o.Votes); err != nil {
			return nil, err
		}
		rm.Options = append(rm.Options, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	jrows, err := tx.QueryContext(ctx, `
        SELECT option_idx, text FROM room_justifications WHERE room_id = $1 ORDER BY option_idx, id
    `, id)
	if err != nil {
		return nil, err
	}
	defer jrows.Close()
	for jrows.Next() {
		var idx int
		var text string
		if err := jrows.Scan(&idx, &text); err != nil {
			return nil, err
		}
		if idx >= 0 && idx < len(rm.Options) {
			rm.Options[idx].Justification = append(rm.Options[idx].Justification, text)
		}
	}
	if err := jrows.Err(); err != nil {
		return nil, err
	}

	vrows, err := tx.QueryContext(ctx, `
        SELECT voter_id FROM room_voters WHERE room_id = $1 ORDER BY seq
    `, id)
	if err != nil {
		return nil, err
	}
	defer vrows.Close()
	rm.Voters = []string{}
	for vrows.Next() {
		var v string
		if err := vrows.Scan(&v); err != nil {
			return nil, err
		}
		rm.Voters = append(rm.Voters, v)
	}
	if err := vrows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rm, nil
}

func (r *RoomRepo) ListByCreator(ctx context.Context, creatorID string) ([]room.Summary, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, title, created_at FROM rooms
        WHERE creator_id = $1 ORDER BY created_at DESC
    `, creatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []room.Summary{}
	for rows.Next() {
		var s room.Summary
		if err := rows.Scan(&s.ID, &s.Title, &s.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// RecordVote holds a row lock on the room for the whole check-and-write, so
// ballots on one room commit one at a time.
func (r *RoomRepo) RecordVote(ctx context.Context, b room.Ballot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var rm room.Room
	err = tx.QueryRowContext(ctx, `SELECT deadline FROM rooms WHERE id = $1 FOR UPDATE`, b.RoomID).Scan(&rm.Deadline)
	if errors.Is(err, sql.ErrNoRows) {
		return room.ErrRoomNotFound
	}
	if err != nil {
		return err
	}
	if !rm.Open(b.CastAt) {
		return room.ErrVotingClosed
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO room_voters (room_id, voter_id, voted_at) VALUES ($1, $2, $3)
    `, b.RoomID, b.VoterID, b.CastAt)
	if isUniqueViolation(err) {
		return room.ErrAlreadyVoted
	}
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
        UPDATE room_options SET votes = votes + 1 WHERE room_id = $1 AND idx = $2
    `, b.RoomID, b.OptionIndex)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n != 1 {
		return room.ErrInvalidArgument
	}

	if b.Justification != "" {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO room_justifications (room_id, option_idx, text, created_at) VALUES ($1, $2, $3, $4)
        `, b.RoomID, b.OptionIndex, b.Justification, b.CastAt); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE rooms SET updated_at = $1 WHERE id = $2`, b.CastAt, b.RoomID); err != nil {
		return err
	}

	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
