package postgres

import (
	"context"
	"database/sql"
	"errors"

	"pollpulse/internal/domain/user"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	query := `
        INSERT INTO users (id, username, email, password_hash, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `
	_, err := r.db.ExecContext(ctx, query, u.ID, u.Username, u.Email, u.PasswordHash, u.CreatedAt)
	if isUniqueViolation(err) {
		return user.ErrEmailTaken
	}
	return err
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, `
        SELECT id, username, email, password_hash, created_at
        FROM users WHERE email = $1
    `, email)
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.getOne(ctx, `
        SELECT id, username, email, password_hash, created_at
        FROM users WHERE id = $1
    `, id)
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (*user.User, error) {
	u := &user.User{}
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
