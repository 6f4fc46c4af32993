package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kovalyov-valentin/linkshelf/internal/model"
)

type UserPostgresStorage struct {
	db *sqlx.DB
}

func NewUserStorage(db *sqlx.DB) *UserPostgresStorage {
	return &UserPostgresStorage{db: db}
}

// Метод для регистрации. Занятый email - model.ErrEmailTaken
func (s *UserPostgresStorage) CreateUser(ctx context.Context, user model.User) error {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	res, err := conn.ExecContext(
		ctx,
		`INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		user.ID,
		user.Email,
		user.PasswordHash,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	if inserted == 0 {
		return model.ErrEmailTaken
	}

	return nil
}

// Пользователь по email. nil, если такого нет
func (s *UserPostgresStorage) User(ctx context.Context, email string) (*model.User, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var user dbUser
	err = conn.GetContext(
		ctx,
		&user,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = $1`,
		email,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}

	return &model.User{
		ID:           user.ID,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	}, nil
}

type dbUser struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}
