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

// Сессии привязаны к чату телеграма: чат это наш "клиент"
type SessionPostgresStorage struct {
	db *sqlx.DB
	// На сколько продлевается сессия при входе и при обновлении
	ttl time.Duration
}

func NewSessionStorage(db *sqlx.DB, ttl time.Duration) *SessionPostgresStorage {
	return &SessionPostgresStorage{db: db, ttl: ttl}
}

// Текущая сессия чата. nil, если чат не залогинен или сессия протухла
func (s *SessionPostgresStorage) Session(ctx context.Context, chatID int64) (*model.Session, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var session dbSession
	err = conn.GetContext(
		ctx,
		&session,
		`SELECT chat_id, user_id, email, expires_at FROM sessions WHERE chat_id = $1 AND expires_at > $2`,
		chatID,
		time.Now().UTC(),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}

	return &model.Session{
		UserID:    session.UserID,
		Email:     session.Email,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// Вход: создаем или перезаписываем сессию чата
func (s *SessionPostgresStorage) SignIn(ctx context.Context, chatID int64, userID, email string) (*model.Session, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	expiresAt := time.Now().UTC().Add(s.ttl)

	if _, err := conn.ExecContext(
		ctx,
		`INSERT INTO sessions (chat_id, user_id, email, expires_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (chat_id) DO UPDATE SET user_id = EXCLUDED.user_id, email = EXCLUDED.email, expires_at = EXCLUDED.expires_at`,
		chatID,
		userID,
		email,
		expiresAt,
	); err != nil {
		return nil, fmt.Errorf("upsert session: %w", err)
	}

	return &model.Session{UserID: userID, Email: email, ExpiresAt: expiresAt}, nil
}

// Продлеваем живую сессию. nil, если продлевать нечего
func (s *SessionPostgresStorage) Refresh(ctx context.Context, chatID int64) (*model.Session, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	now := time.Now().UTC()

	var session dbSession
	err = conn.GetContext(
		ctx,
		&session,
		`UPDATE sessions SET expires_at = $1 WHERE chat_id = $2 AND expires_at > $3
		RETURNING chat_id, user_id, email, expires_at`,
		now.Add(s.ttl),
		chatID,
		now,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}

	return &model.Session{
		UserID:    session.UserID,
		Email:     session.Email,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// Выход
func (s *SessionPostgresStorage) SignOut(ctx context.Context, chatID int64) error {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `DELETE FROM sessions WHERE chat_id = $1`, chatID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

type dbSession struct {
	ChatID    int64     `db:"chat_id"`
	UserID    string    `db:"user_id"`
	Email     string    `db:"email"`
	ExpiresAt time.Time `db:"expires_at"`
}
