package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"github.com/kovalyov-valentin/linkshelf/internal/model"
)

type CollectionPostgresStorage struct {
	db *sqlx.DB
}

func NewCollectionStorage(db *sqlx.DB) *CollectionPostgresStorage {
	return &CollectionPostgresStorage{db: db}
}

// Метод для получения списка коллекций пользователя
func (s *CollectionPostgresStorage) Collections(ctx context.Context, userID string) ([]model.Collection, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var collections []dbCollection
	if err := conn.SelectContext(
		ctx,
		&collections,
		`SELECT id, user_id, name, color FROM collections WHERE user_id = $1 ORDER BY id`,
		userID,
	); err != nil {
		return nil, fmt.Errorf("select collections: %w", err)
	}

	return lo.Map(collections, func(c dbCollection, _ int) model.Collection {
		return model.Collection(c)
	}), nil
}

// Метод для добавления коллекции
func (s *CollectionPostgresStorage) InsertCollection(ctx context.Context, collection model.Collection) (int64, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	var id int64

	row := conn.QueryRowxContext(
		ctx,
		`INSERT INTO collections (user_id, name, color) VALUES ($1, $2, $3) RETURNING id`,
		collection.UserID,
		collection.Name,
		collection.Color,
	)

	if err := row.Err(); err != nil {
		return 0, fmt.Errorf("insert collection: %w", err)
	}

	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("insert collection: %w", err)
	}

	return id, nil
}

// Метод для переименования/перекраски коллекции
func (s *CollectionPostgresStorage) UpdateCollection(ctx context.Context, collection model.Collection) error {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(
		ctx,
		`UPDATE collections SET name = $1, color = $2 WHERE id = $3 AND user_id = $4`,
		collection.Name,
		collection.Color,
		collection.ID,
		collection.UserID,
	); err != nil {
		return fmt.Errorf("update collection %d: %w", collection.ID, err)
	}

	return nil
}

// Метод для удаления коллекции
func (s *CollectionPostgresStorage) DeleteCollection(ctx context.Context, userID string, id int64) error {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `DELETE FROM collections WHERE id = $1 AND user_id = $2`, id, userID); err != nil {
		return fmt.Errorf("delete collection %d: %w", id, err)
	}

	return nil
}

type dbCollection struct {
	ID     int64  `db:"id"`
	UserID string `db:"user_id"`
	Name   string `db:"name"`
	Color  string `db:"color"`
}
