package storage

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/kovalyov-valentin/linkshelf/internal/model"
)

// Gateway объединяет хранилища статей и коллекций в один шлюз сохранения.
// Каждый вызов атомарен сам по себе, транзакций между вызовами нет
type Gateway struct {
	*ArticlePostgresStorage
	*CollectionPostgresStorage
}

func NewGateway(db *sqlx.DB) *Gateway {
	return &Gateway{
		ArticlePostgresStorage:    NewArticleStorage(db),
		CollectionPostgresStorage: NewCollectionStorage(db),
	}
}

// LoadAll загружает все статьи и коллекции пользователя
func (g *Gateway) LoadAll(ctx context.Context, userID string) (model.Snapshot, error) {
	articles, err := g.Articles(ctx, userID)
	if err != nil {
		return model.Snapshot{}, err
	}

	collections, err := g.Collections(ctx, userID)
	if err != nil {
		return model.Snapshot{}, err
	}

	return model.Snapshot{Articles: articles, Collections: collections}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS articles (
	id          BIGSERIAL PRIMARY KEY,
	user_id     TEXT NOT NULL,
	url         TEXT NOT NULL,
	title       TEXT NOT NULL,
	source      TEXT NOT NULL DEFAULT '',
	summary     TEXT NOT NULL DEFAULT '',
	keywords    TEXT[] NOT NULL DEFAULT '{}',
	tags        TEXT[] NOT NULL DEFAULT '{}',
	category    TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'unread',
	starred     BOOLEAN NOT NULL DEFAULT FALSE,
	rating      INTEGER NOT NULL DEFAULT 0,
	collections BIGINT[] NOT NULL DEFAULT '{}',
	memo        TEXT NOT NULL DEFAULT '',
	created_on  TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS articles_user_id_idx ON articles (user_id);

CREATE TABLE IF NOT EXISTS collections (
	id      BIGSERIAL PRIMARY KEY,
	user_id TEXT NOT NULL,
	name    TEXT NOT NULL,
	color   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS sessions (
	chat_id    BIGINT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	email      TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);
`

// Migrate создает таблицы, если их еще нет
func Migrate(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
