package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/samber/lo"

	"github.com/kovalyov-valentin/linkshelf/internal/model"
)

// Хранилище статей в Postgres
type ArticlePostgresStorage struct {
	db *sqlx.DB
}

func NewArticleStorage(db *sqlx.DB) *ArticlePostgresStorage {
	return &ArticlePostgresStorage{db: db}
}

// Метод для добавления статьи. Возвращает сгенерированный id
func (s *ArticlePostgresStorage) InsertArticle(ctx context.Context, article model.Article) (int64, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	row := toDBArticle(article)

	var id int64
	if err := conn.QueryRowxContext(
		ctx,
		`INSERT INTO articles
			(user_id, url, title, source, summary, keywords, tags, category, status, starred, rating, collections, memo, created_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`,
		row.UserID,
		row.URL,
		row.Title,
		row.Source,
		row.Summary,
		row.Keywords,
		row.Tags,
		row.Category,
		row.Status,
		row.Starred,
		row.Rating,
		row.Collections,
		row.Memo,
		row.CreatedOn,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert article: %w", err)
	}

	return id, nil
}

// Метод для частичного обновления статьи. Обновляются только заданные в патче поля.
// Чужую статью не трогаем, даже если id совпал
func (s *ArticlePostgresStorage) UpdateArticle(ctx context.Context, userID string, id int64, patch model.ArticlePatch) error {
	query, args, ok := updateArticleQuery(userID, id, patch)
	if !ok {
		return nil
	}

	conn, err := s.db.Connx(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update article %d: %w", id, err)
	}

	return nil
}

// Метод для удаления статьи пользователя
func (s *ArticlePostgresStorage) DeleteArticle(ctx context.Context, userID string, id int64) error {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `DELETE FROM articles WHERE id = $1 AND user_id = $2`, id, userID); err != nil {
		return fmt.Errorf("delete article %d: %w", id, err)
	}

	return nil
}

// Метод для получения всех статей пользователя, сначала самые новые
func (s *ArticlePostgresStorage) Articles(ctx context.Context, userID string) ([]model.Article, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var articles []dbArticle
	if err := conn.SelectContext(
		ctx,
		&articles,
		`SELECT * FROM articles WHERE user_id = $1 ORDER BY created_at DESC, id DESC`,
		userID,
	); err != nil {
		return nil, fmt.Errorf("select articles: %w", err)
	}

	return lo.Map(articles, func(a dbArticle, _ int) model.Article {
		return a.toModel()
	}), nil
}

func updateArticleQuery(userID string, id int64, patch model.ArticlePatch) (string, []any, bool) {
	set, args := articleSetClause(patch)
	if len(set) == 0 {
		return "", nil, false
	}

	args = append(args, id, userID)
	query := fmt.Sprintf(
		`UPDATE articles SET %s WHERE id = $%d AND user_id = $%d`,
		strings.Join(set, ", "),
		len(args)-1,
		len(args),
	)

	return query, args, true
}

// Собираем SET часть запроса и аргументы. Имена колонок фиксированы, пользовательский ввод идет только в аргументы
func articleSetClause(p model.ArticlePatch) ([]string, []any) {
	var (
		set  []string
		args []any
	)

	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Summary != nil {
		add("summary", *p.Summary)
	}
	if p.Keywords != nil {
		add("keywords", pq.StringArray(*p.Keywords))
	}
	if p.Tags != nil {
		add("tags", pq.StringArray(*p.Tags))
	}
	if p.Category != nil {
		add("category", string(*p.Category))
	}
	if p.Status != nil {
		add("status", string(*p.Status))
	}
	if p.Starred != nil {
		add("starred", *p.Starred)
	}
	if p.Rating != nil {
		add("rating", *p.Rating)
	}
	if p.Collections != nil {
		add("collections", pq.Int64Array(*p.Collections))
	}
	if p.Memo != nil {
		add("memo", *p.Memo)
	}

	return set, args
}

// Внутренняя модель для работы с БД, чтобы правильно мапить ее на колонки в таблице
type dbArticle struct {
	ID          int64          `db:"id"`
	UserID      string         `db:"user_id"`
	URL         string         `db:"url"`
	Title       string         `db:"title"`
	Source      string         `db:"source"`
	Summary     string         `db:"summary"`
	Keywords    pq.StringArray `db:"keywords"`
	Tags        pq.StringArray `db:"tags"`
	Category    string         `db:"category"`
	Status      string         `db:"status"`
	Starred     bool           `db:"starred"`
	Rating      int            `db:"rating"`
	Collections pq.Int64Array  `db:"collections"`
	Memo        string         `db:"memo"`
	CreatedOn   string         `db:"created_on"`
	CreatedAt   time.Time      `db:"created_at"`
}

func toDBArticle(a model.Article) dbArticle {
	return dbArticle{
		ID:          a.ID,
		UserID:      a.UserID,
		URL:         a.URL,
		Title:       a.Title,
		Source:      a.Source,
		Summary:     a.Summary,
		Keywords:    pq.StringArray(lo.Ternary(a.Keywords == nil, []string{}, a.Keywords)),
		Tags:        pq.StringArray(lo.Ternary(a.Tags == nil, []string{}, a.Tags)),
		Category:    string(a.Category),
		Status:      string(a.Status),
		Starred:     a.Starred,
		Rating:      a.Rating,
		Collections: pq.Int64Array(lo.Ternary(a.Collections == nil, []int64{}, a.Collections)),
		Memo:        a.Memo,
		CreatedOn:   a.Date,
	}
}

func (a dbArticle) toModel() model.Article {
	return model.Article{
		ID:          a.ID,
		UserID:      a.UserID,
		URL:         a.URL,
		Title:       a.Title,
		Source:      a.Source,
		Summary:     a.Summary,
		Keywords:    []string(a.Keywords),
		Tags:        []string(a.Tags),
		Category:    model.ParseCategory(a.Category),
		Status:      lo.Ternary(a.Status == string(model.StatusRead), model.StatusRead, model.StatusUnread),
		Starred:     a.Starred,
		Rating:      a.Rating,
		Collections: []int64(a.Collections),
		Memo:        a.Memo,
		Date:        a.CreatedOn,
	}
}
