// Package library - действия пользователя над статьями и коллекциями.
//
// Изменения сразу применяются к стору, а потом сохраняются в хранилище.
// Если сохранение не удалось, пользователь получает уведомление, а локальное
// изменение не откатывается. Исключение - создание статьи: при ошибке стор не меняется.
package library

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/tomakado/containers/set"

	"github.com/kovalyov-valentin/linkshelf/internal/draft"
	"github.com/kovalyov-valentin/linkshelf/internal/enrichment"
	"github.com/kovalyov-valentin/linkshelf/internal/model"
	"github.com/kovalyov-valentin/linkshelf/internal/store"
)

type ArticleStorage interface {
	InsertArticle(ctx context.Context, article model.Article) (int64, error)
	UpdateArticle(ctx context.Context, userID string, id int64, patch model.ArticlePatch) error
}

type CollectionStorage interface {
	InsertCollection(ctx context.Context, collection model.Collection) (int64, error)
	UpdateCollection(ctx context.Context, collection model.Collection) error
	DeleteCollection(ctx context.Context, userID string, id int64) error
}

type Enricher interface {
	Enqueue(job enrichment.Job)
}

type Notifier interface {
	Notify(ctx context.Context, notice model.Notice)
}

type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// Canceler - то, что надо остановить перед сохранением (превью по URL)
type Canceler interface {
	Cancel()
}

type Library struct {
	articles    ArticleStorage
	collections CollectionStorage
	store       *store.Store
	enricher    Enricher
	notifier    Notifier
	preview     Canceler
	guard       *saveGuard
	now         func() time.Time
}

func New(
	articles ArticleStorage,
	collections CollectionStorage,
	st *store.Store,
	enricher Enricher,
	notifier Notifier,
	preview Canceler,
	indicator Indicator,
) *Library {
	return &Library{
		articles:    articles,
		collections: collections,
		store:       st,
		enricher:    enricher,
		notifier:    notifier,
		preview:     preview,
		guard:       newSaveGuard(indicator),
		now:         time.Now,
	}
}

// Saving - идет ли сейчас сохранение новой статьи
func (l *Library) Saving() bool {
	return l.guard.Saving()
}

// CreateArticle сохраняет статью из формы. После успеха форма закрывается (сбрасывается),
// а анализ статьи запускается в фоне и на результат сохранения уже не влияет
func (l *Library) CreateArticle(ctx context.Context, d *draft.Draft) (model.Article, error) {
	lease := l.store.Lease()
	if lease.Owner == "" {
		l.notifier.Notify(ctx, model.Notice{Severity: model.SeverityErr, Message: "Sign in to save links"})
		return model.Article{}, model.ErrNotSignedIn
	}

	values := d.Values()

	// Валидация до входа в guard: тут чистить нечего
	if _, err := model.ParseURL(values.URL); err != nil {
		l.notifier.Notify(ctx, model.Notice{Severity: model.SeverityErr, Message: validationMessage(err)})
		return model.Article{}, err
	}

	if l.preview != nil {
		l.preview.Cancel()
	}

	article, err := l.save(ctx, lease, values)
	if err != nil {
		return model.Article{}, err
	}

	d.Reset()

	l.enrich(lease, article, values.Title)

	return article, nil
}

func (l *Library) save(ctx context.Context, lease store.Lease, values draft.Values) (model.Article, error) {
	if !l.guard.enter() {
		return model.Article{}, model.ErrSaveInFlight
	}
	defer l.guard.leave()

	article, err := l.insert(ctx, lease, values)
	if err != nil {
		if !errors.Is(err, model.ErrNotSignedIn) {
			log.Printf("[ERROR] failed to insert article: %v", err)
			l.notifier.Notify(ctx, model.Notice{Severity: model.SeverityErr, Message: "Save failed: " + errors.Unwrap(err).Error()})
		}
		return model.Article{}, err
	}

	l.notifier.Notify(ctx, model.Notice{Severity: model.SeverityOK, Message: "Saved. AI analysis in progress..."})

	return article, nil
}

// AddImported сохраняет статью из импорта. Форма и guard тут не участвуют,
// уведомления по каждой статье не отправляются.
// lease взят в начале импорта: если с тех пор пользователь вышел или сменился, ничего не пишем
func (l *Library) AddImported(ctx context.Context, lease store.Lease, values draft.Values) (model.Article, error) {
	if !l.store.Valid(lease) {
		return model.Article{}, model.ErrNotSignedIn
	}

	if _, err := model.ParseURL(values.URL); err != nil {
		return model.Article{}, err
	}

	article, err := l.insert(ctx, lease, values)
	if err != nil {
		return model.Article{}, err
	}

	l.enrich(lease, article, values.Title)

	return article, nil
}

// insert создает запись в хранилище и только после успеха кладет статью в стор
func (l *Library) insert(ctx context.Context, lease store.Lease, values draft.Values) (model.Article, error) {
	url := strings.TrimSpace(values.URL)

	article := model.Article{
		UserID:      lease.Owner,
		URL:         url,
		Title:       model.FallbackTitle(values.Title, url),
		Source:      model.Domain(url),
		Summary:     "",
		Keywords:    []string{},
		Tags:        lo.Uniq(values.Tags),
		Category:    lo.Ternary(values.Category == "", model.DefaultCategory, values.Category),
		Status:      lo.Ternary(values.Status == "", model.StatusUnread, values.Status),
		Rating:      0,
		Collections: []int64{},
		Memo:        values.Memo,
		Date:        model.Today(l.now()),
	}

	id, err := l.articles.InsertArticle(ctx, article)
	if err != nil {
		return model.Article{}, fmt.Errorf("insert article: %w", err)
	}

	article.ID = id

	// Пользователь вышел, пока шло сохранение
	if !l.store.PrependArticle(lease, article) {
		return model.Article{}, model.ErrNotSignedIn
	}

	return article, nil
}

func (l *Library) enrich(lease store.Lease, article model.Article, manualTitle string) {
	l.enricher.Enqueue(enrichment.Job{
		Lease:       lease,
		ArticleID:   article.ID,
		URL:         article.URL,
		ManualTitle: strings.TrimSpace(manualTitle),
		Category:    article.Category,
	})
}

// OpenArticle отдает статью и при первом открытии помечает ее прочитанной
func (l *Library) OpenArticle(ctx context.Context, id int64) (model.Article, error) {
	return l.mutate(ctx, id, func(a model.Article) (model.ArticlePatch, error) {
		if a.Status != model.StatusUnread {
			return model.ArticlePatch{}, nil
		}

		read := model.StatusRead
		return model.ArticlePatch{Status: &read}, nil
	})
}

func (l *Library) ToggleStar(ctx context.Context, id int64) (model.Article, error) {
	a, err := l.mutate(ctx, id, func(a model.Article) (model.ArticlePatch, error) {
		starred := !a.Starred
		return model.ArticlePatch{Starred: &starred}, nil
	})
	if err != nil {
		return a, err
	}

	msg := lo.Ternary(a.Starred, "Added to favorites", "Removed from favorites")
	l.notifier.Notify(ctx, model.Notice{Severity: model.SeverityInfo, Message: msg})

	return a, nil
}

func (l *Library) SetRating(ctx context.Context, id int64, rating int) (model.Article, error) {
	if rating < 0 || rating > model.MaxRating {
		return model.Article{}, model.ErrInvalidRating
	}

	return l.mutate(ctx, id, func(a model.Article) (model.ArticlePatch, error) {
		return model.ArticlePatch{Rating: &rating}, nil
	})
}

func (l *Library) SetStatus(ctx context.Context, id int64, raw string) (model.Article, error) {
	status, ok := model.ParseStatus(raw)
	if !ok {
		return model.Article{}, model.ErrInvalidStatus
	}

	a, err := l.mutate(ctx, id, func(a model.Article) (model.ArticlePatch, error) {
		return model.ArticlePatch{Status: &status}, nil
	})
	if err != nil {
		return a, err
	}

	l.notifier.Notify(ctx, model.Notice{Severity: model.SeverityInfo, Message: "Status updated"})

	return a, nil
}

func (l *Library) SetMemo(ctx context.Context, id int64, memo string) (model.Article, error) {
	return l.mutate(ctx, id, func(a model.Article) (model.ArticlePatch, error) {
		return model.ArticlePatch{Memo: &memo}, nil
	})
}

// AddTag добавляет тег статье. Повторный тег ничего не меняет
func (l *Library) AddTag(ctx context.Context, id int64, raw string) (model.Article, error) {
	tag := draft.NormalizeTag(raw)

	return l.mutate(ctx, id, func(a model.Article) (model.ArticlePatch, error) {
		if tag == "" || set.New(a.Tags...).Contains(tag) {
			return model.ArticlePatch{}, nil
		}

		tags := append(append([]string(nil), a.Tags...), tag)
		return model.ArticlePatch{Tags: &tags}, nil
	})
}

func (l *Library) RemoveTag(ctx context.Context, id int64, raw string) (model.Article, error) {
	tag := draft.NormalizeTag(raw)

	return l.mutate(ctx, id, func(a model.Article) (model.ArticlePatch, error) {
		if !lo.Contains(a.Tags, tag) {
			return model.ArticlePatch{}, nil
		}

		tags := lo.Without(a.Tags, tag)
		return model.ArticlePatch{Tags: &tags}, nil
	})
}

// ToggleCollection добавляет статью в коллекцию или убирает из нее
func (l *Library) ToggleCollection(ctx context.Context, id, collectionID int64) (model.Article, error) {
	if _, ok := l.store.Collection(collectionID); !ok {
		return model.Article{}, model.ErrCollectionNotFound
	}

	return l.mutate(ctx, id, func(a model.Article) (model.ArticlePatch, error) {
		var collections []int64
		if a.InCollection(collectionID) {
			collections = lo.Without(a.Collections, collectionID)
		} else {
			collections = append(append([]int64(nil), a.Collections...), collectionID)
		}

		return model.ArticlePatch{Collections: &collections}, nil
	})
}

// mutate применяет изменение к стору и сохраняет его. build получает текущую версию статьи;
// пустой патч означает, что менять нечего
func (l *Library) mutate(
	ctx context.Context,
	id int64,
	build func(a model.Article) (model.ArticlePatch, error),
) (model.Article, error) {
	lease := l.store.Lease()

	var (
		patch    model.ArticlePatch
		buildErr error
	)

	article, ok := l.store.UpdateArticle(lease, id, func(a *model.Article) {
		patch, buildErr = build(*a)
		if buildErr == nil {
			patch.Apply(a)
		}
	})
	if !ok {
		return model.Article{}, model.ErrArticleNotFound
	}
	if buildErr != nil {
		return article, buildErr
	}
	if patch.Empty() {
		return article, nil
	}

	if err := l.articles.UpdateArticle(ctx, lease.Owner, id, patch); err != nil {
		log.Printf("[ERROR] failed to update article %d: %v", id, err)
		l.notifier.Notify(ctx, model.Notice{Severity: model.SeverityErr, Message: "Update failed: " + err.Error()})
		return article, fmt.Errorf("update article %d: %w", id, err)
	}

	return article, nil
}

// SaveCollection создает коллекцию (id == 0) или переименовывает/перекрашивает существующую
func (l *Library) SaveCollection(ctx context.Context, id int64, name, color string) (model.Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		l.notifier.Notify(ctx, model.Notice{Severity: model.SeverityErr, Message: validationMessage(model.ErrEmptyName)})
		return model.Collection{}, model.ErrEmptyName
	}

	lease := l.store.Lease()
	if lease.Owner == "" {
		return model.Collection{}, model.ErrNotSignedIn
	}

	collection := model.Collection{
		ID:     id,
		UserID: lease.Owner,
		Name:   name,
		Color:  model.NormalizeColor(color),
	}

	if id != 0 {
		if _, ok := l.store.Collection(id); !ok {
			return model.Collection{}, model.ErrCollectionNotFound
		}

		if err := l.collections.UpdateCollection(ctx, collection); err != nil {
			l.notifier.Notify(ctx, model.Notice{Severity: model.SeverityErr, Message: "Failed to save collection: " + err.Error()})
			return model.Collection{}, fmt.Errorf("update collection %d: %w", id, err)
		}

		if !l.store.UpdateCollection(lease, collection) {
			return model.Collection{}, model.ErrNotSignedIn
		}

		l.notifier.Notify(ctx, model.Notice{Severity: model.SeverityOK, Message: "Collection updated"})

		return collection, nil
	}

	newID, err := l.collections.InsertCollection(ctx, collection)
	if err != nil {
		l.notifier.Notify(ctx, model.Notice{Severity: model.SeverityErr, Message: "Failed to save collection: " + err.Error()})
		return model.Collection{}, fmt.Errorf("insert collection: %w", err)
	}

	collection.ID = newID

	if !l.store.AddCollection(lease, collection) {
		return model.Collection{}, model.ErrNotSignedIn
	}

	l.notifier.Notify(ctx, model.Notice{Severity: model.SeverityOK, Message: fmt.Sprintf("Collection %q created", name)})

	return collection, nil
}

// DeleteCollection удаляет коллекцию и убирает ее из всех статей. Сами статьи остаются
func (l *Library) DeleteCollection(ctx context.Context, id int64, confirm Confirmer) error {
	collection, ok := l.store.Collection(id)
	if !ok {
		return model.ErrCollectionNotFound
	}

	if !confirm.Confirm(ctx, fmt.Sprintf("Delete collection %q?", collection.Name)) {
		return model.ErrNotConfirmed
	}

	lease := l.store.Lease()

	if err := l.collections.DeleteCollection(ctx, lease.Owner, id); err != nil {
		l.notifier.Notify(ctx, model.Notice{Severity: model.SeverityErr, Message: "Failed to delete collection: " + err.Error()})
		return fmt.Errorf("delete collection %d: %w", id, err)
	}

	touched, ok := l.store.RemoveCollection(lease, id)
	if !ok {
		return model.ErrNotSignedIn
	}

	// Каждую затронутую статью сохраняем отдельно. Ошибка одной не мешает остальным
	var failed int
	for _, a := range touched {
		collections := a.Collections
		if err := l.articles.UpdateArticle(ctx, lease.Owner, a.ID, model.ArticlePatch{Collections: &collections}); err != nil {
			log.Printf("[ERROR] failed to detach article %d from collection %d: %v", a.ID, id, err)
			failed++
		}
	}

	if failed > 0 {
		l.notifier.Notify(ctx, model.Notice{
			Severity: model.SeverityErr,
			Message:  fmt.Sprintf("Collection deleted, but %d articles were not updated", failed),
		})
		return nil
	}

	l.notifier.Notify(ctx, model.Notice{Severity: model.SeverityOK, Message: "Collection deleted"})

	return nil
}

func validationMessage(err error) string {
	switch err {
	case model.ErrEmptyURL:
		return "Enter a URL"
	case model.ErrInvalidURL:
		return "Enter a valid URL"
	case model.ErrEmptyName:
		return "Enter a collection name"
	}

	return err.Error()
}
