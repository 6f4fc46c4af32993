// Package trash переносит статьи между активным списком и корзиной.
//
// Корзина локальная: при переносе в корзину запись в хранилище удаляется,
// а при восстановлении создается заново с новым id.
package trash

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/kovalyov-valentin/linkshelf/internal/model"
	"github.com/kovalyov-valentin/linkshelf/internal/store"
)

type ArticleStorage interface {
	InsertArticle(ctx context.Context, article model.Article) (int64, error)
	DeleteArticle(ctx context.Context, userID string, id int64) error
}

type Notifier interface {
	Notify(ctx context.Context, notice model.Notice)
}

// Confirmer спрашивает у пользователя подтверждение
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

type Controller struct {
	articles ArticleStorage
	store    *store.Store
	notifier Notifier
	now      func() time.Time
}

func NewController(articles ArticleStorage, st *store.Store, notifier Notifier) *Controller {
	return &Controller{
		articles: articles,
		store:    st,
		notifier: notifier,
		now:      time.Now,
	}
}

// MoveToTrash убирает статью в корзину и удаляет ее из хранилища.
// Если удаление не удалось, статья возвращается на прежнее место
func (c *Controller) MoveToTrash(ctx context.Context, id int64, confirm Confirmer) error {
	if _, ok := c.store.Article(id); !ok {
		return model.ErrArticleNotFound
	}

	if !confirm.Confirm(ctx, "Move the article to trash?") {
		return model.ErrNotConfirmed
	}

	lease := c.store.Lease()
	now := c.now()

	_, index, ok := c.store.MoveToTrash(lease, id, func(a *model.Article) {
		a.TrashedAt = &now
	})
	if !ok {
		return model.ErrArticleNotFound
	}

	if err := c.articles.DeleteArticle(ctx, lease.Owner, id); err != nil {
		log.Printf("[ERROR] failed to delete article %d: %v", id, err)

		// Откатываем, чтобы локальное и удаленное состояние не разъехались
		if c.store.ReturnFromTrash(lease, id, index) {
			c.notifier.Notify(ctx, model.Notice{Severity: model.SeverityErr, Message: "Failed to move to trash: " + err.Error()})
		}

		return fmt.Errorf("delete article %d: %w", id, err)
	}

	c.notifier.Notify(ctx, model.Notice{Severity: model.SeverityInfo, Message: "Moved to trash"})

	return nil
}

// RestoreFromTrash сохраняет статью заново (id будет новым) и возвращает ее в начало списка
func (c *Controller) RestoreFromTrash(ctx context.Context, id int64) (model.Article, error) {
	lease := c.store.Lease()

	article, ok := c.store.RemoveTrash(lease, id)
	if !ok {
		return model.Article{}, model.ErrArticleNotFound
	}

	restored := article.Clone()
	restored.ID = 0
	restored.TrashedAt = nil
	restored.UserID = lease.Owner

	newID, err := c.articles.InsertArticle(ctx, restored)
	if err != nil {
		log.Printf("[ERROR] failed to restore article %d: %v", id, err)

		// Запись не создалась - кладем статью обратно в корзину, чтобы она не потерялась
		if c.store.PrependTrash(lease, article) {
			c.notifier.Notify(ctx, model.Notice{Severity: model.SeverityErr, Message: "Failed to restore: " + err.Error()})
		}

		return model.Article{}, fmt.Errorf("restore article %d: %w", id, err)
	}

	restored.ID = newID

	// Пока шло сохранение, пользователь мог выйти
	if !c.store.PrependArticle(lease, restored) {
		return model.Article{}, model.ErrNotSignedIn
	}

	c.notifier.Notify(ctx, model.Notice{Severity: model.SeverityOK, Message: "Article restored"})

	return restored, nil
}

// DeleteForever удаляет статью из корзины. В хранилище ее уже нет
func (c *Controller) DeleteForever(ctx context.Context, id int64, confirm Confirmer) error {
	if _, ok := c.store.TrashedArticle(id); !ok {
		return model.ErrArticleNotFound
	}

	if !confirm.Confirm(ctx, "Delete this article forever?") {
		return model.ErrNotConfirmed
	}

	if _, ok := c.store.RemoveTrash(c.store.Lease(), id); !ok {
		return model.ErrArticleNotFound
	}

	c.notifier.Notify(ctx, model.Notice{Severity: model.SeverityInfo, Message: "Deleted forever"})

	return nil
}

// EmptyTrash очищает корзину и возвращает сколько статей удалено
func (c *Controller) EmptyTrash(ctx context.Context, confirm Confirmer) (int, error) {
	count := len(c.store.Trash())
	if count == 0 {
		return 0, nil
	}

	if !confirm.Confirm(ctx, fmt.Sprintf("Delete all %d items in trash?", count)) {
		return 0, model.ErrNotConfirmed
	}

	n, ok := c.store.ClearTrash(c.store.Lease())
	if !ok {
		return 0, model.ErrNotSignedIn
	}

	c.notifier.Notify(ctx, model.Notice{Severity: model.SeverityOK, Message: "Trash emptied"})

	return n, nil
}
