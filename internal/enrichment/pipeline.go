package enrichment

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/kovalyov-valentin/linkshelf/internal/model"
	"github.com/kovalyov-valentin/linkshelf/internal/store"
)

// Сколько ждем анализ, после этого запрос отменяется и считается неудачным
const DefaultTimeout = 25 * time.Second

type Analyzer interface {
	Analyze(ctx context.Context, url string) (model.Analysis, error)
}

type ArticleUpdater interface {
	UpdateArticle(ctx context.Context, userID string, id int64, patch model.ArticlePatch) error
}

type Notifier interface {
	Notify(ctx context.Context, notice model.Notice)
}

// Задание на обогащение уже сохраненной статьи
type Job struct {
	// Право записи сессии, в которой статья была создана
	Lease     store.Lease
	ArticleID int64
	URL       string
	// Заголовок, который пользователь ввел сам. Его анализ не перетирает
	ManualTitle string
	// Категория, выбранная при создании. Остается, если анализ категорию не вернул
	Category model.Category
}

// Pipeline запускает анализ в фоне и не блокирует сохранение.
// Одна попытка на статью, без ретраев
type Pipeline struct {
	analyzer Analyzer
	articles ArticleUpdater
	store    *store.Store
	notifier Notifier
	timeout  time.Duration
	base     context.Context

	wg sync.WaitGroup
}

func New(
	ctx context.Context,
	analyzer Analyzer,
	articles ArticleUpdater,
	st *store.Store,
	notifier Notifier,
	timeout time.Duration,
) *Pipeline {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Pipeline{
		analyzer: analyzer,
		articles: articles,
		store:    st,
		notifier: notifier,
		timeout:  timeout,
		base:     ctx,
	}
}

// Enqueue запускает обогащение и сразу возвращает управление
func (p *Pipeline) Enqueue(job Job) {
	p.wg.Add(1)

	go func() {
		defer p.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[ERROR] enrichment of article %d panicked: %v", job.ArticleID, r)
			}
		}()

		p.run(job)
	}()
}

// Wait дожидается всех запущенных заданий
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

func (p *Pipeline) run(job Job) {
	ctx, cancel := context.WithTimeout(p.base, p.timeout)
	defer cancel()

	result, err := p.analyzer.Analyze(ctx, job.URL)
	if err != nil {
		log.Printf("[WARN] analysis of %s failed: %v", job.URL, err)
		p.fail(job, err)
		return
	}

	// Пока шел анализ пользователь мог выйти или смениться. Чужой стор не трогаем
	if !p.store.Valid(job.Lease) {
		return
	}

	patch := mergePatch(job, result)

	if err := p.articles.UpdateArticle(ctx, job.Lease.Owner, job.ArticleID, patch); err != nil {
		log.Printf("[WARN] saving analysis of article %d failed: %v", job.ArticleID, err)
		p.fail(job, err)
		return
	}

	// Статью могли успеть убрать в корзину, тогда в сторе менять нечего
	if _, ok := p.store.UpdateArticle(job.Lease, job.ArticleID, patch.Apply); !ok {
		return
	}

	p.notifier.Notify(p.base, model.Notice{Severity: model.SeverityOK, Message: "AI analysis complete"})
}

func (p *Pipeline) fail(job Job, err error) {
	if !p.store.Valid(job.Lease) {
		return
	}

	if errors.Is(err, model.ErrSessionExpired) {
		p.notifier.Notify(p.base, model.Notice{Severity: model.SeverityErr, Message: "Session expired"})
	}

	p.notifier.Notify(p.base, model.Notice{
		Severity: model.SeverityInfo,
		Message:  "AI analysis failed, but the link is saved",
	})
}

// Собираем обновление из результата анализа
func mergePatch(job Job, result model.Analysis) model.ArticlePatch {
	title := strings.TrimSpace(job.ManualTitle)
	if title == "" {
		title = strings.TrimSpace(result.Title)
	}
	title = model.FallbackTitle(title, job.URL)

	category := job.Category
	if result.Category != "" {
		category = model.ParseCategory(result.Category)
	}

	summary := result.Summary
	keywords := result.Keywords
	if keywords == nil {
		keywords = []string{}
	}

	return model.ArticlePatch{
		Title:    &title,
		Summary:  &summary,
		Keywords: &keywords,
		Category: &category,
	}
}
