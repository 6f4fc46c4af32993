// Package preview подтягивает заголовок страницы, пока пользователь вводит URL.
//
// Каждый ввод откладывает запрос на delay и отменяет предыдущий таймер и
// предыдущий запрос в полете. Результат применяется только если он все еще
// относится к последнему введенному URL и заголовок не редактировали руками.
package preview

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/kovalyov-valentin/linkshelf/internal/draft"
	"github.com/kovalyov-valentin/linkshelf/internal/model"
)

// Задержка по умолчанию между последним вводом и запросом
const DefaultDelay = 600 * time.Millisecond

type Previewer interface {
	Preview(ctx context.Context, url string) (model.Preview, error)
}

type Notifier interface {
	Notify(ctx context.Context, notice model.Notice)
}

type Coordinator struct {
	previewer Previewer
	draft     *draft.Draft
	delay     time.Duration
	notifier  Notifier
	// Контекст жизни клиента, от него порождаются запросы
	base context.Context
	// Вызывается, когда заголовок из превью попал в форму
	onTitle func(title string)

	mu sync.Mutex
	// Номер самого свежего ввода. Все, что запущено с другим номером, устарело
	seq    uint64
	timer  *time.Timer
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewCoordinator(
	ctx context.Context,
	previewer Previewer,
	d *draft.Draft,
	delay time.Duration,
	notifier Notifier,
	onTitle func(title string),
) *Coordinator {
	if delay <= 0 {
		delay = DefaultDelay
	}

	return &Coordinator{
		previewer: previewer,
		draft:     d,
		delay:     delay,
		notifier:  notifier,
		base:      ctx,
		onTitle:   onTitle,
	}
}

// Input обрабатывает очередное изменение поля URL
func (c *Coordinator) Input(raw string) {
	url := strings.TrimSpace(raw)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked()

	if url == "" || c.draft.TitleEdited() {
		return
	}

	// Некорректный URL молча игнорируем
	if _, err := model.ParseURL(url); err != nil {
		return
	}

	seq := c.seq
	c.timer = time.AfterFunc(c.delay, func() {
		c.fire(seq, url)
	})
}

// Cancel останавливает и таймер, и запрос в полете. Безопасно звать когда ничего не запущено
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked()
}

func (c *Coordinator) cancelLocked() {
	c.seq++

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Wait дожидается завершения запросов, которые уже ушли в сеть
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) fire(seq uint64, url string) {
	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(c.base)
	c.timer = nil
	c.cancel = cancel
	c.wg.Add(1)
	c.mu.Unlock()

	defer c.wg.Done()
	defer cancel()

	preview, err := c.previewer.Preview(ctx, url)

	c.mu.Lock()
	fresh := seq == c.seq
	if fresh {
		c.cancel = nil
	}

	// Применяем под тем же локом, чтобы Cancel не проскочил между проверкой и записью
	applied := false
	if err == nil && fresh && preview.Title != "" {
		applied = c.draft.SuggestTitle(preview.Title)
	}
	c.mu.Unlock()

	if err != nil {
		// Отмена это не ошибка: запрос просто вытеснили более свежим вводом
		if errors.Is(err, context.Canceled) || !fresh {
			return
		}

		// Протухшую сессию пользователь должен увидеть, остальные ошибки превью не важны
		if errors.Is(err, model.ErrSessionExpired) {
			c.notifier.Notify(c.base, model.Notice{Severity: model.SeverityErr, Message: "Session expired"})
			return
		}

		log.Printf("[WARN] preview for %s failed: %v", url, err)
		return
	}

	if applied && c.onTitle != nil {
		c.onTitle(preview.Title)
	}
}
