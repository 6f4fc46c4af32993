// Package importer сохраняет ссылки из RSS ленты так же, как если бы их добавили руками.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/samber/lo"
	"github.com/tomakado/containers/set"

	"github.com/kovalyov-valentin/linkshelf/internal/draft"
	"github.com/kovalyov-valentin/linkshelf/internal/model"
	"github.com/kovalyov-valentin/linkshelf/internal/store"
)

// Source - лента, из которой берутся элементы (RSS)
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]model.Item, error)
}

// Saver создает статью и запускает ее анализ
type Saver interface {
	AddImported(ctx context.Context, lease store.Lease, values draft.Values) (model.Article, error)
}

// Records - стор клиента: уже сохраненные статьи (чтобы не сохранять дубли)
// и право записи, под которым идет весь импорт
type Records interface {
	Articles() []model.Article
	Trash() []model.Article
	Lease() store.Lease
	Valid(l store.Lease) bool
}

type Result struct {
	Imported int
	// Уже сохранены (или лежат в корзине)
	Duplicates int
	// Отброшены фильтром по ключевым словам
	Filtered int
	Failed   int
}

type Importer struct {
	saver   Saver
	records Records
	// Статьи с этими словами в заголовке или категориях пропускаем
	filterKeywords []string
}

func New(saver Saver, records Records, filterKeywords []string) *Importer {
	return &Importer{
		saver:   saver,
		records: records,
		filterKeywords: lo.Map(filterKeywords, func(k string, _ int) string {
			return strings.ToLower(strings.TrimSpace(k))
		}),
	}
}

// Import загружает ленту и сохраняет новые элементы в порядке ленты.
// Все элементы пишутся тому, кто запустил импорт. Вышел или сменился пользователь - импорт останавливается
func (i *Importer) Import(ctx context.Context, src Source) (Result, error) {
	lease := i.records.Lease()
	if lease.Owner == "" {
		return Result{}, model.ErrNotSignedIn
	}

	items, err := src.Fetch(ctx)
	if err != nil {
		return Result{}, err
	}

	if !i.records.Valid(lease) {
		return Result{}, model.ErrNotSignedIn
	}

	seen := set.New(lo.Map(append(i.records.Articles(), i.records.Trash()...), func(a model.Article, _ int) string {
		return a.URL
	})...)

	// Повторы внутри самой ленты тоже дубли
	unique := lo.UniqBy(items, func(item model.Item) string { return strings.TrimSpace(item.Link) })
	result := Result{Duplicates: len(items) - len(unique)}

	for _, item := range unique {
		link := strings.TrimSpace(item.Link)

		if i.itemShouldBeSkipped(item) {
			result.Filtered++
			continue
		}

		if link == "" || seen.Contains(link) {
			result.Duplicates++
			continue
		}

		if !i.records.Valid(lease) {
			return result, model.ErrNotSignedIn
		}

		_, err := i.saver.AddImported(ctx, lease, draft.Values{
			URL:   link,
			Title: strings.TrimSpace(item.Title),
			Tags:  []string{},
		})
		if errors.Is(err, model.ErrNotSignedIn) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return result, err
		}
		if err != nil {
			log.Printf("[WARN] import of %s from %s failed: %v", link, src.Name(), err)
			result.Failed++
			continue
		}

		result.Imported++
	}

	log.Printf("imported %d items from %s (duplicates: %d, filtered: %d, failed: %d)",
		result.Imported, src.Name(), result.Duplicates, result.Filtered, result.Failed)

	return result, nil
}

// Проходимся по категориям и заголовку: есть ли там слово из фильтра
func (i *Importer) itemShouldBeSkipped(item model.Item) bool {
	categories := set.New(lo.Map(item.Categories, func(c string, _ int) string {
		return strings.ToLower(c)
	})...)
	title := strings.ToLower(item.Title)

	for _, keyword := range i.filterKeywords {
		if keyword == "" {
			continue
		}

		if categories.Contains(keyword) || strings.Contains(title, keyword) {
			return true
		}
	}

	return false
}

func (r Result) String() string {
	return fmt.Sprintf("imported %d, already saved %d, filtered %d, failed %d", r.Imported, r.Duplicates, r.Filtered, r.Failed)
}
