package source

import (
	"context"
	"fmt"

	"github.com/SlyMarbo/rss"
	"github.com/samber/lo"

	"github.com/kovalyov-valentin/linkshelf/internal/model"
)

// RSS лента, из которой пользователь импортирует ссылки
type RSSSource struct {
	// URL ленты
	URL string
}

func NewRSSSource(url string) RSSSource {
	return RSSSource{URL: url}
}

// Fetch загружает ленту и отдает ее элементы
func (s RSSSource) Fetch(ctx context.Context) ([]model.Item, error) {
	feed, err := s.loadFeed(ctx, s.URL)
	if err != nil {
		return nil, fmt.Errorf("load feed %s: %w", s.URL, err)
	}

	return lo.Map(feed.Items, func(item *rss.Item, _ int) model.Item {
		return model.Item{
			Title:      item.Title,
			Categories: item.Categories,
			Link:       item.Link,
			Date:       item.Date,
			Summary:    item.Summary,
			SourceName: feed.Title,
		}
	}), nil
}

func (s RSSSource) Name() string {
	return s.URL
}

// Библиотека не умеет в контекст, поэтому ждем ее в отдельной горутине
func (s RSSSource) loadFeed(ctx context.Context, url string) (*rss.Feed, error) {
	// Буфер на одно значение: если мы ушли по контексту, горутина не зависнет на отправке
	var (
		feedCh = make(chan *rss.Feed, 1)
		errCh  = make(chan error, 1)
	)

	go func() {
		feed, err := rss.Fetch(url)
		if err != nil {
			errCh <- err
			return
		}

		feedCh <- feed
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-errCh:
		return nil, err
	case feed := <-feedCh:
		return feed, nil
	}
}
