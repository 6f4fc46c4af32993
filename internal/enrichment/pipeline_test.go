package enrichment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kovalyov-valentin/linkshelf/internal/model"
	"github.com/kovalyov-valentin/linkshelf/internal/store"
)

type fakeAnalyzer struct {
	result model.Analysis
	err    error
	// Если задан, анализ ждет этот канал или отмену контекста
	release chan struct{}
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, url string) (model.Analysis, error) {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return model.Analysis{}, ctx.Err()
		}
	}

	return f.result, f.err
}

type fakeUpdater struct {
	mu      sync.Mutex
	patches map[int64]model.ArticlePatch
	err     error
}

func (f *fakeUpdater) UpdateArticle(ctx context.Context, userID string, id int64, patch model.ArticlePatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	if f.patches == nil {
		f.patches = make(map[int64]model.ArticlePatch)
	}
	f.patches[id] = patch

	return nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []model.Notice
}

func (n *recordingNotifier) Notify(ctx context.Context, notice model.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.notices = append(n.notices, notice)
}

func (n *recordingNotifier) Severities() []model.Severity {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]model.Severity, 0, len(n.notices))
	for _, x := range n.notices {
		out = append(out, x.Severity)
	}
	return out
}

func setup(t *testing.T, analyzer Analyzer, updater *fakeUpdater, timeout time.Duration) (*Pipeline, *store.Store, *recordingNotifier, store.Lease) {
	t.Helper()

	st := store.New()
	lease := st.Claim("u1")
	require.True(t, st.PrependArticle(lease, model.Article{
		ID:       1,
		URL:      "https://news.site/article",
		Title:    "news.site",
		Category: model.CategoryTech,
	}))

	n := &recordingNotifier{}
	p := New(context.Background(), analyzer, updater, st, n, timeout)

	return p, st, n, lease
}

func TestPipeline_MergesResult(t *testing.T) {
	analyzer := &fakeAnalyzer{result: model.Analysis{
		Title:    "Real headline",
		Summary:  "Short summary.",
		Keywords: []string{"a", "b", "a"},
		Category: "science",
	}}
	updater := &fakeUpdater{}
	p, st, n, lease := setup(t, analyzer, updater, time.Second)

	p.Enqueue(Job{Lease: lease, ArticleID: 1, URL: "https://news.site/article", Category: model.CategoryTech})
	p.Wait()

	a, ok := st.Article(1)
	require.True(t, ok)
	assert.Equal(t, "Real headline", a.Title)
	assert.Equal(t, "Short summary.", a.Summary)
	assert.Equal(t, []string{"a", "b", "a"}, a.Keywords)
	assert.Equal(t, model.CategoryScience, a.Category)

	require.Contains(t, updater.patches, int64(1))
	assert.Equal(t, "Real headline", *updater.patches[1].Title)
	assert.Equal(t, []model.Severity{model.SeverityOK}, n.Severities())
}

func TestPipeline_ManualTitleWins(t *testing.T) {
	analyzer := &fakeAnalyzer{result: model.Analysis{Title: "AI title"}}
	p, st, _, lease := setup(t, analyzer, &fakeUpdater{}, time.Second)

	p.Enqueue(Job{Lease: lease, ArticleID: 1, URL: "https://news.site/article", ManualTitle: "Mine", Category: model.CategoryDesign})
	p.Wait()

	a, _ := st.Article(1)
	assert.Equal(t, "Mine", a.Title)
	assert.Equal(t, model.CategoryDesign, a.Category, "no category in result keeps the chosen one")
}

func TestPipeline_FailureKeepsArticle(t *testing.T) {
	analyzer := &fakeAnalyzer{err: errors.New("worker down")}
	updater := &fakeUpdater{}
	p, st, n, lease := setup(t, analyzer, updater, time.Second)

	p.Enqueue(Job{Lease: lease, ArticleID: 1, URL: "https://news.site/article"})
	p.Wait()

	a, ok := st.Article(1)
	require.True(t, ok)
	assert.Equal(t, "news.site", a.Title)
	assert.Empty(t, updater.patches)
	assert.Equal(t, []model.Severity{model.SeverityInfo}, n.Severities())
}

func TestPipeline_Timeout(t *testing.T) {
	analyzer := &fakeAnalyzer{release: make(chan struct{})}
	defer close(analyzer.release)
	p, st, n, lease := setup(t, analyzer, &fakeUpdater{}, 20*time.Millisecond)

	start := time.Now()
	p.Enqueue(Job{Lease: lease, ArticleID: 1, URL: "https://news.site/article"})
	p.Wait()

	assert.Less(t, time.Since(start), time.Second)
	_, ok := st.Article(1)
	assert.True(t, ok)
	assert.Equal(t, []model.Severity{model.SeverityInfo}, n.Severities())
}

func TestPipeline_SessionExpired(t *testing.T) {
	analyzer := &fakeAnalyzer{err: model.ErrSessionExpired}
	p, _, n, lease := setup(t, analyzer, &fakeUpdater{}, time.Second)

	p.Enqueue(Job{Lease: lease, ArticleID: 1, URL: "https://news.site/article"})
	p.Wait()

	assert.Equal(t, []model.Severity{model.SeverityErr, model.SeverityInfo}, n.Severities())
}

func TestPipeline_StaleResultIsDiscarded(t *testing.T) {
	analyzer := &fakeAnalyzer{release: make(chan struct{}), result: model.Analysis{Title: "late"}}
	updater := &fakeUpdater{}
	p, st, n, lease := setup(t, analyzer, updater, time.Second)

	p.Enqueue(Job{Lease: lease, ArticleID: 1, URL: "https://news.site/article"})

	// пользователь вышел, пока шел анализ
	st.Clear()
	close(analyzer.release)
	p.Wait()

	assert.True(t, st.Empty())
	assert.Empty(t, updater.patches)
	assert.Empty(t, n.Severities())
}

func TestPipeline_PersistFailure(t *testing.T) {
	analyzer := &fakeAnalyzer{result: model.Analysis{Title: "x"}}
	p, st, n, lease := setup(t, analyzer, &fakeUpdater{err: errors.New("db down")}, time.Second)

	p.Enqueue(Job{Lease: lease, ArticleID: 1, URL: "https://news.site/article"})
	p.Wait()

	a, _ := st.Article(1)
	assert.Equal(t, "news.site", a.Title)
	assert.Equal(t, []model.Severity{model.SeverityInfo}, n.Severities())
}
