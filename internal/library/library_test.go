package library

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kovalyov-valentin/linkshelf/internal/draft"
	"github.com/kovalyov-valentin/linkshelf/internal/enrichment"
	"github.com/kovalyov-valentin/linkshelf/internal/model"
	"github.com/kovalyov-valentin/linkshelf/internal/store"
)

type fakeGateway struct {
	mu sync.Mutex

	nextID    int64
	inserted  []model.Article
	patches   map[int64][]model.ArticlePatch
	insertErr error
	updateErr error
	// Вызывается внутри InsertArticle, чтобы проверить состояние во время сохранения
	onInsert func()

	collections []model.Collection
	deletedCols []int64
	colErr      error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{nextID: 100, patches: map[int64][]model.ArticlePatch{}}
}

func (f *fakeGateway) InsertArticle(ctx context.Context, a model.Article) (int64, error) {
	if f.onInsert != nil {
		f.onInsert()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.insertErr != nil {
		return 0, f.insertErr
	}

	f.nextID++
	f.inserted = append(f.inserted, a)

	return f.nextID, nil
}

func (f *fakeGateway) UpdateArticle(ctx context.Context, userID string, id int64, patch model.ArticlePatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateErr != nil {
		return f.updateErr
	}

	f.patches[id] = append(f.patches[id], patch)

	return nil
}

func (f *fakeGateway) InsertCollection(ctx context.Context, c model.Collection) (int64, error) {
	if f.colErr != nil {
		return 0, f.colErr
	}

	f.nextID++
	f.collections = append(f.collections, c)

	return f.nextID, nil
}

func (f *fakeGateway) UpdateCollection(ctx context.Context, c model.Collection) error {
	return f.colErr
}

func (f *fakeGateway) DeleteCollection(ctx context.Context, userID string, id int64) error {
	if f.colErr != nil {
		return f.colErr
	}

	f.deletedCols = append(f.deletedCols, id)

	return nil
}

type fakeEnricher struct {
	jobs []enrichment.Job
}

func (f *fakeEnricher) Enqueue(job enrichment.Job) {
	f.jobs = append(f.jobs, job)
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []model.Notice
}

func (r *recordingNotifier) Notify(ctx context.Context, n model.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.notices = append(r.notices, n)
}

func (r *recordingNotifier) last() model.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.notices) == 0 {
		return model.Notice{}
	}
	return r.notices[len(r.notices)-1]
}

type countingCanceler struct{ calls int }

func (c *countingCanceler) Cancel() { c.calls++ }

type answer bool

func (a answer) Confirm(context.Context, string) bool { return bool(a) }

type env struct {
	lib       *Library
	store     *store.Store
	gw        *fakeGateway
	enricher  *fakeEnricher
	notifier  *recordingNotifier
	preview   *countingCanceler
	indicator *BusyIndicator
}

func setup(t *testing.T) *env {
	t.Helper()

	st := store.New()
	l := st.Claim("u1")
	require.True(t, st.ReplaceAll(l,
		[]model.Article{
			{ID: 1, URL: "https://a.com", Title: "A", Status: model.StatusUnread, Tags: []string{"go"}, Collections: []int64{10}},
			{ID: 2, URL: "https://b.com", Title: "B", Status: model.StatusRead},
		},
		[]model.Collection{{ID: 10, Name: "Reading", Color: model.Palette[0]}},
	))

	e := &env{
		store:     st,
		gw:        newFakeGateway(),
		enricher:  &fakeEnricher{},
		notifier:  &recordingNotifier{},
		preview:   &countingCanceler{},
		indicator: &BusyIndicator{},
	}
	e.lib = New(e.gw, e.gw, st, e.enricher, e.notifier, e.preview, e.indicator)

	return e
}

func filledDraft(url, title string) *draft.Draft {
	d := draft.New()
	d.SetURL(url)
	if title != "" {
		d.EditTitle(title)
	}
	d.AddTag("#news")

	return d
}

func TestCreateArticle(t *testing.T) {
	e := setup(t)
	d := filledDraft("https://www.example.com/post", "")

	a, err := e.lib.CreateArticle(context.Background(), d)
	require.NoError(t, err)

	assert.Equal(t, int64(101), a.ID)
	assert.Equal(t, "example.com", a.Title)
	assert.Equal(t, "example.com", a.Source)
	assert.Equal(t, []string{"news"}, a.Tags)
	assert.Equal(t, []string{}, a.Keywords)
	assert.Equal(t, "u1", a.UserID)
	assert.Len(t, a.Date, len("2006-01-02"))

	list := e.store.Articles()
	require.Len(t, list, 3)
	assert.Equal(t, a.ID, list[0].ID, "new article goes first")

	assert.Equal(t, 1, e.preview.calls)
	assert.False(t, e.lib.Saving())
	assert.False(t, e.indicator.Busy())
	assert.Equal(t, "", d.Values().URL, "draft is reset")

	require.Len(t, e.enricher.jobs, 1)
	assert.Equal(t, a.ID, e.enricher.jobs[0].ArticleID)
	assert.Equal(t, "", e.enricher.jobs[0].ManualTitle)
	assert.Equal(t, model.SeverityOK, e.notifier.last().Severity)
}

func TestCreateArticle_ManualTitleGoesToJob(t *testing.T) {
	e := setup(t)

	a, err := e.lib.CreateArticle(context.Background(), filledDraft("https://example.com", "Mine"))
	require.NoError(t, err)

	assert.Equal(t, "Mine", a.Title)
	require.Len(t, e.enricher.jobs, 1)
	assert.Equal(t, "Mine", e.enricher.jobs[0].ManualTitle)
}

func TestCreateArticle_Validation(t *testing.T) {
	e := setup(t)

	_, err := e.lib.CreateArticle(context.Background(), filledDraft("", ""))
	assert.ErrorIs(t, err, model.ErrEmptyURL)

	_, err = e.lib.CreateArticle(context.Background(), filledDraft("not a url", ""))
	assert.ErrorIs(t, err, model.ErrInvalidURL)

	assert.Empty(t, e.gw.inserted)
	assert.False(t, e.lib.Saving())
	assert.Equal(t, model.SeverityErr, e.notifier.last().Severity)
}

func TestCreateArticle_NotSignedIn(t *testing.T) {
	e := setup(t)
	e.store.Clear()

	_, err := e.lib.CreateArticle(context.Background(), filledDraft("https://example.com", ""))

	assert.ErrorIs(t, err, model.ErrNotSignedIn)
	assert.Empty(t, e.gw.inserted)
}

func TestCreateArticle_FailureLeavesStoreAndReleasesGuard(t *testing.T) {
	e := setup(t)
	e.gw.insertErr = errors.New("boom")
	d := filledDraft("https://example.com", "")

	_, err := e.lib.CreateArticle(context.Background(), d)

	assert.Error(t, err)
	assert.Len(t, e.store.Articles(), 2)
	assert.False(t, e.lib.Saving())
	assert.False(t, e.indicator.Busy())
	assert.Empty(t, e.enricher.jobs)
	assert.Equal(t, "https://example.com", d.Values().URL, "draft is kept for retry")
	assert.Equal(t, model.SeverityErr, e.notifier.last().Severity)
	assert.Contains(t, e.notifier.last().Message, "boom")
}

func TestCreateArticle_RejectsReentry(t *testing.T) {
	e := setup(t)

	var inner error
	e.gw.onInsert = func() {
		e.gw.onInsert = nil
		_, inner = e.lib.CreateArticle(context.Background(), filledDraft("https://other.com", ""))
	}

	_, err := e.lib.CreateArticle(context.Background(), filledDraft("https://example.com", ""))

	require.NoError(t, err)
	assert.ErrorIs(t, inner, model.ErrSaveInFlight)
	assert.Len(t, e.gw.inserted, 1)
}

func TestCreateArticle_SignedOutDuringSave(t *testing.T) {
	e := setup(t)
	e.gw.onInsert = func() { e.store.Clear() }

	_, err := e.lib.CreateArticle(context.Background(), filledDraft("https://example.com", ""))

	assert.ErrorIs(t, err, model.ErrNotSignedIn)
	assert.True(t, e.store.Empty())
	assert.Empty(t, e.enricher.jobs)
	assert.False(t, e.lib.Saving())
}

func TestSaveGuard_StaleFlagIsHealed(t *testing.T) {
	indicator := &BusyIndicator{}
	g := newSaveGuard(indicator)

	require.True(t, g.enter())
	// Индикатор погас, а флаг остался
	indicator.SetBusy(false)

	assert.True(t, g.enter())
	assert.True(t, indicator.Busy())

	g.leave()
	assert.False(t, g.Saving())
	assert.False(t, indicator.Busy())
}

func TestSaveGuard_GenuineInFlight(t *testing.T) {
	g := newSaveGuard(nil)

	require.True(t, g.enter())
	assert.False(t, g.enter())
	assert.True(t, g.Saving())

	g.leave()
	assert.True(t, g.enter())
}

func TestOpenArticle_MarksRead(t *testing.T) {
	e := setup(t)

	a, err := e.lib.OpenArticle(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRead, a.Status)
	require.Len(t, e.gw.patches[1], 1)

	_, err = e.lib.OpenArticle(context.Background(), 2)
	require.NoError(t, err)
	assert.Empty(t, e.gw.patches[2], "already read")
}

func TestToggleStar(t *testing.T) {
	e := setup(t)

	a, err := e.lib.ToggleStar(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, a.Starred)

	a, err = e.lib.ToggleStar(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, a.Starred)
}

func TestUpdate_RemoteFailureKeepsLocalChange(t *testing.T) {
	e := setup(t)
	e.gw.updateErr = errors.New("offline")

	_, err := e.lib.SetRating(context.Background(), 2, 4)
	assert.Error(t, err)

	a, _ := e.store.Article(2)
	assert.Equal(t, 4, a.Rating)
	assert.Equal(t, model.SeverityErr, e.notifier.last().Severity)
}

func TestSetRating_Range(t *testing.T) {
	e := setup(t)

	_, err := e.lib.SetRating(context.Background(), 2, 6)
	assert.ErrorIs(t, err, model.ErrInvalidRating)

	_, err = e.lib.SetRating(context.Background(), 2, -1)
	assert.ErrorIs(t, err, model.ErrInvalidRating)

	_, err = e.lib.SetRating(context.Background(), 99, 3)
	assert.ErrorIs(t, err, model.ErrArticleNotFound)
}

func TestSetStatus(t *testing.T) {
	e := setup(t)

	a, err := e.lib.SetStatus(context.Background(), 1, "read")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRead, a.Status)

	_, err = e.lib.SetStatus(context.Background(), 1, "finished")
	assert.ErrorIs(t, err, model.ErrInvalidStatus)
}

func TestTags(t *testing.T) {
	e := setup(t)

	a, err := e.lib.AddTag(context.Background(), 1, " #Rust ")
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "Rust"}, a.Tags)

	_, err = e.lib.AddTag(context.Background(), 1, "go")
	require.NoError(t, err)
	assert.Len(t, e.gw.patches[1], 1, "duplicate tag is not persisted")

	a, err = e.lib.RemoveTag(context.Background(), 1, "go")
	require.NoError(t, err)
	assert.Equal(t, []string{"Rust"}, a.Tags)
}

func TestToggleCollection(t *testing.T) {
	e := setup(t)

	a, err := e.lib.ToggleCollection(context.Background(), 2, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{10}, a.Collections)

	a, err = e.lib.ToggleCollection(context.Background(), 2, 10)
	require.NoError(t, err)
	assert.Empty(t, a.Collections)

	_, err = e.lib.ToggleCollection(context.Background(), 2, 404)
	assert.ErrorIs(t, err, model.ErrCollectionNotFound)
}

func TestSaveCollection(t *testing.T) {
	e := setup(t)

	_, err := e.lib.SaveCollection(context.Background(), 0, "  ", "")
	assert.ErrorIs(t, err, model.ErrEmptyName)

	c, err := e.lib.SaveCollection(context.Background(), 0, "Later", "#nope")
	require.NoError(t, err)
	assert.NotZero(t, c.ID)
	assert.Equal(t, model.Palette[0], c.Color)
	assert.Len(t, e.store.Collections(), 2)

	c, err = e.lib.SaveCollection(context.Background(), c.ID, "Much later", model.Palette[2])
	require.NoError(t, err)

	stored, ok := e.store.Collection(c.ID)
	require.True(t, ok)
	assert.Equal(t, "Much later", stored.Name)
	assert.Equal(t, model.Palette[2], stored.Color)
}

func TestDeleteCollection(t *testing.T) {
	e := setup(t)

	err := e.lib.DeleteCollection(context.Background(), 10, answer(false))
	assert.ErrorIs(t, err, model.ErrNotConfirmed)
	assert.Len(t, e.store.Collections(), 1)

	require.NoError(t, e.lib.DeleteCollection(context.Background(), 10, answer(true)))

	assert.Empty(t, e.store.Collections())
	assert.Equal(t, []int64{10}, e.gw.deletedCols)

	a, _ := e.store.Article(1)
	assert.Empty(t, a.Collections)
	require.Len(t, e.gw.patches[1], 1, "membership change is persisted")
	assert.Empty(t, *e.gw.patches[1][0].Collections)
	assert.Len(t, e.store.Articles(), 2, "articles survive")
}

func TestAddImported(t *testing.T) {
	e := setup(t)

	lease := e.store.Lease()
	a, err := e.lib.AddImported(context.Background(), lease, draft.Values{URL: "https://feed.io/post", Title: "From feed"})
	require.NoError(t, err)

	assert.Equal(t, "From feed", a.Title)
	assert.Equal(t, model.DefaultCategory, a.Category)
	assert.Equal(t, model.StatusUnread, a.Status)
	assert.Equal(t, a.ID, e.store.Articles()[0].ID)
	require.Len(t, e.enricher.jobs, 1)
	assert.Equal(t, "From feed", e.enricher.jobs[0].ManualTitle)
	assert.Equal(t, 0, e.preview.calls, "import does not touch the form")
	assert.Empty(t, e.notifier.notices)

	_, err = e.lib.AddImported(context.Background(), lease, draft.Values{URL: "nope"})
	assert.ErrorIs(t, err, model.ErrInvalidURL)
}

func TestAddImported_StaleLease(t *testing.T) {
	e := setup(t)
	lease := e.store.Lease()

	e.store.Clear()
	e.store.Claim("u2")

	_, err := e.lib.AddImported(context.Background(), lease, draft.Values{URL: "https://feed.io/post"})
	assert.ErrorIs(t, err, model.ErrNotSignedIn)
	assert.Empty(t, e.gw.inserted, "nothing is written for the new user")
	assert.Empty(t, e.store.Articles())
}
