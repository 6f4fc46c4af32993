package trash

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kovalyov-valentin/linkshelf/internal/model"
	"github.com/kovalyov-valentin/linkshelf/internal/store"
)

type fakeArticles struct {
	mu        sync.Mutex
	nextID    int64
	inserted  []model.Article
	deleted   []int64
	insertErr error
	deleteErr error
}

func (f *fakeArticles) InsertArticle(ctx context.Context, a model.Article) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.insertErr != nil {
		return 0, f.insertErr
	}

	f.nextID++
	f.inserted = append(f.inserted, a)

	return 100 + f.nextID, nil
}

func (f *fakeArticles) DeleteArticle(ctx context.Context, userID string, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteErr != nil {
		return f.deleteErr
	}

	f.deleted = append(f.deleted, id)

	return nil
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, model.Notice) {}

type answer bool

func (a answer) Confirm(context.Context, string) bool { return bool(a) }

const (
	yes = answer(true)
	no  = answer(false)
)

func setup(t *testing.T) (*Controller, *store.Store, *fakeArticles) {
	t.Helper()

	st := store.New()
	l := st.Claim("u1")
	require.True(t, st.ReplaceAll(l, []model.Article{
		{ID: 1, URL: "https://a.com", Title: "A", Tags: []string{"x", "y"}, Collections: []int64{5}},
		{ID: 2, URL: "https://b.com", Title: "B"},
		{ID: 3, URL: "https://c.com", Title: "C"},
	}, nil))

	gw := &fakeArticles{}

	return NewController(gw, st, nopNotifier{}), st, gw
}

func activeIDs(st *store.Store) []int64 {
	var out []int64
	for _, a := range st.Articles() {
		out = append(out, a.ID)
	}
	return out
}

func TestMoveToTrash(t *testing.T) {
	c, st, gw := setup(t)

	require.NoError(t, c.MoveToTrash(context.Background(), 2, yes))

	assert.Equal(t, []int64{1, 3}, activeIDs(st))
	trashed, ok := st.TrashedArticle(2)
	require.True(t, ok)
	assert.NotNil(t, trashed.TrashedAt)
	assert.Equal(t, []int64{2}, gw.deleted)
}

func TestMoveToTrash_NotConfirmed(t *testing.T) {
	c, st, gw := setup(t)

	err := c.MoveToTrash(context.Background(), 2, no)

	assert.ErrorIs(t, err, model.ErrNotConfirmed)
	assert.Len(t, st.Articles(), 3)
	assert.Empty(t, gw.deleted)
}

func TestMoveToTrash_RemoteFailureRollsBack(t *testing.T) {
	c, st, gw := setup(t)
	gw.deleteErr = errors.New("network")

	err := c.MoveToTrash(context.Background(), 2, yes)

	assert.Error(t, err)
	assert.Equal(t, []int64{1, 2, 3}, activeIDs(st), "article is back at its position")
	assert.Empty(t, st.Trash())

	a, _ := st.Article(2)
	assert.Nil(t, a.TrashedAt)
}

func TestMoveThenRestore(t *testing.T) {
	c, st, gw := setup(t)

	require.NoError(t, c.MoveToTrash(context.Background(), 1, yes))
	restored, err := c.RestoreFromTrash(context.Background(), 1)
	require.NoError(t, err)

	assert.NotEqual(t, int64(1), restored.ID)
	assert.Equal(t, "https://a.com", restored.URL)
	assert.Equal(t, "A", restored.Title)
	assert.Equal(t, []string{"x", "y"}, restored.Tags)
	assert.Nil(t, restored.TrashedAt)

	assert.Equal(t, []int64{restored.ID, 2, 3}, activeIDs(st))
	assert.Empty(t, st.Trash())

	require.Len(t, gw.inserted, 1)
	assert.Equal(t, int64(0), gw.inserted[0].ID, "restore is a fresh create")
	assert.Equal(t, "u1", gw.inserted[0].UserID)
	assert.Nil(t, gw.inserted[0].TrashedAt)
}

func TestRestore_FailureKeepsArticleInTrash(t *testing.T) {
	c, st, gw := setup(t)
	require.NoError(t, c.MoveToTrash(context.Background(), 1, yes))
	gw.insertErr = errors.New("network")

	_, err := c.RestoreFromTrash(context.Background(), 1)

	assert.Error(t, err)
	_, ok := st.TrashedArticle(1)
	assert.True(t, ok)
	_, ok = st.Article(1)
	assert.False(t, ok)
}

func TestRestore_Unknown(t *testing.T) {
	c, _, _ := setup(t)

	_, err := c.RestoreFromTrash(context.Background(), 42)
	assert.ErrorIs(t, err, model.ErrArticleNotFound)
}

func TestDeleteForever_NoRemoteCall(t *testing.T) {
	c, st, gw := setup(t)
	require.NoError(t, c.MoveToTrash(context.Background(), 3, yes))
	gw.deleted = nil

	require.NoError(t, c.DeleteForever(context.Background(), 3, yes))

	assert.Empty(t, st.Trash())
	assert.Empty(t, gw.deleted)
	assert.Empty(t, gw.inserted)
}

func TestEmptyTrash(t *testing.T) {
	c, st, _ := setup(t)
	require.NoError(t, c.MoveToTrash(context.Background(), 1, yes))
	require.NoError(t, c.MoveToTrash(context.Background(), 2, yes))

	_, err := c.EmptyTrash(context.Background(), no)
	assert.ErrorIs(t, err, model.ErrNotConfirmed)
	assert.Len(t, st.Trash(), 2)

	n, err := c.EmptyTrash(context.Background(), yes)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, st.Trash())
	assert.Equal(t, []int64{3}, activeIDs(st))
}
