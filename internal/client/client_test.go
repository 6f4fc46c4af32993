package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kovalyov-valentin/linkshelf/internal/auth"
	"github.com/kovalyov-valentin/linkshelf/internal/model"
)

type memGateway struct {
	mu       sync.Mutex
	nextID   int64
	articles map[int64]model.Article
	loads    int
}

func newMemGateway() *memGateway {
	return &memGateway{articles: map[int64]model.Article{}}
}

func (g *memGateway) InsertArticle(ctx context.Context, a model.Article) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nextID++
	a.ID = g.nextID
	g.articles[a.ID] = a

	return a.ID, nil
}

func (g *memGateway) UpdateArticle(ctx context.Context, userID string, id int64, patch model.ArticlePatch) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	a, ok := g.articles[id]
	if !ok || a.UserID != userID {
		return nil
	}
	patch.Apply(&a)
	g.articles[id] = a

	return nil
}

func (g *memGateway) DeleteArticle(ctx context.Context, userID string, id int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if a, ok := g.articles[id]; ok && a.UserID == userID {
		delete(g.articles, id)
	}
	return nil
}

func (g *memGateway) InsertCollection(ctx context.Context, c model.Collection) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nextID++
	return g.nextID, nil
}

func (g *memGateway) UpdateCollection(ctx context.Context, c model.Collection) error { return nil }
func (g *memGateway) DeleteCollection(ctx context.Context, userID string, id int64) error {
	return nil
}

func (g *memGateway) LoadAll(ctx context.Context, userID string) (model.Snapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.loads++

	var s model.Snapshot
	for _, a := range g.articles {
		if a.UserID == userID {
			s.Articles = append(s.Articles, a)
		}
	}

	return s, nil
}

func (g *memGateway) loadCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.loads
}

type memSessions struct {
	mu       sync.Mutex
	sessions map[int64]model.Session
	// Ошибка чтения сессии (хранилище недоступно)
	err error
}

func (m *memSessions) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.err = err
}

func (m *memSessions) Session(ctx context.Context, chatID int64) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	s, ok := m.sessions[chatID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memSessions) SignIn(ctx context.Context, chatID int64, userID, email string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := model.Session{UserID: userID, Email: email, ExpiresAt: time.Now().Add(time.Hour)}
	m.sessions[chatID] = s

	return &s, nil
}

func (m *memSessions) Refresh(ctx context.Context, chatID int64) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[chatID]
	if !ok {
		return nil, nil
	}

	s.ExpiresAt = s.ExpiresAt.Add(time.Hour)
	m.sessions[chatID] = s

	return &s, nil
}

func (m *memSessions) SignOut(ctx context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, chatID)
	return nil
}

// Пароли в открытом виде: bcrypt проверяется в пакете auth
type stubAuth struct {
	mu        sync.Mutex
	passwords map[string]string
}

func (s *stubAuth) SignUp(ctx context.Context, email, password string) (model.User, error) {
	email, err := auth.NormalizeEmail(email)
	if err != nil {
		return model.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.passwords[email]; ok {
		return model.User{}, model.ErrEmailTaken
	}
	s.passwords[email] = password

	return model.User{ID: email, Email: email}, nil
}

func (s *stubAuth) SignIn(ctx context.Context, email, password string) (model.User, error) {
	email, err := auth.NormalizeEmail(email)
	if err != nil {
		return model.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.passwords[email]; !ok || p != password {
		return model.User{}, model.ErrInvalidCredentials
	}

	return model.User{ID: email, Email: email}, nil
}

type stubEnricher struct{}

func (stubEnricher) Preview(ctx context.Context, url string) (model.Preview, error) {
	return model.Preview{Title: "Preview title"}, nil
}

func (stubEnricher) Analyze(ctx context.Context, url string) (model.Analysis, error) {
	return model.Analysis{Title: "Analyzed", Summary: "Short.", Keywords: []string{"go"}, Category: "science"}, nil
}

type nopBot struct{}

func (nopBot) Send(tgbotapi.Chattable) (tgbotapi.Message, error) { return tgbotapi.Message{}, nil }

func newRegistry(t *testing.T) (*Registry, *memGateway, *memSessions) {
	t.Helper()

	gw := newMemGateway()
	sessions := &memSessions{sessions: map[int64]model.Session{}}
	users := &stubAuth{passwords: map[string]string{
		"reader@example.com": "secret1",
		"a@example.com":      "secret1",
	}}

	r := NewRegistry(context.Background(), Deps{
		Gateway:        gw,
		Sessions:       sessions,
		Auth:           users,
		Enricher:       stubEnricher{},
		Bot:            nopBot{},
		PreviewDelay:   10 * time.Millisecond,
		AnalyzeTimeout: time.Second,
	}, time.Minute)
	t.Cleanup(r.Close)

	return r, gw, sessions
}

func TestRegistry_BootsExistingSession(t *testing.T) {
	r, gw, sessions := newRegistry(t)
	_, _ = gw.InsertArticle(context.Background(), model.Article{UserID: "a@example.com", URL: "https://a.com"})
	_, _ = sessions.SignIn(context.Background(), 7, "a@example.com", "a@example.com")

	c := r.Get(context.Background(), 7)

	assert.Equal(t, model.PhaseSignedIn, c.Session.Phase())
	assert.Len(t, c.Store.Articles(), 1)

	// Повторный Get не грузит заново
	assert.Same(t, c, r.Get(context.Background(), 7))
	assert.Equal(t, 1, gw.loadCount())
}

func TestClient_SaveFlow(t *testing.T) {
	r, gw, _ := newRegistry(t)
	c := r.Get(context.Background(), 1)
	require.Equal(t, model.PhaseSignedOut, c.Session.Phase())

	require.NoError(t, c.SignIn(context.Background(), "Reader@Example.com", "secret1"))
	assert.Equal(t, "reader@example.com", c.Session.Session().UserID)

	c.Draft.SetURL("https://example.com/post")
	c.Preview.Input("https://example.com/post")
	require.Eventually(t, func() bool { return c.Draft.Title() == "Preview title" }, time.Second, 5*time.Millisecond)

	a, err := c.Library.CreateArticle(context.Background(), c.Draft)
	require.NoError(t, err)
	assert.Equal(t, "Preview title", a.Title)

	c.enrichment.Wait()

	stored, ok := c.Store.Article(a.ID)
	require.True(t, ok)
	// Заголовок из формы (в том числе подставленный превью) анализ не перетирает
	assert.Equal(t, "Preview title", stored.Title)
	assert.Equal(t, model.CategoryScience, stored.Category)
	assert.Equal(t, "Short.", gw.articles[a.ID].Summary)
}

func TestClient_RefreshExpiredSignsOut(t *testing.T) {
	r, _, sessions := newRegistry(t)
	c := r.Get(context.Background(), 3)
	require.NoError(t, c.SignIn(context.Background(), "a@example.com", "secret1"))

	r.RefreshAll(context.Background())
	assert.Equal(t, model.PhaseSignedIn, c.Session.Phase())

	require.NoError(t, sessions.SignOut(context.Background(), 3))
	r.RefreshAll(context.Background())

	assert.Equal(t, model.PhaseSignedOut, c.Session.Phase())
	assert.True(t, c.Store.Empty())
}

func TestClient_InvalidEmail(t *testing.T) {
	r, _, _ := newRegistry(t)
	c := r.Get(context.Background(), 4)

	assert.ErrorIs(t, c.SignIn(context.Background(), "not an email", "secret1"), model.ErrInvalidEmail)
	assert.Equal(t, model.PhaseSignedOut, c.Session.Phase())
}

func TestClient_WrongPasswordDoesNotSignIn(t *testing.T) {
	r, gw, sessions := newRegistry(t)
	_, _ = gw.InsertArticle(context.Background(), model.Article{UserID: "a@example.com", URL: "https://a.com"})
	c := r.Get(context.Background(), 5)

	err := c.SignIn(context.Background(), "a@example.com", "guess")

	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
	assert.Equal(t, model.PhaseSignedOut, c.Session.Phase())
	assert.True(t, c.Store.Empty())
	assert.Empty(t, sessions.sessions, "no session is stored")
}

func TestClient_SignUpThenSignIn(t *testing.T) {
	r, _, _ := newRegistry(t)
	c := r.Get(context.Background(), 6)

	require.NoError(t, c.SignUp(context.Background(), "new@example.com", "secret9"))
	assert.Equal(t, model.PhaseSignedOut, c.Session.Phase(), "sign up does not sign in")

	assert.ErrorIs(t, c.SignUp(context.Background(), "new@example.com", "other12"), model.ErrEmailTaken)

	require.NoError(t, c.SignIn(context.Background(), "new@example.com", "secret9"))
	assert.Equal(t, model.PhaseSignedIn, c.Session.Phase())
}

func TestClient_RefreshDeliversMissedInitialSession(t *testing.T) {
	r, gw, sessions := newRegistry(t)
	_, _ = gw.InsertArticle(context.Background(), model.Article{UserID: "a@example.com", URL: "https://a.com"})
	_, _ = sessions.SignIn(context.Background(), 8, "a@example.com", "a@example.com")
	sessions.setErr(errors.New("db down"))

	c := r.Get(context.Background(), 8)
	require.Equal(t, model.PhaseSignedOut, c.Session.Phase())
	require.False(t, c.Session.Initialized())

	sessions.setErr(nil)
	r.RefreshAll(context.Background())

	assert.True(t, c.Session.Initialized())
	assert.Equal(t, model.PhaseSignedIn, c.Session.Phase())
	assert.Len(t, c.Store.Articles(), 1)
}
