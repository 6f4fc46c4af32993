// Package client собирает движок одного клиента: стор, форму, превью, сохранение,
// корзину, анализ и сессию. Клиент - это один чат телеграма.
package client

import (
	"context"
	"log"
	"time"

	"github.com/kovalyov-valentin/linkshelf/internal/draft"
	"github.com/kovalyov-valentin/linkshelf/internal/enrichment"
	"github.com/kovalyov-valentin/linkshelf/internal/importer"
	"github.com/kovalyov-valentin/linkshelf/internal/library"
	"github.com/kovalyov-valentin/linkshelf/internal/model"
	"github.com/kovalyov-valentin/linkshelf/internal/notifier"
	"github.com/kovalyov-valentin/linkshelf/internal/preview"
	"github.com/kovalyov-valentin/linkshelf/internal/session"
	"github.com/kovalyov-valentin/linkshelf/internal/store"
	"github.com/kovalyov-valentin/linkshelf/internal/trash"
)

// Gateway - шлюз сохранения статей и коллекций
type Gateway interface {
	InsertArticle(ctx context.Context, article model.Article) (int64, error)
	UpdateArticle(ctx context.Context, userID string, id int64, patch model.ArticlePatch) error
	DeleteArticle(ctx context.Context, userID string, id int64) error
	InsertCollection(ctx context.Context, collection model.Collection) (int64, error)
	UpdateCollection(ctx context.Context, collection model.Collection) error
	DeleteCollection(ctx context.Context, userID string, id int64) error
	LoadAll(ctx context.Context, userID string) (model.Snapshot, error)
}

// SessionStorage хранит сессии чатов
type SessionStorage interface {
	Session(ctx context.Context, chatID int64) (*model.Session, error)
	SignIn(ctx context.Context, chatID int64, userID, email string) (*model.Session, error)
	Refresh(ctx context.Context, chatID int64) (*model.Session, error)
	SignOut(ctx context.Context, chatID int64) error
}

// Authenticator проверяет email и пароль
type Authenticator interface {
	SignUp(ctx context.Context, email, password string) (model.User, error)
	SignIn(ctx context.Context, email, password string) (model.User, error)
}

// Enricher - удаленный сервис превью и анализа
type Enricher interface {
	Preview(ctx context.Context, url string) (model.Preview, error)
	Analyze(ctx context.Context, url string) (model.Analysis, error)
}

type Deps struct {
	Gateway  Gateway
	Sessions SessionStorage
	Auth     Authenticator
	Enricher Enricher
	Bot      notifier.Sender

	PreviewDelay   time.Duration
	AnalyzeTimeout time.Duration
	FilterKeywords []string
}

type Client struct {
	ChatID int64

	Store    *store.Store
	Draft    *draft.Draft
	Preview  *preview.Coordinator
	Library  *library.Library
	Trash    *trash.Controller
	Session  *session.Reconciler
	Importer *importer.Importer
	Notifier *notifier.Notifier

	enrichment *enrichment.Pipeline
	sessions   SessionStorage
	auth       Authenticator
}

func New(ctx context.Context, chatID int64, deps Deps) *Client {
	var (
		st          = store.New()
		d           = draft.New()
		notify      = notifier.New(deps.Bot, chatID)
		pipeline    = enrichment.New(ctx, deps.Enricher, deps.Gateway, st, notify, deps.AnalyzeTimeout)
		coordinator = preview.NewCoordinator(ctx, deps.Enricher, d, deps.PreviewDelay, notify, func(title string) {
			notify.Notify(ctx, model.Notice{Severity: model.SeverityInfo, Message: "Title: " + title})
		})
		lib = library.New(deps.Gateway, deps.Gateway, st, pipeline, notify, coordinator, nil)
	)

	c := &Client{
		ChatID:     chatID,
		Store:      st,
		Draft:      d,
		Preview:    coordinator,
		Library:    lib,
		Trash:      trash.NewController(deps.Gateway, st, notify),
		Importer:   importer.New(lib, st, deps.FilterKeywords),
		Notifier:   notify,
		enrichment: pipeline,
		sessions:   deps.Sessions,
		auth:       deps.Auth,
	}

	c.Session = session.NewReconciler(st, deps.Gateway, chatSource{chatID: chatID, sessions: deps.Sessions}, notify, c.resetForm)

	return c
}

// resetForm вызывается при выходе: форма и превью не должны пережить сессию
func (c *Client) resetForm() {
	c.Preview.Cancel()
	c.Draft.Reset()
}

// SignUp заводит учетную запись. Чат при этом не входит, как и в вебе: после регистрации нужен /login
func (c *Client) SignUp(ctx context.Context, email, password string) error {
	if _, err := c.auth.SignUp(ctx, email, password); err != nil {
		return err
	}

	c.Notifier.Notify(ctx, model.Notice{Severity: model.SeverityOK, Message: "Account created. Sign in with /login <email> <password>"})

	return nil
}

// SignIn проверяет пароль и привязывает чат к пользователю.
// Ошибки ввода и неверный пароль возвращаются как есть, ответ на них формирует бот
func (c *Client) SignIn(ctx context.Context, email, password string) error {
	user, err := c.auth.SignIn(ctx, email, password)
	if err != nil {
		return err
	}

	s, err := c.sessions.SignIn(ctx, c.ChatID, user.ID, user.Email)
	if err != nil {
		c.Notifier.Notify(ctx, model.Notice{Severity: model.SeverityErr, Message: "Sign in failed: " + err.Error()})
		return err
	}

	return c.Session.Handle(ctx, session.Event{Kind: session.EventSignedIn, Session: s})
}

// Refresh продлевает сессию. Протухшая сессия превращается в signed-out.
// Если начальную сессию так и не получили (хранилище сессий было недоступно при старте),
// досылаем ее событием initial-session
func (c *Client) Refresh(ctx context.Context) error {
	if !c.Session.Initialized() {
		s, err := c.sessions.Session(ctx, c.ChatID)
		if err != nil {
			return err
		}

		return c.Session.Handle(ctx, session.Event{Kind: session.EventInitialSession, Session: s})
	}

	if c.Session.Phase() != model.PhaseSignedIn {
		return nil
	}

	s, err := c.sessions.Refresh(ctx, c.ChatID)
	if err != nil {
		return err
	}

	if s == nil {
		c.Notifier.Notify(ctx, model.Notice{Severity: model.SeverityErr, Message: "Session expired"})
		return c.Session.Handle(ctx, session.Event{Kind: session.EventSignedOut})
	}

	return c.Session.Handle(ctx, session.Event{Kind: session.EventTokenRefreshed, Session: s})
}

// Close останавливает превью и дожидается фоновых задач
func (c *Client) Close() {
	c.Preview.Cancel()
	c.Preview.Wait()
	c.enrichment.Wait()
	log.Printf("client %d closed", c.ChatID)
}

// chatSource - провайдер авторизации, привязанный к одному чату
type chatSource struct {
	chatID   int64
	sessions SessionStorage
}

func (s chatSource) Current(ctx context.Context) (*model.Session, error) {
	return s.sessions.Session(ctx, s.chatID)
}

func (s chatSource) SignOut(ctx context.Context) error {
	return s.sessions.SignOut(ctx, s.chatID)
}
