package botkit

import (
	"context"
	"errors"
	"log"
	"runtime/debug"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kovalyov-valentin/linkshelf/internal/model"
)

type Bot struct {
	api *tgbotapi.BotAPI
	// view по имени команды
	cmdViews map[string]ViewFunc
	// Сколько даем на обработку одного апдейта
	timeout time.Duration
}

// ViewFunc реагирует на одну команду
type ViewFunc func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error

func New(api *tgbotapi.BotAPI, timeout time.Duration) *Bot {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Bot{
		api:     api,
		timeout: timeout,
	}
}

// RegisterCmdView регистрирует view для команды
func (b *Bot) RegisterCmdView(cmd string, view ViewFunc) {
	if b.cmdViews == nil {
		b.cmdViews = make(map[string]ViewFunc)
	}

	b.cmdViews[cmd] = view
}

func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case update := <-updates:
			updateCtx, updateCancel := context.WithTimeout(ctx, b.timeout)
			b.handleUpdate(updateCtx, update)
			updateCancel()
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		}
	}
}

// handleUpdate роутит команду на ее view
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	// Паника во view не должна ронять бота
	defer func() {
		if p := recover(); p != nil {
			log.Printf("[ERROR] panic recovered: %v\n%s", p, string(debug.Stack()))
		}
	}()

	if update.Message == nil || !update.Message.IsCommand() {
		return
	}

	view, ok := b.cmdViews[update.Message.Command()]
	if !ok {
		return
	}

	err := view(ctx, b.api, update)
	if err == nil {
		return
	}

	text, known := ErrorText(err)
	if !known {
		log.Printf("[ERROR] failed to handle update: %v", err)
	}
	if text == "" {
		return
	}

	if _, err := b.api.Send(tgbotapi.NewMessage(update.Message.Chat.ID, text)); err != nil {
		log.Printf("[ERROR] failed to send message: %v", err)
	}
}

// ErrorText переводит ошибку view в ответ пользователю. known - ошибка ожидаемая и в лог не идет.
// Пустой текст значит, что пользователь уже получил уведомление
func ErrorText(err error) (text string, known bool) {
	switch {
	case errors.Is(err, model.ErrNotConfirmed):
		return "", true
	case errors.Is(err, model.ErrNotSignedIn):
		return "Sign in first: /login <email> <password>", true
	case errors.Is(err, model.ErrSaveInFlight):
		return "Still saving the previous link, please wait", true
	case errors.Is(err, model.ErrInvalidCredentials):
		return "Invalid email or password", true
	case errors.Is(err, model.ErrEmailTaken):
		return "This email is already registered. Sign in with /login", true
	case errors.Is(err, model.ErrArticleNotFound):
		return "No such article", true
	case errors.Is(err, model.ErrCollectionNotFound):
		return "No such collection", true
	case model.IsValidation(err):
		return err.Error(), true
	case errors.Is(err, context.DeadlineExceeded):
		return "Request timed out, try again", false
	}

	var usage *UsageError
	if errors.As(err, &usage) {
		return usage.Error(), true
	}

	return "internal error", false
}

// UsageError - команду вызвали с неправильными аргументами
type UsageError struct {
	Usage string
	Err   error
}

func (e *UsageError) Error() string {
	if e.Err != nil {
		return e.Err.Error() + "\nUsage: " + e.Usage
	}

	return "Usage: " + e.Usage
}

func (e *UsageError) Unwrap() error {
	return e.Err
}
