package bot

import (
	"context"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kovalyov-valentin/linkshelf/internal/botkit"
	"github.com/kovalyov-valentin/linkshelf/internal/botkit/markup"
	"github.com/kovalyov-valentin/linkshelf/internal/client"
)

// Clients отдает клиента чата
type Clients interface {
	Get(ctx context.Context, chatID int64) *client.Client
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// replyMarkdown отправляет уже размеченный (экранированный) текст
func replyMarkdown(bot sender, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true

	_, err := bot.Send(msg)
	return err
}

// replyText отправляет обычный текст, экранируя его
func replyText(bot sender, chatID int64, lines ...string) error {
	return replyMarkdown(bot, chatID, markup.EscapeForMarkdown(strings.Join(lines, "\n")))
}

// argConfirmer подтверждает действие, если команду вызвали с "yes" в конце.
// Иначе показывает вопрос и подсказку, как подтвердить
type argConfirmer struct {
	confirmed bool
	bot       sender
	chatID    int64
	// Команда, которую надо повторить
	command string
}

func (c argConfirmer) Confirm(_ context.Context, prompt string) bool {
	if c.confirmed {
		return true
	}

	if err := replyText(c.bot, c.chatID, prompt, "Send "+c.command+" yes to confirm."); err != nil {
		log.Printf("[ERROR] failed to send confirmation prompt: %v", err)
	}

	return false
}

// handled оставляет ошибки, которые надо показать пользователю в ответ.
// Остальные (сбой хранилища и т.п.) уже пришли уведомлением, их только логируем
func handled(chatID int64, err error) error {
	if err == nil {
		return nil
	}

	if _, known := botkit.ErrorText(err); known {
		return err
	}

	log.Printf("[WARN] chat %d: %v", chatID, err)

	return nil
}
