package notifier

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kovalyov-valentin/linkshelf/internal/botkit/markup"
	"github.com/kovalyov-valentin/linkshelf/internal/model"
)

// Sender - то, через что уходит сообщение в телеграм (*tgbotapi.BotAPI)
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier показывает уведомления пользователю в его чате
type Notifier struct {
	bot    Sender
	chatID int64
}

func New(bot Sender, chatID int64) *Notifier {
	return &Notifier{bot: bot, chatID: chatID}
}

// Notify отправляет уведомление. Ошибка отправки только логируется:
// уведомление не должно ломать операцию, которая его вызвала
func (n *Notifier) Notify(_ context.Context, notice model.Notice) {
	msg := tgbotapi.NewMessage(n.chatID, Format(notice))
	// Уведомление приходит как markdown, поэтому текст экранирован в Format
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	if _, err := n.bot.Send(msg); err != nil {
		log.Printf("[ERROR] failed to send notice to chat %d: %v", n.chatID, err)
	}
}

// Format собирает текст уведомления: значок по важности и экранированное сообщение
func Format(notice model.Notice) string {
	return fmt.Sprintf("%s %s", icon(notice.Severity), markup.EscapeForMarkdown(notice.Message))
}

func icon(s model.Severity) string {
	switch s {
	case model.SeverityOK:
		return "✅"
	case model.SeverityErr:
		return "⚠️"
	}

	return "ℹ️"
}
