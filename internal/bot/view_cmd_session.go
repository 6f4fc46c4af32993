package bot

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kovalyov-valentin/linkshelf/internal/botkit"
	"github.com/kovalyov-valentin/linkshelf/internal/model"
)

type requester interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// credentials достает email и пароль из команды и сразу удаляет сообщение, чтобы пароль не остался в чате
func credentials(bot requester, update tgbotapi.Update, usage string) (email, password string, err error) {
	args := botkit.ParseArgs(update.Message.CommandArguments())
	if len(args) > 1 {
		deleteMessage(bot, update.Message.Chat.ID, update.Message.MessageID)
	}
	if len(args) != 2 {
		return "", "", &botkit.UsageError{Usage: usage}
	}

	return args[0], args[1], nil
}

func deleteMessage(bot requester, chatID int64, messageID int) {
	if _, err := bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		log.Printf("[WARN] failed to delete message %d in chat %d: %v", messageID, chatID, err)
	}
}

func ViewCmdSignUp(clients Clients) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		email, password, err := credentials(bot, update, "/signup <email> <password>")
		if err != nil {
			return err
		}

		return clients.Get(ctx, update.Message.Chat.ID).SignUp(ctx, email, password)
	}
}

func ViewCmdLogin(clients Clients) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		email, password, err := credentials(bot, update, "/login <email> <password>")
		if err != nil {
			return err
		}

		c := clients.Get(ctx, update.Message.Chat.ID)

		if err := c.SignIn(ctx, email, password); err != nil {
			return err
		}

		session := c.Session.Session()
		if session == nil {
			return model.ErrNotSignedIn
		}

		return replyText(bot, update.Message.Chat.ID, fmt.Sprintf(
			"Signed in as %s. You have %d links saved.",
			session.Email,
			len(c.Store.Articles()),
		))
	}
}

func ViewCmdLogout(clients Clients) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		return clients.Get(ctx, update.Message.Chat.ID).Session.SignOut(ctx)
	}
}
