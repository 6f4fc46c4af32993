package bot

import (
	"context"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kovalyov-valentin/linkshelf/internal/botkit"
	"github.com/kovalyov-valentin/linkshelf/internal/model"
	"github.com/kovalyov-valentin/linkshelf/internal/source"
)

// Лента и десятки сохранений не влезают в таймаут апдейта, поэтому импорт идет в фоне
const importTimeout = 2 * time.Minute

// /import <feed url> - сохранить ссылки из RSS ленты
func ViewCmdImport(clients Clients) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		args := botkit.ParseArgs(update.Message.CommandArguments())
		if len(args) != 1 {
			return &botkit.UsageError{Usage: "/import <feed url>"}
		}

		feedURL, err := model.ParseURL(args[0])
		if err != nil {
			return err
		}

		c := clients.Get(ctx, update.Message.Chat.ID)
		if c.Store.Owner() == "" {
			return model.ErrNotSignedIn
		}

		go func() {
			importCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), importTimeout)
			defer cancel()

			result, err := c.Importer.Import(importCtx, source.NewRSSSource(feedURL.String()))
			if err != nil {
				log.Printf("[ERROR] chat %d: import of %s failed: %v", c.ChatID, feedURL, err)
				c.Notifier.Notify(importCtx, model.Notice{Severity: model.SeverityErr, Message: "Import failed: " + err.Error()})
				return
			}

			c.Notifier.Notify(importCtx, model.Notice{Severity: model.SeverityOK, Message: "Import done: " + result.String()})
		}()

		return replyText(bot, c.ChatID, "Importing, this may take a minute...")
	}
}
