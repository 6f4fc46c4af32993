package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kovalyov-valentin/linkshelf/internal/botkit"
	"github.com/kovalyov-valentin/linkshelf/internal/model"
)

// /url - ввод ссылки в форму. Заголовок подтянется превью, если его не задали руками
func ViewCmdURL(clients Clients) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		raw := strings.TrimSpace(update.Message.CommandArguments())
		if raw == "" {
			return &botkit.UsageError{Usage: "/url <link>"}
		}

		c := clients.Get(ctx, update.Message.Chat.ID)

		c.Draft.SetURL(raw)
		c.Preview.Input(raw)

		if _, err := model.ParseURL(raw); err != nil {
			return err
		}

		return replyText(bot, update.Message.Chat.ID, "Got it. Add /title or /tag, then /save.")
	}
}

// /title - ручной ввод заголовка. После него превью заголовок уже не трогает
func ViewCmdTitle(clients Clients) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		c := clients.Get(ctx, update.Message.Chat.ID)

		c.Draft.EditTitle(strings.TrimSpace(update.Message.CommandArguments()))
		c.Preview.Cancel()

		return replyText(bot, update.Message.Chat.ID, "Title set.")
	}
}

func ViewCmdTag(clients Clients) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		args := botkit.ParseArgs(update.Message.CommandArguments())
		if len(args) == 0 {
			return &botkit.UsageError{Usage: "/tag <tag>"}
		}

		c := clients.Get(ctx, update.Message.Chat.ID)

		for _, tag := range args {
			c.Draft.AddTag(tag)
		}

		return replyText(bot, update.Message.Chat.ID, fmt.Sprintf("Tags: %s", formatTags(c.Draft.Values().Tags)))
	}
}

// /save - отправка формы
func ViewCmdSave(clients Clients) botkit.ViewFunc {
	type saveArgs struct {
		Category string `json:"category"`
		Status   string `json:"status"`
		Memo     string `json:"memo"`
	}

	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		c := clients.Get(ctx, update.Message.Chat.ID)

		if raw := strings.TrimSpace(update.Message.CommandArguments()); raw != "" {
			args, err := botkit.ParseJSON[saveArgs](raw)
			if err != nil {
				return &botkit.UsageError{Usage: `/save {"category":"tech","status":"unread","memo":"..."}`, Err: err}
			}

			if args.Category != "" {
				c.Draft.SetCategory(model.ParseCategory(strings.ToLower(args.Category)))
			}
			if args.Status != "" {
				status, ok := model.ParseStatus(args.Status)
				if !ok {
					return model.ErrInvalidStatus
				}
				c.Draft.SetStatus(status)
			}
			if args.Memo != "" {
				c.Draft.SetMemo(args.Memo)
			}
		}

		article, err := c.Library.CreateArticle(ctx, c.Draft)
		if errors.Is(err, model.ErrSaveInFlight) {
			return err
		}
		if err != nil {
			// Об остальных ошибках пользователь уже получил уведомление
			log.Printf("[WARN] chat %d: save failed: %v", c.ChatID, err)
			return nil
		}

		return replyMarkdown(bot, update.Message.Chat.ID, formatArticle(article))
	}
}
