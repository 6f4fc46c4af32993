package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"

	"github.com/kovalyov-valentin/linkshelf/internal/botkit"
	"github.com/kovalyov-valentin/linkshelf/internal/model"
)

func ViewCmdCollections(clients Clients) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		c := clients.Get(ctx, update.Message.Chat.ID)

		var (
			articles    = c.Store.Articles()
			collections = c.Store.Collections()
		)

		return replyMarkdown(bot, c.ChatID, formatList(
			fmt.Sprintf("Collections (%d):", len(collections)),
			lo.Map(collections, func(col model.Collection, _ int) string {
				return formatCollection(col, lo.CountBy(articles, func(a model.Article) bool {
					return a.InCollection(col.ID)
				}))
			}),
		))
	}
}

// Цвет - последний аргумент, если он из палитры
func splitNameColor(args botkit.Args) (string, string) {
	if len(args) > 1 && lo.Contains(model.Palette, args[len(args)-1]) {
		return botkit.Args(args[:len(args)-1]).Rest(0), args[len(args)-1]
	}

	return args.Rest(0), ""
}

// /newcol <name> [color]
func ViewCmdNewCollection(clients Clients) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		args := botkit.ParseArgs(update.Message.CommandArguments())
		if len(args) == 0 {
			return &botkit.UsageError{Usage: "/newcol <name> [color]"}
		}

		name, color := splitNameColor(args)
		c := clients.Get(ctx, update.Message.Chat.ID)

		collection, err := c.Library.SaveCollection(ctx, 0, name, color)
		if err != nil {
			return handled(c.ChatID, err)
		}

		return replyMarkdown(bot, c.ChatID, formatCollection(collection, 0))
	}
}

// /editcol <id> <name> [color]
func ViewCmdEditCollection(clients Clients) botkit.ViewFunc {
	const usage = "/editcol <id> <name> [color]"

	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		args := botkit.ParseArgs(update.Message.CommandArguments())
		if len(args) < 2 {
			return &botkit.UsageError{Usage: usage}
		}

		id, err := args.ID(0)
		if err != nil {
			return &botkit.UsageError{Usage: usage, Err: err}
		}

		name, color := splitNameColor(args[1:])
		c := clients.Get(ctx, update.Message.Chat.ID)

		// Цвет не указан - оставляем прежний
		if color == "" {
			if current, ok := c.Store.Collection(id); ok {
				color = current.Color
			}
		}

		collection, err := c.Library.SaveCollection(ctx, id, name, color)
		if err != nil {
			return handled(c.ChatID, err)
		}

		count := lo.CountBy(c.Store.Articles(), func(a model.Article) bool { return a.InCollection(id) })

		return replyMarkdown(bot, c.ChatID, formatCollection(collection, count))
	}
}

// /delcol <id> [yes]
func ViewCmdDeleteCollection(clients Clients) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		args := botkit.ParseArgs(update.Message.CommandArguments())

		id, err := args.ID(0)
		if err != nil {
			return &botkit.UsageError{Usage: "/delcol <id>", Err: err}
		}

		c := clients.Get(ctx, update.Message.Chat.ID)

		return handled(c.ChatID, c.Library.DeleteCollection(ctx, id, confirmer(bot, update, args)))
	}
}
