package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"

	"github.com/kovalyov-valentin/linkshelf/internal/botkit"
	"github.com/kovalyov-valentin/linkshelf/internal/botkit/markup"
	"github.com/kovalyov-valentin/linkshelf/internal/model"
)

func confirmer(bot sender, update tgbotapi.Update, args botkit.Args) argConfirmer {
	command := "/" + update.Message.Command()
	if len(args) > 0 && !args.Confirmed() {
		command += " " + args.Rest(0)
	}

	return argConfirmer{
		confirmed: args.Confirmed(),
		bot:       bot,
		chatID:    update.Message.Chat.ID,
		command:   command,
	}
}

// /trash <id> [yes]
func ViewCmdTrash(clients Clients) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		args := botkit.ParseArgs(update.Message.CommandArguments())

		id, err := args.ID(0)
		if err != nil {
			return &botkit.UsageError{Usage: "/trash <id>", Err: err}
		}

		c := clients.Get(ctx, update.Message.Chat.ID)

		return handled(c.ChatID, c.Trash.MoveToTrash(ctx, id, confirmer(bot, update, args)))
	}
}

func ViewCmdTrashList(clients Clients) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		c := clients.Get(ctx, update.Message.Chat.ID)
		trashed := c.Store.Trash()

		return replyMarkdown(bot, c.ChatID, formatList(
			fmt.Sprintf("Trash (%d):", len(trashed)),
			lo.Map(trashed, func(a model.Article, _ int) string {
				card := formatArticle(a)
				if a.TrashedAt != nil {
					card += "\n🗑 " + markup.EscapeForMarkdown(a.TrashedAt.Format(time.DateTime))
				}
				return card
			}),
		))
	}
}

// /restore <id> - статья вернется с новым id
func ViewCmdRestore(clients Clients) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		id, err := botkit.ParseArgs(update.Message.CommandArguments()).ID(0)
		if err != nil {
			return &botkit.UsageError{Usage: "/restore <id>", Err: err}
		}

		c := clients.Get(ctx, update.Message.Chat.ID)

		article, err := c.Trash.RestoreFromTrash(ctx, id)
		if err != nil {
			return handled(c.ChatID, err)
		}

		return replyMarkdown(bot, c.ChatID, formatArticle(article))
	}
}

// /purge <id> [yes] - удалить из корзины навсегда
func ViewCmdPurge(clients Clients) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		args := botkit.ParseArgs(update.Message.CommandArguments())

		id, err := args.ID(0)
		if err != nil {
			return &botkit.UsageError{Usage: "/purge <id>", Err: err}
		}

		c := clients.Get(ctx, update.Message.Chat.ID)

		return handled(c.ChatID, c.Trash.DeleteForever(ctx, id, confirmer(bot, update, args)))
	}
}

func ViewCmdEmptyTrash(clients Clients) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		args := botkit.ParseArgs(update.Message.CommandArguments())
		c := clients.Get(ctx, update.Message.Chat.ID)

		n, err := c.Trash.EmptyTrash(ctx, confirmer(bot, update, args))
		if err != nil {
			return handled(c.ChatID, err)
		}
		if n == 0 {
			return replyText(bot, c.ChatID, "Trash is already empty.")
		}

		return nil
	}
}
