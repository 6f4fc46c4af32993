package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"

	"github.com/kovalyov-valentin/linkshelf/internal/botkit"
	"github.com/kovalyov-valentin/linkshelf/internal/client"
	"github.com/kovalyov-valentin/linkshelf/internal/model"
)

// Сколько статей показываем в одном списке
const listLimit = 20

// /list [текст] - статьи, новые сверху. Текст ищется в заголовке, источнике и тегах
func ViewCmdList(clients Clients) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		c := clients.Get(ctx, update.Message.Chat.ID)
		query := strings.ToLower(strings.TrimSpace(update.Message.CommandArguments()))

		articles := lo.Filter(c.Store.Articles(), func(a model.Article, _ int) bool {
			return matches(a, query)
		})

		header := fmt.Sprintf("Your links (%d):", len(articles))
		if len(articles) > listLimit {
			header = fmt.Sprintf("Your links (showing %d of %d):", listLimit, len(articles))
			articles = articles[:listLimit]
		}

		return replyMarkdown(bot, update.Message.Chat.ID, formatList(header, lo.Map(articles, func(a model.Article, _ int) string {
			return formatArticle(a)
		})))
	}
}

func matches(a model.Article, query string) bool {
	if query == "" {
		return true
	}

	query = strings.TrimPrefix(query, "#")

	return strings.Contains(strings.ToLower(a.Title), query) ||
		strings.Contains(strings.ToLower(a.Source), query) ||
		lo.ContainsBy(a.Tags, func(t string) bool { return strings.EqualFold(t, query) })
}

// articleView - общий вид команды над одной статьей: /cmd <id> ...
func articleView(
	clients Clients,
	usage string,
	minArgs int,
	act func(ctx context.Context, c *client.Client, id int64, args botkit.Args) (model.Article, error),
) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		args := botkit.ParseArgs(update.Message.CommandArguments())
		if len(args) < minArgs {
			return &botkit.UsageError{Usage: usage}
		}

		id, err := args.ID(0)
		if err != nil {
			return &botkit.UsageError{Usage: usage, Err: err}
		}

		c := clients.Get(ctx, update.Message.Chat.ID)

		article, err := act(ctx, c, id, args)
		if err != nil {
			return handled(c.ChatID, err)
		}

		return replyMarkdown(bot, c.ChatID, formatArticle(article))
	}
}

func ViewCmdOpen(clients Clients) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		id, err := botkit.ParseArgs(update.Message.CommandArguments()).ID(0)
		if err != nil {
			return &botkit.UsageError{Usage: "/open <id>", Err: err}
		}

		c := clients.Get(ctx, update.Message.Chat.ID)

		article, err := c.Library.OpenArticle(ctx, id)
		if err != nil && article.ID == 0 {
			return handled(c.ChatID, err)
		}

		return replyMarkdown(bot, c.ChatID, formatArticleFull(article, c.Store.Collections()))
	}
}

func ViewCmdStar(clients Clients) botkit.ViewFunc {
	return articleView(clients, "/star <id>", 1, func(ctx context.Context, c *client.Client, id int64, _ botkit.Args) (model.Article, error) {
		return c.Library.ToggleStar(ctx, id)
	})
}

func ViewCmdRate(clients Clients) botkit.ViewFunc {
	const usage = "/rate <id> <0-5>"

	return articleView(clients, usage, 2, func(ctx context.Context, c *client.Client, id int64, args botkit.Args) (model.Article, error) {
		rating, err := args.Int(1)
		if err != nil {
			return model.Article{}, &botkit.UsageError{Usage: usage, Err: err}
		}

		return c.Library.SetRating(ctx, id, rating)
	})
}

func ViewCmdStatus(clients Clients) botkit.ViewFunc {
	return articleView(clients, "/status <id> <unread|read>", 2, func(ctx context.Context, c *client.Client, id int64, args botkit.Args) (model.Article, error) {
		return c.Library.SetStatus(ctx, id, strings.ToLower(args[1]))
	})
}

func ViewCmdMemo(clients Clients) botkit.ViewFunc {
	return articleView(clients, "/memo <id> <text>", 1, func(ctx context.Context, c *client.Client, id int64, args botkit.Args) (model.Article, error) {
		return c.Library.SetMemo(ctx, id, args.Rest(1))
	})
}

func ViewCmdAddTag(clients Clients) botkit.ViewFunc {
	return articleView(clients, "/addtag <id> <tag>", 2, func(ctx context.Context, c *client.Client, id int64, args botkit.Args) (model.Article, error) {
		return c.Library.AddTag(ctx, id, args[1])
	})
}

func ViewCmdRemoveTag(clients Clients) botkit.ViewFunc {
	return articleView(clients, "/rmtag <id> <tag>", 2, func(ctx context.Context, c *client.Client, id int64, args botkit.Args) (model.Article, error) {
		return c.Library.RemoveTag(ctx, id, args[1])
	})
}

func ViewCmdAssign(clients Clients) botkit.ViewFunc {
	const usage = "/assign <id> <collection id>"

	return articleView(clients, usage, 2, func(ctx context.Context, c *client.Client, id int64, args botkit.Args) (model.Article, error) {
		collectionID, err := args.ID(1)
		if err != nil {
			return model.Article{}, &botkit.UsageError{Usage: usage, Err: err}
		}

		return c.Library.ToggleCollection(ctx, id, collectionID)
	})
}
