package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kovalyov-valentin/linkshelf/internal/botkit"
)

const helpText = `linkshelf keeps links you want to read later.

/signup <email> <password> - create an account
/login <email> <password> - sign in
/logout - sign out

/url <link> - start a new link (title is detected while you wait)
/title <text> - set the title yourself
/tag <tag> - add a tag to the new link
/save [{"category":"science","status":"read","memo":"..."}] - save it

/list [text] - your links
/open <id> /star <id> /rate <id> <0-5>
/status <id> <unread|read> /memo <id> <text>
/addtag <id> <tag> /rmtag <id> <tag>
/assign <id> <collection id>

/trash <id> /trashlist /restore <id>
/purge <id> /emptytrash

/collections /newcol <name> [color]
/editcol <id> <name> [color] /delcol <id>

/import <feed url> - save links from an RSS feed`

func ViewCmdStart() botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		return replyText(bot, update.Message.Chat.ID, helpText)
	}
}
