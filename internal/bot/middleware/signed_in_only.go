package middleware

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kovalyov-valentin/linkshelf/internal/botkit"
	"github.com/kovalyov-valentin/linkshelf/internal/model"
)

// PhaseProvider отдает фазу сессии чата
type PhaseProvider interface {
	Phase(ctx context.Context, chatID int64) model.Phase
}

// SignedInOnly пускает команду дальше только если чат залогинен
func SignedInOnly(phases PhaseProvider, next botkit.ViewFunc) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		if phases.Phase(ctx, update.Message.Chat.ID) != model.PhaseSignedIn {
			return model.ErrNotSignedIn
		}

		return next(ctx, bot, update)
	}
}
