package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/kovalyov-valentin/linkshelf/internal/auth"
	"github.com/kovalyov-valentin/linkshelf/internal/bot"
	"github.com/kovalyov-valentin/linkshelf/internal/bot/middleware"
	"github.com/kovalyov-valentin/linkshelf/internal/botkit"
	"github.com/kovalyov-valentin/linkshelf/internal/client"
	"github.com/kovalyov-valentin/linkshelf/internal/config"
	"github.com/kovalyov-valentin/linkshelf/internal/enrich"
	"github.com/kovalyov-valentin/linkshelf/internal/storage"
	"github.com/kovalyov-valentin/linkshelf/internal/summary"
)

func main() {
	cfg := config.Get()

	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Printf("failed to create bot: %v", err)
		return
	}

	db, err := sqlx.Connect("postgres", cfg.DatabaseDSN)
	if err != nil {
		log.Printf("failed to connect to database: %v", err)
		return
	}
	defer db.Close()

	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := storage.Migrate(ctx, db); err != nil {
		log.Printf("[ERROR] failed to migrate database: %v", err)
		return
	}

	registry := client.NewRegistry(ctx, client.Deps{
		Gateway:        storage.NewGateway(db),
		Sessions:       storage.NewSessionStorage(db, cfg.SessionTTL),
		Auth:           auth.New(storage.NewUserStorage(db)),
		Enricher:       newEnricher(cfg),
		Bot:            botAPI,
		PreviewDelay:   cfg.PreviewDebounce,
		AnalyzeTimeout: cfg.AnalyzeTimeout,
		FilterKeywords: cfg.FilterKeywords,
	}, cfg.SessionRefreshInterval)
	defer registry.Close()

	signedIn := func(view botkit.ViewFunc) botkit.ViewFunc {
		return middleware.SignedInOnly(registry, view)
	}

	shelfBot := botkit.New(botAPI, cfg.RequestTimeout)
	shelfBot.RegisterCmdView("start", bot.ViewCmdStart())
	shelfBot.RegisterCmdView("help", bot.ViewCmdStart())
	shelfBot.RegisterCmdView("signup", bot.ViewCmdSignUp(registry))
	shelfBot.RegisterCmdView("login", bot.ViewCmdLogin(registry))
	shelfBot.RegisterCmdView("logout", bot.ViewCmdLogout(registry))

	shelfBot.RegisterCmdView("url", signedIn(bot.ViewCmdURL(registry)))
	shelfBot.RegisterCmdView("title", signedIn(bot.ViewCmdTitle(registry)))
	shelfBot.RegisterCmdView("tag", signedIn(bot.ViewCmdTag(registry)))
	shelfBot.RegisterCmdView("save", signedIn(bot.ViewCmdSave(registry)))

	shelfBot.RegisterCmdView("list", signedIn(bot.ViewCmdList(registry)))
	shelfBot.RegisterCmdView("open", signedIn(bot.ViewCmdOpen(registry)))
	shelfBot.RegisterCmdView("star", signedIn(bot.ViewCmdStar(registry)))
	shelfBot.RegisterCmdView("rate", signedIn(bot.ViewCmdRate(registry)))
	shelfBot.RegisterCmdView("status", signedIn(bot.ViewCmdStatus(registry)))
	shelfBot.RegisterCmdView("memo", signedIn(bot.ViewCmdMemo(registry)))
	shelfBot.RegisterCmdView("addtag", signedIn(bot.ViewCmdAddTag(registry)))
	shelfBot.RegisterCmdView("rmtag", signedIn(bot.ViewCmdRemoveTag(registry)))
	shelfBot.RegisterCmdView("assign", signedIn(bot.ViewCmdAssign(registry)))

	shelfBot.RegisterCmdView("trash", signedIn(bot.ViewCmdTrash(registry)))
	shelfBot.RegisterCmdView("trashlist", signedIn(bot.ViewCmdTrashList(registry)))
	shelfBot.RegisterCmdView("restore", signedIn(bot.ViewCmdRestore(registry)))
	shelfBot.RegisterCmdView("purge", signedIn(bot.ViewCmdPurge(registry)))
	shelfBot.RegisterCmdView("emptytrash", signedIn(bot.ViewCmdEmptyTrash(registry)))

	shelfBot.RegisterCmdView("collections", signedIn(bot.ViewCmdCollections(registry)))
	shelfBot.RegisterCmdView("newcol", signedIn(bot.ViewCmdNewCollection(registry)))
	shelfBot.RegisterCmdView("editcol", signedIn(bot.ViewCmdEditCollection(registry)))
	shelfBot.RegisterCmdView("delcol", signedIn(bot.ViewCmdDeleteCollection(registry)))

	shelfBot.RegisterCmdView("import", signedIn(bot.ViewCmdImport(registry)))

	// Воркер продления сессий
	go func(ctx context.Context) {
		if err := registry.Start(ctx); err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Printf("[ERROR] session refresher stopped: %v", err)
				return
			}

			log.Println("session refresher stopped")
		}
	}(ctx)

	if err := shelfBot.Run(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Printf("[ERROR] failed to run bot: %v", err)
			return
		}

		log.Println("bot stopped")
	}
}

// newEnricher выбирает, кто делает превью и анализ: внешний воркер или openai локально
func newEnricher(cfg config.Config) client.Enricher {
	switch cfg.EnrichMode {
	case config.EnrichModeOpenAI:
		pages := summary.NewPageFetcher(&http.Client{Timeout: 20 * time.Second})
		return summary.NewOpenAIAnalyzer(cfg.OpenAIKey, cfg.OpenAIPromt, pages)
	case config.EnrichModeWorker:
	default:
		log.Printf("[WARN] unknown enrich mode %q, using worker", cfg.EnrichMode)
	}

	return enrich.NewWorkerClient(cfg.WorkerBaseURL, cfg.WorkerToken)
}
