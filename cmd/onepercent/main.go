package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"one-percent/internal/bot"
	"one-percent/internal/config"
	"one-percent/internal/notify"
	"one-percent/internal/repository"
	"one-percent/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	store := repository.NewStore(db)
	feed := service.NewFeedService(store)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatalf("bot api: %v", err)
	}

	scheduler := service.NewSchedulerService(time.Local)
	notifier := notify.NewTelegramNotifier(api, cfg.TelegramChatID)
	reminders := service.NewReminderScheduler(store, notifier, scheduler)
	taskSvc := service.NewTaskService(store, feed, reminders, cfg.ResetBoundary)
	resetSvc := service.NewResetService(store, feed, cfg.ResetBoundary)
	historySvc := service.NewHistoryService(store, cfg.ResetBoundary)

	// Normalize stale completions from before this process started, then
	// re-arm every persisted reminder.
	if err := resetSvc.CheckAndNormalize(ctx); err != nil {
		log.Printf("[warn] startup reset check: %v", err)
	}
	if err := reminders.RearmAll(ctx); err != nil {
		log.Printf("[warn] startup rearm: %v", err)
	}

	if err := resetSvc.Register(scheduler, cfg.CheckInterval); err != nil {
		log.Fatalf("schedule reset checks: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	telegramBot := bot.New(api, taskSvc, resetSvc, historySvc, feed, cfg.TelegramChatID)

	log.Printf("One-Percent started (reset boundary %s).", cfg.ResetBoundary)
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Println("Shutdown complete.")
}
