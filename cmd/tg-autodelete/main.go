package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"tg-autodelete/internal/bot"
	"tg-autodelete/internal/config"
	"tg-autodelete/internal/crash"
	"tg-autodelete/internal/handler"
	"tg-autodelete/internal/keepalive"
	"tg-autodelete/internal/logger"
	"tg-autodelete/internal/service"
	"tg-autodelete/internal/storage"
)

func main() {
	defer crash.RecoverWithStackAndExit("main")

	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Setup(cfg); err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	db, err := storage.Initialize(cfg)
	if err != nil {
		logger.Errorf("Failed to initialize database: %v", err)
		os.Exit(1)
	}

	chatRepo := storage.NewChatConfigRepository(db)
	if err := chatRepo.MigrateTable(); err != nil {
		logger.Errorf("Failed to migrate chat config table: %v", err)
		os.Exit(1)
	}
	pendingRepo := storage.NewPendingDeletionRepository(db)
	if err := pendingRepo.MigrateTable(); err != nil {
		logger.Errorf("Failed to migrate pending deletion table: %v", err)
		os.Exit(1)
	}

	store := service.NewSettingsStore(chatRepo)
	if n, err := store.WarmCache(); err != nil {
		logger.Warningf("Failed to warm chat config cache: %v", err)
	} else {
		logger.Infof("Loaded %d chat configurations", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	botService, server, err := bot.Initialize(ctx, cfg)
	if err != nil {
		logger.Errorf("Failed to initialize bot: %v", err)
		os.Exit(1)
	}

	scheduler := service.NewScheduler(store, pendingRepo, bot.NewDeleter(botService.Bot))
	if n, err := scheduler.Restore(); err != nil {
		logger.Warningf("Failed to restore pending deletions: %v", err)
	} else if n > 0 {
		logger.Infof("Re-armed %d pending deletions", n)
	}

	allowlist := service.NewAllowlistManager(store)
	dispatcher := service.NewDispatcher(scheduler, allowlist, store)

	h := handler.New(cfg, botService.Bot, dispatcher, store, allowlist, scheduler)
	h.Register(botService.Handler)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	if cfg.KeepAlive.Enabled {
		pinger := keepalive.NewPinger(cfg)
		g.Go(func() error {
			return pinger.Run(gctx)
		})
	}

	crash.SafeGoroutine("bot-handler", func() {
		botService.Start()
	})

	logger.Infof("Bot is up and running")

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Infof("Received signal %v, shutting down", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warningf("HTTP server shutdown error: %v", err)
	}

	botService.Stop()
	dispatcher.Stop()
	scheduler.Stop()
	cancel()

	if err := g.Wait(); err != nil {
		logger.Errorf("Shutdown error: %v", err)
	}
	logger.Infof("Shutdown complete")
}
