package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"tg-autodelete/internal/config"
	"tg-autodelete/internal/metrics"
)

// allowedUpdates is the update set the bot asks Telegram for
var allowedUpdates = []string{"message", "channel_post", "my_chat_member", "callback_query"}

// BotService represents the Telegram bot service
type BotService struct {
	Bot     *telego.Bot
	Handler *th.BotHandler
}

// Start starts the bot handler
func (b *BotService) Start() {
	b.Handler.Start()
}

// Stop stops the bot handler
func (b *BotService) Stop() {
	b.Handler.Stop()
}

// Initialize initializes the bot and its HTTP server. With a webhook
// endpoint configured, updates arrive over the webhook; otherwise the bot
// falls back to long polling and the server only carries the health and
// metrics endpoints.
func Initialize(ctx context.Context, cfg *config.Config) (*BotService, *Server, error) {
	// Validate configuration
	if cfg.Bot.Token == "" {
		return nil, nil, fmt.Errorf("bot token is required")
	}

	// Initialize bot
	bot, err := telego.NewBot(cfg.Bot.Token, telego.WithDefaultDebugLogger())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize bot: %w", err)
	}

	// Get bot info
	botUser, err := bot.GetMe(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get bot info: %w", err)
	}
	log.Printf("Authorized on account %s", botUser.Username)

	setCommands(ctx, bot)

	mux := http.NewServeMux()
	registerHealthEndpoints(mux)
	mux.Handle("/metrics", metrics.Handler())

	// Delete any existing webhook; required before long polling too
	if err := bot.DeleteWebhook(ctx, &telego.DeleteWebhookParams{}); err != nil {
		return nil, nil, fmt.Errorf("failed to delete existing webhook: %w", err)
	}

	var updates <-chan telego.Update
	if cfg.Bot.Webhook.Endpoint != "" {
		updates, err = setupWebhook(ctx, bot, cfg, mux)
		if err != nil {
			return nil, nil, err
		}
	} else {
		log.Printf("No webhook endpoint configured, using long polling")
		updates, err = bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
			Timeout:        30,
			AllowedUpdates: allowedUpdates,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start long polling: %w", err)
		}
	}

	// Setup handler
	bh, err := th.NewBotHandler(bot, updates)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create bot handler: %w", err)
	}

	server := &Server{
		server: &http.Server{
			Addr:    "0.0.0.0:" + cfg.Bot.Webhook.ListenPort,
			Handler: mux,
		},
		certFile: cfg.Bot.Webhook.CertFile,
		keyFile:  cfg.Bot.Webhook.KeyFile,
	}

	return &BotService{
		Bot:     bot,
		Handler: bh,
	}, server, nil
}

// registerHealthEndpoints adds the liveness endpoints used by the
// keep-alive pinger and the hosting platform
func registerHealthEndpoints(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
		})
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"service": "Telegram Auto Delete Bot",
			"status":  "running",
		})
	})
}

// setCommands registers the bot command menu
func setCommands(ctx context.Context, bot *telego.Bot) {
	commands := []telego.BotCommand{
		{Command: "start", Description: "Show the main menu"},
		{Command: "help", Description: "How the bot works"},
		{Command: "setup", Description: "Activate protection in this chat"},
		{Command: "settings", Description: "Show protection settings"},
		{Command: "allow", Description: "Allow a sender (reply to their message)"},
		{Command: "disallow", Description: "Disallow a sender (reply to their message)"},
		{Command: "delay", Description: "Set deletion delay in minutes (1-30)"},
		{Command: "deactivate", Description: "Stop protecting this chat"},
		{Command: "stats", Description: "Show bot statistics"},
	}

	if err := bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{Commands: commands}); err != nil {
		log.Printf("Warning: Failed to set bot commands: %v", err)
	}
}
