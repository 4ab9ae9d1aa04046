package bot

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mymmrac/telego"

	"tg-autodelete/internal/config"
	"tg-autodelete/internal/logger"
)

// Server is the HTTP server carrying the webhook, health and metrics
// endpoints
type Server struct {
	server   *http.Server
	certFile string
	keyFile  string
}

// Start starts the server
func (s *Server) Start() error {
	logger.Infof("Starting HTTP server on %s", s.server.Addr)

	// Determine if we should use TLS
	if s.certFile != "" && s.keyFile != "" {
		logger.Infof("Using TLS with cert: %s, key: %s", s.certFile, s.keyFile)
		return s.server.ListenAndServeTLS(s.certFile, s.keyFile)
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// setupWebhook registers the webhook with Telegram and mounts the update
// handler on the shared mux
func setupWebhook(ctx context.Context, bot *telego.Bot, cfg *config.Config, mux *http.ServeMux) (<-chan telego.Update, error) {
	endpoint := cfg.Bot.Webhook.Endpoint

	// Validate HTTPS setup
	if (cfg.Bot.Webhook.CertFile == "" || cfg.Bot.Webhook.KeyFile == "") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("HTTPS configuration required: set cert_file and key_file in config or use a HTTPS proxy")
	}

	// Parse URL to get path component
	parsedURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook endpoint: %w", err)
	}

	webhookPath := parsedURL.Path
	if webhookPath == "" {
		webhookPath = "/webhook"
		logger.Infof("No path specified in webhook endpoint, using default path: %s", webhookPath)
	}

	// Fixed secret token derived from the bot token
	secretToken := "secure_webhook_token_" + cfg.Bot.Token[len(cfg.Bot.Token)-6:]

	logger.Infof("Setting webhook to: %s", endpoint)
	err = bot.SetWebhook(ctx, &telego.SetWebhookParams{
		URL:            endpoint,
		AllowedUpdates: allowedUpdates,
		SecretToken:    secretToken,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook: %w", err)
	}

	// Get and display webhook info for debugging
	webhookInfo, err := bot.GetWebhookInfo(ctx)
	if err != nil {
		logger.Infof("Warning: Failed to get webhook info: %v", err)
	} else {
		logger.Infof("Webhook info: URL=%s, HasCustomCert=%v, PendingUpdateCount=%d",
			webhookInfo.URL, webhookInfo.HasCustomCertificate, webhookInfo.PendingUpdateCount)
		if webhookInfo.LastErrorDate > 0 {
			logger.Infof("Webhook last error: [%d] %s", webhookInfo.LastErrorDate, webhookInfo.LastErrorMessage)
		}
	}

	updates, err := bot.UpdatesViaWebhook(ctx,
		telego.WebhookHTTPServeMux(mux, webhookPath, secretToken),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get updates channel: %w", err)
	}

	return updates, nil
}
