package keepalive

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"tg-autodelete/internal/config"
	"tg-autodelete/internal/logger"
)

// Pinger periodically requests the bot's own health endpoint so free-tier
// hosts keep the process resident
type Pinger struct {
	url      string
	interval time.Duration
	client   *http.Client
}

// NewPinger creates a Pinger from configuration. The URL defaults to the
// local health endpoint.
func NewPinger(cfg *config.Config) *Pinger {
	url := cfg.KeepAlive.URL
	if url == "" {
		url = fmt.Sprintf("http://localhost:%s/health", cfg.Bot.Webhook.ListenPort)
	}

	interval := time.Duration(cfg.KeepAlive.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &Pinger{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Run pings the health endpoint until the context is cancelled
func (p *Pinger) Run(ctx context.Context) error {
	logger.Infof("Keep-alive pinger started: %s every %v", p.url, p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Infof("Keep-alive pinger stopped")
			return nil
		case <-ticker.C:
			p.ping(ctx)
		}
	}
}

func (p *Pinger) ping(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		logger.Warningf("Keep-alive request error: %v", err)
		return
	}

	resp, err := p.client.Do(req)
	if err != nil {
		logger.Warningf("Keep-alive error: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		logger.Debugf("Keep-alive ping successful")
	} else {
		logger.Warningf("Keep-alive ping returned status %d", resp.StatusCode)
	}
}
