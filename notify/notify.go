package notify

import (
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/minsukim/autotrader/logger"
)

// Notifier delivers a human-readable message to the configured chat channel.
// Delivery is fire-and-forget: a failed notification must never affect
// trading logic, so implementations log and swallow their own errors.
type Notifier interface {
	Notify(msg string, isError bool)
}

const (
	colorInfo  = 0x2ecc71
	colorError = 0xe74c3c
)

// WebhookNotifier posts embed payloads to a chat webhook. An empty URL
// disables delivery entirely.
type WebhookNotifier struct {
	client *resty.Client
	url    string
	log    logger.Logger
}

func NewWebhookNotifier(url string, log logger.Logger) *WebhookNotifier {
	client := resty.New().SetTimeout(10 * time.Second)
	return &WebhookNotifier{client: client, url: url, log: log}
}

func (n *WebhookNotifier) Notify(msg string, isError bool) {
	if n.url == "" {
		return
	}
	color := colorInfo
	title := "autotrader"
	if isError {
		color = colorError
		title = "autotrader error"
	}
	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{
			{
				"title":       title,
				"description": msg,
				"color":       color,
				"timestamp":   time.Now().Format(time.RFC3339),
			},
		},
	}
	resp, err := n.client.R().SetBody(payload).Post(n.url)
	if err != nil {
		n.log.Warn("webhook delivery failed", logger.Err(err))
		return
	}
	if resp.StatusCode() >= 400 {
		n.log.Warn("webhook rejected", logger.Int("status", resp.StatusCode()))
	}
}

// Nop discards every message. Used when no webhook is configured and in
// tests.
type Nop struct{}

func (Nop) Notify(string, bool) {}
