package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nuntius/internal/common"
	"github.com/ternarybob/nuntius/internal/interfaces"
)

// WebhookNotifier posts report text and alerts to a Slack-compatible
// incoming webhook. An unset URL turns every Notify into a no-op.
type WebhookNotifier struct {
	cfg    common.NotifyConfig
	client *http.Client
	logger arbor.ILogger
}

func NewWebhookNotifier(cfg common.NotifyConfig, logger arbor.ILogger) *WebhookNotifier {
	return &WebhookNotifier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
		logger: logger,
	}
}

type webhookPayload struct {
	Text string `json:"text"`
}

func (n *WebhookNotifier) Notify(ctx context.Context, text string) error {
	if n.cfg.WebhookURL == "" {
		n.logger.Debug().Msg("Webhook URL not configured, dropping notification")
		return nil
	}

	body, err := json.Marshal(webhookPayload{Text: text})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("deliver notification: unexpected status %d", resp.StatusCode)
	}
	return nil
}

var _ interfaces.Notifier = (*WebhookNotifier)(nil)
