package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/onoffautomations/ha-cloudflare-ddns/config"

	"github.com/goccy/go-json"
)

type discord struct {
	webhookURL string
}

func newDiscord(c *config.DiscordNotify) *discord {
	return &discord{webhookURL: c.WebhookURL}
}

func (d *discord) Typename() string {
	return "discord"
}

func (d *discord) Send(ctx context.Context, message string) error {
	payload, err := json.Marshal(map[string]string{"content": message})
	if err != nil {
		return fmt.Errorf("encode payload failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", d.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("new request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient(ctx).Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	// Webhook executions answer 204; some proxies rewrite to 200.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	return nil
}
