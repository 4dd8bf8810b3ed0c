package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/onoffautomations/ha-cloudflare-ddns/config"
)

const telegramAPIBase = "https://api.telegram.org"

type telegram struct {
	chatID   string
	botToken string
	apiBase  string
}

func newTelegram(c *config.TelegramNotify) *telegram {
	return &telegram{
		chatID:   c.ChatID,
		botToken: c.BotToken,
		apiBase:  telegramAPIBase,
	}
}

func (t *telegram) Typename() string {
	return "telegram"
}

func (t *telegram) Send(ctx context.Context, message string) error {
	params := url.Values{}
	params.Set("chat_id", t.chatID)
	params.Set("text", message)

	// The bot token is part of the URL; the URL must never be logged.
	u := fmt.Sprintf("%s/bot%s/sendMessage?%s", t.apiBase, t.botToken, params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("new request failed: %w", err)
	}

	resp, err := httpClient(ctx).Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	return nil
}
