// Package notify pushes human-readable update messages to the configured
// channels. Delivery is best effort: a channel failure is logged and
// swallowed, and never reaches the reconciler.
package notify

import (
	"context"
	"net/http"
	"time"

	"github.com/onoffautomations/ha-cloudflare-ddns/common"
	"github.com/onoffautomations/ha-cloudflare-ddns/config"
	"github.com/onoffautomations/ha-cloudflare-ddns/log"

	"go.uber.org/zap"
)

const sendTimeout = 10 * time.Second

type Channel interface {
	Send(ctx context.Context, message string) error
	Typename() string
}

type Notifier struct {
	channels []Channel
}

func New(c config.Notify) *Notifier {
	n := &Notifier{}

	if t := c.Telegram; t != nil && t.Enabled {
		n.channels = append(n.channels, newTelegram(t))
	}

	if d := c.Discord; d != nil && d.Enabled {
		n.channels = append(n.channels, newDiscord(d))
	}

	return n
}

// Notify delivers message to every channel independently. One channel
// failing does not stop delivery attempts on the others.
func (n *Notifier) Notify(ctx context.Context, message string) {
	ctx = log.SWith(ctx, log.Stage("notify"))

	for _, ch := range n.channels {
		ctx := log.SWith(ctx, "channel", ch.Typename())

		sCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		err := ch.Send(sCtx, message)
		cancel()

		if err != nil {
			log.S(ctx).Warnw("notification failed", zap.Error(err))
			continue
		}

		log.S(ctx).Infow("notification sent")
	}
}

func httpClient(ctx context.Context) *http.Client {
	if ctxClient := ctx.Value(common.HTTPClientKey); ctxClient != nil {
		return ctxClient.(*http.Client)
	}

	return http.DefaultClient
}
