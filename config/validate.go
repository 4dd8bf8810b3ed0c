package config

import (
	"fmt"

	"github.com/onoffautomations/ha-cloudflare-ddns/common"
)

// Validate checks the whole config at the boundary. A config that fails
// validation never reaches a reconciler.
func (c *Config) Validate() error {
	if len(c.Domains) == 0 {
		return fmt.Errorf("no domain configured")
	}

	for i := range c.Domains {
		d := &c.Domains[i]
		d.withDefaults()
		if err := d.validate(); err != nil {
			return fmt.Errorf("domain[%d] %q: %w", i, d.Domain, err)
		}
	}

	return nil
}

func (d *Domain) withDefaults() {
	if d.Provider == "" {
		d.Provider = "cloudflare"
	}

	if d.TTL == 0 {
		d.TTL = DefaultTTL
	}

	if d.UpdateInterval == 0 {
		d.UpdateInterval = DefaultUpdateInterval
	}

	if d.AutoUpdate == nil {
		enabled := true
		d.AutoUpdate = &enabled
	}
}

func (d *Domain) validate() error {
	if d.Domain == "" {
		return fmt.Errorf("domain must not be empty")
	}

	if d.ZoneID == "" {
		return fmt.Errorf("zone_id must not be empty")
	}

	if d.APIToken == "" {
		return fmt.Errorf("api_token must not be empty")
	}

	if d.TTL != AutoTTL && (d.TTL < MinTTL || d.TTL > MaxTTL) {
		return fmt.Errorf("ttl must be %d or between %d and %d, got %d", AutoTTL, MinTTL, MaxTTL, d.TTL)
	}

	if d.Proxied && d.IPMode == common.IPModeInternal {
		return fmt.Errorf("internal addresses cannot be proxied")
	}

	if d.UpdateInterval < MinUpdateInterval {
		return fmt.Errorf("update_interval must be at least %s, got %s", MinUpdateInterval, d.UpdateInterval)
	}

	if t := d.Notify.Telegram; t != nil && t.Enabled {
		if t.ChatID == "" || t.BotToken == "" {
			return fmt.Errorf("telegram notification requires chat_id and bot_token")
		}
	}

	if dc := d.Notify.Discord; dc != nil && dc.Enabled {
		if dc.WebhookURL == "" {
			return fmt.Errorf("discord notification requires webhook_url")
		}
	}

	return nil
}
