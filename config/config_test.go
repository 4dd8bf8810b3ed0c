package config

import (
	"testing"
	"time"

	"github.com/onoffautomations/ha-cloudflare-ddns/common"
)

func validDomain() Domain {
	return Domain{
		Domain:   "home.example.com",
		ZoneID:   "0235ab3e9ac5f1b2",
		APIToken: "token",
	}
}

func TestValidateDomain(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Domain)
		wantErr bool
	}{
		{"valid defaults", func(d *Domain) {}, false},
		{"empty domain", func(d *Domain) { d.Domain = "" }, true},
		{"empty zone id", func(d *Domain) { d.ZoneID = "" }, true},
		{"empty api token", func(d *Domain) { d.APIToken = "" }, true},
		{"ttl auto", func(d *Domain) { d.TTL = 1 }, false},
		{"ttl min", func(d *Domain) { d.TTL = 120 }, false},
		{"ttl max", func(d *Domain) { d.TTL = 7200 }, false},
		{"ttl below range", func(d *Domain) { d.TTL = 119 }, true},
		{"ttl above range", func(d *Domain) { d.TTL = 7201 }, true},
		{"ttl between auto and min", func(d *Domain) { d.TTL = 60 }, true},
		{"ttl negative", func(d *Domain) { d.TTL = -1 }, true},
		{"proxied external", func(d *Domain) { d.Proxied = true }, false},
		{"proxied internal", func(d *Domain) {
			d.Proxied = true
			d.IPMode = common.IPModeInternal
		}, true},
		{"internal unproxied", func(d *Domain) { d.IPMode = common.IPModeInternal }, false},
		{"interval too short", func(d *Domain) { d.UpdateInterval = common.Duration(500 * time.Millisecond) }, true},
		{"interval one second", func(d *Domain) { d.UpdateInterval = common.Duration(time.Second) }, false},
		{"telegram enabled without credentials", func(d *Domain) {
			d.Notify.Telegram = &TelegramNotify{Enabled: true}
		}, true},
		{"telegram enabled with credentials", func(d *Domain) {
			d.Notify.Telegram = &TelegramNotify{Enabled: true, ChatID: "42", BotToken: "bot"}
		}, false},
		{"telegram disabled without credentials", func(d *Domain) {
			d.Notify.Telegram = &TelegramNotify{}
		}, false},
		{"discord enabled without url", func(d *Domain) {
			d.Notify.Discord = &DiscordNotify{Enabled: true}
		}, true},
		{"discord enabled with url", func(d *Domain) {
			d.Notify.Discord = &DiscordNotify{Enabled: true, WebhookURL: "https://discord.com/api/webhooks/1/x"}
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDomain()
			tt.mutate(&d)

			c := Config{Domains: []Domain{d}}
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate: got err=%v, wantErr=%v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateEmptyConfig(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for config without domains")
	}
}

func TestDefaultsApplied(t *testing.T) {
	c := Config{Domains: []Domain{validDomain()}}
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := c.Domains[0]
	if d.Provider != "cloudflare" {
		t.Errorf("provider: got %q, want cloudflare", d.Provider)
	}
	if d.TTL != DefaultTTL {
		t.Errorf("ttl: got %d, want %d", d.TTL, DefaultTTL)
	}
	if d.UpdateInterval != DefaultUpdateInterval {
		t.Errorf("update_interval: got %s, want %s", d.UpdateInterval, DefaultUpdateInterval)
	}
	if d.AutoUpdate == nil || !*d.AutoUpdate {
		t.Error("auto_update: expected default true")
	}
}
