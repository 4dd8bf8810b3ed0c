package config

import (
	"time"

	"github.com/onoffautomations/ha-cloudflare-ddns/common"

	"go.uber.org/zap/zapcore"
)

const (
	DefaultTTL = 120
	AutoTTL    = 1
	MinTTL     = 120
	MaxTTL     = 7200

	DefaultUpdateInterval = common.Duration(60 * time.Second)
	MinUpdateInterval     = common.Duration(time.Second)
)

type Config struct {
	Service Service  `toml:"service" json:"service" yaml:"service"`
	Log     Log      `toml:"log" json:"log" yaml:"log"`
	Domains []Domain `toml:"domain" json:"domain" yaml:"domain"`
}

type Service struct {
	Name string `toml:"name" json:"name" yaml:"name"`
}

type Log struct {
	Level     *zapcore.Level `toml:"level" json:"level" yaml:"level"`
	Encoding  *string        `toml:"encoding" json:"encoding" yaml:"encoding"`
	InfoPath  *[]string      `toml:"info_path" json:"info_path" yaml:"info_path"`
	ErrorPath *[]string      `toml:"error_path" json:"error_path" yaml:"error_path"`
}

// Domain configures one managed DNS record. Each entry runs its own
// reconciliation cycle, independent of the others.
type Domain struct {
	Domain   string        `toml:"domain" json:"domain" yaml:"domain"`
	Provider string        `toml:"provider" json:"provider" yaml:"provider"`
	ZoneID   string        `toml:"zone_id" json:"zone_id" yaml:"zone_id"`
	APIToken string        `toml:"api_token" json:"api_token" yaml:"api_token"`
	IPMode   common.IPMode `toml:"ip_mode" json:"ip_mode" yaml:"ip_mode"`
	Proxied  bool          `toml:"proxied" json:"proxied" yaml:"proxied"`

	// TTL in seconds, 120-7200, or 1 for the provider's automatic TTL.
	TTL            int             `toml:"ttl" json:"ttl" yaml:"ttl"`
	UpdateInterval common.Duration `toml:"update_interval" json:"update_interval" yaml:"update_interval"`
	AutoUpdate     *bool           `toml:"auto_update" json:"auto_update" yaml:"auto_update"`

	Sources []IPSource `toml:"sources,omitempty" json:"sources,omitempty" yaml:"sources,omitempty"`
	Notify  Notify     `toml:"notify" json:"notify" yaml:"notify"`
}

type IPSource struct {
	Type   string         `toml:"type" json:"type" yaml:"type"`
	Source string         `toml:"source" json:"source" yaml:"source"`
	Config map[string]any `toml:"config,omitempty" json:"config,omitempty" yaml:"config,omitempty"`
}

type IPSourceHTTPConfig struct {
	Family  common.Family   `mapstructure:"family"`
	Timeout common.Duration `mapstructure:"timeout"`
}

type Notify struct {
	Telegram *TelegramNotify `toml:"telegram,omitempty" json:"telegram,omitempty" yaml:"telegram,omitempty"`
	Discord  *DiscordNotify  `toml:"discord,omitempty" json:"discord,omitempty" yaml:"discord,omitempty"`
}

type TelegramNotify struct {
	Enabled  bool   `toml:"enabled" json:"enabled" yaml:"enabled"`
	ChatID   string `toml:"chat_id" json:"chat_id" yaml:"chat_id"`
	BotToken string `toml:"bot_token" json:"bot_token" yaml:"bot_token"`
}

type DiscordNotify struct {
	Enabled    bool   `toml:"enabled" json:"enabled" yaml:"enabled"`
	WebhookURL string `toml:"webhook_url" json:"webhook_url" yaml:"webhook_url"`
}
