package sources

import (
	"context"
	"errors"
	"net/netip"

	"github.com/onoffautomations/ha-cloudflare-ddns/config"
)

// ErrUnsupported is returned by sources whose lookup strategy is not
// implemented on this host. The reconciler treats it as any other
// resolution failure.
var ErrUnsupported = errors.New("unsupported IP source")

type Interface interface {
	Lookup(ctx context.Context) (netip.Addr, error)
	Typename() string
}

var Sources = map[string]func(ctx context.Context, source config.IPSource) (Interface, error){
	"http":     newHTTP,
	"internal": newInternal,
}

// DefaultExternal is the source chain used when a domain configures none:
// the primary lookup service plus fallbacks, tried in order.
func DefaultExternal() []config.IPSource {
	return []config.IPSource{
		{Type: "http", Source: "https://checkip.amazonaws.com"},
		{Type: "http", Source: "https://api.ipify.org"},
		{Type: "http", Source: "https://icanhazip.com"},
	}
}
