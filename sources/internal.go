package sources

import (
	"context"
	"net/netip"

	"github.com/onoffautomations/ha-cloudflare-ddns/config"
	"github.com/onoffautomations/ha-cloudflare-ddns/log"
)

// internalSource stands in for local interface enumeration. Construction
// succeeds so the reconciler handles internal mode through the same
// contract, but every lookup reports the mode as unsupported.
type internalSource struct{}

func (s *internalSource) Typename() string {
	return "internal"
}

func (s *internalSource) Lookup(ctx context.Context) (netip.Addr, error) {
	log.S(ctx).Warnw("internal IP resolution is not supported")
	return netip.Addr{}, ErrUnsupported
}

func newInternal(ctx context.Context, _ config.IPSource) (Interface, error) {
	return &internalSource{}, nil
}
