package reconcile

import (
	"context"
	"errors"
	"fmt"
	"net/netip"

	"github.com/onoffautomations/ha-cloudflare-ddns/common"
	"github.com/onoffautomations/ha-cloudflare-ddns/config"
	"github.com/onoffautomations/ha-cloudflare-ddns/log"
	"github.com/onoffautomations/ha-cloudflare-ddns/sources"
)

// Resolver tries each configured source in order and returns the first
// address produced. It fails only when every source has failed.
type Resolver struct {
	sources []sources.Interface
}

func NewResolver(ctx context.Context, c config.Domain) (*Resolver, error) {
	list := c.Sources
	if len(list) == 0 {
		switch c.IPMode {
		case common.IPModeInternal:
			list = []config.IPSource{{Type: "internal"}}
		default:
			list = sources.DefaultExternal()
		}
	}

	r := &Resolver{}
	for _, s := range list {
		ctx := log.SWith(ctx, log.Stage("init:source"), "type", s.Type)

		create, ok := sources.Sources[s.Type]
		if !ok {
			log.S(ctx).Errorw("unknown source type")
			return nil, fmt.Errorf("unknown source type %q", s.Type)
		}

		source, err := create(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("failed creating source: %w", err)
		}

		r.sources = append(r.sources, source)
	}

	return r, nil
}

func (r *Resolver) Resolve(ctx context.Context) (netip.Addr, error) {
	ctx = log.SWith(ctx, log.Stage("resolve"))

	var errs []error
	for _, source := range r.sources {
		ip, err := source.Lookup(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		log.S(ctx).Infow("resolved ip", log.IP(ip), "source_type", source.Typename())
		return ip, nil
	}

	log.S(ctx).Errorw("all sources failed, unable to get ip")
	return netip.Addr{}, fmt.Errorf("all sources failed: %w", errors.Join(errs...))
}
