package sources

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/onoffautomations/ha-cloudflare-ddns/common"
	"github.com/onoffautomations/ha-cloudflare-ddns/config"
	"github.com/onoffautomations/ha-cloudflare-ddns/log"

	"go.uber.org/zap"
)

const (
	maxReadHTTP    = 4 * 1024
	defaultTimeout = 10 * time.Second
)

// httpSource queries a "what is my IP" service and extracts the first
// well-formed address of the configured family from the response body.
type httpSource struct {
	config.IPSourceHTTPConfig `mapstructure:",squash"`

	url string
}

func (s *httpSource) Typename() string {
	return "http"
}

func (s *httpSource) wrapDialer(upstream transportDialer) transportDialer {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		switch s.Family {
		case common.IPv4:
			network += "4"
		case common.IPv6:
			network += "6"
		}

		return upstream(ctx, network, addr)
	}
}

func (s *httpSource) Lookup(ctx context.Context) (result netip.Addr, err error) {
	client := http.DefaultClient
	timeout := s.Timeout.Or(defaultTimeout)

	if ctxClient := ctx.Value(common.HTTPClientKey); ctxClient != nil {
		client = ctxClient.(*http.Client)
	}

	client, err = wrapClientDialer(ctx, client, s.wrapDialer)
	if err != nil {
		return netip.Addr{}, err
	}

	ctx = log.SWith(ctx, "url", s.url, "family", s.Family, "timeout", timeout)

	tCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ctx = tCtx

	req, err := http.NewRequestWithContext(ctx, "GET", s.url, nil)
	if err != nil {
		log.S(ctx).Errorw("new request failed", zap.Error(err))
		return netip.Addr{}, fmt.Errorf("new request failed: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		log.S(ctx).Warnw("connection failed", zap.Error(err))
		return netip.Addr{}, fmt.Errorf("connection failed: %w", err)
	}

	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			log.S(ctx).Warnw("close body failed", zap.Error(err))
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		log.S(ctx).Warnw("unexpected status", "status", resp.Status)
		return netip.Addr{}, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReadHTTP))
	if err != nil {
		log.S(ctx).Warnw("receiving response failed", zap.Error(err))
		return netip.Addr{}, fmt.Errorf("failed receiving response: %w", err)
	}

	ip, ok := extractAddr(string(data), s.Family)
	if !ok {
		log.S(ctx).Warnw("no IP found in response", "body", string(data))
		return netip.Addr{}, fmt.Errorf("no %s found in response", s.Family)
	}

	log.S(ctx).Debugw("got ip", log.IP(ip))
	return ip, nil
}

// extractAddr scans whitespace-separated tokens for the first address of
// the wanted family. IPv4-mapped IPv6 responses count as IPv4.
func extractAddr(body string, family common.Family) (netip.Addr, bool) {
	for _, token := range strings.Fields(body) {
		ip, err := netip.ParseAddr(token)
		if err != nil || ip.Zone() != "" {
			continue
		}

		switch family {
		case common.IPv4:
			if ip.Is4() {
				return ip, true
			}
			if ip.Is4In6() {
				return ip.Unmap(), true
			}
		case common.IPv6:
			if ip.Is6() && !ip.Is4In6() {
				return ip, true
			}
		}
	}

	return netip.Addr{}, false
}

func newHTTP(ctx context.Context, config config.IPSource) (Interface, error) {
	ctx = log.SWith(ctx, "type", "http")

	if config.Source == "" {
		log.S(ctx).Errorw("missing source url")
		return nil, fmt.Errorf("http source requires a url")
	}

	s := &httpSource{url: config.Source}
	if err := common.WeakDecodeMap(config.Config, s); err != nil {
		log.S(ctx).Errorw("bad config", zap.Error(err), "config", config.Config)
		return nil, fmt.Errorf("bad config: %w", err)
	}

	return s, nil
}
