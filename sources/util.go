package sources

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"reflect"

	"github.com/onoffautomations/ha-cloudflare-ddns/log"
)

type transportDialer func(ctx context.Context, network, addr string) (net.Conn, error)

// wrapClientDialer clones the client's transport with a wrapped dialer, so a
// source can force the address family of its own connections without touching
// the shared client.
func wrapClientDialer(ctx context.Context, client *http.Client, wrapperBuilder func(upstream transportDialer) transportDialer) (*http.Client, error) {
	if client == nil {
		client = http.DefaultClient
	}

	transport := http.DefaultTransport.(*http.Transport)
	if client.Transport != nil {
		t, ok := client.Transport.(*http.Transport)
		if !ok {
			log.S(ctx).Errorw("found unknown custom http.Client.Transport",
				"transport_type", reflect.TypeOf(client.Transport).String())
			return nil, fmt.Errorf("unknown custom http.Client.Transport")
		}

		transport = t
	}

	transport = transport.Clone()
	if transport.DialContext == nil {
		transport.DialContext = (&net.Dialer{}).DialContext
	}
	transport.DialContext = wrapperBuilder(transport.DialContext)

	if transport.DialTLSContext != nil {
		transport.DialTLSContext = wrapperBuilder(transport.DialTLSContext)
	}

	clientCopy := *client
	clientCopy.Transport = transport
	return &clientCopy, nil
}
