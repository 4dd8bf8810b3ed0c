package ddns

import (
	"context"

	"github.com/onoffautomations/ha-cloudflare-ddns/config"
)

type Interface interface {
	// FetchRecord looks up the managed A record by name within the zone.
	FetchRecord(ctx context.Context, domain string) (Record, error)

	// UpdateRecord replaces the record's address, TTL and proxied flag in
	// one call. Safe to retry with identical arguments.
	UpdateRecord(ctx context.Context, r Record) (Record, error)
}

// Record is the provider-side view of the managed record. It is fetched
// fresh each cycle and never cached across cycles, so updates always act on
// a current record id.
type Record struct {
	ID      string
	Domain  string
	Address string
	TTL     int
	Proxied bool
}

var Providers = map[string]func(ctx context.Context, c config.Domain) (Interface, error){
	"cloudflare": newCloudflare,
}
