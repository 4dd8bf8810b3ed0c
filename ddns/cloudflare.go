package ddns

import (
	"context"
	"net/http"

	"github.com/onoffautomations/ha-cloudflare-ddns/common"
	"github.com/onoffautomations/ha-cloudflare-ddns/config"
	"github.com/onoffautomations/ha-cloudflare-ddns/log"

	cfapi "github.com/cloudflare/cloudflare-go"
	"go.uber.org/zap"
)

type cloudflare struct {
	token  string
	zoneID string
}

type logger struct {
	ctx context.Context
}

func (l *logger) Printf(format string, v ...interface{}) {
	log.S(l.ctx).Debugf(format, v...)
}

func (d *cloudflare) getAPI(ctx context.Context) (*cfapi.API, error) {
	client := http.DefaultClient

	if ctxClient := ctx.Value(common.HTTPClientKey); ctxClient != nil {
		client = ctxClient.(*http.Client)
	}

	api, err := cfapi.NewWithAPIToken(d.token, cfapi.HTTPClient(client), cfapi.UsingLogger(&logger{ctx: ctx}))
	if err != nil {
		log.S(ctx).Errorw("failed create cloudflare API", zap.Error(err))
		return nil, &Error{Kind: KindAuthFailed, Op: "init", Err: err}
	}

	return api, nil
}

func (d *cloudflare) FetchRecord(ctx context.Context, domain string) (Record, error) {
	ctx = log.SWith(ctx,
		"action", "fetch",
		"domain", domain,
		"zone_id", d.zoneID)

	api, err := d.getAPI(ctx)
	if err != nil {
		return Record{}, err
	}

	params := cfapi.ListDNSRecordsParams{
		Type: "A",
		Name: domain,
	}

	cfRecords, info, err := api.ListDNSRecords(ctx, cfapi.ZoneIdentifier(d.zoneID), params)
	if err != nil {
		log.S(ctx).Errorw("failed list records", zap.Error(err))
		return Record{}, classify("fetch", err)
	}

	if info.HasMorePages() {
		log.S(ctx).Warnw("partial result, ignore remaining", "count", len(cfRecords), "total", info.Count, "pages", info.TotalPages)
	}

	if len(cfRecords) == 0 {
		log.S(ctx).Errorw("no matching record in zone")
		return Record{}, &Error{Kind: KindNotFound, Op: "fetch"}
	}

	if len(cfRecords) > 1 {
		log.S(ctx).Errorw("inconsistent state: found multiple records", "count", len(cfRecords))
		return Record{}, &Error{Kind: KindMalformed, Op: "fetch"}
	}

	record := fromCF(cfRecords[0])
	log.S(ctx).Debugw("found record", "address", record.Address, "ttl", record.TTL, "proxied", record.Proxied)

	return record, nil
}

func (d *cloudflare) UpdateRecord(ctx context.Context, r Record) (Record, error) {
	ctx = log.SWith(ctx,
		"action", "update",
		"domain", r.Domain,
		"address", r.Address,
		"record_id", r.ID)

	api, err := d.getAPI(ctx)
	if err != nil {
		return Record{}, err
	}

	params := cfapi.UpdateDNSRecordParams{
		ID:      r.ID,
		Type:    "A",
		Name:    r.Domain,
		Content: r.Address,
		TTL:     r.TTL,
		Proxied: cfapi.BoolPtr(r.Proxied),
	}

	cfRecord, err := api.UpdateDNSRecord(ctx, cfapi.ZoneIdentifier(d.zoneID), params)
	if err != nil {
		log.S(ctx).Warnw("failed update record", zap.Error(err))
		return Record{}, classify("update", err)
	}

	record := fromCF(cfRecord)
	log.S(ctx).Debugw("record written", "address", record.Address, "ttl", record.TTL, "proxied", record.Proxied)

	return record, nil
}

func fromCF(r cfapi.DNSRecord) Record {
	return Record{
		ID:      r.ID,
		Domain:  r.Name,
		Address: r.Content,
		TTL:     r.TTL,
		Proxied: r.Proxied != nil && *r.Proxied,
	}
}

func newCloudflare(ctx context.Context, c config.Domain) (Interface, error) {
	d := &cloudflare{
		token:  c.APIToken,
		zoneID: c.ZoneID,
	}

	// Constructing the API client up front surfaces an empty or malformed
	// token at setup time instead of on the first cycle.
	if _, err := d.getAPI(log.SWith(ctx, "type", "cloudflare")); err != nil {
		return nil, err
	}

	return d, nil
}
