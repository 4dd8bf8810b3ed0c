package reconcile_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/onoffautomations/ha-cloudflare-ddns/common"
	"github.com/onoffautomations/ha-cloudflare-ddns/config"
	"github.com/onoffautomations/ha-cloudflare-ddns/ddns"
	"github.com/onoffautomations/ha-cloudflare-ddns/notify"
	"github.com/onoffautomations/ha-cloudflare-ddns/reconcile"
)

type resolverFunc func(ctx context.Context) (netip.Addr, error)

func (f resolverFunc) Resolve(ctx context.Context) (netip.Addr, error) { return f(ctx) }

func staticResolver(ip string) resolverFunc {
	addr := netip.MustParseAddr(ip)
	return func(ctx context.Context) (netip.Addr, error) { return addr, nil }
}

type notifierRec struct {
	mu       sync.Mutex
	messages []string
}

func (n *notifierRec) Notify(ctx context.Context, message string) {
	n.mu.Lock()
	n.messages = append(n.messages, message)
	n.mu.Unlock()
}

func (n *notifierRec) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

type fakeProvider struct {
	mu          sync.Mutex
	record      ddns.Record
	fetchErr    error
	updateErr   error
	fetchCalls  int
	updateCalls int
	lastUpdate  ddns.Record
}

func (p *fakeProvider) FetchRecord(ctx context.Context, domain string) (ddns.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetchCalls++
	if p.fetchErr != nil {
		return ddns.Record{}, p.fetchErr
	}
	return p.record, nil
}

func (p *fakeProvider) UpdateRecord(ctx context.Context, r ddns.Record) (ddns.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updateCalls++
	p.lastUpdate = r
	if p.updateErr != nil {
		return ddns.Record{}, p.updateErr
	}
	p.record = r
	return r, nil
}

func (p *fakeProvider) updates() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.updateCalls
}

func testDomain() config.Domain {
	return config.Domain{
		Domain:         "home.example.com",
		Provider:       "cloudflare",
		ZoneID:         "zone1",
		APIToken:       "token",
		TTL:            120,
		UpdateInterval: common.Duration(time.Hour),
	}
}

func record(ip string) ddns.Record {
	return ddns.Record{ID: "rec1", Domain: "home.example.com", Address: ip, TTL: 120}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestInSyncSkipsUpdate(t *testing.T) {
	provider := &fakeProvider{record: record("203.0.113.7")}
	notifier := &notifierRec{}
	r := reconcile.NewWith(testDomain(), staticResolver("203.0.113.7"), provider, notifier)

	if err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	if provider.updates() != 0 {
		t.Errorf("update calls: got %d, want 0", provider.updates())
	}
	if notifier.count() != 0 {
		t.Errorf("notifications: got %d, want 0", notifier.count())
	}

	state := r.State()
	if !state.Synced {
		t.Error("expected synced")
	}
	if state.CurrentIP != "203.0.113.7" || state.DNSRecordIP != "203.0.113.7" {
		t.Errorf("state ips: got %+v", state)
	}
	if state.LastSync == nil {
		t.Error("expected lastSync to be set")
	}
	if state.LastError != "" {
		t.Errorf("lastError: got %q", state.LastError)
	}
}

func TestDriftRepair(t *testing.T) {
	provider := &fakeProvider{record: record("203.0.113.1")}
	notifier := &notifierRec{}
	r := reconcile.NewWith(testDomain(), staticResolver("203.0.113.7"), provider, notifier)

	if err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	if provider.updates() != 1 {
		t.Fatalf("update calls: got %d, want 1", provider.updates())
	}
	if provider.lastUpdate.Address != "203.0.113.7" {
		t.Errorf("updated address: got %q", provider.lastUpdate.Address)
	}
	if provider.lastUpdate.TTL != 120 {
		t.Errorf("updated ttl: got %d", provider.lastUpdate.TTL)
	}
	if notifier.count() != 1 {
		t.Errorf("notifications: got %d, want 1", notifier.count())
	}

	state := r.State()
	if !state.Synced || state.DNSRecordIP != "203.0.113.7" || state.CurrentIP != "203.0.113.7" {
		t.Errorf("state: got %+v", state)
	}
	if state.LastSync == nil {
		t.Error("expected lastSync to be set")
	}
}

func TestProxiedDriftTriggersUpdate(t *testing.T) {
	rec := record("203.0.113.7")
	rec.Proxied = true
	provider := &fakeProvider{record: rec}
	r := reconcile.NewWith(testDomain(), staticResolver("203.0.113.7"), provider, &notifierRec{})

	if err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	if provider.updates() != 1 {
		t.Fatalf("update calls: got %d, want 1", provider.updates())
	}
	if provider.lastUpdate.Proxied {
		t.Error("update should carry the configured proxied flag")
	}
	if !r.State().Synced {
		t.Error("expected synced after proxied repair")
	}
}

func TestTransientResolverFailure(t *testing.T) {
	var fail atomic.Bool
	addr := netip.MustParseAddr("203.0.113.7")
	resolver := resolverFunc(func(ctx context.Context) (netip.Addr, error) {
		if fail.Load() {
			return netip.Addr{}, errors.New("all sources failed")
		}
		return addr, nil
	})

	provider := &fakeProvider{record: record("203.0.113.7")}
	r := reconcile.NewWith(testDomain(), resolver, provider, &notifierRec{})

	if err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("first cycle failed: %v", err)
	}

	fail.Store(true)
	if err := r.RunOnce(context.Background()); err == nil {
		t.Fatal("expected resolver failure")
	}

	state := r.State()
	if state.LastError == "" {
		t.Error("expected lastError after resolver failure")
	}
	if state.CurrentIP != "203.0.113.7" {
		t.Errorf("currentIp should keep last-known-good value, got %q", state.CurrentIP)
	}
	if !state.Synced {
		t.Error("synced must survive a transient resolution failure")
	}

	fail.Store(false)
	if err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("third cycle failed: %v", err)
	}

	state = r.State()
	if state.LastError != "" {
		t.Errorf("lastError should clear on success, got %q", state.LastError)
	}
	if !state.Synced {
		t.Error("expected synced")
	}
}

func TestFetchFailureKeepsState(t *testing.T) {
	provider := &fakeProvider{record: record("203.0.113.7")}
	r := reconcile.NewWith(testDomain(), staticResolver("203.0.113.7"), provider, &notifierRec{})

	if err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("first cycle failed: %v", err)
	}
	before := r.State()

	provider.mu.Lock()
	provider.fetchErr = &ddns.Error{Kind: ddns.KindNetwork, Op: "fetch", Err: errors.New("connection reset")}
	provider.mu.Unlock()

	if err := r.RunOnce(context.Background()); err == nil {
		t.Fatal("expected fetch failure")
	}

	state := r.State()
	if state.LastError == "" {
		t.Error("expected lastError after fetch failure")
	}
	if state.Synced != before.Synced || state.CurrentIP != before.CurrentIP || state.DNSRecordIP != before.DNSRecordIP {
		t.Errorf("state corrupted by transient fetch failure: %+v", state)
	}
}

func TestUpdateFailure(t *testing.T) {
	provider := &fakeProvider{
		record:    record("203.0.113.1"),
		updateErr: &ddns.Error{Kind: ddns.KindRateLimited, Op: "update"},
	}
	notifier := &notifierRec{}
	r := reconcile.NewWith(testDomain(), staticResolver("203.0.113.7"), provider, notifier)

	if err := r.RunOnce(context.Background()); err == nil {
		t.Fatal("expected update failure")
	}

	state := r.State()
	if state.Synced {
		t.Error("expected synced=false after failed update")
	}
	if state.CurrentIP != "203.0.113.7" {
		t.Errorf("currentIp: got %q, want resolved value", state.CurrentIP)
	}
	if state.DNSRecordIP != "203.0.113.1" {
		t.Errorf("dnsRecordIp must stay stale, got %q", state.DNSRecordIP)
	}
	if state.LastError == "" {
		t.Error("expected lastError")
	}
	if state.LastSync != nil {
		t.Error("lastSync must not advance on a failed update")
	}
	if notifier.count() != 0 {
		t.Errorf("notifications: got %d, want 0", notifier.count())
	}
}

func TestNotifierFailureDoesNotAffectSynced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "webhook gone", http.StatusBadRequest)
	}))
	defer srv.Close()

	cfg := testDomain()
	cfg.Notify.Discord = &config.DiscordNotify{Enabled: true, WebhookURL: srv.URL}

	provider := &fakeProvider{record: record("203.0.113.1")}
	r := reconcile.NewWith(cfg, staticResolver("203.0.113.7"), provider, notify.New(cfg.Notify))

	ctx := context.WithValue(context.Background(), common.HTTPClientKey, srv.Client())
	if err := r.RunOnce(ctx); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	state := r.State()
	if !state.Synced {
		t.Error("notification failure must not flip synced")
	}
	if state.LastError != "" {
		t.Errorf("notification failure must not set lastError, got %q", state.LastError)
	}
}

func TestAutoUpdateDisabledObservesDrift(t *testing.T) {
	cfg := testDomain()
	off := false
	cfg.AutoUpdate = &off

	provider := &fakeProvider{record: record("203.0.113.1")}
	notifier := &notifierRec{}
	r := reconcile.NewWith(cfg, staticResolver("203.0.113.7"), provider, notifier)

	if err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	if provider.updates() != 0 {
		t.Errorf("update calls: got %d, want 0", provider.updates())
	}
	if notifier.count() != 0 {
		t.Errorf("notifications: got %d, want 0", notifier.count())
	}

	state := r.State()
	if state.Synced {
		t.Error("expected synced=false while drift is unrepaired")
	}
	if state.CurrentIP != "203.0.113.7" || state.DNSRecordIP != "203.0.113.1" {
		t.Errorf("state ips: got %+v", state)
	}
	if state.LastSync == nil {
		t.Error("comparison completed, lastSync should advance")
	}
}

func TestManualRefreshForcesUpdate(t *testing.T) {
	cfg := testDomain()
	off := false
	cfg.AutoUpdate = &off

	provider := &fakeProvider{record: record("203.0.113.1")}
	r := reconcile.NewWith(cfg, staticResolver("203.0.113.7"), provider, &notifierRec{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	// First cycle observes the drift without writing.
	waitFor(t, func() bool { return !r.State().Synced })
	if provider.updates() != 0 {
		t.Fatalf("auto update disabled, yet update calls = %d", provider.updates())
	}

	r.Refresh()
	waitFor(t, func() bool { return provider.updates() == 1 })
	waitFor(t, func() bool { return r.State().Synced })

	cancel()
	<-done
}

func TestNoOverlappingCycles(t *testing.T) {
	var calls atomic.Int32
	block := make(chan struct{})
	started := make(chan struct{}, 1)
	addr := netip.MustParseAddr("203.0.113.7")

	resolver := resolverFunc(func(ctx context.Context) (netip.Addr, error) {
		calls.Add(1)
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return addr, nil
	})

	provider := &fakeProvider{record: record("203.0.113.7")}
	r := reconcile.NewWith(testDomain(), resolver, provider, &notifierRec{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	<-started
	for i := 0; i < 5; i++ {
		r.Refresh()
	}
	time.Sleep(50 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Fatalf("a refresh started an overlapping cycle: %d concurrent resolves", got)
	}

	close(block)
	// The coalesced refresh runs exactly one more cycle once the first
	// finishes.
	waitFor(t, func() bool { return calls.Load() == 2 })

	cancel()
	<-done
}
