// Package reconcile keeps one DNS record pointed at the host's current IP.
// Each Reconciler owns a single domain: on every tick it resolves the
// host's IP, compares it against the record published at the provider, and
// updates the record on drift.
package reconcile

import (
	"context"
	"fmt"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/onoffautomations/ha-cloudflare-ddns/config"
	"github.com/onoffautomations/ha-cloudflare-ddns/ddns"
	"github.com/onoffautomations/ha-cloudflare-ddns/log"
	"github.com/onoffautomations/ha-cloudflare-ddns/notify"

	"go.uber.org/zap"
)

const providerTimeout = 30 * time.Second

type IPResolver interface {
	Resolve(ctx context.Context) (netip.Addr, error)
}

type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Snapshot is the externally observable state of one domain. Display
// layers map its fields onto their own widget types.
type Snapshot struct {
	Domain      string     `json:"domain"`
	Synced      bool       `json:"synced"`
	CurrentIP   string     `json:"current_ip,omitempty"`
	DNSRecordIP string     `json:"dns_record_ip,omitempty"`
	LastSync    *time.Time `json:"last_sync"`
	LastError   string     `json:"last_error,omitempty"`
}

type Reconciler struct {
	cfg      config.Domain
	resolver IPResolver
	provider ddns.Interface
	notifier Notifier
	interval time.Duration

	refreshCh  chan struct{}
	autoUpdate atomic.Bool

	mu    sync.Mutex
	state Snapshot
}

// New builds a reconciler for one configured domain. cfg must already be
// validated.
func New(ctx context.Context, cfg config.Domain) (*Reconciler, error) {
	ctx = log.SWith(ctx, log.Domain(cfg.Domain))

	resolver, err := NewResolver(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed init resolver: %w", err)
	}

	create, ok := ddns.Providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	provider, err := create(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed init provider: %w", err)
	}

	return NewWith(cfg, resolver, provider, notify.New(cfg.Notify)), nil
}

// NewWith wires a reconciler from already constructed collaborators.
func NewWith(cfg config.Domain, resolver IPResolver, provider ddns.Interface, notifier Notifier) *Reconciler {
	r := &Reconciler{
		cfg:       cfg,
		resolver:  resolver,
		provider:  provider,
		notifier:  notifier,
		interval:  cfg.UpdateInterval.Or(time.Duration(config.DefaultUpdateInterval)),
		refreshCh: make(chan struct{}, 1),
		state:     Snapshot{Domain: cfg.Domain},
	}
	r.autoUpdate.Store(cfg.AutoUpdate == nil || *cfg.AutoUpdate)

	return r
}

// Run drives the reconciliation cycle until ctx is canceled. The first
// cycle runs immediately; after that one cycle runs per tick or per
// requested refresh. All cycles execute on this goroutine, so cycles for
// the same domain never overlap.
func (r *Reconciler) Run(ctx context.Context) {
	ctx = log.SWith(ctx, log.Domain(r.cfg.Domain))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	_ = r.runCycle(ctx, false)

	for {
		select {
		case <-ctx.Done():
			log.S(ctx).Infow("reconciler stopped")
			return
		case <-ticker.C:
			_ = r.runCycle(ctx, false)
		case <-r.refreshCh:
			_ = r.runCycle(ctx, true)
		}
	}
}

// RunOnce performs a single cycle, for one-shot invocations.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	return r.runCycle(log.SWith(ctx, log.Domain(r.cfg.Domain)), false)
}

// Refresh requests a manual sync. It never blocks: a pending request is
// coalesced, and the cycle itself runs on the Run goroutine. A manual sync
// updates the record even when automatic updates are off.
func (r *Reconciler) Refresh() {
	select {
	case r.refreshCh <- struct{}{}:
	default:
	}
}

func (r *Reconciler) SetAutoUpdate(enabled bool) {
	r.autoUpdate.Store(enabled)
}

func (r *Reconciler) AutoUpdate() bool {
	return r.autoUpdate.Load()
}

// State returns a copy of the current snapshot. Safe from any goroutine.
func (r *Reconciler) State() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Reconciler) runCycle(ctx context.Context, manual bool) error {
	ctx = log.SWith(ctx, log.Stage("cycle"))
	elapsed := log.Elapsed("elapsed")

	ip, err := r.resolver.Resolve(ctx)
	if err != nil {
		r.setError(fmt.Errorf("resolve: %w", err))
		log.S(ctx).Errorw("resolve failed, skip cycle", zap.Error(err))
		return err
	}

	fCtx, cancel := context.WithTimeout(ctx, providerTimeout)
	record, err := r.provider.FetchRecord(fCtx, r.cfg.Domain)
	cancel()
	if err != nil {
		r.setError(fmt.Errorf("fetch: %w", err))
		log.S(ctx).Errorw("fetch failed, skip cycle", zap.Error(err))
		return err
	}

	current := ip.String()
	if record.Address == current && record.Proxied == r.cfg.Proxied {
		r.setSynced(current, record.Address)
		log.S(ctx).Infow("record in sync, skip update", log.IP(ip), elapsed)
		return nil
	}

	if !r.autoUpdate.Load() && !manual {
		r.setDrift(current, record.Address)
		log.S(ctx).Infow("record out of sync, auto update disabled", log.IP(ip), "record_ip", record.Address, elapsed)
		return nil
	}

	oldIP := record.Address
	record.Address = current
	record.TTL = r.cfg.TTL
	record.Proxied = r.cfg.Proxied

	// The update carries its own timeout instead of the run context, so
	// teardown cannot abort a write already sent to the provider.
	uCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), providerTimeout)
	written, err := r.provider.UpdateRecord(uCtx, record)
	cancel()
	if err != nil {
		r.setUpdateFailed(current, oldIP, fmt.Errorf("update: %w", err))
		log.S(ctx).Errorw("update failed", zap.Error(err), elapsed)
		return err
	}

	r.setSynced(current, written.Address)
	log.S(ctx).Infow("record updated", log.IP(ip), "old_ip", oldIP, elapsed)

	r.notifier.Notify(ctx, fmt.Sprintf("%s DNS record updated to %s (was %s)", r.cfg.Domain, current, oldIP))

	return nil
}

func (r *Reconciler) setSynced(current, recordIP string) {
	now := time.Now()

	r.mu.Lock()
	r.state.Synced = true
	r.state.CurrentIP = current
	r.state.DNSRecordIP = recordIP
	r.state.LastSync = &now
	r.state.LastError = ""
	r.mu.Unlock()
}

// setDrift records an observed divergence that was deliberately not
// repaired. The comparison itself succeeded, so lastSync advances.
func (r *Reconciler) setDrift(current, recordIP string) {
	now := time.Now()

	r.mu.Lock()
	r.state.Synced = false
	r.state.CurrentIP = current
	r.state.DNSRecordIP = recordIP
	r.state.LastSync = &now
	r.state.LastError = ""
	r.mu.Unlock()
}

// setError leaves everything except lastError untouched: a transient
// failure must not corrupt last-known-good state.
func (r *Reconciler) setError(err error) {
	r.mu.Lock()
	r.state.LastError = err.Error()
	r.mu.Unlock()
}

// setUpdateFailed keeps the stale provider-side address visible: the
// divergence is real until a write succeeds.
func (r *Reconciler) setUpdateFailed(current, staleRecordIP string, err error) {
	r.mu.Lock()
	r.state.Synced = false
	r.state.CurrentIP = current
	r.state.DNSRecordIP = staleRecordIP
	r.state.LastError = err.Error()
	r.mu.Unlock()
}
