// Package stocklock provides the short-lived per-SKU mutex that guards
// variant quantity changes.
package stocklock

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ariefcatur/go-retail-stock/internal/errs"
	"github.com/ariefcatur/go-retail-stock/internal/metrics"
	"github.com/ariefcatur/go-retail-stock/internal/redisx"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store is the key/value backend behind the locks. TryAcquire must be an
// atomic create-if-absent with expiry and must never overwrite a live key.
// Release deletes keys unconditionally; absent keys are not an error.
type Store interface {
	TryAcquire(ctx context.Context, key, holder string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, keys ...string) error
}

// Options tunes lock expiry and how long Acquire polls a held lock.
type Options struct {
	TTL           time.Duration // expiry of a held lock, the crash safety net
	Wait          time.Duration // bounded wait before reporting contention
	RetryInterval time.Duration
}

// DefaultOptions holds a lock for 600s and waits up to 2s for it.
func DefaultOptions() Options {
	return Options{
		TTL:           redisx.TTLVariantLock,
		Wait:          2 * time.Second,
		RetryInterval: 25 * time.Millisecond,
	}
}

const releaseTimeout = 2 * time.Second

// Locker hands out per-SKU leases backed by a Store.
type Locker struct {
	store   Store
	opts    Options
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// New returns a Locker over store. A zero TTL or RetryInterval falls back to
// the defaults; m may be nil.
func New(store Store, opts Options, log zerolog.Logger, m *metrics.Metrics) *Locker {
	if opts.TTL <= 0 {
		opts.TTL = redisx.TTLVariantLock
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 25 * time.Millisecond
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &Locker{
		store:   store,
		opts:    opts,
		log:     log.With().Str("component", "stocklock").Logger(),
		metrics: m,
	}
}

// Acquire takes the lock for sku, polling until Options.Wait elapses. A lock
// still held after the wait yields an error marked errs.ErrLockContention;
// a backend failure yields one marked errs.ErrStoreUnavailable.
func (l *Locker) Acquire(ctx context.Context, sku string) (*Lease, error) {
	key := redisx.VariantLockKey(sku)
	holder := uuid.NewString()
	deadline := time.Now().Add(l.opts.Wait)

	for {
		ok, err := l.store.TryAcquire(ctx, key, holder, l.opts.TTL)
		if err != nil {
			l.metrics.LockAcquires.WithLabelValues("error").Inc()
			return nil, errs.Unavailable(err, "acquire "+key)
		}
		if ok {
			l.metrics.LockAcquires.WithLabelValues("acquired").Inc()
			return &Lease{locker: l, sku: sku, key: key, holder: holder, acquiredAt: time.Now()}, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			l.metrics.LockAcquires.WithLabelValues("contended").Inc()
			return nil, errs.Mark(errs.Newf("sku %q is locked", sku), errs.ErrLockContention)
		}
		pause := l.opts.RetryInterval
		if pause > remaining {
			pause = remaining
		}
		t := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, errs.Wrapf(ctx.Err(), "acquire %s", key)
		case <-t.C:
		}
	}
}

// Release deletes the lock for sku regardless of who holds it.
func (l *Locker) Release(ctx context.Context, sku string) error {
	return l.release(ctx, redisx.VariantLockKey(sku))
}

// ReleaseMany deletes the locks for skus in one store round trip.
func (l *Locker) ReleaseMany(ctx context.Context, skus []string) error {
	keys := make([]string, 0, len(skus))
	for _, s := range skus {
		keys = append(keys, redisx.VariantLockKey(s))
	}
	return l.release(ctx, keys...)
}

// ReleaseLeases releases every not yet released lease in one round trip.
func (l *Locker) ReleaseLeases(ctx context.Context, leases []*Lease) error {
	keys := make([]string, 0, len(leases))
	for _, le := range leases {
		if le != nil && le.released.CompareAndSwap(false, true) {
			keys = append(keys, le.key)
		}
	}
	return l.release(ctx, keys...)
}

// release runs on a context detached from the caller's cancellation so a
// timed-out request still gives its locks back.
func (l *Locker) release(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := l.store.Release(rctx, keys...); err != nil {
		l.log.Error().Err(err).Strs("keys", keys).Msg("lock release failed, relying on ttl")
		return errs.Unavailable(err, "release locks")
	}
	return nil
}

// Lease is a held SKU lock. Release is idempotent, so it can be deferred on
// every exit path.
type Lease struct {
	locker     *Locker
	sku        string
	key        string
	holder     string
	acquiredAt time.Time
	released   atomic.Bool
}

func (le *Lease) SKU() string           { return le.sku }
func (le *Lease) Key() string           { return le.key }
func (le *Lease) Holder() string        { return le.holder }
func (le *Lease) AcquiredAt() time.Time { return le.acquiredAt }

func (le *Lease) Release(ctx context.Context) error {
	if !le.released.CompareAndSwap(false, true) {
		return nil
	}
	return le.locker.release(ctx, le.key)
}
