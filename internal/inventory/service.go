package inventory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/ariefcatur/go-retail-stock/internal/errs"
	"github.com/ariefcatur/go-retail-stock/internal/metrics"
	"github.com/ariefcatur/go-retail-stock/internal/stocklock"
	"github.com/rs/zerolog"
)

type Result struct {
	Committed []Item `json:"committed"`
}

// Service is the only writer of variant quantities. Every change happens
// with the SKU locks held, taken in lexicographic SKU order.
type Service struct {
	locker    *stocklock.Locker
	store     Store
	publisher MovementPublisher
	log       zerolog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewService(locker *stocklock.Locker, store Store, publisher MovementPublisher, log zerolog.Logger, m *metrics.Metrics) *Service {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &Service{
		locker:    locker,
		store:     store,
		publisher: publisher,
		log:       log.With().Str("component", "inventory").Logger(),
		metrics:   m,
		now:       time.Now,
	}
}

// Reserve takes stock for every item or for none of them. Business failures
// come back as *ReservationError marked errs.ErrInsufficientStock or
// errs.ErrLockContention; store failures are marked errs.ErrStoreUnavailable.
func (s *Service) Reserve(ctx context.Context, items []Item) (Result, error) {
	start := time.Now()
	res, err := s.reserve(ctx, items)
	s.metrics.ReservationSeconds.Observe(time.Since(start).Seconds())
	s.metrics.Reservations.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		s.logFailure("reserve", items, err)
	}
	return res, err
}

func (s *Service) reserve(ctx context.Context, items []Item) (Result, error) {
	want, skus, err := normalize(items)
	if err != nil {
		return Result{}, err
	}

	leases, err := s.lockAll(ctx, skus)
	if err != nil {
		return Result{}, err
	}
	defer s.unlockAll(ctx, leases)

	current, err := s.store.Variants(ctx, skus)
	if err != nil {
		return Result{}, errs.Unavailable(err, "read variants")
	}

	var short []string
	for _, sku := range skus {
		if want[sku] > current[sku].Available {
			short = append(short, sku)
		}
	}
	if len(short) > 0 {
		return Result{}, insufficientStock(short)
	}

	adj := make([]Adjustment, 0, len(skus))
	committed := make([]Item, 0, len(skus))
	for _, sku := range skus {
		adj = append(adj, Adjustment{SKU: sku, AvailableDelta: -want[sku], ReservedDelta: want[sku]})
		committed = append(committed, Item{SKU: sku, Qty: want[sku]})
	}
	if err := s.store.Apply(ctx, adj); err != nil {
		return Result{}, errs.Wrap(err, "decrement variants")
	}

	s.emit(ctx, committed, MovementReservation, -1)
	return Result{Committed: committed}, nil
}

// Release hands previously reserved quantities back to available stock, all
// or nothing. Releasing more than is reserved is rejected.
func (s *Service) Release(ctx context.Context, items []Item) (Result, error) {
	want, skus, err := normalize(items)
	if err != nil {
		return Result{}, err
	}

	leases, err := s.lockAll(ctx, skus)
	if err != nil {
		s.logFailure("release", items, err)
		return Result{}, err
	}
	defer s.unlockAll(ctx, leases)

	current, err := s.store.Variants(ctx, skus)
	if err != nil {
		return Result{}, errs.Unavailable(err, "read variants")
	}

	var over []string
	for _, sku := range skus {
		if want[sku] > current[sku].Reserved {
			over = append(over, sku)
		}
	}
	if len(over) > 0 {
		return Result{}, errs.Mark(errs.Newf("release exceeds reserved quantity: %s", strings.Join(over, ",")), errs.ErrInvalidInput)
	}

	adj := make([]Adjustment, 0, len(skus))
	released := make([]Item, 0, len(skus))
	for _, sku := range skus {
		adj = append(adj, Adjustment{SKU: sku, AvailableDelta: want[sku], ReservedDelta: -want[sku]})
		released = append(released, Item{SKU: sku, Qty: want[sku]})
	}
	if err := s.store.Apply(ctx, adj); err != nil {
		return Result{}, errs.Wrap(err, "restore variants")
	}

	s.emit(ctx, released, MovementRelease, 1)
	return Result{Committed: released}, nil
}

// SetStock overwrites the available quantity of one variant under its lock.
func (s *Service) SetStock(ctx context.Context, sku string, available int) (Variant, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" || available < 0 {
		return Variant{}, errs.Mark(errs.New("sku required and quantity must be >= 0"), errs.ErrInvalidInput)
	}

	lease, err := s.locker.Acquire(ctx, sku)
	if err != nil {
		if errs.Is(err, errs.ErrLockContention) {
			return Variant{}, locked(sku, err)
		}
		return Variant{}, err
	}
	defer func() { _ = lease.Release(ctx) }()

	prev, err := s.store.SetAvailable(ctx, sku, available)
	if err != nil {
		return Variant{}, errs.Unavailable(err, "set available")
	}
	if delta := available - prev; delta != 0 {
		s.publish(ctx, []Movement{{SKU: sku, Delta: delta, Reason: MovementAdjustment, Timestamp: s.now().UTC()}})
	}

	vs, err := s.store.Variants(ctx, []string{sku})
	if err != nil {
		return Variant{}, errs.Unavailable(err, "read variant")
	}
	return vs[sku], nil
}

// Variant reads the current quantities without locking.
func (s *Service) Variant(ctx context.Context, sku string) (Variant, error) {
	vs, err := s.store.Variants(ctx, []string{sku})
	if err != nil {
		return Variant{}, errs.Unavailable(err, "read variant")
	}
	v, ok := vs[sku]
	if !ok {
		return Variant{}, errs.Mark(errs.Newf("variant %q", sku), errs.ErrNotFound)
	}
	return v, nil
}

// lockAll acquires in the given (sorted) order. On failure every lock taken
// so far is released before returning.
func (s *Service) lockAll(ctx context.Context, skus []string) ([]*stocklock.Lease, error) {
	leases := make([]*stocklock.Lease, 0, len(skus))
	for _, sku := range skus {
		lease, err := s.locker.Acquire(ctx, sku)
		if err != nil {
			s.unlockAll(ctx, leases)
			if errs.Is(err, errs.ErrLockContention) {
				return nil, locked(sku, err)
			}
			return nil, err
		}
		leases = append(leases, lease)
	}
	return leases, nil
}

func (s *Service) unlockAll(ctx context.Context, leases []*stocklock.Lease) {
	if err := s.locker.ReleaseLeases(ctx, leases); err != nil {
		s.log.Error().Err(err).Int("locks", len(leases)).Msg("release after reservation failed")
	}
}

func (s *Service) emit(ctx context.Context, items []Item, reason MovementReason, sign int) {
	ts := s.now().UTC()
	ms := make([]Movement, 0, len(items))
	for _, it := range items {
		ms = append(ms, Movement{SKU: it.SKU, Delta: sign * it.Qty, Reason: reason, Timestamp: ts})
	}
	s.publish(ctx, ms)
}

// publish never fails the caller: the quantities are already committed.
func (s *Service) publish(ctx context.Context, ms []Movement) {
	for _, m := range ms {
		s.metrics.Movements.WithLabelValues(string(m.Reason)).Inc()
	}
	if err := s.publisher.PublishMovements(ctx, ms); err != nil {
		s.log.Error().Err(err).Int("movements", len(ms)).Msg("publish inventory movements")
	}
}

func (s *Service) logFailure(op string, items []Item, err error) {
	ev := s.log.Warn()
	if errs.Is(err, errs.ErrStoreUnavailable) {
		ev = s.log.Error()
	}
	ev.Err(err).Str("op", op).Int("items", len(items)).Msg("stock operation failed")
}

// normalize validates items, merges repeated SKUs and returns the distinct
// SKUs sorted lexicographically, the canonical lock order.
func normalize(items []Item) (map[string]int, []string, error) {
	if len(items) == 0 {
		return nil, nil, errs.Mark(errs.New("no items"), errs.ErrInvalidInput)
	}
	want := make(map[string]int, len(items))
	for _, it := range items {
		sku := strings.TrimSpace(it.SKU)
		if sku == "" {
			return nil, nil, errs.Mark(errs.New("empty sku"), errs.ErrInvalidInput)
		}
		if it.Qty < 1 {
			return nil, nil, errs.Mark(errs.Newf("invalid qty %d for sku %s", it.Qty, sku), errs.ErrInvalidInput)
		}
		want[sku] += it.Qty
	}
	skus := make([]string, 0, len(want))
	for sku := range want {
		skus = append(skus, sku)
	}
	sort.Strings(skus)
	return want, skus, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "committed"
	case errs.Is(err, errs.ErrInsufficientStock):
		return "insufficient_stock"
	case errs.Is(err, errs.ErrLockContention):
		return "locked"
	case errs.Is(err, errs.ErrStoreUnavailable):
		return "store_unavailable"
	case errs.Is(err, errs.ErrInvalidInput):
		return "invalid"
	default:
		return "error"
	}
}
