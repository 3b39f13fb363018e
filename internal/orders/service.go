package orders

import (
	"context"
	"strings"

	"github.com/ariefcatur/go-retail-stock/internal/errs"
	"github.com/ariefcatur/go-retail-stock/internal/inventory"
	"github.com/ariefcatur/go-retail-stock/internal/metrics"
	"github.com/rs/zerolog"
)

// StockReserver is satisfied by *inventory.Service.
type StockReserver interface {
	Reserve(ctx context.Context, items []inventory.Item) (inventory.Result, error)
	Release(ctx context.Context, items []inventory.Item) (inventory.Result, error)
}

type Service struct {
	repo    Repository
	stock   StockReserver
	log     zerolog.Logger
	metrics *metrics.Metrics
}

func NewService(repo Repository, stock StockReserver, log zerolog.Logger, m *metrics.Metrics) *Service {
	if m == nil {
		m = metrics.New(nil)
	}
	return &Service{
		repo:    repo,
		stock:   stock,
		log:     log.With().Str("component", "orders").Logger(),
		metrics: m,
	}
}

// PlaceOrder reserves stock for every line and then stores the order with
// all items pending. It is idempotent on ExternalID: a repeated call returns
// the stored order with existed=true and reserves nothing.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (Order, bool, error) {
	if err := validatePlacement(in); err != nil {
		return Order{}, false, err
	}

	existing, err := s.repo.FindByExternalID(ctx, in.ExternalID)
	if err == nil {
		return existing, true, nil
	}
	if !errs.Is(err, errs.ErrNotFound) {
		return Order{}, false, err
	}

	items := make([]inventory.Item, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, inventory.Item{SKU: it.SKU, Qty: it.Qty})
	}
	if _, err := s.stock.Reserve(ctx, items); err != nil {
		return Order{}, false, err
	}

	o, err := s.repo.CreateOrder(ctx, in)
	if err == nil {
		s.log.Info().Str("order_id", o.ID).Str("external_id", o.ExternalID).Int("items", len(o.Items)).Msg("order placed")
		return o, false, nil
	}

	if _, rerr := s.stock.Release(ctx, items); rerr != nil {
		s.log.Error().Err(rerr).Str("external_id", in.ExternalID).Msg("release stock after failed order insert")
	}
	if errs.Is(err, ErrAlreadyExists) {
		existing, ferr := s.repo.FindByExternalID(ctx, in.ExternalID)
		if ferr != nil {
			return Order{}, false, ferr
		}
		return existing, true, nil
	}
	return Order{}, false, err
}

func validatePlacement(in PlaceOrderInput) error {
	if strings.TrimSpace(in.ExternalID) == "" {
		return errs.Mark(errs.New("external_id required"), errs.ErrInvalidInput)
	}
	if len(in.Items) == 0 {
		return errs.Mark(errs.New("no items"), errs.ErrInvalidInput)
	}
	for _, it := range in.Items {
		if strings.TrimSpace(it.SKU) == "" || it.Qty < 1 {
			return errs.Mark(errs.Newf("invalid item sku=%q qty=%d", it.SKU, it.Qty), errs.ErrInvalidInput)
		}
		if it.UnitPrice.IsNegative() {
			return errs.Mark(errs.Newf("negative unit price for sku %s", it.SKU), errs.ErrInvalidInput)
		}
	}
	return nil
}

// Transition applies one item status change through the state machine.
func (s *Service) Transition(ctx context.Context, itemID string, to Status) (OrderItem, error) {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return OrderItem{}, err
	}
	if _, err := Transition(item, to); err != nil {
		s.metrics.ItemTransitions.WithLabelValues(string(to), "rejected").Inc()
		return OrderItem{}, err
	}
	updated, err := s.repo.UpdateItemStatus(ctx, itemID, item.Status, to)
	if err != nil {
		if errs.Is(err, errs.ErrIllegalTransition) {
			s.metrics.ItemTransitions.WithLabelValues(string(to), "rejected").Inc()
		}
		return OrderItem{}, err
	}
	s.metrics.ItemTransitions.WithLabelValues(string(to), "applied").Inc()
	s.log.Info().Str("item_id", itemID).Str("from", string(item.Status)).Str("to", string(to)).Msg("item status changed")
	return updated, nil
}

func (s *Service) Order(ctx context.Context, orderID string) (Order, error) {
	return s.repo.GetOrder(ctx, orderID)
}

// Aggregate recomputes the derived view from one snapshot of the order.
func (s *Service) Aggregate(ctx context.Context, orderID string) (Aggregate, error) {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return Aggregate{}, err
	}
	return BuildAggregate(o), nil
}

// Cancel cancels every item that is not yet terminal. Stock is not returned
// here; restocking on cancellation is the caller's policy.
func (s *Service) Cancel(ctx context.Context, orderID string) (Aggregate, error) {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return Aggregate{}, err
	}
	if !CanBeCancelled(o) {
		return Aggregate{}, errs.Mark(errs.Newf("order %s cannot be cancelled from %s", orderID, DeriveOrderStatus(o.Items)), errs.ErrIllegalTransition)
	}
	n, err := s.repo.CancelOrder(ctx, orderID)
	if err != nil {
		return Aggregate{}, err
	}
	if n == 0 {
		return Aggregate{}, errs.Mark(errs.Newf("order %s changed concurrently", orderID), errs.ErrIllegalTransition)
	}
	s.metrics.ItemTransitions.WithLabelValues(string(StatusCancelled), "applied").Add(float64(n))
	s.log.Info().Str("order_id", orderID).Int("items", n).Msg("order cancelled")
	return s.Aggregate(ctx, orderID)
}
